// Package fetcher downloads GeoNames dump files over HTTP and unpacks the
// zipped ones.
package fetcher

import (
	"context"
	"io"
	"time"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)

	// DownloadIfNewer fetches the URL only if it was modified after since.
	// Returns (body, lastModified, changed, error). If not changed, body is nil
	// and lastModified is since.
	DownloadIfNewer(ctx context.Context, url string, since time.Time) (io.ReadCloser, time.Time, bool, error)
}
