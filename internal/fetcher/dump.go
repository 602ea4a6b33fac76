package fetcher

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Dump mirrors files of a GeoNames export directory into Dir.
type Dump struct {
	Fetcher Fetcher
	BaseURL string
	Dir     string
	Force   bool // download even when the local copy is current
}

// DumpResult describes one fetched dump file.
type DumpResult struct {
	Name    string // requested file, e.g. "cities500.zip"
	Path    string // local data file, the extracted .txt for archives
	Bytes   int64  // bytes downloaded, 0 when skipped
	Skipped bool   // upstream copy not newer than the local one
}

// URL returns the download URL of a dump file.
func (d *Dump) URL(name string) (string, error) {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", eris.Errorf("fetcher: invalid dump name %q", name)
	}
	u, err := url.JoinPath(d.BaseURL, name)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: build url for %s", name)
	}
	return u, nil
}

// Fetch downloads name unless the local copy is current, then extracts the
// data file when name is a .zip archive.
func (d *Dump) Fetch(ctx context.Context, name string) (DumpResult, error) {
	res := DumpResult{Name: name}
	log := zap.L().With(zap.String("component", "fetcher"), zap.String("file", name))

	u, err := d.URL(name)
	if err != nil {
		return res, err
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return res, eris.Wrap(err, "fetcher: create dump dir")
	}

	local := filepath.Join(d.Dir, name)
	if d.Force {
		n, err := d.Fetcher.DownloadToFile(ctx, u, local)
		if err != nil {
			return res, eris.Wrapf(err, "fetcher: %s", name)
		}
		res.Bytes = n
		log.Info("dump downloaded", zap.Int64("bytes", n), zap.Bool("forced", true))
		return d.extract(res, local, log)
	}

	var since time.Time
	if fi, err := os.Stat(local); err == nil {
		since = fi.ModTime()
	}

	body, modified, changed, err := d.Fetcher.DownloadIfNewer(ctx, u, since)
	if err != nil {
		return res, eris.Wrapf(err, "fetcher: %s", name)
	}
	if !changed {
		res.Skipped = true
		log.Info("dump not modified, using local copy", zap.Time("since", since))
	} else {
		n, err := writeFileAtomic(local, body)
		_ = body.Close()
		if err != nil {
			return res, eris.Wrapf(err, "fetcher: %s", name)
		}
		res.Bytes = n
		if !modified.IsZero() {
			if err := os.Chtimes(local, modified, modified); err != nil {
				return res, eris.Wrap(err, "fetcher: set mtime")
			}
		}
		log.Info("dump downloaded", zap.Int64("bytes", n))
	}
	return d.extract(res, local, log)
}

// extract points res at the data file, unpacking .zip archives into Dir.
func (d *Dump) extract(res DumpResult, local string, log *zap.Logger) (DumpResult, error) {
	res.Path = local
	if strings.EqualFold(filepath.Ext(res.Name), ".zip") {
		want := strings.TrimSuffix(res.Name, filepath.Ext(res.Name)) + ".txt"
		path, err := ExtractDump(local, want, d.Dir)
		if err != nil {
			return res, err
		}
		res.Path = path
		log.Debug("dump extracted", zap.String("path", path))
	}
	return res, nil
}
