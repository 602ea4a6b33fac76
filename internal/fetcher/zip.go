package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractDump extracts the data file of a GeoNames dump archive. The entry
// named want is preferred; otherwise the archive must hold exactly one file
// besides readme.txt.
func ExtractDump(zipPath, want, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	files := regularFiles(r.File)
	if f := findEntry(files, want); f != nil {
		return extractZIPEntry(f, destDir)
	}

	var data []*zip.File
	for _, f := range files {
		if !strings.EqualFold(filepath.Base(f.Name), "readme.txt") {
			data = append(data, f)
		}
	}
	if len(data) != 1 {
		return "", eris.Errorf("zip: %q not found and %d candidate files in %s", want, len(data), filepath.Base(zipPath))
	}
	return extractZIPEntry(data[0], destDir)
}

func findEntry(files []*zip.File, name string) *zip.File {
	for _, f := range files {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func regularFiles(files []*zip.File) []*zip.File {
	var out []*zip.File
	for _, f := range files {
		if !f.FileInfo().IsDir() {
			out = append(out, f)
		}
	}
	return out
}

// extractZIPEntry extracts a regular file entry below destDir and returns
// its path.
func extractZIPEntry(f *zip.File, destDir string) (string, error) {
	// Sanitize against zip slip
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: illegal path %q (zip slip attempt)", f.Name)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	if _, err := writeFileAtomic(destPath, io.LimitReader(rc, int64(f.UncompressedSize64))); err != nil {
		return "", eris.Wrapf(err, "zip: extract %s", f.Name)
	}
	return destPath, nil
}
