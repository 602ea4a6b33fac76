// Package geofile streams delimited GeoNames-style dump files into typed
// records and composes typed records back into delimited lines.
//
// Reading is pull based: a LineSource yields decoded text lines from a plain
// or gzip-compressed stream, and Records applies a Codec to every line that
// survives header and comment skipping. Writing runs the other way through a
// Composer. Nothing in this package starts goroutines.
package geofile

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// FileKind describes how the bytes of a dump file are represented.
type FileKind int

const (
	AutoDetect FileKind = iota // resolve from the file extension at open time
	Plain                      // uncompressed text
	Compressed                 // gzip-compressed text
)

// ErrUnsupportedFileKind is returned when a file kind cannot be resolved,
// either because AutoDetect met an unknown extension or because the requested
// kind is not a member of the enumeration.
var ErrUnsupportedFileKind = eris.New("geofile: unsupported file kind")

var (
	plainExts      = []string{".txt", ".tsv", ".csv", ".tab"}
	compressedExts = []string{".gz", ".gzip"}
)

// String returns the configuration name of the kind.
func (k FileKind) String() string {
	switch k {
	case AutoDetect:
		return "auto"
	case Plain:
		return "plain"
	case Compressed:
		return "gzip"
	default:
		return "unknown"
	}
}

// Valid reports whether k is a member of the enumeration.
func (k FileKind) Valid() bool {
	return k >= AutoDetect && k <= Compressed
}

// ParseFileKind converts a name like "auto", "plain" or "gzip" into a FileKind.
func ParseFileKind(s string) (FileKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "autodetect":
		return AutoDetect, nil
	case "plain", "text", "txt":
		return Plain, nil
	case "gzip", "gz", "compressed":
		return Compressed, nil
	default:
		return 0, eris.Wrapf(ErrUnsupportedFileKind, "unknown kind %q (valid: auto, plain, gzip)", s)
	}
}

// ResolveKind returns the effective kind for path. An explicit Plain or
// Compressed request always wins over the extension so that misnamed files
// can still be read.
func ResolveKind(path string, requested FileKind) (FileKind, error) {
	switch requested {
	case Plain, Compressed:
		return requested, nil
	case AutoDetect:
		return kindFromExt(path)
	default:
		return 0, eris.Wrapf(ErrUnsupportedFileKind, "kind value %d", int(requested))
	}
}

func kindFromExt(path string) (FileKind, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range compressedExts {
		if ext == e {
			return Compressed, nil
		}
	}
	for _, e := range plainExts {
		if ext == e {
			return Plain, nil
		}
	}
	return 0, eris.Wrapf(ErrUnsupportedFileKind, "cannot detect kind of %q from extension %q", filepath.Base(path), ext)
}
