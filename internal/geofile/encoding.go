package geofile

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// LookupEncoding resolves a WHATWG encoding label such as "utf-8",
// "windows-1252" or "utf-16le". UTF-8 and the empty label resolve to nil,
// which every reader and writer in this package treats as UTF-8 passthrough.
func LookupEncoding(label string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8":
		return nil, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, eris.Wrapf(err, "geofile: unsupported text encoding %q", label)
	}
	return enc, nil
}
