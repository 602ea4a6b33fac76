package geofile

import (
	"golang.org/x/text/encoding"
)

// Tab is the field separator of every GeoNames dump.
const Tab = '\t'

// Codec describes how one line format is validated and decoded into T.
// Decode is only ever called with exactly ExpectedFields() fields.
type Codec[T any] interface {
	ExpectedFields() int
	HasComments() bool
	SkipLines() int
	Separator() rune
	Decode(fields []string) (T, error)
}

// Composer turns a T back into the fields of one delimited line.
// Encode may return any number of fields.
type Composer[T any] interface {
	Separator() rune
	// Encoding is the text encoding of the written bytes; nil means UTF-8.
	Encoding() encoding.Encoding
	Encode(record T) ([]string, error)
}
