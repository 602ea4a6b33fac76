package geofile

import (
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
)

// Fields is a record kept as its raw, positional field values.
type Fields []string

// Field returns the value at position i, or "" when i is out of range.
func (f Fields) Field(i int) string {
	if i < 0 || i >= len(f) {
		return ""
	}
	return f[i]
}

// RawCodec reads any delimited layout into Fields without interpreting the
// values. It is the codec for ad-hoc and custom files.
type RawCodec struct {
	NumFields int
	Skip      int
	Sep       rune
	Comments  bool
}

// NewRawCodec validates the layout and returns a codec for it.
func NewRawCodec(fields, skip int, sep rune, comments bool) (RawCodec, error) {
	c := RawCodec{NumFields: fields, Skip: skip, Sep: sep, Comments: comments}
	return c, c.Validate()
}

// Validate reports an invalid layout.
func (c RawCodec) Validate() error {
	if c.NumFields <= 0 {
		return eris.Errorf("geofile: raw layout needs a positive field count, got %d", c.NumFields)
	}
	if c.Skip < 0 {
		return eris.Errorf("geofile: raw layout skip lines must not be negative, got %d", c.Skip)
	}
	if c.Sep == 0 || c.Sep == '\n' || c.Sep == '\r' {
		return eris.Errorf("geofile: raw layout separator %q is not usable", c.Sep)
	}
	return nil
}

func (c RawCodec) ExpectedFields() int { return c.NumFields }
func (c RawCodec) HasComments() bool   { return c.Comments }
func (c RawCodec) SkipLines() int      { return c.Skip }
func (c RawCodec) Separator() rune     { return c.Sep }

func (c RawCodec) Decode(fields []string) (Fields, error) {
	return Fields(fields), nil
}

// RawComposer writes Fields back out verbatim.
type RawComposer struct {
	Sep rune
	Enc encoding.Encoding
}

func (c RawComposer) Separator() rune             { return c.Sep }
func (c RawComposer) Encoding() encoding.Encoding { return c.Enc }

func (c RawComposer) Encode(rec Fields) ([]string, error) {
	return rec, nil
}
