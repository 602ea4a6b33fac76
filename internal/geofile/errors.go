package geofile

import (
	"fmt"
)

// ParseError reports a line that could not be turned into a record. It is
// fatal to the read that produced it.
type ParseError struct {
	Line     int // 1-based physical line number in the stream
	Expected int // expected field count, 0 when the failure came from Decode
	Actual   int
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geofile: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("geofile: line %d: expected %d fields, found %d", e.Line, e.Expected, e.Actual)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FieldError describes a single field value that failed conversion.
type FieldError struct {
	Value string
	Kind  string // "integer", "float", "date", ...
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("cannot parse %q as %s", e.Value, e.Kind)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
