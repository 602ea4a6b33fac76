package geofile

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the modification date layout used by GeoNames dumps.
const DateLayout = "2006-01-02"

// ParseInt parses s as a base-10 int.
func ParseInt(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &FieldError{Value: s, Kind: "integer", Err: err}
	}
	return v, nil
}

// ParseInt64 parses s as a base-10 int64.
func ParseInt64(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, &FieldError{Value: s, Kind: "integer", Err: err}
	}
	return v, nil
}

// ParseOptionalInt64 returns nil for a blank field.
func ParseOptionalInt64(s string) (*int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := ParseInt64(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ParseFloat parses s as a float64 using the invariant "." decimal separator.
func ParseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &FieldError{Value: s, Kind: "float", Err: err}
	}
	return v, nil
}

// ParseOptionalInt returns nil for a blank field.
func ParseOptionalInt(s string) (*int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := ParseInt(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ParseDate parses a yyyy-mm-dd date. A blank field yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &FieldError{Value: s, Kind: "date", Err: err}
	}
	return t, nil
}

// SplitList splits a comma-separated list field. Blank input yields nil.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// FormatFloat renders f with the shortest representation that round-trips.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
