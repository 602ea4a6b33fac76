package geofile

import (
	"iter"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
)

// ReadOptions configures ReadFile.
type ReadOptions struct {
	Kind     FileKind          // default AutoDetect
	Encoding encoding.Encoding // default UTF-8
}

// Records is a forward-only cursor over the records decoded from a
// LineSource. The first malformed line ends iteration with a *ParseError;
// records are never skipped.
//
//	recs := geofile.Read(src, codec)
//	defer recs.Close()
//	for recs.Next() {
//		use(recs.Record())
//	}
//	if err := recs.Err(); err != nil { ... }
type Records[T any] struct {
	src     *LineSource
	codec   Codec[T]
	sep     string
	skipped int
	rec     T
	err     error
	count   int
}

// Read wraps src with codec. The returned cursor owns src.
func Read[T any](src *LineSource, codec Codec[T]) *Records[T] {
	return &Records[T]{
		src:   src,
		codec: codec,
		sep:   string(codec.Separator()),
	}
}

// ReadFile opens path and reads it with codec. An unresolvable kind fails
// here, before any line is read.
func ReadFile[T any](path string, codec Codec[T], opts ReadOptions) (*Records[T], error) {
	src, err := OpenLines(path, opts.Kind, opts.Encoding)
	if err != nil {
		return nil, err
	}
	return Read(src, codec), nil
}

// Next decodes the next record. It returns false when the source is
// exhausted, on the first error, or after Close.
func (r *Records[T]) Next() bool {
	if r.err != nil {
		return false
	}
	var zero T
	r.rec = zero

	for r.src.Next() {
		if r.skipped < r.codec.SkipLines() {
			r.skipped++
			continue
		}

		line := r.src.Text()
		if r.codec.HasComments() && strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, r.sep)
		if len(fields) != r.codec.ExpectedFields() {
			r.fail(&ParseError{
				Line:     r.src.Line(),
				Expected: r.codec.ExpectedFields(),
				Actual:   len(fields),
			})
			return false
		}

		rec, err := r.codec.Decode(fields)
		if err != nil {
			r.fail(&ParseError{Line: r.src.Line(), Actual: len(fields), Err: err})
			return false
		}

		r.rec = rec
		r.count++
		return true
	}

	r.err = r.src.Err()
	return false
}

// Record returns the record decoded by the last successful Next.
func (r *Records[T]) Record() T { return r.rec }

// Line returns the physical line number of the current record.
func (r *Records[T]) Line() int { return r.src.Line() }

// Count returns how many records have been yielded so far.
func (r *Records[T]) Count() int { return r.count }

// Err returns the error that ended iteration, if any.
func (r *Records[T]) Err() error { return r.err }

// Close releases the underlying source. Records already yielded stay valid.
func (r *Records[T]) Close() error {
	closeErr := r.src.Close()
	if r.err != nil {
		return r.err
	}
	return closeErr
}

// All adapts the cursor to a range-over-func sequence. The sequence yields
// at most one non-nil error, as its last element. Breaking out of the loop
// closes the underlying source.
func (r *Records[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer r.src.release()
		for r.Next() {
			if !yield(r.rec, nil) {
				return
			}
		}
		if r.err != nil {
			var zero T
			yield(zero, r.err)
		}
	}
}

func (r *Records[T]) fail(err *ParseError) {
	r.err = err
	r.src.release()
	zap.L().Debug("geofile: read aborted",
		zap.String("source", r.src.Name()),
		zap.Int("line", err.Line),
		zap.Int("records", r.count),
		zap.Error(err),
	)
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for rec, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Take yields at most n records of seq and then stops pulling from it.
func Take[T any](seq iter.Seq2[T, error], n int) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if n <= 0 {
			return
		}
		i := 0
		for rec, err := range seq {
			if !yield(rec, err) || err != nil {
				return
			}
			i++
			if i >= n {
				return
			}
		}
	}
}
