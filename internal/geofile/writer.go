package geofile

import (
	"bufio"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
)

// Writer composes records into delimited lines on an underlying io.Writer.
// Output is buffered; call Flush when done.
type Writer[T any] struct {
	bw       *bufio.Writer
	composer Composer[T]
	sep      string
	enc      *encoding.Encoder
	count    int
}

// NewWriter returns a Writer that writes to w with composer.
func NewWriter[T any](w io.Writer, composer Composer[T]) *Writer[T] {
	cw := &Writer[T]{
		bw:       bufio.NewWriterSize(w, 64*1024),
		composer: composer,
		sep:      string(composer.Separator()),
	}
	if enc := composer.Encoding(); enc != nil {
		cw.enc = enc.NewEncoder()
	}
	return cw
}

// Write encodes rec and writes it as one "\n"-terminated line.
func (w *Writer[T]) Write(rec T) error {
	fields, err := w.composer.Encode(rec)
	if err != nil {
		return eris.Wrapf(err, "geofile: compose record %d", w.count+1)
	}

	// Encode the terminator with the line: it is two bytes in UTF-16.
	line := strings.Join(fields, w.sep) + "\n"
	if w.enc != nil {
		line, err = w.enc.String(line)
		if err != nil {
			return eris.Wrapf(err, "geofile: encode record %d", w.count+1)
		}
	}

	if _, err := w.bw.WriteString(line); err != nil {
		return eris.Wrap(err, "geofile: write line")
	}
	w.count++
	return nil
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer[T]) Flush() error {
	return eris.Wrap(w.bw.Flush(), "geofile: flush")
}

// Count returns the number of lines written.
func (w *Writer[T]) Count() int { return w.count }

// Write composes every record of records onto w, in order, and returns the
// number of lines written.
func Write[T any](w io.Writer, records iter.Seq[T], composer Composer[T]) (int, error) {
	return Pipe(w, func(yield func(T, error) bool) {
		for rec := range records {
			if !yield(rec, nil) {
				return
			}
		}
	}, composer)
}

// Pipe is Write for sequences that can fail, such as Records.All. It stops
// at the first upstream error and returns it after flushing what was written.
func Pipe[T any](w io.Writer, records iter.Seq2[T, error], composer Composer[T]) (int, error) {
	cw := NewWriter(w, composer)
	for rec, err := range records {
		if err != nil {
			_ = cw.Flush()
			return cw.Count(), err
		}
		if err := cw.Write(rec); err != nil {
			return cw.Count(), err
		}
	}
	return cw.Count(), cw.Flush()
}

// WriteFile writes records to path, gzip-compressing when kind (resolved
// against the extension when AutoDetect) is Compressed. The file is written
// to a temporary sibling and renamed into place only on success.
func WriteFile[T any](path string, kind FileKind, records iter.Seq2[T, error], composer Composer[T]) (int, error) {
	effective, err := ResolveKind(path, kind)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, eris.Wrapf(err, "geofile: create %s", path)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	var out io.Writer = tmp
	var zw *gzip.Writer
	if effective == Compressed {
		zw = gzip.NewWriter(tmp)
		zw.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		out = zw
	}

	n, err := Pipe(out, records, composer)
	if err != nil {
		return n, err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return n, eris.Wrapf(err, "geofile: finish gzip %s", path)
		}
	}
	if err := tmp.Close(); err != nil {
		return n, eris.Wrapf(err, "geofile: close %s", path)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return n, eris.Wrapf(err, "geofile: chmod %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return n, eris.Wrapf(err, "geofile: rename into %s", path)
	}
	committed = true

	zap.L().Debug("geofile: wrote file",
		zap.String("path", path),
		zap.Stringer("kind", effective),
		zap.Int("lines", n),
	)
	return n, nil
}
