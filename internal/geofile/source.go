package geofile

import (
	"bufio"
	"bytes"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
)

// MaxLineSize bounds a single line. GeoNames alternate-name columns can run
// to tens of kilobytes, well past bufio's default token size.
const MaxLineSize = 16 << 20

const utf8BOM = "\uFEFF"

// LineSource yields the decoded text lines of a plain or gzip-compressed
// stream, one at a time. It owns every resource it opened and releases them
// on EOF, on the first read error, or on Close, whichever comes first.
//
// A LineSource is not safe for concurrent use.
type LineSource struct {
	name    string
	kind    FileKind
	scanner *bufio.Scanner
	closers []io.Closer
	line    int
	text    string
	err     error
	done    bool
}

// OpenLines opens the file at path, resolving kind against the extension
// when it is AutoDetect. A nil enc reads UTF-8.
func OpenLines(path string, kind FileKind, enc encoding.Encoding) (*LineSource, error) {
	effective, err := ResolveKind(path, kind)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geofile: open %s", path)
	}

	src, err := newLineSource(f, effective, enc)
	if err != nil {
		_ = f.Close()
		return nil, eris.Wrapf(err, "geofile: open %s", path)
	}
	src.name = path
	src.closers = append(src.closers, f)

	zap.L().Debug("geofile: opened source",
		zap.String("path", path),
		zap.Stringer("requested_kind", kind),
		zap.Stringer("kind", effective),
	)
	return src, nil
}

// NewLineSource reads lines from r. Streams carry no extension, so kind must
// be Plain or Compressed. The caller keeps ownership of r; Close only
// releases the state the source created on top of it.
func NewLineSource(r io.Reader, kind FileKind, enc encoding.Encoding) (*LineSource, error) {
	if kind != Plain && kind != Compressed {
		return nil, eris.Wrapf(ErrUnsupportedFileKind, "stream sources need plain or gzip, got %s", kind)
	}
	return newLineSource(r, kind, enc)
}

func newLineSource(r io.Reader, kind FileKind, enc encoding.Encoding) (*LineSource, error) {
	src := &LineSource{name: "stream", kind: kind}

	if kind == Compressed {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, eris.Wrap(err, "geofile: open gzip stream")
		}
		src.closers = append(src.closers, zr)
		r = zr
	}

	if enc != nil {
		r = enc.NewDecoder().Reader(r)
	}

	src.scanner = bufio.NewScanner(r)
	src.scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	src.scanner.Split(scanUniversalLines)
	return src, nil
}

// Name returns the path the source was opened from, or "stream".
func (s *LineSource) Name() string { return s.name }

// Kind returns the resolved kind; never AutoDetect.
func (s *LineSource) Kind() FileKind { return s.kind }

// Next advances to the next line. It returns false at EOF, after an error
// or after Close.
func (s *LineSource) Next() bool {
	if s.done {
		return false
	}
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			s.err = eris.Wrapf(err, "geofile: read %s after line %d", s.name, s.line)
		}
		s.release()
		return false
	}
	s.line++
	s.text = s.scanner.Text()
	if s.line == 1 {
		s.text = strings.TrimPrefix(s.text, utf8BOM)
	}
	return true
}

// Text returns the current line without its terminator.
func (s *LineSource) Text() string { return s.text }

// Line returns the 1-based number of the current line.
func (s *LineSource) Line() int { return s.line }

// Err returns the first read or release error.
func (s *LineSource) Err() error { return s.err }

// Close releases the underlying resources. It is safe to call more than once.
func (s *LineSource) Close() error {
	s.release()
	return s.err
}

// All returns the remaining lines as a sequence. Breaking out of the loop
// closes the source.
func (s *LineSource) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer s.release()
		for s.Next() {
			if !yield(s.text, nil) {
				return
			}
		}
		if s.err != nil {
			yield("", s.err)
		}
	}
}

func (s *LineSource) release() {
	if s.done {
		return
	}
	s.done = true
	s.text = ""
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && s.err == nil {
			s.err = eris.Wrapf(err, "geofile: close %s", s.name)
		}
	}
	s.closers = nil
}

// scanUniversalLines is a bufio.SplitFunc that accepts "\n", "\r\n" and a
// lone "\r" as line terminators.
func scanUniversalLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// '\r': need one more byte to tell "\r\n" from a lone "\r".
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
