package geofile

import (
	"bytes"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

type placeComposer struct{}

func (placeComposer) Separator() rune             { return Tab }
func (placeComposer) Encoding() encoding.Encoding { return nil }

func (placeComposer) Encode(p place) ([]string, error) {
	return []string{strconv.Itoa(p.ID), p.Name, FormatFloat(p.Lat), FormatFloat(p.Lon)}, nil
}

type failingComposer struct{ placeComposer }

func (failingComposer) Encode(p place) ([]string, error) {
	if p.ID < 0 {
		return nil, errors.New("negative id")
	}
	return placeComposer{}.Encode(p)
}

func TestWrite_Basic(t *testing.T) {
	var buf bytes.Buffer
	n, err := Write(&buf, slices.Values([]place{
		{ID: 1, Name: "a", Lat: 1.5, Lon: -2},
		{ID: 2, Name: "b", Lat: 0, Lon: 179.25},
	}), placeComposer{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "1\ta\t1.5\t-2\n2\tb\t0\t179.25\n", buf.String())
}

func TestWrite_RoundTrip(t *testing.T) {
	input := "2988507\tParis\t48.85341\t2.3488\n2643743\tLondon\t51.50853\t-0.12574\n"
	src, err := NewLineSource(strings.NewReader(input), Plain, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := Pipe(&buf, Read(src, placeCodec{}).All(), placeComposer{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, input, buf.String())
}

func TestPipe_StopsOnUpstreamError(t *testing.T) {
	src, err := NewLineSource(strings.NewReader("1\ta\t1\t1\nbad\n2\tb\t2\t2\n"), Plain, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := Pipe(&buf, Read(src, placeCodec{}).All(), placeComposer{})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, n)
	assert.Equal(t, "1\ta\t1\t1\n", buf.String())
}

func TestWrite_ComposeError(t *testing.T) {
	var buf bytes.Buffer
	n, err := Write(&buf, slices.Values([]place{{ID: 1}, {ID: -1}, {ID: 2}}), failingComposer{})
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, err.Error(), "compose record 2")
}

func TestWrite_CustomSeparatorAndEncoding(t *testing.T) {
	var buf bytes.Buffer
	comp := RawComposer{Sep: '!', Enc: charmap.ISO8859_1}
	_, err := Write(&buf, slices.Values([]Fields{{"Zürich", "x"}, {"a", "", "c"}}), comp)
	require.NoError(t, err)
	assert.Equal(t, []byte{'Z', 0xFC, 'r', 'i', 'c', 'h', '!', 'x', '\n', 'a', '!', '!', 'c', '\n'}, buf.Bytes())
}

func TestWrite_UTF16RoundTrip(t *testing.T) {
	enc, err := LookupEncoding("utf-16le")
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := Write(&buf, slices.Values([]Fields{{"a", "b"}, {"c", "d"}}), RawComposer{Sep: '!', Enc: enc})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{'a', 0, '!', 0, 'b', 0, '\n', 0, 'c', 0, '!', 0, 'd', 0, '\n', 0}, buf.Bytes())

	src, err := NewLineSource(&buf, Plain, enc)
	require.NoError(t, err)
	codec, err := NewRawCodec(2, 0, '!', false)
	require.NoError(t, err)
	recs, err := Collect(Read(src, codec).All())
	require.NoError(t, err)
	assert.Equal(t, []Fields{{"a", "b"}, {"c", "d"}}, recs)
}

func TestWrite_UnencodableRune(t *testing.T) {
	var buf bytes.Buffer
	comp := RawComposer{Sep: ',', Enc: charmap.ISO8859_1}
	_, err := Write(&buf, slices.Values([]Fields{{"東京"}}), comp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode record 1")
}

func TestWriter_Incremental(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter[Fields](&buf, RawComposer{Sep: ';'})
	require.NoError(t, w.Write(Fields{"a", "b"}))
	assert.Empty(t, buf.String(), "output is buffered until Flush")
	require.NoError(t, w.Write(Fields{"c"}))
	require.NoError(t, w.Flush())
	assert.Equal(t, "a;b\nc\n", buf.String())
	assert.Equal(t, 2, w.Count())
}

func TestWriteFile_PlainAndCompressed(t *testing.T) {
	dir := t.TempDir()
	recs := []place{{ID: 1, Name: "a", Lat: 1, Lon: 2}, {ID: 2, Name: "b", Lat: 3, Lon: 4}}
	var seq iter.Seq2[place, error] = func(yield func(place, error) bool) {
		for _, r := range recs {
			if !yield(r, nil) {
				return
			}
		}
	}

	plain := filepath.Join(dir, "out.txt")
	n, err := WriteFile(plain, AutoDetect, seq, placeComposer{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	data, err := os.ReadFile(plain)
	require.NoError(t, err)
	assert.Equal(t, "1\ta\t1\t2\n2\tb\t3\t4\n", string(data))

	compressed := filepath.Join(dir, "out.txt.gz")
	_, err = WriteFile(compressed, AutoDetect, seq, placeComposer{})
	require.NoError(t, err)
	data, err = os.ReadFile(compressed)
	require.NoError(t, err)
	assert.Equal(t, "1\ta\t1\t2\n2\tb\t3\t4\n", gunzip(t, data))

	// Reading it back through the autodetecting reader gives the same records.
	back, err := ReadFile[place](compressed, placeCodec{}, ReadOptions{})
	require.NoError(t, err)
	got, err := Collect(back.All())
	require.NoError(t, err)
	assert.Equal(t, recs, got)
}

func TestWriteFile_ForcedKindOnOddExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.dat")
	_, err := WriteFile(path, AutoDetect, Read(mustSource(t, "1\ta\t1\t1\n"), placeCodec{}).All(), placeComposer{})
	assert.ErrorIs(t, err, ErrUnsupportedFileKind)

	_, err = WriteFile(path, Plain, Read(mustSource(t, "1\ta\t1\t1\n"), placeCodec{}).All(), placeComposer{})
	require.NoError(t, err)
}

func TestWriteFile_FailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	_, err := WriteFile(path, AutoDetect, Read(mustSource(t, "1\ta\t1\t1\nbad\n"), placeCodec{}).All(), placeComposer{})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func mustSource(t *testing.T, input string) *LineSource {
	t.Helper()
	src, err := NewLineSource(strings.NewReader(input), Plain, nil)
	require.NoError(t, err)
	return src
}
