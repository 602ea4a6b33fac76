package geofile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLayout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.yaml")
	yaml := `
layout:
  fields: 4
  skip: 1
  separator: "!"
  comments: true
  encoding: windows-1252
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	l, err := LoadLayout(path)
	require.NoError(t, err)
	assert.Equal(t, Layout{Fields: 4, Skip: 1, Separator: "!", Comments: true, Encoding: "windows-1252"}, l)

	codec, enc, err := l.Codec()
	require.NoError(t, err)
	assert.Equal(t, '!', codec.Separator())
	assert.Equal(t, 4, codec.ExpectedFields())
	assert.Equal(t, 1, codec.SkipLines())
	assert.True(t, codec.HasComments())
	assert.NotNil(t, enc)

	src, err := NewLineSource(strings.NewReader("h\n#x\na!b!c!d\n"), Plain, enc)
	require.NoError(t, err)
	recs, err := Collect(Read(src, codec).All())
	require.NoError(t, err)
	assert.Equal(t, []Fields{{"a", "b", "c", "d"}}, recs)
}

func TestLayout_DefaultSeparatorIsTab(t *testing.T) {
	codec, enc, err := Layout{Fields: 2}.Codec()
	require.NoError(t, err)
	assert.Equal(t, Tab, codec.Separator())
	assert.Nil(t, enc)
}

func TestLayout_Invalid(t *testing.T) {
	_, _, err := Layout{Fields: 2, Separator: "::"}.Codec()
	assert.Error(t, err)

	_, _, err = Layout{Fields: 0}.Codec()
	assert.Error(t, err)

	_, _, err = Layout{Fields: 2, Encoding: "nope"}.Codec()
	assert.Error(t, err)
}

func TestLoadLayout_Errors(t *testing.T) {
	_, err := LoadLayout(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("layout: [unclosed"), 0o644))
	_, err = LoadLayout(path)
	assert.Error(t, err)
}
