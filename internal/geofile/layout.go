package geofile

import (
	"os"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
	"gopkg.in/yaml.v3"
)

// Layout is the YAML description of a custom delimited file:
//
//	layout:
//	  fields: 4
//	  skip: 1
//	  separator: "!"
//	  comments: true
//	  encoding: windows-1252
type Layout struct {
	Fields    int    `yaml:"fields"`
	Skip      int    `yaml:"skip"`
	Separator string `yaml:"separator"`
	Comments  bool   `yaml:"comments"`
	Encoding  string `yaml:"encoding"`
}

// Codec builds the RawCodec and text encoding the layout describes.
func (l Layout) Codec() (RawCodec, encoding.Encoding, error) {
	sep := l.Separator
	if sep == "" {
		sep = "\t"
	}
	if utf8.RuneCountInString(sep) != 1 {
		return RawCodec{}, nil, eris.Errorf("geofile: layout separator must be a single character, got %q", sep)
	}
	r, _ := utf8.DecodeRuneInString(sep)

	codec, err := NewRawCodec(l.Fields, l.Skip, r, l.Comments)
	if err != nil {
		return RawCodec{}, nil, err
	}
	enc, err := LookupEncoding(l.Encoding)
	if err != nil {
		return RawCodec{}, nil, err
	}
	return codec, enc, nil
}

// LoadLayout reads a layout from a YAML file with a top-level "layout" key.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, eris.Wrapf(err, "geofile: read layout %s", path)
	}

	var wrapper struct {
		Layout Layout `yaml:"layout"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Layout{}, eris.Wrap(err, "geofile: parse layout")
	}
	return wrapper.Layout, nil
}
