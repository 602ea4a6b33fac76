package main

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/encoding"

	"github.com/sells-group/geonames/internal/geofile"
	"github.com/sells-group/geonames/internal/geonames"
)

// Record formats understood by read, convert and load.
const (
	formatCompact  = "compact"  // 4-field id/name/lat/lon
	formatExtended = "extended" // 19-field dump, reduced to GeoName
	formatFull     = "full"     // 19-field dump, every column
	formatAdmin1   = "admin1"   // admin1CodesASCII.txt
	formatRaw      = "raw"      // untyped fields, layout from flags or --layout
)

// inputFlags describes how an input file is opened and decoded.
type inputFlags struct {
	format   string
	kind     string
	encoding string

	layout   string
	fields   int
	sep      string
	skip     int
	comments bool
}

func (f *inputFlags) register(cmd *cobra.Command, defaultFormat string) {
	cmd.Flags().StringVar(&f.format, "format", defaultFormat, "record format: compact, extended, full, admin1 or raw")
	cmd.Flags().StringVar(&f.kind, "kind", "", "input file kind: auto, plain or gzip (default from reader.kind)")
	cmd.Flags().StringVar(&f.encoding, "encoding", "", "input character encoding, e.g. windows-1252 (default from reader.encoding)")
	cmd.Flags().StringVar(&f.layout, "layout", "", "YAML raw layout file (implies --format raw)")
	cmd.Flags().IntVar(&f.fields, "fields", 0, "raw: fields per line")
	cmd.Flags().StringVar(&f.sep, "sep", "\t", "raw: field separator")
	cmd.Flags().IntVar(&f.skip, "skip", 0, "raw: header lines to skip")
	cmd.Flags().BoolVar(&f.comments, "comments", false, "raw: skip lines starting with #")
}

// options resolves kind and encoding from the flags, falling back to config.
func (f *inputFlags) options() (geofile.ReadOptions, error) {
	kindName := f.kind
	if kindName == "" && cfg != nil {
		kindName = cfg.Reader.Kind
	}
	kind, err := geofile.ParseFileKind(kindName)
	if err != nil {
		return geofile.ReadOptions{}, err
	}

	encName := f.encoding
	if encName == "" && cfg != nil {
		encName = cfg.Reader.Encoding
	}
	enc, err := geofile.LookupEncoding(encName)
	if err != nil {
		return geofile.ReadOptions{}, err
	}
	return geofile.ReadOptions{Kind: kind, Encoding: enc}, nil
}

// effectiveFormat returns the format after --layout is taken into account.
func (f *inputFlags) effectiveFormat() string {
	if f.layout != "" {
		return formatRaw
	}
	return strings.ToLower(f.format)
}

// rawCodec builds the raw codec from --layout or the individual raw flags.
// A layout encoding overrides opts.Encoding.
func (f *inputFlags) rawCodec(opts *geofile.ReadOptions) (geofile.RawCodec, error) {
	if f.layout != "" {
		layout, err := geofile.LoadLayout(f.layout)
		if err != nil {
			return geofile.RawCodec{}, err
		}
		codec, enc, err := layout.Codec()
		if err != nil {
			return geofile.RawCodec{}, err
		}
		if layout.Encoding != "" {
			opts.Encoding = enc
		}
		return codec, nil
	}

	if utf8.RuneCountInString(f.sep) != 1 {
		return geofile.RawCodec{}, eris.Errorf("--sep must be a single character, got %q", f.sep)
	}
	sep, _ := utf8.DecodeRuneInString(f.sep)
	return geofile.NewRawCodec(f.fields, f.skip, sep, f.comments)
}

// destination receives the records of a transfer. Exactly one of count, path
// or w is used, in that order.
type destination struct {
	count bool
	path  string
	kind  geofile.FileKind
	w     io.Writer

	// enc is the output encoding; nil writes UTF-8.
	enc encoding.Encoding
}

// transfer reads src with codec and hands the records to dst, stopping after
// limit records when limit > 0. It returns the number of records delivered.
func transfer[T any](src string, codec geofile.Codec[T], composer geofile.Composer[T], opts geofile.ReadOptions, limit int, dst destination) (int, error) {
	recs, err := geofile.ReadFile(src, codec, opts)
	if err != nil {
		return 0, err
	}
	defer recs.Close() //nolint:errcheck

	seq := recs.All()
	if limit > 0 {
		seq = geofile.Take(seq, limit)
	}

	switch {
	case dst.count:
		n := 0
		for _, err := range seq {
			if err != nil {
				return n, err
			}
			n++
		}
		return n, nil
	case dst.path != "":
		return geofile.WriteFile(dst.path, dst.kind, seq, composer)
	default:
		return geofile.Pipe(dst.w, seq, composer)
	}
}

// transferFormat dispatches transfer on the record format of in.
func transferFormat(src string, in *inputFlags, limit int, dst destination) (int, error) {
	opts, err := in.options()
	if err != nil {
		return 0, err
	}

	switch in.effectiveFormat() {
	case formatCompact:
		return transfer(src, geonames.CompactGeoNameCodec{}, geonames.GeoNameComposer{Enc: dst.enc}, opts, limit, dst)
	case formatExtended:
		return transfer(src, geonames.ExtendedGeoNameCodec{}, geonames.GeoNameComposer{Enc: dst.enc}, opts, limit, dst)
	case formatFull:
		return transfer(src, geonames.FullGeoNameCodec{}, geonames.ExtendedGeoNameComposer{Enc: dst.enc}, opts, limit, dst)
	case formatAdmin1:
		return transfer(src, geonames.Admin1CodeCodec{}, geonames.Admin1CodeComposer{Enc: dst.enc}, opts, limit, dst)
	case formatRaw:
		codec, err := in.rawCodec(&opts)
		if err != nil {
			return 0, err
		}
		composer := geofile.RawComposer{Sep: codec.Sep, Enc: dst.enc}
		return transfer(src, codec, composer, opts, limit, dst)
	default:
		return 0, eris.Errorf("unknown format %q (valid: compact, extended, full, admin1, raw)", in.format)
	}
}
