package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geonames/internal/export"
	"github.com/sells-group/geonames/internal/geofile"
	"github.com/sells-group/geonames/internal/geonames"
)

var (
	exportInput inputFlags
	exportLimit int
)

var exportCmd = &cobra.Command{
	Use:   "export <file> <out.shp>",
	Short: "Write the points of a dump file to an ESRI shapefile",
	Long:  "Writes every record of <file> as a POINT (WGS 84) with GEONAMEID and NAME attributes. With --format full the feature class, feature code, country, population and timezone are added.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("read"); err != nil {
			return err
		}
		in, out := args[0], args[1]

		opts, err := exportInput.options()
		if err != nil {
			return err
		}

		var n int
		switch exportInput.format {
		case formatCompact:
			n, err = exportPoints(in, geonames.CompactGeoNameCodec{}, opts, out)
		case formatExtended:
			n, err = exportPoints(in, geonames.ExtendedGeoNameCodec{}, opts, out)
		case formatFull:
			n, err = exportFull(in, opts, out)
		default:
			return eris.Errorf("format %q cannot be exported (valid: compact, extended, full)", exportInput.format)
		}
		if err != nil {
			return eris.Wrapf(err, "export %s", in)
		}

		zap.L().Info("export complete",
			zap.String("in", in),
			zap.String("out", out),
			zap.Int("points", n),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportInput.format, "format", formatExtended, "record format: compact, extended or full")
	exportCmd.Flags().StringVar(&exportInput.kind, "kind", "", "input file kind: auto, plain or gzip (default from reader.kind)")
	exportCmd.Flags().StringVar(&exportInput.encoding, "encoding", "", "input character encoding (default from reader.encoding)")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "stop after N records (0 = all)")
	rootCmd.AddCommand(exportCmd)
}

func exportPoints(in string, codec geofile.Codec[geonames.GeoName], opts geofile.ReadOptions, out string) (int, error) {
	recs, err := geofile.ReadFile(in, codec, opts)
	if err != nil {
		return 0, err
	}
	defer recs.Close() //nolint:errcheck
	seq := recs.All()
	if exportLimit > 0 {
		seq = geofile.Take(seq, exportLimit)
	}
	return export.WriteShapefile(out, seq)
}

func exportFull(in string, opts geofile.ReadOptions, out string) (int, error) {
	recs, err := geofile.ReadFile(in, geonames.FullGeoNameCodec{}, opts)
	if err != nil {
		return 0, err
	}
	defer recs.Close() //nolint:errcheck
	seq := recs.All()
	if exportLimit > 0 {
		seq = geofile.Take(seq, exportLimit)
	}
	return export.WriteExtendedShapefile(out, seq)
}
