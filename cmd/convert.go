package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geonames/internal/geofile"
)

var (
	convertInput       inputFlags
	convertOutKind     string
	convertOutEncoding string
	convertLimit       int
)

var convertCmd = &cobra.Command{
	Use:   "convert <in> <out>",
	Short: "Re-encode a dump file",
	Long:  "Reads <in> and writes the same records to <out>, for example to gzip a plain dump, to reduce the 19-field layout to the compact one, or to transcode a raw file.",
	Example: `  geonames convert cities500.txt cities500.txt.gz
  geonames convert --format extended allCountries.txt.gz points.txt
  geonames convert --format raw --fields 3 --encoding windows-1252 --out-encoding utf-8 legacy.txt clean.txt`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("read"); err != nil {
			return err
		}
		in, out := args[0], args[1]

		outKind, err := geofile.ParseFileKind(convertOutKind)
		if err != nil {
			return eris.Wrap(err, "--out-kind")
		}
		// Resolve now so an unknown output extension fails before reading.
		if _, err := geofile.ResolveKind(out, outKind); err != nil {
			return err
		}
		outEnc, err := geofile.LookupEncoding(convertOutEncoding)
		if err != nil {
			return eris.Wrap(err, "--out-encoding")
		}

		n, err := transferFormat(in, &convertInput, convertLimit, destination{path: out, kind: outKind, enc: outEnc})
		if err != nil {
			return eris.Wrapf(err, "convert %s", in)
		}

		zap.L().Info("convert complete",
			zap.String("in", in),
			zap.String("out", out),
			zap.Int("records", n),
		)
		return nil
	},
}

func init() {
	convertInput.register(convertCmd, formatFull)
	convertCmd.Flags().StringVar(&convertOutKind, "out-kind", "auto", "output file kind: auto (from extension), plain or gzip")
	convertCmd.Flags().StringVar(&convertOutEncoding, "out-encoding", "utf-8", "output character encoding, e.g. windows-1252")
	convertCmd.Flags().IntVar(&convertLimit, "limit", 0, "stop after N records (0 = all)")
	rootCmd.AddCommand(convertCmd)
}
