package main

import (
	"context"
	"fmt"
	"io"
	"iter"
	"path/filepath"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geonames/internal/geofile"
	"github.com/sells-group/geonames/internal/geonames"
	"github.com/sells-group/geonames/internal/store"
)

var (
	loadInput    inputFlags
	loadPostgres bool
)

var loadCmd = &cobra.Command{
	Use:   "load <file...>",
	Short: "Load dump files into SQLite or PostGIS",
	Long:  "Loads GeoNames and admin1 code files into the configured store. Files are loaded in parallel (load.concurrency) and every file is recorded as an import run.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		if err := cfg.Validate(storeMode(loadPostgres)); err != nil {
			return err
		}
		opts, err := loadInput.options()
		if err != nil {
			return err
		}

		st, err := initStore(ctx, loadPostgres)
		if err != nil {
			return eris.Wrap(err, "load: open store")
		}
		defer st.Close() //nolint:errcheck

		var (
			mu   sync.Mutex
			runs []*store.ImportRun
		)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Load.Concurrency)
		for _, path := range args {
			format := loadInput.format
			if format == "" {
				format = detectFormat(path)
			}
			g.Go(func() error {
				run, err := store.Import(gctx, st, path, format, func(ctx context.Context) (int64, error) {
					return loadFile(ctx, st, path, format, opts)
				})
				if run != nil {
					mu.Lock()
					runs = append(runs, run)
					mu.Unlock()
				}
				return err
			})
		}
		err = g.Wait()

		formatImportRuns(cmd.OutOrStdout(), runs)
		return err
	},
}

func init() {
	loadCmd.Flags().StringVar(&loadInput.format, "format", "", "record format: compact, extended, full or admin1 (default from file name)")
	loadCmd.Flags().StringVar(&loadInput.kind, "kind", "", "input file kind: auto, plain or gzip (default from reader.kind)")
	loadCmd.Flags().StringVar(&loadInput.encoding, "encoding", "", "input character encoding (default from reader.encoding)")
	loadCmd.Flags().BoolVar(&loadPostgres, "postgres", false, "load into PostgreSQL (store.database_url) instead of SQLite")
	rootCmd.AddCommand(loadCmd)
}

// detectFormat picks the record format from a dump file name.
func detectFormat(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if strings.HasPrefix(base, "admin1codes") {
		return formatAdmin1
	}
	return formatFull
}

// loadFile streams path into st with the codec of format.
func loadFile(ctx context.Context, st store.Store, path, format string, opts geofile.ReadOptions) (int64, error) {
	switch format {
	case formatCompact:
		return loadWith(ctx, path, geonames.CompactGeoNameCodec{}, opts, st.LoadGeoNames)
	case formatExtended:
		return loadWith(ctx, path, geonames.ExtendedGeoNameCodec{}, opts, st.LoadGeoNames)
	case formatFull:
		return loadWith(ctx, path, geonames.FullGeoNameCodec{}, opts, st.LoadExtendedGeoNames)
	case formatAdmin1:
		return loadWith(ctx, path, geonames.Admin1CodeCodec{}, opts, st.LoadAdmin1Codes)
	default:
		return 0, eris.Errorf("format %q cannot be loaded (valid: compact, extended, full, admin1)", format)
	}
}

func loadWith[T any](
	ctx context.Context,
	path string,
	codec geofile.Codec[T],
	opts geofile.ReadOptions,
	load func(context.Context, iter.Seq2[T, error]) (int64, error),
) (int64, error) {
	recs, err := geofile.ReadFile(path, codec, opts)
	if err != nil {
		return 0, err
	}
	defer recs.Close() //nolint:errcheck

	n, err := load(ctx, recs.All())
	zap.L().Debug("file streamed",
		zap.String("file", path),
		zap.Int("records_read", recs.Count()),
		zap.Int64("rows_written", n),
	)
	return n, err
}

// formatImportRuns writes a summary table of import runs to out.
func formatImportRuns(out io.Writer, runs []*store.ImportRun) {
	if len(runs) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tSOURCE\tDATASET\tSTATUS\tROWS")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", truncateID(r.ID), r.Source, r.Dataset, r.Status, r.Rows)
	}
	_ = w.Flush()
}
