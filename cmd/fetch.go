package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geonames/internal/fetcher"
)

var (
	fetchDir   string
	fetchForce bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <name...>",
	Short: "Download dump files from the GeoNames export server",
	Long:  "Downloads files such as admin1CodesASCII.txt or cities500.zip into the fetch directory. Files are only re-downloaded when the server copy is newer, and .zip archives are extracted next to the archive.",
	Example: `  geonames fetch admin1CodesASCII.txt cities500.zip
  geonames fetch --dir ./data allCountries.zip`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		dir := fetchDir
		if dir == "" {
			dir = cfg.Fetch.TempDir
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "fetch: create %s", dir)
		}

		dump := &fetcher.Dump{
			Fetcher: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
				UserAgent:  cfg.Fetch.UserAgent,
				Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
				MaxRetries: cfg.Fetch.MaxRetries,
				RatePerSec: cfg.Fetch.RatePerSec,
			}),
			BaseURL: cfg.Fetch.BaseURL,
			Dir:     dir,
			Force:   fetchForce,
		}

		var results []fetcher.DumpResult
		for _, name := range args {
			res, err := dump.Fetch(ctx, name)
			if err != nil {
				formatDumpResults(cmd.OutOrStdout(), results)
				return eris.Wrapf(err, "fetch %s", name)
			}
			results = append(results, res)
		}

		formatDumpResults(cmd.OutOrStdout(), results)
		zap.L().Info("fetch complete", zap.Int("files", len(results)), zap.String("dir", dir))
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchDir, "dir", "", "download directory (default fetch.temp_dir)")
	fetchCmd.Flags().BoolVar(&fetchForce, "force", false, "download even when the local copy is up to date")
	rootCmd.AddCommand(fetchCmd)
}

// formatDumpResults writes one line per fetched file to out.
func formatDumpResults(out io.Writer, results []fetcher.DumpResult) {
	if len(results) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tPATH\tBYTES\tSTATUS")
	for _, r := range results {
		status := "downloaded"
		if r.Skipped {
			status = "up to date"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.Name, r.Path, r.Bytes, status)
	}
	_ = w.Flush()
}
