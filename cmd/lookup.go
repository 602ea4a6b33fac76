package main

import (
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geonames/internal/store"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Look up loaded records in the SQLite store",
}

var lookupGeoNameCmd = &cobra.Command{
	Use:   "geoname <id>",
	Short: "Print a loaded point by GeoNames id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return eris.Errorf("invalid geoname id %q", args[0])
		}
		st, err := openLookupStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		g, err := st.GeoName(cmd.Context(), id)
		if err != nil {
			return eris.Wrap(err, "lookup geoname")
		}
		return printJSON(cmd, g)
	},
}

var lookupAdmin1Cmd = &cobra.Command{
	Use:   "admin1 <CC.code>",
	Short: "Print a loaded admin1 code, e.g. US.CA",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openLookupStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		a, err := st.Admin1Code(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "lookup admin1")
		}
		return printJSON(cmd, a)
	},
}

func init() {
	lookupCmd.AddCommand(lookupGeoNameCmd)
	lookupCmd.AddCommand(lookupAdmin1Cmd)
	rootCmd.AddCommand(lookupCmd)
}

func openLookupStore(cmd *cobra.Command) (*store.SQLiteStore, error) {
	if err := cfg.Validate("load"); err != nil {
		return nil, err
	}
	st, err := store.NewSQLite(cfg.Store.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
