package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/geonames/internal/config"
)

const (
	parisLine  = "2988507\tParis\tParis\tLutetia,Paname\t48.85341\t2.3488\tP\tPPLC\tFR\t\t11\t75\t751\t75056\t2138551\t\t42\tEurope/Paris\t2023-10-02"
	londonLine = "2643743\tLondon\tLondon\tLondinium,Londres\t51.50853\t-0.12574\tP\tPPLC\tGB\t\tENG\tGLA\tc7\t\t8961989\t\t25\tEurope/London\t2024-01-15"
	admin1Data = "US.CA\tCalifornia\tCalifornia\t5332921\nFR.11\tÎle-de-France\tIle-de-France\t3012874\n"
)

// useTestConfig installs a config rooted in a temp dir and restores the
// previous one when the test ends.
func useTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	prev := cfg
	cfg = &config.Config{
		Reader: config.ReaderConfig{Kind: "auto", Encoding: "utf-8"},
		Fetch: config.FetchConfig{
			BaseURL:     "http://127.0.0.1:0",
			UserAgent:   "geonames-test",
			TimeoutSecs: 5,
			MaxRetries:  1,
			RatePerSec:  1000,
			TempDir:     filepath.Join(dir, "dumps"),
		},
		Store: config.StoreConfig{SQLitePath: filepath.Join(dir, "geonames.db"), BatchSize: 2},
		Load:  config.LoadConfig{Concurrency: 2},
		Log:   config.LogConfig{Level: "error", Format: "json"},
	}
	t.Cleanup(func() { cfg = prev })
	return cfg
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
