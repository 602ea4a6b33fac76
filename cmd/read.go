package main

import (
	"bufio"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	readInput inputFlags
	readLimit int
	readCount bool
)

var readCmd = &cobra.Command{
	Use:   "read <file>",
	Short: "Print the records of a dump file",
	Long:  "Decodes a plain or gzip dump file and prints every record re-composed as a delimited line. Decoding stops at the first malformed line.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("read"); err != nil {
			return err
		}

		out := bufio.NewWriter(cmd.OutOrStdout())
		dst := destination{count: readCount, w: out}
		n, err := transferFormat(args[0], &readInput, readLimit, dst)
		if flushErr := out.Flush(); err == nil {
			err = flushErr
		}
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}

		if readCount {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		zap.L().Debug("read complete",
			zap.String("file", args[0]),
			zap.String("format", readInput.effectiveFormat()),
			zap.Int("records", n),
		)
		return nil
	},
}

func init() {
	readInput.register(readCmd, formatExtended)
	readCmd.Flags().IntVar(&readLimit, "limit", 0, "stop after N records (0 = all)")
	readCmd.Flags().BoolVar(&readCount, "count", false, "print only the number of records")
	rootCmd.AddCommand(readCmd)
}
