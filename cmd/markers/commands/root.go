// Package commands implements the markers CLI, an offline front end to the
// marker engine for checking exports and tuning options.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/samirrijal/staymap/internal/core/markers"
	"github.com/samirrijal/staymap/internal/pkg/logging"
)

var (
	inPath   string
	outPath  string
	logLevel string
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "markers",
		Short:        "Obfuscate and spread map markers from JSON",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the markers
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), logLevel, "text"))
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&inPath, "in", "i", "-", "input JSON array of markers (- for stdin)")
	root.PersistentFlags().StringVarP(&outPath, "out", "o", "-", "output file (- for stdout)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	root.AddCommand(obfuscateCmd(), spreadCmd(), smokeCmd())
	return root
}

func readRecords(cmd *cobra.Command) ([]markers.Record, error) {
	var r io.Reader = cmd.InOrStdin()
	if inPath != "-" {
		f, err := os.Open(inPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var records []markers.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode markers: %w", err)
	}
	return records, nil
}

func writeRecords(cmd *cobra.Command, records []markers.Record) error {
	var w io.Writer = cmd.OutOrStdout()
	if outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
