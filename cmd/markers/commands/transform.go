package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/samirrijal/staymap/internal/core/markers"
)

func obfuscateCmd() *cobra.Command {
	opts := markers.DefaultDisplacementOptions()

	cmd := &cobra.Command{
		Use:   "obfuscate",
		Short: "Move every marker to a reproducible point near its true position",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(cmd)
			if err != nil {
				return err
			}
			out, stats := markers.ObfuscateWithStats(records, opts)
			slog.Info("obfuscated",
				"displaced", stats.Displaced,
				"passthrough", stats.Passthrough,
				"fallbacks", stats.Fallbacks,
			)
			return writeRecords(cmd, out)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&opts.MaxOffsetKm, "max-offset", opts.MaxOffsetKm, "maximum displacement in km")
	f.Float64Var(&opts.MinOffsetKm, "min-offset", opts.MinOffsetKm, "minimum displacement in km")
	f.Float64Var(&opts.MinSeparationKm, "min-separation", opts.MinSeparationKm, "minimum distance between displaced markers in km (0 disables)")
	f.IntVar(&opts.MaxAttempts, "max-attempts", opts.MaxAttempts, "candidates tried per marker")
	f.StringVar(&opts.LatKey, "lat-key", opts.LatKey, "latitude field")
	f.StringVar(&opts.LngKey, "lng-key", opts.LngKey, "longitude field")
	f.StringVar(&opts.IDKey, "id-key", opts.IDKey, "identifier field used for seeding")
	return cmd
}

func spreadCmd() *cobra.Command {
	opts := markers.DefaultSpreadOptions()

	cmd := &cobra.Command{
		Use:   "spread",
		Short: "Fan out markers that share a coordinate onto a small circle",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(cmd)
			if err != nil {
				return err
			}
			out, stats := markers.SpreadWithStats(records, opts)
			slog.Info("spread", "groups", stats.Groups, "spread", stats.Spread, "singles", stats.Singles)
			return writeRecords(cmd, out)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&opts.Radius, "radius", opts.Radius, "circle radius in degrees")
	f.IntVar(&opts.Precision, "precision", opts.Precision, "decimals used to detect shared coordinates")
	f.StringVar(&opts.LatKey, "lat-key", opts.LatKey, "latitude field")
	f.StringVar(&opts.LngKey, "lng-key", opts.LngKey, "longitude field")
	return cmd
}
