package commands

import (
	"fmt"
	"io"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/samirrijal/staymap/internal/core/markers"
	"github.com/samirrijal/staymap/internal/pkg/geospatial"
)

const smokeTolerance = 0.05 // km

var smokeMarkers = []markers.Record{
	{"_id": "alpha", "lat": 37.7749, "lng": -122.4194},
	{"_id": "bravo", "lat": 34.0522, "lng": -118.2437},
	{"_id": "charlie", "lat": 40.7128, "lng": -74.006},
	{"_id": "delta", "lat": 47.6062, "lng": -122.3321},
}

func smokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "smoke",
		Short: "Check the engine against four known cities",
		RunE: func(cmd *cobra.Command, args []string) error {
			violations := runSmoke(cmd.OutOrStdout())
			if len(violations) > 0 {
				return fmt.Errorf("smoke check failed with %d violation(s)", len(violations))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

// runSmoke obfuscates the four reference markers twice and returns every
// broken guarantee. Each marker must land 0.5-3 km from its true position,
// at least 1 km from the others, and identically on both runs.
func runSmoke(w io.Writer) []string {
	opts := markers.DefaultDisplacementOptions()
	opts.MaxOffsetKm = 3
	opts.MinOffsetKm = 0.5
	opts.MinSeparationKm = 1

	first := markers.Obfuscate(smokeMarkers, opts)
	second := markers.Obfuscate(smokeMarkers, opts)

	var violations []string
	fail := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		violations = append(violations, msg)
		fmt.Fprintln(w, "FAIL", msg)
	}

	if len(first) != len(smokeMarkers) {
		fail("expected %d markers, got %d", len(smokeMarkers), len(first))
		return violations
	}

	points := make([]geospatial.Point, len(first))
	for i, rec := range first {
		id := smokeMarkers[i]["_id"]
		trueLat, trueLng, _ := smokeMarkers[i].Coordinates("lat", "lng")
		lat, lng, ok := rec.Coordinates("lat", "lng")
		if !ok {
			fail("%v: lost its coordinates", id)
			continue
		}
		points[i] = geospatial.Point{Lat: lat, Lng: lng}

		d := geospatial.HaversineKm(trueLat, trueLng, lat, lng)
		fmt.Fprintf(w, "%-8v %.5f, %.5f  offset %.3f km\n", id, lat, lng, d)
		if d < opts.MinOffsetKm-smokeTolerance || d > opts.MaxOffsetKm+smokeTolerance {
			fail("%v: offset %.3f km outside [%.1f, %.1f]", id, d, opts.MinOffsetKm, opts.MaxOffsetKm)
		}
		if !reflect.DeepEqual(rec, second[i]) {
			fail("%v: differs between runs", id)
		}
	}

	for i := range points {
		for j := i + 1; j < len(points); j++ {
			d := geospatial.HaversineKm(points[i].Lat, points[i].Lng, points[j].Lat, points[j].Lng)
			if d < opts.MinSeparationKm-smokeTolerance {
				fail("%v/%v: only %.3f km apart", smokeMarkers[i]["_id"], smokeMarkers[j]["_id"], d)
			}
		}
	}
	return violations
}
