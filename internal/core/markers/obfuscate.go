package markers

import (
	"math"

	"github.com/samirrijal/staymap/internal/pkg/geospatial"
)

// DefaultMaxAttempts bounds the candidate draws per marker.
const DefaultMaxAttempts = 24

// DisplacementOptions configures Obfuscate.
type DisplacementOptions struct {
	MaxOffsetKm     float64 `mapstructure:"max_offset_km" json:"max_offset_km"`
	MinOffsetKm     float64 `mapstructure:"min_offset_km" json:"min_offset_km"`
	MinSeparationKm float64 `mapstructure:"min_separation_km" json:"min_separation_km"` // 0 disables
	MaxAttempts     int     `mapstructure:"max_attempts" json:"max_attempts"`
	LatKey          string  `mapstructure:"lat_key" json:"lat_key,omitempty"`
	LngKey          string  `mapstructure:"lng_key" json:"lng_key,omitempty"`
	IDKey           string  `mapstructure:"id_key" json:"id_key,omitempty"`
}

// DefaultDisplacementOptions returns the marketplace defaults.
func DefaultDisplacementOptions() DisplacementOptions {
	return DisplacementOptions{
		MaxOffsetKm:     3,
		MinOffsetKm:     0.3,
		MinSeparationKm: 1,
		MaxAttempts:     DefaultMaxAttempts,
		LatKey:          DefaultLatKey,
		LngKey:          DefaultLngKey,
		IDKey:           DefaultIDKey,
	}
}

// ObfuscateStats summarises one Obfuscate call.
type ObfuscateStats struct {
	Displaced   int // markers moved to a new position
	Passthrough int // markers returned untouched (bad coordinates or zero offset)
	Fallbacks   int // markers placed on their last candidate after every attempt collided
}

// Obfuscate returns a copy of records with each marker moved to a
// deterministic point between MinOffsetKm and MaxOffsetKm from its true
// position. See ObfuscateWithStats.
func Obfuscate(records []Record, opts DisplacementOptions) []Record {
	out, _ := ObfuscateWithStats(records, opts)
	return out
}

// ObfuscateWithStats is Obfuscate that also reports what happened.
//
// Markers are processed strictly in input order: a marker's candidates are
// tested against every position already committed earlier in the same call,
// so reordering the input may change the result. When no candidate satisfies
// MinSeparationKm within MaxAttempts tries, the last candidate is used.
func ObfuscateWithStats(records []Record, opts DisplacementOptions) ([]Record, ObfuscateStats) {
	var stats ObfuscateStats
	out := make([]Record, 0, len(records))

	latKey := keyOr(opts.LatKey, DefaultLatKey)
	lngKey := keyOr(opts.LngKey, DefaultLngKey)
	idKey := keyOr(opts.IDKey, DefaultIDKey)

	maxOffset := nonNegative(opts.MaxOffsetKm)
	if maxOffset == 0 {
		for _, r := range records {
			out = append(out, r.clone())
		}
		stats.Passthrough = len(records)
		return out, stats
	}
	minOffset := math.Min(maxOffset, nonNegative(opts.MinOffsetKm))
	separation := nonNegative(opts.MinSeparationKm)
	attempts := opts.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	placed := make([]geospatial.Point, 0, len(records))

	for _, r := range records {
		lat, lng, ok := r.Coordinates(latKey, lngKey)
		if !ok {
			out = append(out, r.clone())
			stats.Passthrough++
			continue
		}

		rng := NewMulberry32(HashStringToSeed(r.identifier(idKey, lat, lng)))

		var chosen geospatial.Point
		accepted := false
		for i := 0; i < attempts; i++ {
			candidate := geospatial.ProjectPoint(lat, lng, drawDistance(rng, minOffset, maxOffset), rng.Float64()*2*math.Pi)
			chosen = candidate
			if separation == 0 || farFromAll(candidate, placed, separation) {
				accepted = true
				break
			}
		}
		if !accepted {
			stats.Fallbacks++
		}

		placed = append(placed, chosen)

		moved := r.clone()
		moved[latKey] = chosen.Lat
		moved[lngKey] = chosen.Lng
		out = append(out, moved)
		stats.Displaced++
	}

	return out, stats
}

// drawDistance samples the annulus width. A degenerate annulus consumes no draw.
func drawDistance(rng *Mulberry32, minKm, maxKm float64) float64 {
	span := maxKm - minKm
	if span <= 0 {
		return maxKm
	}
	return minKm + rng.Float64()*span
}

func farFromAll(p geospatial.Point, placed []geospatial.Point, minKm float64) bool {
	for _, q := range placed {
		if geospatial.HaversineKm(q.Lat, q.Lng, p.Lat, p.Lng) < minKm {
			return false
		}
	}
	return true
}

// nonNegative maps negative and non-finite values to 0.
func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
