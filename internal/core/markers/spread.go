package markers

import (
	"math"
	"strconv"

	"github.com/samirrijal/staymap/internal/pkg/geospatial"
)

const (
	// DefaultSpreadRadius is the circle radius in degrees (~65 m of latitude).
	DefaultSpreadRadius = 0.0006
	// DefaultSpreadPrecision is the number of decimals used to detect overlaps.
	DefaultSpreadPrecision = 6

	maxSpreadPrecision = 15
)

// SpreadOptions configures Spread.
type SpreadOptions struct {
	Radius    float64 `mapstructure:"radius" json:"radius"`
	Precision int     `mapstructure:"precision" json:"precision"`
	LatKey    string  `mapstructure:"lat_key" json:"lat_key,omitempty"`
	LngKey    string  `mapstructure:"lng_key" json:"lng_key,omitempty"`
}

// DefaultSpreadOptions returns the default spreading circle.
func DefaultSpreadOptions() SpreadOptions {
	return SpreadOptions{
		Radius:    DefaultSpreadRadius,
		Precision: DefaultSpreadPrecision,
		LatKey:    DefaultLatKey,
		LngKey:    DefaultLngKey,
	}
}

// SpreadStats summarises one Spread call.
type SpreadStats struct {
	Groups  int // coordinates shared by more than one marker
	Spread  int // markers moved onto a circle
	Singles int // markers without usable coordinates
}

// Spread returns a copy of records in which markers sharing the same rounded
// coordinate are placed evenly on a circle around it. See SpreadWithStats.
func Spread(records []Record, opts SpreadOptions) []Record {
	out, _ := SpreadWithStats(records, opts)
	return out
}

// SpreadWithStats is Spread that also reports what happened.
//
// Output holds the coordinate groups in first-seen order followed by the
// markers whose coordinates were unusable, so callers must not rely on the
// input order surviving this stage.
func SpreadWithStats(records []Record, opts SpreadOptions) ([]Record, SpreadStats) {
	var stats SpreadStats

	latKey := keyOr(opts.LatKey, DefaultLatKey)
	lngKey := keyOr(opts.LngKey, DefaultLngKey)

	radius := opts.Radius
	if math.IsNaN(radius) || math.IsInf(radius, 0) || radius < 0 {
		radius = DefaultSpreadRadius
	}
	precision := opts.Precision
	if precision < 0 {
		precision = 0
	} else if precision > maxSpreadPrecision {
		precision = maxSpreadPrecision
	}

	type member struct {
		record   Record
		lat, lng float64
	}

	var (
		order   []string
		groups  = make(map[string][]member)
		singles []Record
	)

	for _, r := range records {
		lat, lng, ok := r.Coordinates(latKey, lngKey)
		if !ok {
			singles = append(singles, r.clone())
			continue
		}
		key := strconv.FormatFloat(lat, 'f', precision, 64) + "|" + strconv.FormatFloat(lng, 'f', precision, 64)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], member{record: r, lat: lat, lng: lng})
	}

	out := make([]Record, 0, len(records))
	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			out = append(out, group[0].record.clone())
			continue
		}

		stats.Groups++
		step := 2 * math.Pi / float64(len(group))
		for i, m := range group {
			angle := step * float64(i)
			cosLat := math.Cos(geospatial.ToRadians(m.lat))
			if math.Abs(cosLat) < 1e-6 {
				cosLat = 1
			}

			moved := m.record.clone()
			moved[latKey] = m.lat + float64(radius*math.Cos(angle))
			moved[lngKey] = m.lng + float64(radius*math.Sin(angle))/cosLat
			out = append(out, moved)
			stats.Spread++
		}
	}

	stats.Singles = len(singles)
	out = append(out, singles...)
	return out, stats
}
