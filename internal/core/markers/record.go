// Package markers computes privacy-preserving display positions for map pins.
//
// Two independent, pure stages are provided. Obfuscate moves every marker to a
// reproducible pseudo-random point inside an annulus around its true position
// while keeping markers apart from each other. Spread fans out markers that
// share an identical coordinate around a small circle so each stays clickable.
// Neither stage performs I/O, keeps state between calls, or returns errors.
package markers

import (
	"math"
	"strconv"

	"github.com/spf13/cast"
)

// Default record keys, matching the marketplace's marker shape.
const (
	DefaultLatKey = "lat"
	DefaultLngKey = "lng"
	DefaultIDKey  = "_id"
)

// Record is a map marker. Only the latitude and longitude entries are ever
// rewritten; every other entry is opaque payload copied through verbatim.
type Record map[string]any

// clone returns a shallow copy of r. A nil record stays nil.
func (r Record) clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Coordinates extracts a finite lat/lng pair from r. Values may be any
// numeric type, a json.Number, or a numeric string. ok is false when either
// value is absent, nil, unparsable, NaN, or infinite.
func (r Record) Coordinates(latKey, lngKey string) (lat, lng float64, ok bool) {
	lat, ok = finiteValue(r, latKey)
	if !ok {
		return 0, 0, false
	}
	lng, ok = finiteValue(r, lngKey)
	if !ok {
		return 0, 0, false
	}
	return lat, lng, true
}

func finiteValue(r Record, key string) (float64, bool) {
	raw, present := r[key]
	if !present || raw == nil {
		return 0, false
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// identifier returns the string used to seed a marker's random stream: its
// id when present and non-empty, else a fixed-precision fingerprint of the
// true coordinates.
func (r Record) identifier(idKey string, lat, lng float64) string {
	if raw, ok := r[idKey]; ok && raw != nil {
		if s, err := cast.ToStringE(raw); err == nil && s != "" {
			return s
		}
	}
	return strconv.FormatFloat(lat, 'f', 8, 64) + "|" + strconv.FormatFloat(lng, 'f', 8, 64)
}

func keyOr(key, fallback string) string {
	if key == "" {
		return fallback
	}
	return key
}
