package http

import (
	"fmt"
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/staymap/internal/core/domain"
	"github.com/samirrijal/staymap/internal/pkg/geospatial"
	"github.com/spf13/cast"
)

const (
	maxBatchIDs     = 100
	maxSearchRadius = 50000 // meters
)

// queryCoord reads an optional finite coordinate query parameter.
func queryCoord(c *fiber.Ctx, key string, limit float64) (float64, bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, false, nil
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("%s must be a number", key)
	}
	if v < -limit || v > limit {
		return 0, false, fmt.Errorf("%s must be between %g and %g", key, -limit, limit)
	}
	return v, true, nil
}

// parseFilter reads city, bounding box, offset and limit. Viewports are
// widened to at least minSpanKm per side and snapped outward to a
// 0.01° grid, so whether a listing falls inside one says no more about its
// true position than its displaced marker does.
func parseFilter(c *fiber.Ctx, minSpanKm float64) (domain.PropertyFilter, error) {
	f := domain.PropertyFilter{
		City:   strings.TrimSpace(c.Query("city")),
		Offset: c.QueryInt("offset", 0),
		Limit:  c.QueryInt("limit", 0),
	}
	if len(f.City) > 120 {
		return f, fmt.Errorf("city too long (max 120 characters)")
	}

	minLat, hasMinLat, err := queryCoord(c, "min_lat", 90)
	if err != nil {
		return f, err
	}
	minLng, hasMinLng, err := queryCoord(c, "min_lng", 180)
	if err != nil {
		return f, err
	}
	maxLat, hasMaxLat, err := queryCoord(c, "max_lat", 90)
	if err != nil {
		return f, err
	}
	maxLng, hasMaxLng, err := queryCoord(c, "max_lng", 180)
	if err != nil {
		return f, err
	}

	switch n := countTrue(hasMinLat, hasMinLng, hasMaxLat, hasMaxLng); {
	case n == 0:
	case n < 4:
		return f, fmt.Errorf("min_lat, min_lng, max_lat and max_lng must be given together")
	case minLat > maxLat || minLng > maxLng:
		return f, fmt.Errorf("bounds minimum must not exceed maximum")
	default:
		f.Bounds = coarsenBounds(domain.Bounds{MinLat: minLat, MinLng: minLng, MaxLat: maxLat, MaxLng: maxLng}, minSpanKm)
	}

	if c.Query("radius_m") == "" {
		return f, nil
	}
	if f.Bounds != nil {
		return f, fmt.Errorf("radius_m cannot be combined with min_lat/min_lng/max_lat/max_lng")
	}
	// A radius covers a box twice its size, so half the span is enough.
	minRadius := math.Max(minSpanKm*500, 1)
	radius, err := cast.ToFloat64E(c.Query("radius_m"))
	if err != nil || !(radius >= minRadius && radius <= maxSearchRadius) {
		return f, fmt.Errorf("radius_m must be between %g and %d", minRadius, maxSearchRadius)
	}
	center, err := parseCenter(c)
	if err != nil {
		return f, err
	}
	if center == nil {
		return f, fmt.Errorf("radius_m requires center_lat and center_lng")
	}
	minLat, minLng, maxLat, maxLng = geospatial.BoundingBox(center.Lat, center.Lng, radius)
	f.Bounds = coarsenBounds(domain.Bounds{MinLat: minLat, MinLng: minLng, MaxLat: maxLat, MaxLng: maxLng}, minSpanKm)
	return f, nil
}

const (
	kmPerDegree = 111.32
	gridPerDeg  = 100 // 0.01° cells
)

// coarsenBounds grows b around its middle until each side spans minSpanKm,
// then snaps it outward to the grid. Latitudes are clamped to ±90. A box that
// reaches a pole or crosses the antimeridian covers every longitude.
func coarsenBounds(b domain.Bounds, minSpanKm float64) *domain.Bounds {
	if minSpanKm < 0 || math.IsNaN(minSpanKm) || math.IsInf(minSpanKm, 0) {
		minSpanKm = 0
	}

	if half := minSpanKm / kmPerDegree / 2; (b.MaxLat-b.MinLat)/2 < half {
		mid := (b.MinLat + b.MaxLat) / 2
		b.MinLat, b.MaxLat = mid-half, mid+half
	}
	b.MinLat = math.Max(snapDown(b.MinLat), -90)
	b.MaxLat = math.Min(snapUp(b.MaxLat), 90)

	// Longitude degrees shrink towards the poles; size the box for its
	// poleward edge.
	cosLat := math.Cos(geospatial.ToRadians(math.Max(math.Abs(b.MinLat), math.Abs(b.MaxLat))))
	if cosLat < 1e-6 {
		b.MinLng, b.MaxLng = -180, 180
		return &b
	}
	if half := minSpanKm / (kmPerDegree * cosLat) / 2; (b.MaxLng-b.MinLng)/2 < half {
		mid := (b.MinLng + b.MaxLng) / 2
		b.MinLng, b.MaxLng = mid-half, mid+half
	}
	b.MinLng, b.MaxLng = snapDown(b.MinLng), snapUp(b.MaxLng)
	if b.MinLat == -90 || b.MaxLat == 90 || b.MinLng < -180 || b.MaxLng > 180 {
		b.MinLng, b.MaxLng = -180, 180
	}
	return &b
}

// snapDown and snapUp move a coordinate outward to the grid. The small slack
// keeps values already on the grid, such as 41.2, from moving a cell.
func snapDown(v float64) float64 { return math.Floor(v*gridPerDeg+1e-9) / gridPerDeg }

func snapUp(v float64) float64 { return math.Ceil(v*gridPerDeg-1e-9) / gridPerDeg }

// viewportSpanKm is the smallest viewport side the API accepts: twice the
// marker displacement radius.
func viewportSpanKm(deps *Dependencies) float64 {
	if deps.Maps == nil {
		return 0
	}
	return 2 * deps.Maps.DisplacementDefaults().MaxOffsetKm
}

// parseCenter reads the optional map centre echoed back in marker responses.
func parseCenter(c *fiber.Ctx) (*domain.GeoPoint, error) {
	lat, hasLat, err := queryCoord(c, "center_lat", 90)
	if err != nil {
		return nil, err
	}
	lng, hasLng, err := queryCoord(c, "center_lng", 180)
	if err != nil {
		return nil, err
	}
	if hasLat != hasLng {
		return nil, fmt.Errorf("center_lat and center_lng must be given together")
	}
	if !hasLat {
		return nil, nil
	}
	return &domain.GeoPoint{Lat: lat, Lng: lng}, nil
}

// splitIDs parses a comma-separated id list.
func splitIDs(raw string) ([]string, error) {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one property id is required")
	}
	if len(ids) > maxBatchIDs {
		return nil, fmt.Errorf("maximum %d property ids allowed", maxBatchIDs)
	}
	return ids, nil
}

func countTrue(bs ...bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}
