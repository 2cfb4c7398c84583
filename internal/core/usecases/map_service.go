package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/staymap/internal/core/domain"
	"github.com/samirrijal/staymap/internal/core/markers"
	"github.com/samirrijal/staymap/internal/core/ports"
	"github.com/samirrijal/staymap/internal/pkg/metrics"
	"github.com/samirrijal/staymap/internal/pkg/telemetry"
)

// Map views, used as metric labels.
const (
	ViewSearch   = "search"
	ViewWishlist = "wishlist"
	ViewCustom   = "custom"
)

// MarkerStats reports what the engine did to one marker set.
type MarkerStats struct {
	Displaced    int `json:"displaced"`
	Passthrough  int `json:"passthrough"`
	Fallbacks    int `json:"fallbacks"`
	SpreadGroups int `json:"spread_groups"`
}

// MarkerSet is a rendered set of map pins. Coordinates are display positions,
// never the true location of a property.
type MarkerSet struct {
	Center  *domain.GeoPoint `json:"center,omitempty"`
	Markers []markers.Record `json:"markers"`
	Stats   MarkerStats      `json:"stats"`
}

// MapService renders catalog properties as privacy-safe map markers.
type MapService struct {
	properties *PropertyService
	wishlists  ports.WishlistRepository
	displace   markers.DisplacementOptions
	spread     markers.SpreadOptions
	tracer     trace.Tracer
}

// NewMapService creates a new MapService using the given rendering defaults.
func NewMapService(
	properties *PropertyService,
	wishlists ports.WishlistRepository,
	displace markers.DisplacementOptions,
	spread markers.SpreadOptions,
) *MapService {
	return &MapService{
		properties: properties,
		wishlists:  wishlists,
		displace:   displace,
		spread:     spread,
		tracer:     telemetry.Tracer("staymap/markers"),
	}
}

// DisplacementDefaults returns the configured obfuscation options.
func (s *MapService) DisplacementDefaults() markers.DisplacementOptions { return s.displace }

// SpreadDefaults returns the configured spreading options.
func (s *MapService) SpreadDefaults() markers.SpreadOptions { return s.spread }

// FormatMarkers turns properties into marker records. A property without a
// geolocation gets nil coordinates and is passed through by the engine.
func FormatMarkers(properties []domain.Property) []markers.Record {
	out := make([]markers.Record, 0, len(properties))
	for _, p := range properties {
		r := markers.Record{
			markers.DefaultIDKey:  p.ID,
			markers.DefaultLatKey: nil,
			markers.DefaultLngKey: nil,
			"price":               p.Price,
			"title":               p.Title,
			"hovered":             false,
		}
		if p.Geolocation != nil {
			r[markers.DefaultLatKey] = p.Geolocation.Lat
			r[markers.DefaultLngKey] = p.Geolocation.Lng
		}
		out = append(out, r)
	}
	return out
}

// SearchMarkers renders the search map: catalog page, obfuscation, then
// spreading of any coincident pins.
func (s *MapService) SearchMarkers(ctx context.Context, filter domain.PropertyFilter, center *domain.GeoPoint) (*MarkerSet, error) {
	ctx, span := s.tracer.Start(ctx, "MapService.SearchMarkers")
	defer span.End()
	span.SetAttributes(telemetry.AttrMapView.String(ViewSearch), telemetry.AttrCity.String(filter.City))

	properties, err := s.properties.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("search markers: %w", err)
	}

	set := s.render(ctx, span, ViewSearch, FormatMarkers(properties), true)
	set.Center = center
	return set, nil
}

// WishlistMarkers renders the markers of one wishlist. The wishlist view
// obfuscates without spreading, keeping the wishlist's own listing order.
func (s *MapService) WishlistMarkers(ctx context.Context, wishlistID string, center *domain.GeoPoint) (*MarkerSet, error) {
	ctx, span := s.tracer.Start(ctx, "MapService.WishlistMarkers")
	defer span.End()
	span.SetAttributes(telemetry.AttrMapView.String(ViewWishlist), telemetry.AttrWishlistID.String(wishlistID))

	w, err := s.wishlists.GetByID(ctx, wishlistID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("get wishlist %s: %w", wishlistID, err)
	}

	properties, err := s.properties.GetByIDs(ctx, w.Listings)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("wishlist markers: %w", err)
	}

	set := s.render(ctx, span, ViewWishlist, FormatMarkers(properties), false)
	set.Center = center
	return set, nil
}

// Obfuscate runs the displacement stage on caller-supplied records.
func (s *MapService) Obfuscate(ctx context.Context, records []markers.Record, opts markers.DisplacementOptions) ([]markers.Record, markers.ObfuscateStats) {
	start := time.Now()
	out, stats := markers.ObfuscateWithStats(records, opts)
	metrics.ObserveRender(ViewCustom, stats.Displaced, stats.Passthrough, stats.Fallbacks, 0, time.Since(start))
	return out, stats
}

// Spread runs the spreading stage on caller-supplied records.
func (s *MapService) Spread(ctx context.Context, records []markers.Record, opts markers.SpreadOptions) ([]markers.Record, markers.SpreadStats) {
	start := time.Now()
	out, stats := markers.SpreadWithStats(records, opts)
	metrics.ObserveRender(ViewCustom, 0, 0, 0, stats.Groups, time.Since(start))
	return out, stats
}

func (s *MapService) render(ctx context.Context, span trace.Span, view string, records []markers.Record, spread bool) *MarkerSet {
	start := time.Now()

	out, ostats := markers.ObfuscateWithStats(records, s.displace)
	stats := MarkerStats{
		Displaced:   ostats.Displaced,
		Passthrough: ostats.Passthrough,
		Fallbacks:   ostats.Fallbacks,
	}
	if spread {
		var sstats markers.SpreadStats
		out, sstats = markers.SpreadWithStats(out, s.spread)
		stats.SpreadGroups = sstats.Groups
	}

	elapsed := time.Since(start)
	metrics.ObserveRender(view, stats.Displaced, stats.Passthrough, stats.Fallbacks, stats.SpreadGroups, elapsed)
	span.SetAttributes(
		telemetry.AttrMarkerCount.Int(len(out)),
		telemetry.AttrDisplaced.Int(stats.Displaced),
		telemetry.AttrPassthrough.Int(stats.Passthrough),
		telemetry.AttrFallbacks.Int(stats.Fallbacks),
		telemetry.AttrSpreadGroups.Int(stats.SpreadGroups),
	)
	slog.DebugContext(ctx, "markers rendered",
		"view", view,
		"count", len(out),
		"displaced", stats.Displaced,
		"passthrough", stats.Passthrough,
		"fallbacks", stats.Fallbacks,
		"spread_groups", stats.SpreadGroups,
		"elapsed", elapsed,
	)

	return &MarkerSet{Markers: out, Stats: stats}
}
