package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/samirrijal/staymap/internal/core/domain"
	"github.com/samirrijal/staymap/internal/core/ports"
	"github.com/samirrijal/staymap/internal/pkg/metrics"
)

const maxSyncPages = 500

// SyncService mirrors the channel manager's listings into the catalog.
type SyncService struct {
	source     ports.ListingSource
	properties ports.PropertyRepository
	catalog    *PropertyService
	publisher  ports.EventPublisher
	perPage    int
}

// NewSyncService creates a new SyncService. publisher and catalog may be nil.
func NewSyncService(
	source ports.ListingSource,
	properties ports.PropertyRepository,
	catalog *PropertyService,
	publisher ports.EventPublisher,
	perPage int,
) *SyncService {
	if perPage <= 0 {
		perPage = 100
	}
	return &SyncService{
		source:     source,
		properties: properties,
		catalog:    catalog,
		publisher:  publisher,
		perPage:    perPage,
	}
}

// FetchListings pages through every listing held by the source.
func (s *SyncService) FetchListings(ctx context.Context) ([]domain.Listing, error) {
	start := time.Now()
	defer func() { metrics.SyncDuration.Observe(time.Since(start).Seconds()) }()

	var all []domain.Listing
	for page := 1; page <= maxSyncPages; page++ {
		listings, more, err := s.source.ListListings(ctx, page, s.perPage)
		if err != nil {
			metrics.SyncErrors.Inc()
			return nil, fmt.Errorf("fetch listings page %d: %w", page, err)
		}
		all = append(all, listings...)
		if !more {
			return all, nil
		}
	}
	return nil, fmt.Errorf("fetch listings: more than %d pages", maxSyncPages)
}

// UpsertListings writes listings to the catalog and deactivates synced
// properties that the source no longer lists.
func (s *SyncService) UpsertListings(ctx context.Context, listings []domain.Listing) (*domain.SyncChanges, error) {
	properties := ListingsToProperties(listings)
	changes := &domain.SyncChanges{}

	if len(properties) > 0 {
		if err := s.properties.UpsertBatch(ctx, properties); err != nil {
			return nil, fmt.Errorf("upsert properties: %w", err)
		}
	}

	keep := make([]string, 0, len(properties))
	for _, p := range properties {
		ref := domain.PropertyRef{ID: p.ID, City: p.City}
		if p.Active {
			keep = append(keep, p.HospitableID)
			changes.Upserted = append(changes.Upserted, ref)
			metrics.ListingsSynced.WithLabelValues("upserted").Inc()
		} else {
			changes.Removed = append(changes.Removed, ref)
			metrics.ListingsSynced.WithLabelValues("unlisted").Inc()
		}
	}

	// An empty fetch is far more likely to be an upstream glitch than a host
	// unlisting everything, so nothing is deactivated in that case.
	if len(listings) == 0 {
		slog.WarnContext(ctx, "listing source returned no listings, skipping deactivation")
		return changes, nil
	}

	removed, err := s.properties.DeactivateMissing(ctx, keep)
	if err != nil {
		return nil, fmt.Errorf("deactivate missing: %w", err)
	}
	changes.Removed = append(changes.Removed, removed...)
	metrics.ListingsSynced.WithLabelValues("deactivated").Add(float64(len(removed)))

	return changes, nil
}

// PublishChanges announces catalog changes and drops stale cache entries.
// Failures are logged and skipped: the catalog is authoritative. It returns
// the number of events published.
func (s *SyncService) PublishChanges(ctx context.Context, changes *domain.SyncChanges) int {
	if changes == nil {
		return 0
	}

	published := 0
	emit := func(kind domain.PropertyEventKind, id, city string) {
		if s.catalog != nil {
			if err := s.catalog.Invalidate(ctx, id); err != nil {
				slog.WarnContext(ctx, "cache invalidation failed", "property_id", id, "error", err)
			}
		}
		if s.publisher == nil {
			return
		}
		event := &domain.PropertyEvent{Kind: kind, PropertyID: id, City: city, Time: time.Now().UTC()}
		if err := s.publisher.PublishPropertyEvent(ctx, event); err != nil {
			slog.WarnContext(ctx, "publish property event failed", "property_id", id, "kind", kind, "error", err)
			return
		}
		published++
	}

	for _, ref := range changes.Upserted {
		emit(domain.PropertyUpserted, ref.ID, ref.City)
	}
	for _, ref := range changes.Removed {
		emit(domain.PropertyRemoved, ref.ID, ref.City)
	}
	return published
}

// Run performs a full sync in-process.
func (s *SyncService) Run(ctx context.Context) (*domain.SyncResult, error) {
	listings, err := s.FetchListings(ctx)
	if err != nil {
		return nil, err
	}
	changes, err := s.UpsertListings(ctx, listings)
	if err != nil {
		return nil, err
	}
	published := s.PublishChanges(ctx, changes)

	result := &domain.SyncResult{
		Fetched:     len(listings),
		Upserted:    len(changes.Upserted),
		Deactivated: len(changes.Removed),
		Published:   published,
	}
	slog.InfoContext(ctx, "listing sync complete",
		"fetched", result.Fetched,
		"upserted", result.Upserted,
		"deactivated", result.Deactivated,
		"published", result.Published,
	)
	return result, nil
}

// ListingsToProperties converts channel-manager listings into catalog
// properties. A listing without both coordinates gets no geolocation.
func ListingsToProperties(listings []domain.Listing) []domain.Property {
	out := make([]domain.Property, 0, len(listings))
	now := time.Now().UTC()
	for _, l := range listings {
		if l.ExternalID == "" {
			continue
		}
		p := domain.Property{
			Slug:         Slugify(l.Name, l.ExternalID),
			Title:        l.Name,
			Price:        l.Price,
			Currency:     strings.ToUpper(l.Currency),
			Bedrooms:     l.Bedrooms,
			Guests:       l.Guests,
			City:         l.City,
			HospitableID: l.ExternalID,
			Active:       l.Listed,
			Metadata:     map[string]any{"source": "hospitable"},
			UpdatedAt:    now,
		}
		if p.Currency == "" {
			p.Currency = "EUR"
		}
		if l.Lat != nil && l.Lng != nil {
			p.Geolocation = &domain.GeoPoint{Lat: *l.Lat, Lng: *l.Lng}
		}
		out = append(out, p)
	}
	return out
}

// Slugify builds a URL slug from a title, suffixed with a short external ID
// fragment to keep slugs unique.
func Slugify(title, externalID string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if len(slug) > 60 {
		slug = strings.TrimSuffix(slug[:60], "-")
	}

	suffix := strings.ToLower(externalID)
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	if slug == "" {
		return suffix
	}
	if suffix == "" {
		return slug
	}
	return slug + "-" + suffix
}
