package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/samirrijal/staymap/internal/core/domain"
	"github.com/samirrijal/staymap/internal/core/ports"
	"github.com/samirrijal/staymap/internal/pkg/metrics"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000

	propertyTTL     = 600 // 10 min for a single property
	propertyListTTL = 300

	listGenerationKey = "properties:gen"
)

// PropertyService handles catalog reads.
type PropertyService struct {
	properties ports.PropertyRepository
	cache      ports.CacheService
}

// NewPropertyService creates a new PropertyService. cache may be nil.
func NewPropertyService(properties ports.PropertyRepository, cache ports.CacheService) *PropertyService {
	return &PropertyService{properties: properties, cache: cache}
}

// NormalizeFilter applies the default and maximum page sizes.
func NormalizeFilter(f domain.PropertyFilter) domain.PropertyFilter {
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	} else if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	return f
}

// List returns active properties matching the filter in a stable order.
func (s *PropertyService) List(ctx context.Context, filter domain.PropertyFilter) ([]domain.Property, error) {
	filter = NormalizeFilter(filter)

	cacheKey := s.listKey(ctx, filter)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var properties []domain.Property
			if err := json.Unmarshal(data, &properties); err == nil {
				metrics.CacheHits.WithLabelValues("property_list").Inc()
				return properties, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("property_list").Inc()
	}

	properties, err := s.properties.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(properties); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, propertyListTTL)
		}
	}

	return properties, nil
}

// Count returns the number of active properties matching the filter,
// ignoring offset and limit.
func (s *PropertyService) Count(ctx context.Context, filter domain.PropertyFilter) (int, error) {
	n, err := s.properties.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count properties: %w", err)
	}
	return n, nil
}

// GetByID returns a single property.
func (s *PropertyService) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	cacheKey := "properties:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var p domain.Property
			if err := json.Unmarshal(data, &p); err == nil {
				metrics.CacheHits.WithLabelValues("property").Inc()
				return &p, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("property").Inc()
	}

	p, err := s.properties.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get property %s: %w", id, err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(p); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, propertyTTL)
		}
	}

	return p, nil
}

// GetByIDs returns the properties with the given IDs, in the order the IDs
// were given. Unknown IDs are skipped.
func (s *PropertyService) GetByIDs(ctx context.Context, ids []string) ([]domain.Property, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := s.properties.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get properties: %w", err)
	}

	byID := make(map[string]domain.Property, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	ordered := make([]domain.Property, 0, len(found))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok && !seen[id] {
			ordered = append(ordered, p)
			seen[id] = true
		}
	}
	return ordered, nil
}

// Invalidate drops the cached copy of a property and every cached listing.
func (s *PropertyService) Invalidate(ctx context.Context, id string) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, "properties:id:"+id); err != nil {
		return fmt.Errorf("invalidate property %s: %w", id, err)
	}
	if _, err := s.cache.Incr(ctx, listGenerationKey); err != nil {
		return fmt.Errorf("bump list generation: %w", err)
	}
	return nil
}

// listKey embeds the current list generation so Invalidate can retire every
// cached page at once.
func (s *PropertyService) listKey(ctx context.Context, f domain.PropertyFilter) string {
	gen := int64(0)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, listGenerationKey); err == nil {
			gen, _ = strconv.ParseInt(string(data), 10, 64)
		}
	}
	bounds := "-"
	if f.Bounds != nil {
		b := f.Bounds
		bounds = strings.Join([]string{
			strconv.FormatFloat(b.MinLat, 'g', -1, 64),
			strconv.FormatFloat(b.MinLng, 'g', -1, 64),
			strconv.FormatFloat(b.MaxLat, 'g', -1, 64),
			strconv.FormatFloat(b.MaxLng, 'g', -1, 64),
		}, ",")
	}
	return fmt.Sprintf("properties:list:v%d:%s:%s:%d:%d", gen, f.City, bounds, f.Offset, f.Limit)
}
