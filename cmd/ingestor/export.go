package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/samirrijal/staymap/internal/core/domain"
	"github.com/samirrijal/staymap/internal/core/usecases"
)

// exportRecord is one property in a catalog export. It matches
// domain.Property, except that a missing "active" means active.
type exportRecord struct {
	ID           string           `json:"id"`
	Slug         string           `json:"slug"`
	Title        string           `json:"title"`
	Price        float64          `json:"price"`
	Currency     string           `json:"currency"`
	Bedrooms     int              `json:"bedrooms"`
	Guests       int              `json:"guests"`
	City         string           `json:"city"`
	HostID       string           `json:"host_id"`
	HospitableID string           `json:"hospitable_id"`
	Geolocation  *domain.GeoPoint `json:"geolocation"`
	Active       *bool            `json:"active"`
	Metadata     map[string]any   `json:"metadata"`
}

type skippedRecord struct {
	index  int
	reason string
}

func toProperties(records []exportRecord) ([]domain.Property, []skippedRecord) {
	now := time.Now().UTC()
	var (
		out     []domain.Property
		skipped []skippedRecord
	)
	seen := make(map[string]bool, len(records))

	for i, r := range records {
		title := strings.TrimSpace(r.Title)
		slug := strings.TrimSpace(r.Slug)
		if slug == "" {
			slug = usecases.Slugify(title, r.ID)
		}
		if slug == "" {
			skipped = append(skipped, skippedRecord{i, "no slug, title or id"})
			continue
		}
		if seen[slug] {
			skipped = append(skipped, skippedRecord{i, fmt.Sprintf("duplicate slug %q", slug)})
			continue
		}
		if r.Price < 0 || math.IsNaN(r.Price) {
			skipped = append(skipped, skippedRecord{i, "negative price"})
			continue
		}
		seen[slug] = true

		p := domain.Property{
			Slug:         slug,
			Title:        title,
			Price:        r.Price,
			Currency:     strings.ToUpper(strings.TrimSpace(r.Currency)),
			Bedrooms:     r.Bedrooms,
			Guests:       r.Guests,
			City:         strings.TrimSpace(r.City),
			HostID:       r.HostID,
			HospitableID: r.HospitableID,
			Active:       r.Active == nil || *r.Active,
			Metadata:     r.Metadata,
			UpdatedAt:    now,
		}
		if p.Currency == "" {
			p.Currency = "EUR"
		}
		if p.Metadata == nil {
			p.Metadata = map[string]any{}
		}
		p.Metadata["source"] = "import"
		// Out-of-range positions are dropped rather than stored; the property
		// is then listed but never drawn on a map.
		if g := r.Geolocation; g != nil && validPoint(*g) {
			p.Geolocation = &domain.GeoPoint{Lat: g.Lat, Lng: g.Lng}
		}
		out = append(out, p)
	}
	return out, skipped
}

func validPoint(g domain.GeoPoint) bool {
	return g.Lat >= -90 && g.Lat <= 90 && g.Lng >= -180 && g.Lng <= 180 &&
		!(g.Lat == 0 && g.Lng == 0)
}

func batches(properties []domain.Property, size int) [][]domain.Property {
	var out [][]domain.Property
	for start := 0; start < len(properties); start += size {
		end := min(start+size, len(properties))
		out = append(out, properties[start:end])
	}
	return out
}
