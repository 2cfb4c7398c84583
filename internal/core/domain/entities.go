package domain

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by repositories when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks errors caused by bad caller input.
	ErrInvalidInput = errors.New("invalid input")
)

// Property is a rental listing in the catalog.
type Property struct {
	ID           string         `json:"id"`
	Slug         string         `json:"slug"`
	Title        string         `json:"title"`
	Price        float64        `json:"price"`
	Currency     string         `json:"currency"`
	Bedrooms     int            `json:"bedrooms"`
	Guests       int            `json:"guests"`
	City         string         `json:"city,omitempty"`
	HostID       string         `json:"host_id,omitempty"`
	HospitableID string         `json:"hospitable_id,omitempty"`
	Geolocation  *GeoPoint      `json:"geolocation,omitempty"` // true position, never served raw on the map
	Active       bool           `json:"active"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// PropertyFilter narrows a catalog listing.
type PropertyFilter struct {
	City   string
	Bounds *Bounds
	Offset int
	Limit  int
}

// Wishlist is a user's saved set of listings.
type Wishlist struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Listings  []string  `json:"listings"`
	CreatedAt time.Time `json:"created_at"`
}

// PropertyEventKind distinguishes catalog change notices.
type PropertyEventKind string

const (
	PropertyUpserted PropertyEventKind = "upsert"
	PropertyRemoved  PropertyEventKind = "remove"
)

// PropertyEvent announces a catalog change. It never carries coordinates.
type PropertyEvent struct {
	Kind       PropertyEventKind `json:"kind"`
	PropertyID string            `json:"property_id"`
	City       string            `json:"city,omitempty"`
	Time       time.Time         `json:"time"`
}

// Listing is a property as reported by the channel manager.
type Listing struct {
	ExternalID string
	Name       string
	City       string
	Lat        *float64
	Lng        *float64
	Bedrooms   int
	Guests     int
	Price      float64
	Currency   string
	Listed     bool
}

// SyncResult summarises one listing sync run.
type SyncResult struct {
	Fetched     int `json:"fetched"`
	Upserted    int `json:"upserted"`
	Deactivated int `json:"deactivated"`
	Published   int `json:"published"`
}

// SyncChanges lists what a sync wrote, for event publication.
type SyncChanges struct {
	Upserted []PropertyRef `json:"upserted"`
	Removed  []PropertyRef `json:"removed"`
}

// PropertyRef identifies a property in an event without carrying its position.
type PropertyRef struct {
	ID   string `json:"id"`
	City string `json:"city,omitempty"`
}
