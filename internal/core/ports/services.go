package ports

import (
	"context"

	"github.com/samirrijal/staymap/internal/core/domain"
)

// EventPublisher publishes catalog events to a message broker.
type EventPublisher interface {
	PublishPropertyEvent(ctx context.Context, event *domain.PropertyEvent) error
}

// EventSubscriber subscribes to catalog events from a message broker.
type EventSubscriber interface {
	SubscribePropertyEvents(ctx context.Context, handler func(ctx context.Context, event *domain.PropertyEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
}

// ListingSource pages through listings held by the channel manager.
type ListingSource interface {
	ListListings(ctx context.Context, page, perPage int) (listings []domain.Listing, hasMore bool, err error)
}
