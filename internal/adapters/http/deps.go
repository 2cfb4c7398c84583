package http

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/samirrijal/staymap/internal/adapters/postgres"
	"github.com/samirrijal/staymap/internal/core/usecases"
)

// Pinger is satisfied by the Valkey cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Properties *usecases.PropertyService
	Maps       *usecases.MapService
	Wishlists  *usecases.WishlistService
	NATS       *nats.Conn
	DB         *postgres.DB
	Cache      Pinger
}
