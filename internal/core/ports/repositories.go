package ports

import (
	"context"

	"github.com/samirrijal/staymap/internal/core/domain"
)

// PropertyRepository persists catalog properties.
type PropertyRepository interface {
	Upsert(ctx context.Context, p *domain.Property) error
	UpsertBatch(ctx context.Context, properties []domain.Property) error
	GetByID(ctx context.Context, id string) (*domain.Property, error)
	// GetByIDs skips unknown and inactive properties.
	GetByIDs(ctx context.Context, ids []string) ([]domain.Property, error)
	List(ctx context.Context, filter domain.PropertyFilter) ([]domain.Property, error)
	Count(ctx context.Context, filter domain.PropertyFilter) (int, error)
	// DeactivateMissing marks every synced property whose Hospitable ID is not
	// in keep as inactive and returns the affected properties.
	DeactivateMissing(ctx context.Context, keep []string) ([]domain.PropertyRef, error)
}

// WishlistRepository persists user wishlists.
type WishlistRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Wishlist, error)
	Create(ctx context.Context, w *domain.Wishlist) error
	AddListing(ctx context.Context, wishlistID, propertyID string) error
	RemoveListing(ctx context.Context, wishlistID, propertyID string) error
}
