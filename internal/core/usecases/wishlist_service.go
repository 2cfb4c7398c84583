package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samirrijal/staymap/internal/core/domain"
	"github.com/samirrijal/staymap/internal/core/ports"
)

// WishlistService manages user wishlists.
type WishlistService struct {
	wishlists  ports.WishlistRepository
	properties ports.PropertyRepository
}

// NewWishlistService creates a new WishlistService.
func NewWishlistService(wishlists ports.WishlistRepository, properties ports.PropertyRepository) *WishlistService {
	return &WishlistService{wishlists: wishlists, properties: properties}
}

// Get returns a wishlist by ID.
func (s *WishlistService) Get(ctx context.Context, id string) (*domain.Wishlist, error) {
	w, err := s.wishlists.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get wishlist %s: %w", id, err)
	}
	return w, nil
}

// Create stores a new, empty wishlist.
func (s *WishlistService) Create(ctx context.Context, userID, name string) (*domain.Wishlist, error) {
	userID = strings.TrimSpace(userID)
	name = strings.TrimSpace(name)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id must not be empty", domain.ErrInvalidInput)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: wishlist name must not be empty", domain.ErrInvalidInput)
	}
	if len(name) > 120 {
		return nil, fmt.Errorf("%w: wishlist name too long (max 120 characters)", domain.ErrInvalidInput)
	}

	w := &domain.Wishlist{
		UserID:    userID,
		Name:      name,
		Listings:  []string{},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.wishlists.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("create wishlist: %w", err)
	}
	return w, nil
}

// AddListing saves a property to a wishlist. Adding a listing twice is a no-op.
func (s *WishlistService) AddListing(ctx context.Context, wishlistID, propertyID string) error {
	if _, err := s.properties.GetByID(ctx, propertyID); err != nil {
		return fmt.Errorf("add listing %s: %w", propertyID, err)
	}
	if err := s.wishlists.AddListing(ctx, wishlistID, propertyID); err != nil {
		return fmt.Errorf("add listing %s to %s: %w", propertyID, wishlistID, err)
	}
	return nil
}

// RemoveListing drops a property from a wishlist. Removing an absent listing is a no-op.
func (s *WishlistService) RemoveListing(ctx context.Context, wishlistID, propertyID string) error {
	if err := s.wishlists.RemoveListing(ctx, wishlistID, propertyID); err != nil {
		return fmt.Errorf("remove listing %s from %s: %w", propertyID, wishlistID, err)
	}
	return nil
}
