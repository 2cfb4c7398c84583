package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samirrijal/staymap/internal/core/domain"
)

// WishlistRepo implements ports.WishlistRepository with pgx.
type WishlistRepo struct {
	db *DB
}

// NewWishlistRepo creates a new WishlistRepo.
func NewWishlistRepo(db *DB) *WishlistRepo {
	return &WishlistRepo{db: db}
}

// GetByID returns a wishlist with its listings in the order they were saved.
func (r *WishlistRepo) GetByID(ctx context.Context, id string) (*domain.Wishlist, error) {
	var w domain.Wishlist
	err := r.db.Pool.QueryRow(ctx, `
		SELECT w.id, w.user_id, w.name, w.created_at,
		       COALESCE(
		           array_agg(wl.property_id::text ORDER BY wl.added_at, wl.property_id)
		               FILTER (WHERE wl.property_id IS NOT NULL),
		           '{}'
		       )
		FROM wishlists w
		LEFT JOIN wishlist_listings wl ON wl.wishlist_id = w.id
		WHERE w.id = $1
		GROUP BY w.id
	`, id).Scan(&w.ID, &w.UserID, &w.Name, &w.CreatedAt, &w.Listings)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

// Create inserts a wishlist and fills in its ID and creation time.
func (r *WishlistRepo) Create(ctx context.Context, w *domain.Wishlist) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO wishlists (user_id, name, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, w.UserID, w.Name, w.CreatedAt).Scan(&w.ID, &w.CreatedAt)
}

// AddListing saves a property to a wishlist; saving it again is a no-op.
func (r *WishlistRepo) AddListing(ctx context.Context, wishlistID, propertyID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO wishlist_listings (wishlist_id, property_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, wishlistID, propertyID)
	if isForeignKeyViolation(err) || isInvalidText(err) {
		return domain.ErrNotFound
	}
	return err
}

// RemoveListing drops a property from a wishlist; removing an absent one is a no-op.
func (r *WishlistRepo) RemoveListing(ctx context.Context, wishlistID, propertyID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		DELETE FROM wishlist_listings WHERE wishlist_id = $1 AND property_id = $2
	`, wishlistID, propertyID)
	if isInvalidText(err) {
		return domain.ErrNotFound
	}
	return err
}
