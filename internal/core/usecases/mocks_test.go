package usecases_test

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/samirrijal/staymap/internal/core/domain"
)

// --- Mock PropertyRepository ---

type mockPropertyRepo struct {
	upsertBatchFn       func(ctx context.Context, properties []domain.Property) error
	getByIDFn           func(ctx context.Context, id string) (*domain.Property, error)
	getByIDsFn          func(ctx context.Context, ids []string) ([]domain.Property, error)
	listFn              func(ctx context.Context, filter domain.PropertyFilter) ([]domain.Property, error)
	countFn             func(ctx context.Context, filter domain.PropertyFilter) (int, error)
	deactivateMissingFn func(ctx context.Context, keep []string) ([]domain.PropertyRef, error)
}

func (m *mockPropertyRepo) Upsert(ctx context.Context, p *domain.Property) error { return nil }

func (m *mockPropertyRepo) UpsertBatch(ctx context.Context, properties []domain.Property) error {
	if m.upsertBatchFn != nil {
		return m.upsertBatchFn(ctx, properties)
	}
	return nil
}

func (m *mockPropertyRepo) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockPropertyRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Property, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockPropertyRepo) List(ctx context.Context, filter domain.PropertyFilter) ([]domain.Property, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockPropertyRepo) Count(ctx context.Context, filter domain.PropertyFilter) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, filter)
	}
	return 0, nil
}

func (m *mockPropertyRepo) DeactivateMissing(ctx context.Context, keep []string) ([]domain.PropertyRef, error) {
	if m.deactivateMissingFn != nil {
		return m.deactivateMissingFn(ctx, keep)
	}
	return nil, nil
}

// --- Mock WishlistRepository ---

type mockWishlistRepo struct {
	getByIDFn       func(ctx context.Context, id string) (*domain.Wishlist, error)
	createFn        func(ctx context.Context, w *domain.Wishlist) error
	addListingFn    func(ctx context.Context, wishlistID, propertyID string) error
	removeListingFn func(ctx context.Context, wishlistID, propertyID string) error
}

func (m *mockWishlistRepo) GetByID(ctx context.Context, id string) (*domain.Wishlist, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockWishlistRepo) Create(ctx context.Context, w *domain.Wishlist) error {
	if m.createFn != nil {
		return m.createFn(ctx, w)
	}
	return nil
}

func (m *mockWishlistRepo) AddListing(ctx context.Context, wishlistID, propertyID string) error {
	if m.addListingFn != nil {
		return m.addListingFn(ctx, wishlistID, propertyID)
	}
	return nil
}

func (m *mockWishlistRepo) RemoveListing(ctx context.Context, wishlistID, propertyID string) error {
	if m.removeListingFn != nil {
		return m.removeListingFn(ctx, wishlistID, propertyID)
	}
	return nil
}

// --- In-memory CacheService ---

var errCacheMiss = errors.New("cache miss")

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Incr(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := strconv.ParseInt(string(c.data[key]), 10, 64)
	n++
	c.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.PropertyEvent
	err    error
}

func (m *mockPublisher) PublishPropertyEvent(ctx context.Context, event *domain.PropertyEvent) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	return nil
}

// --- Mock ListingSource ---

type mockSource struct {
	pages [][]domain.Listing
	err   error
	calls int
}

func (m *mockSource) ListListings(ctx context.Context, page, perPage int) ([]domain.Listing, bool, error) {
	m.calls++
	if m.err != nil {
		return nil, false, m.err
	}
	if page < 1 || page > len(m.pages) {
		return nil, false, nil
	}
	return m.pages[page-1], page < len(m.pages), nil
}
