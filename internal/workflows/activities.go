package workflows

import (
	"context"

	"github.com/samirrijal/staymap/internal/core/domain"
	"github.com/samirrijal/staymap/internal/core/usecases"
	"go.temporal.io/sdk/activity"
)

// SyncActivities holds the activity implementations for the listing sync workflow.
type SyncActivities struct {
	Sync *usecases.SyncService
}

// FetchListings pulls every listing page from the channel manager.
func (a *SyncActivities) FetchListings(ctx context.Context) ([]domain.Listing, error) {
	listings, err := a.Sync.FetchListings(ctx)
	if err != nil {
		return nil, err
	}
	activity.GetLogger(ctx).Info("fetched listings", "count", len(listings))
	return listings, nil
}

// UpsertProperties writes listings to the catalog and returns what changed.
func (a *SyncActivities) UpsertProperties(ctx context.Context, listings []domain.Listing) (*domain.SyncChanges, error) {
	return a.Sync.UpsertListings(ctx, listings)
}

// PublishChanges invalidates cached entries and announces the changes. It
// never fails: publication is best effort.
func (a *SyncActivities) PublishChanges(ctx context.Context, changes *domain.SyncChanges) (int, error) {
	return a.Sync.PublishChanges(ctx, changes), nil
}
