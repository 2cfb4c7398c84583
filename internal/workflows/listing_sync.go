package workflows

import (
	"time"

	"github.com/samirrijal/staymap/internal/core/domain"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ListingSyncWorkflowName is the registered workflow type name.
const ListingSyncWorkflowName = "ListingSyncWorkflow"

// ListingSyncInput is the input for the listing sync workflow.
type ListingSyncInput struct {
	Reason string // "schedule", "manual", ...
}

// ListingSyncWorkflow pulls listings from the channel manager, writes them to
// the catalog and publishes change events. Publication failures do not fail
// the run; the catalog is the source of truth.
func ListingSyncWorkflow(ctx workflow.Context, input ListingSyncInput) (*domain.SyncResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting listing sync", "reason", input.Reason)

	fetchCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 10 * time.Second,
			MaximumAttempts: 3,
		},
	})
	writeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 5,
		},
	})
	publishCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	// Step 1: Fetch
	var listings []domain.Listing
	if err := workflow.ExecuteActivity(fetchCtx, "FetchListings").Get(ctx, &listings); err != nil {
		return nil, err
	}

	// Step 2: Upsert and deactivate
	var changes domain.SyncChanges
	if err := workflow.ExecuteActivity(writeCtx, "UpsertProperties", listings).Get(ctx, &changes); err != nil {
		return nil, err
	}

	// Step 3: Publish
	var published int
	if err := workflow.ExecuteActivity(publishCtx, "PublishChanges", &changes).Get(ctx, &published); err != nil {
		logger.Warn("publishing changes failed, catalog already updated", "error", err)
		published = 0
	}

	result := &domain.SyncResult{
		Fetched:     len(listings),
		Upserted:    len(changes.Upserted),
		Deactivated: len(changes.Removed),
		Published:   published,
	}
	logger.Info("Listing sync complete",
		"fetched", result.Fetched,
		"upserted", result.Upserted,
		"deactivated", result.Deactivated,
		"published", result.Published,
	)
	return result, nil
}
