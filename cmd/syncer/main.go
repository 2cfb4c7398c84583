package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/staymap/internal/adapters/hospitable"
	natsadapter "github.com/samirrijal/staymap/internal/adapters/nats"
	"github.com/samirrijal/staymap/internal/adapters/postgres"
	"github.com/samirrijal/staymap/internal/adapters/valkey"
	"github.com/samirrijal/staymap/internal/core/ports"
	"github.com/samirrijal/staymap/internal/core/usecases"
	"github.com/samirrijal/staymap/internal/pkg/config"
	"github.com/samirrijal/staymap/internal/pkg/logging"
	"github.com/samirrijal/staymap/internal/workflows"
)

const scheduledWorkflowID = "listing-sync-scheduled"

// Usage:
//
//	syncer        run the Temporal worker and register the scheduled sync
//	syncer once   run one sync in-process, without Temporal
func main() {
	cfg, err := config.Load("staymap-syncer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if cfg.Hospitable.Token == "" {
		log.Fatal("hospitable.token is required (STAYMAP_HOSPITABLE_TOKEN)")
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr, "staymap:"); err != nil {
		slog.Warn("valkey unavailable, cached entries will expire on their own", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, sync will not publish events", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	source := hospitable.NewClient(cfg.Hospitable.BaseURL, cfg.Hospitable.Token,
		time.Duration(cfg.Hospitable.Timeout)*time.Second)
	propertyRepo := postgres.NewPropertyRepo(db)
	syncSvc := usecases.NewSyncService(source, propertyRepo,
		usecases.NewPropertyService(propertyRepo, cache), publisher, cfg.Hospitable.PerPage)

	if len(os.Args) > 1 && os.Args[1] == "once" {
		res, err := syncSvc.Run(ctx)
		if err != nil {
			log.Fatalf("sync: %v", err)
		}
		slog.Info("sync finished", "result", res)
		return
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.ListingSyncWorkflow)
	w.RegisterActivity(&workflows.SyncActivities{Sync: syncSvc})

	if cfg.Temporal.SyncSchedule != "" {
		run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:           scheduledWorkflowID,
			TaskQueue:    cfg.Temporal.TaskQueue,
			CronSchedule: cfg.Temporal.SyncSchedule,
		}, workflows.ListingSyncWorkflow, workflows.ListingSyncInput{Reason: "schedule"})
		if err != nil {
			slog.Warn("could not register scheduled sync", "error", err)
		} else {
			slog.Info("scheduled sync registered", "workflow_id", run.GetID(), "cron", cfg.Temporal.SyncSchedule)
		}
	}

	slog.Info("syncer worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
