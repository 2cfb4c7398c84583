package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"strconv"

	natsadapter "github.com/samirrijal/staymap/internal/adapters/nats"
	"github.com/samirrijal/staymap/internal/adapters/postgres"
	"github.com/samirrijal/staymap/internal/adapters/valkey"
	"github.com/samirrijal/staymap/internal/core/domain"
	"github.com/samirrijal/staymap/internal/core/ports"
	"github.com/samirrijal/staymap/internal/core/usecases"
	"github.com/samirrijal/staymap/internal/pkg/config"
	"github.com/samirrijal/staymap/internal/pkg/logging"
)

const defaultBatchSize = 200

// Usage: ingestor [export.json] [batch-size]
func main() {
	cfg, err := config.Load("staymap-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	exportPath := "properties.json"
	if len(os.Args) > 1 {
		exportPath = os.Args[1]
	}
	batchSize := defaultBatchSize
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n <= 0 {
			log.Fatalf("invalid batch size %q", os.Args[2])
		}
		batchSize = n
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		log.Fatalf("read export: %v", err)
	}
	var records []exportRecord
	if err := json.Unmarshal(data, &records); err != nil {
		log.Fatalf("parse export: %v", err)
	}

	properties, skipped := toProperties(records)
	slog.Info("StayMap catalog import", "file", exportPath, "records", len(records), "valid", len(properties), "skipped", len(skipped))
	for _, s := range skipped {
		slog.Warn("skipping record", "index", s.index, "reason", s.reason)
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr, "staymap:"); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}
	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, import will not publish events", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	repo := postgres.NewPropertyRepo(db)
	// Only the publishing half of the sync service is used here.
	notifier := usecases.NewSyncService(nil, repo, usecases.NewPropertyService(repo, cache), publisher, 0)

	imported, published := 0, 0
	for _, batch := range batches(properties, batchSize) {
		if err := repo.UpsertBatch(ctx, batch); err != nil {
			log.Fatalf("import stopped after %d properties: %v", imported, err)
		}
		imported += len(batch)

		changes := &domain.SyncChanges{}
		for _, p := range batch {
			ref := domain.PropertyRef{ID: p.ID, City: p.City}
			if p.Active {
				changes.Upserted = append(changes.Upserted, ref)
			} else {
				changes.Removed = append(changes.Removed, ref)
			}
		}
		published += notifier.PublishChanges(ctx, changes)
		slog.Info("batch imported", "imported", imported, "total", len(properties))
	}

	slog.Info("import complete", "imported", imported, "published", published, "skipped", len(skipped))
}
