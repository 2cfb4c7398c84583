package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/staymap/internal/adapters/http"
	natsadapter "github.com/samirrijal/staymap/internal/adapters/nats"
	"github.com/samirrijal/staymap/internal/adapters/postgres"
	"github.com/samirrijal/staymap/internal/adapters/valkey"
	"github.com/samirrijal/staymap/internal/core/domain"
	"github.com/samirrijal/staymap/internal/core/ports"
	"github.com/samirrijal/staymap/internal/core/usecases"
	"github.com/samirrijal/staymap/internal/pkg/config"
	"github.com/samirrijal/staymap/internal/pkg/logging"
	"github.com/samirrijal/staymap/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("staymap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolMetrics(ctx, 15*time.Second)

	// Cache is optional: reads fall through to the database without it.
	var (
		cache  ports.CacheService
		pinger http.Pinger
	)
	if vc, err := valkey.New(cfg.Valkey.Addr, "staymap:"); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache, pinger = vc, vc
	}

	// Repos
	propertyRepo := postgres.NewPropertyRepo(db)
	wishlistRepo := postgres.NewWishlistRepo(db)

	// Use cases
	propertySvc := usecases.NewPropertyService(propertyRepo, cache)
	wishlistSvc := usecases.NewWishlistService(wishlistRepo, propertyRepo)
	mapSvc := usecases.NewMapService(propertySvc, wishlistRepo, cfg.Markers.Displacement(), cfg.Markers.Spread())

	// NATS: the WebSocket relay reads the raw connection; the subscriber keeps
	// this replica's cache in step with catalog writes made elsewhere.
	deps := &http.Dependencies{
		Properties: propertySvc,
		Maps:       mapSvc,
		Wishlists:  wishlistSvc,
		DB:         db,
		Cache:      pinger,
	}
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		deps.NATS = pub.Conn()
	}

	if cache != nil {
		hostname, _ := os.Hostname()
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, "api-cache-"+natsadapter.CityToken(hostname))
		if err != nil {
			slog.Warn("nats subscriber unavailable, cache relies on TTLs", "error", err)
		} else {
			defer sub.Close()
			err := sub.SubscribePropertyEvents(ctx, func(ctx context.Context, e *domain.PropertyEvent) error {
				return propertySvc.Invalidate(ctx, e.PropertyID)
			})
			if err != nil {
				slog.Warn("subscribe property events failed", "error", err)
			}
		}
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    4 * 1024 * 1024, // marker transforms carry up to 5000 records
		AppName:      "StayMap API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, If-None-Match",
		ExposeHeaders:    "ETag, Link, X-Request-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
