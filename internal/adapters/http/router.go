package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"
	"github.com/samirrijal/staymap/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// legacySunset is when the pre-v1 /api routes go away.
var legacySunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())
	app.Use(DeprecationMiddleware([]DeprecatedRoute{
		{Path: "/api/properties", SunsetDate: legacySunset, Alternative: "/v1/properties"},
	}))

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	with := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, requestTimeout)
	}

	v1 := app.Group("/v1")
	v1.Get("/properties", with(ListPropertiesHandler(deps)))
	v1.Get("/properties/batch", with(BatchPropertiesHandler(deps)))
	v1.Get("/properties/:id", with(GetPropertyHandler(deps)))

	v1.Get("/map/markers", with(MapMarkersHandler(deps)))
	v1.Post("/markers/obfuscate", with(ObfuscateHandler(deps)))
	v1.Post("/markers/spread", with(SpreadHandler(deps)))

	v1.Post("/wishlists", with(CreateWishlistHandler(deps)))
	v1.Get("/wishlists/:id", with(GetWishlistHandler(deps)))
	v1.Get("/wishlists/:id/markers", with(WishlistMarkersHandler(deps)))
	v1.Put("/wishlists/:id/listings/:propertyId", with(AddWishlistListingHandler(deps)))
	v1.Delete("/wishlists/:id/listings/:propertyId", with(RemoveWishlistListingHandler(deps)))

	// Legacy alias
	app.Get("/api/properties", with(ListPropertiesHandler(deps)))

	app.Post("/graphql", with(GraphQLHandler(deps)))

	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
