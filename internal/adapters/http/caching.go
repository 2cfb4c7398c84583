package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses that the handler left
// unset. Marker responses are deterministic for a catalog state, so they get
// a short public lifetime; wishlists are per-user.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}
		if c.Response().StatusCode() >= 400 {
			c.Set(fiber.HeaderCacheControl, "no-store")
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "no-cache"

		case path == "/metrics":
			ttl = "no-cache"

		case strings.HasPrefix(path, "/v1/wishlists"):
			ttl = "private, no-cache"

		case path == "/v1/map/markers":
			ttl = "public, max-age=60"

		case path == "/v1/properties" || path == "/api/properties":
			ttl = "public, max-age=300"

		case strings.HasPrefix(path, "/v1/properties/"):
			ttl = "public, max-age=600"

		case path == "/docs" || strings.HasPrefix(path, "/docs/"):
			ttl = "public, max-age=3600"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=300"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}
