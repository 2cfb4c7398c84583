package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/staymap/internal/core/markers"
	"github.com/samirrijal/staymap/internal/core/usecases"
)

// maxTransformRecords bounds the stateless transform endpoints.
const maxTransformRecords = 5000

type obfuscateRequest struct {
	Records []markers.Record            `json:"records"`
	Options markers.DisplacementOptions `json:"options"`
}

type spreadRequest struct {
	Records []markers.Record      `json:"records"`
	Options markers.SpreadOptions `json:"options"`
}

type transformResponse struct {
	Records []markers.Record     `json:"records"`
	Stats   usecases.MarkerStats `json:"stats"`
}

// MapMarkersHandler renders the search map: catalog markers, displaced and
// then spread.
func MapMarkersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter, err := parseFilter(c, viewportSpanKm(deps))
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		center, err := parseCenter(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		set, err := deps.Maps.SearchMarkers(c.UserContext(), filter, center)
		if err != nil {
			return errFromDomain(c, err, "markers")
		}
		return c.JSON(set)
	}
}

// WishlistMarkersHandler renders a wishlist's markers, displaced only.
func WishlistMarkersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		center, err := parseCenter(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		set, err := deps.Maps.WishlistMarkers(c.UserContext(), c.Params("id"), center)
		if err != nil {
			return errFromDomain(c, err, "wishlist")
		}
		return c.JSON(set)
	}
}

// ObfuscateHandler displaces caller-supplied records. Options not present in
// the body keep the server defaults.
func ObfuscateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := obfuscateRequest{Options: deps.Maps.DisplacementDefaults()}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.Records) > maxTransformRecords {
			return errBadRequest(c, fmt.Sprintf("maximum %d records allowed", maxTransformRecords))
		}

		out, stats := deps.Maps.Obfuscate(c.UserContext(), req.Records, req.Options)
		return c.JSON(transformResponse{
			Records: out,
			Stats: usecases.MarkerStats{
				Displaced:   stats.Displaced,
				Passthrough: stats.Passthrough,
				Fallbacks:   stats.Fallbacks,
			},
		})
	}
}

// SpreadHandler fans out caller-supplied records that share a coordinate.
func SpreadHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := spreadRequest{Options: deps.Maps.SpreadDefaults()}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.Records) > maxTransformRecords {
			return errBadRequest(c, fmt.Sprintf("maximum %d records allowed", maxTransformRecords))
		}

		out, stats := deps.Maps.Spread(c.UserContext(), req.Records, req.Options)
		return c.JSON(transformResponse{
			Records: out,
			Stats:   usecases.MarkerStats{SpreadGroups: stats.Groups},
		})
	}
}
