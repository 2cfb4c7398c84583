package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/staymap/internal/core/domain"
	"github.com/samirrijal/staymap/internal/core/usecases"
)

// publicProperties drops true positions; clients only ever see map markers.
func publicProperties(properties []domain.Property) []domain.Property {
	out := make([]domain.Property, 0, len(properties))
	for _, p := range properties {
		p.Geolocation = nil
		out = append(out, p)
	}
	return out
}

// ListPropertiesHandler returns active properties with pagination.
func ListPropertiesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter, err := parseFilter(c, viewportSpanKm(deps))
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		filter = usecases.NormalizeFilter(filter)

		properties, err := deps.Properties.List(c.UserContext(), filter)
		if err != nil {
			return errFromDomain(c, err, "properties")
		}
		total, err := deps.Properties.Count(c.UserContext(), filter)
		if err != nil {
			return errFromDomain(c, err, "properties")
		}

		pg := Pagination{Offset: filter.Offset, Limit: filter.Limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: publicProperties(properties), Pagination: pg})
	}
}

// BatchPropertiesHandler returns multiple properties by ID, in request order.
func BatchPropertiesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ids, err := splitIDs(c.Query("ids"))
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		properties, err := deps.Properties.GetByIDs(c.UserContext(), ids)
		if err != nil {
			return errFromDomain(c, err, "properties")
		}
		return c.JSON(publicProperties(properties))
	}
}

// GetPropertyHandler returns a single property by ID.
func GetPropertyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "property id is required")
		}
		p, err := deps.Properties.GetByID(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err, "property")
		}
		public := *p
		public.Geolocation = nil
		return c.JSON(public)
	}
}
