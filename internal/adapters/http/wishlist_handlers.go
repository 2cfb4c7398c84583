package http

import (
	"github.com/gofiber/fiber/v2"
)

type createWishlistRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// GetWishlistHandler returns a wishlist with its listing IDs.
func GetWishlistHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		w, err := deps.Wishlists.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err, "wishlist")
		}
		return c.JSON(w)
	}
}

// CreateWishlistHandler creates an empty wishlist.
func CreateWishlistHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createWishlistRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		w, err := deps.Wishlists.Create(c.UserContext(), req.UserID, req.Name)
		if err != nil {
			return errFromDomain(c, err, "wishlist")
		}
		c.Location("/v1/wishlists/" + w.ID)
		return c.Status(fiber.StatusCreated).JSON(w)
	}
}

// AddWishlistListingHandler saves a property to a wishlist. Repeating it is a no-op.
func AddWishlistListingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Wishlists.AddListing(c.UserContext(), c.Params("id"), c.Params("propertyId")); err != nil {
			return errFromDomain(c, err, "wishlist or property")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// RemoveWishlistListingHandler removes a property from a wishlist.
func RemoveWishlistListingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Wishlists.RemoveListing(c.UserContext(), c.Params("id"), c.Params("propertyId")); err != nil {
			return errFromDomain(c, err, "wishlist")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
