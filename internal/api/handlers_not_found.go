package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/medremind/internal/auth"
)

func (handler *Handler) NotFound(c *fiber.Ctx) error {
	if isAPIPath(c) || acceptsJSON(c) {
		return apiError(c, fiber.StatusNotFound, "not found")
	}

	home := auth.AuthPath
	state, err := handler.resolver.Resolve(c.UserContext(), requestToken(c))
	if err == nil && !state.Loading && state.Authenticated() {
		home = auth.HomePath(state.Role)
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found", "home": home})
}
