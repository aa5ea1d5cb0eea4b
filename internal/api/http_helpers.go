package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// okMessage is the single success envelope for mutations.
func okMessage(c *fiber.Ctx, status int, message string, extra fiber.Map) error {
	payload := fiber.Map{"ok": true, "message": message}
	for key, value := range extra {
		payload[key] = value
	}
	return c.Status(status).JSON(payload)
}

func acceptsJSON(c *fiber.Ctx) bool {
	return strings.Contains(strings.ToLower(c.Get(fiber.HeaderAccept)), "application/json")
}

func isAPIPath(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api/")
}

func withWarnings(extra fiber.Map, warnings []string) fiber.Map {
	if len(warnings) > 0 {
		extra["warnings"] = warnings
	}
	return extra
}
