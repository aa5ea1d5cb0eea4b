package api

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/medremind/internal/auth"
	"github.com/terraincognita07/medremind/internal/models"
)

const (
	authCookieName  = "medremind_auth"
	contextStateKey = "auth_state"
	contextTokenKey = "auth_token"
)

// Authenticate resolves the caller's session into request locals. It never
// rejects; the role guard decides.
func (handler *Handler) Authenticate(c *fiber.Ctx) error {
	token := requestToken(c)
	state, err := handler.resolver.Resolve(c.UserContext(), token)
	if err != nil {
		log.Printf("api: resolve session failed: %v", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to load session")
	}

	c.Locals(contextStateKey, state)
	c.Locals(contextTokenKey, token)
	return c.Next()
}

func (handler *Handler) RequireRole(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state := currentState(c)
		decision := auth.Guard(state, role)

		switch decision.Action {
		case auth.ActionWait:
			c.Set(fiber.HeaderRetryAfter, "1")
			if isAPIPath(c) {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "session is loading", "loading": true})
			}
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"loading": true})
		case auth.ActionRedirect:
			if isAPIPath(c) {
				if !state.Authenticated() {
					return apiError(c, fiber.StatusUnauthorized, "unauthorized")
				}
				return apiError(c, fiber.StatusForbidden, "forbidden")
			}
			return c.Redirect(decision.Location, fiber.StatusSeeOther)
		}
		return c.Next()
	}
}

// SessionRequired only checks that a live session exists.
func (handler *Handler) SessionRequired(c *fiber.Ctx) error {
	if !currentState(c).Authenticated() {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return c.Next()
}

func currentState(c *fiber.Ctx) auth.State {
	state, ok := c.Locals(contextStateKey).(auth.State)
	if !ok {
		return auth.State{Role: auth.RoleUnauthenticated}
	}
	return state
}

func currentToken(c *fiber.Ctx) string {
	token, _ := c.Locals(contextTokenKey).(string)
	return token
}

// requestToken prefers a bearer token over the auth cookie.
func requestToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return strings.TrimSpace(c.Cookies(authCookieName))
}
