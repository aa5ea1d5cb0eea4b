package api

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/medremind/internal/auth"
	"github.com/terraincognita07/medremind/internal/services"
	"github.com/terraincognita07/medremind/internal/session"
)

type credentialsInput struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (handler *Handler) SignUp(c *fiber.Ctx) error {
	input := services.SignUpInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	outcome, err := handler.resolver.SignUp(c.UserContext(), input)
	switch {
	case errors.Is(err, auth.ErrConfirmationMailFailed):
		return okMessage(c, fiber.StatusCreated, "Account created! Please check your email to verify your account.", fiber.Map{
			"confirmation_required": true,
			"warnings":              []string{err.Error()},
		})
	case err != nil:
		return handler.respondAuthError(c, err)
	}

	if outcome.Session == nil {
		return okMessage(c, fiber.StatusCreated, "Account created! Please check your email to verify your account.", fiber.Map{
			"confirmation_required": true,
		})
	}

	handler.setAuthCookie(c, *outcome.Session)
	return okMessage(c, fiber.StatusCreated, "Account created!", fiber.Map{
		"session":  outcome.Session,
		"redirect": auth.HomePath(outcome.Identity.RequestedRole),
	})
}

func (handler *Handler) SignIn(c *fiber.Ctx) error {
	input := credentialsInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	now := time.Now()
	limiterKey := signInLimiterKey(c, input.Email)
	if handler.signInLimiter.blocked(limiterKey, now) {
		return apiError(c, fiber.StatusTooManyRequests, "too many sign-in attempts")
	}

	current, err := handler.resolver.SignIn(c.UserContext(), input.Email, input.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			handler.signInLimiter.fail(limiterKey, now)
		}
		return handler.respondAuthError(c, err)
	}
	handler.signInLimiter.reset(limiterKey)

	handler.setAuthCookie(c, current)
	state, err := handler.resolver.Resolve(c.UserContext(), current.Token)
	if err != nil {
		log.Printf("api: resolve after sign-in failed: %v", err)
	}
	return okMessage(c, fiber.StatusOK, "Signed in successfully!", fiber.Map{
		"session":  current,
		"role":     state.Role,
		"redirect": auth.HomePath(state.Role),
	})
}

func (handler *Handler) SignOut(c *fiber.Ctx) error {
	if err := handler.resolver.SignOut(c.UserContext(), currentToken(c)); err != nil {
		if errors.Is(err, session.ErrInvalidToken) {
			return apiError(c, fiber.StatusUnauthorized, "unauthorized")
		}
		log.Printf("api: sign out failed: %v", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to sign out")
	}
	handler.clearAuthCookie(c)
	return okMessage(c, fiber.StatusOK, "Signed out", nil)
}

func (handler *Handler) Refresh(c *fiber.Ctx) error {
	refreshed, err := handler.resolver.Refresh(c.UserContext(), currentToken(c))
	if err != nil {
		if errors.Is(err, session.ErrInvalidToken) {
			return apiError(c, fiber.StatusUnauthorized, "unauthorized")
		}
		log.Printf("api: refresh failed: %v", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to refresh session")
	}
	handler.setAuthCookie(c, refreshed)
	return okMessage(c, fiber.StatusOK, "Session refreshed", fiber.Map{"session": refreshed})
}

func (handler *Handler) ConfirmEmail(c *fiber.Ctx) error {
	if _, err := handler.resolver.Confirm(c.UserContext(), c.Query("token")); err != nil {
		if errors.Is(err, session.ErrInvalidToken) {
			return apiError(c, fiber.StatusBadRequest, "invalid or expired confirmation link")
		}
		log.Printf("api: confirm email failed: %v", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to confirm email")
	}
	if !acceptsJSON(c) {
		return c.Redirect(auth.AuthPath+"?confirmed=1", fiber.StatusSeeOther)
	}
	return okMessage(c, fiber.StatusOK, "Email confirmed, you can sign in now", nil)
}

func (handler *Handler) Me(c *fiber.Ctx) error {
	return c.JSON(currentState(c))
}

func (handler *Handler) respondAuthError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrAuthCredentialsInvalid):
		return apiError(c, fiber.StatusBadRequest, "invalid email or password")
	case errors.Is(err, services.ErrAuthRoleRequired),
		errors.Is(err, services.ErrWeakPassword),
		errors.Is(err, services.ErrAuthFullNameRequired):
		return apiError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrEmailTaken):
		return apiError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, session.ErrInvalidCredentials):
		return apiError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, session.ErrEmailNotConfirmed):
		return apiError(c, fiber.StatusForbidden, err.Error())
	default:
		log.Printf("api: auth request failed: %v", err)
		return apiError(c, fiber.StatusInternalServerError, "authentication service unavailable")
	}
}

func (handler *Handler) setAuthCookie(c *fiber.Ctx, current session.Session) {
	c.Cookie(&fiber.Cookie{
		Name:     authCookieName,
		Value:    current.Token,
		Path:     "/",
		Expires:  current.ExpiresAt,
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: "Lax",
	})
}

func (handler *Handler) clearAuthCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: "Lax",
		Expires:  time.Now().Add(-1 * time.Hour),
	})
}
