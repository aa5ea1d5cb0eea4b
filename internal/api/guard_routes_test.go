package api

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/medremind/internal/auth"
	"github.com/terraincognita07/medremind/internal/models"
)

func TestScreensRedirectAnonymousToAuth(t *testing.T) {
	app, _ := newTestApp(t)

	for _, path := range []string{"/", "/doctor", "/doctor/history", "/store", "/patient/add"} {
		response := doRequest(t, app, http.MethodGet, path, "", nil)
		expectStatus(t, response, fiber.StatusSeeOther)
		if response.location != "/auth" {
			t.Fatalf("GET %s expected redirect to /auth, got %q", path, response.location)
		}
	}
}

func TestAPIRejectsAnonymousAndWrongRole(t *testing.T) {
	app, _ := newTestApp(t)

	response := doRequest(t, app, http.MethodPost, "/api/doctor/prescriptions", "", map[string]any{})
	expectStatus(t, response, fiber.StatusUnauthorized)

	patientToken := signUp(t, app, "pat@example.com", "patient", "Pat Lee")
	response = doRequest(t, app, http.MethodPost, "/api/doctor/prescriptions", patientToken, map[string]any{})
	expectStatus(t, response, fiber.StatusForbidden)

	response = doRequest(t, app, http.MethodGet, "/api/notifications", "", nil)
	expectStatus(t, response, fiber.StatusUnauthorized)
}

func TestWrongRoleScreenRedirectsHome(t *testing.T) {
	app, _ := newTestApp(t)
	patientToken := signUp(t, app, "pat@example.com", "patient", "Pat Lee")
	storeToken := signUp(t, app, "store@example.com", "medical_store", "Corner Pharmacy")

	response := doRequest(t, app, http.MethodGet, "/doctor", patientToken, nil)
	expectStatus(t, response, fiber.StatusSeeOther)
	if response.location != "/patient" {
		t.Fatalf("expected redirect to /patient, got %q", response.location)
	}

	response = doRequest(t, app, http.MethodGet, "/patient/history", storeToken, nil)
	expectStatus(t, response, fiber.StatusSeeOther)
	if response.location != "/store" {
		t.Fatalf("expected redirect to /store, got %q", response.location)
	}

	response = doRequest(t, app, http.MethodGet, "/", storeToken, nil)
	expectStatus(t, response, fiber.StatusSeeOther)
	if response.location != "/store" {
		t.Fatalf("expected root to redirect to /store, got %q", response.location)
	}

	response = doRequest(t, app, http.MethodGet, "/auth", storeToken, nil)
	expectStatus(t, response, fiber.StatusSeeOther)
	if response.location != "/store" {
		t.Fatalf("expected /auth to redirect signed-in store, got %q", response.location)
	}
}

func TestAuthScreenRendersForAnonymous(t *testing.T) {
	app, _ := newTestApp(t)

	response := doRequest(t, app, http.MethodGet, "/auth", "", nil)
	expectStatus(t, response, fiber.StatusOK)
	if roles := listField(t, response.body, "roles"); len(roles) != 3 {
		t.Fatalf("expected three selectable roles, got %d", len(roles))
	}
}

func TestLoadingStateWaitsInsteadOfRedirecting(t *testing.T) {
	app := fiber.New()
	handler := &Handler{}
	markLoading := func(c *fiber.Ctx) error {
		c.Locals(contextStateKey, auth.State{Loading: true})
		return c.Next()
	}
	render := func(c *fiber.Ctx) error { return c.SendString("rendered") }
	app.Get("/doctor", markLoading, handler.RequireRole(models.RoleDoctor), render)
	app.Post("/api/doctor/prescriptions", markLoading, handler.RequireRole(models.RoleDoctor), render)

	response := doRequest(t, app, http.MethodGet, "/doctor", "", nil)
	expectStatus(t, response, fiber.StatusAccepted)
	if response.header.Get("Retry-After") != "1" || response.body["loading"] != true {
		t.Fatalf("expected loading payload with Retry-After, got %v", response.body)
	}

	response = doRequest(t, app, http.MethodPost, "/api/doctor/prescriptions", "", map[string]any{})
	expectStatus(t, response, fiber.StatusServiceUnavailable)
	if response.location != "" {
		t.Fatal("expected no redirect while loading")
	}
}

func TestHealthAndNotFound(t *testing.T) {
	app, _ := newTestApp(t)

	response := doRequest(t, app, http.MethodGet, "/healthz", "", nil)
	expectStatus(t, response, fiber.StatusOK)

	response = doRequest(t, app, http.MethodGet, "/api/unknown", "", nil)
	expectStatus(t, response, fiber.StatusNotFound)
	if response.body["error"] != "not found" {
		t.Fatalf("expected not found error, got %v", response.body)
	}
}
