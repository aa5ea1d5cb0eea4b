package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/medremind/internal/db"
	"github.com/terraincognita07/medremind/internal/realtime"
)

const testSecretKey = "api-test-secret-key-0123456789abcdef"

type testResponse struct {
	status   int
	location string
	cookies  []*http.Cookie
	body     map[string]any
	header   http.Header
}

func newTestApp(t *testing.T) (*fiber.App, *Handler) {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "medremind-api-test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}

	broker := realtime.NewMemoryBroker()
	handler, err := NewHandler(database, Config{
		SecretKey: testSecretKey,
		Location:  time.UTC,
		Broker:    broker,
	})
	if err != nil {
		t.Fatalf("init handler: %v", err)
	}
	t.Cleanup(func() {
		handler.Close()
		_ = broker.Close()
		_ = sqlDB.Close()
	})

	app := fiber.New()
	RegisterRoutes(app, handler)
	app.Use(handler.NotFound)
	return app, handler
}

func doRequest(t *testing.T, app *fiber.App, method string, path string, token string, payload any) testResponse {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, path, body)
	request.Header.Set("Accept", "application/json")
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("%s %s read body failed: %v", method, path, err)
	}
	decoded := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("%s %s decode body failed: %v (%s)", method, path, err, raw)
		}
	}

	return testResponse{
		status:   response.StatusCode,
		location: response.Header.Get("Location"),
		cookies:  response.Cookies(),
		body:     decoded,
		header:   response.Header,
	}
}

func expectStatus(t *testing.T, response testResponse, expected int) {
	t.Helper()
	if response.status != expected {
		t.Fatalf("expected status %d, got %d (%v)", expected, response.status, response.body)
	}
}

func signUp(t *testing.T, app *fiber.App, email string, role string, fullName string) string {
	t.Helper()

	response := doRequest(t, app, http.MethodPost, "/api/auth/sign-up", "", map[string]string{
		"email":     email,
		"password":  "secret-pass",
		"full_name": fullName,
		"phone":     "555-0100",
		"role":      role,
	})
	expectStatus(t, response, fiber.StatusCreated)

	token := responseCookieValue(response.cookies, authCookieName)
	if token == "" {
		t.Fatalf("expected auth cookie after sign-up of %s", email)
	}
	return token
}

func responseCookieValue(cookies []*http.Cookie, name string) string {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

func listField(t *testing.T, body map[string]any, key string) []map[string]any {
	t.Helper()

	raw, ok := body[key].([]any)
	if !ok {
		t.Fatalf("expected %s to be a list, got %T", key, body[key])
	}
	items := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		item, ok := entry.(map[string]any)
		if !ok {
			t.Fatalf("expected %s entries to be objects, got %T", key, entry)
		}
		items = append(items, item)
	}
	return items
}
