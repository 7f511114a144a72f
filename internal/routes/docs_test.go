package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/locojk/GNG-5300-Group-Backend/internal/config"
)

func getDocs(t *testing.T, app *fiber.App, target string) (*http.Response, string) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("GET %s: %v", target, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", target, err)
	}
	return resp, string(body)
}

func TestDocsPageListsEndpoints(t *testing.T) {
	app := fiber.New()
	if err := registerDocsRoutes(app, &config.Config{AppEnv: "development", EnableDocs: true}); err != nil {
		t.Fatalf("registerDocsRoutes: %v", err)
	}

	resp, body := getDocs(t, app, "/docs")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("docs page status = %d", resp.StatusCode)
	}
	if csp := resp.Header.Get(fiber.HeaderContentSecurityPolicy); !strings.Contains(csp, "default-src 'none'") {
		t.Fatalf("docs page CSP = %q", csp)
	}
	for _, want := range []string{"Fitness API", "/ai_chat/query", "/workout/daily/workout_logs/progress", "bearer"} {
		if !strings.Contains(body, want) {
			t.Fatalf("docs page missing %q", want)
		}
	}

	resp, body = getDocs(t, app, "/docs/openapi.yaml")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("spec status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get(fiber.HeaderContentType); !strings.Contains(ct, "application/yaml") {
		t.Fatalf("spec content type = %q", ct)
	}
	if !strings.HasPrefix(body, "openapi: 3.0.3") {
		t.Fatalf("spec body does not look like the openapi document")
	}
}

func TestDocsDisabledOutsideDevelopment(t *testing.T) {
	app := fiber.New()
	if err := registerDocsRoutes(app, &config.Config{AppEnv: "production", EnableDocs: true}); err != nil {
		t.Fatalf("registerDocsRoutes: %v", err)
	}

	resp, _ := getDocs(t, app, "/docs")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("docs in production status = %d, want 404", resp.StatusCode)
	}
}

func TestBuildDocsPageOrdersOperations(t *testing.T) {
	page, err := buildDocsPage(openAPISpec)
	if err != nil {
		t.Fatalf("buildDocsPage: %v", err)
	}
	if page.BasePath != "/api/v1" {
		t.Fatalf("base path = %q", page.BasePath)
	}

	var goalMethods []string
	for _, ep := range page.Endpoints {
		if ep.Path == "/health" && ep.Auth {
			t.Fatalf("health endpoint should not require auth")
		}
		if ep.Path == "/workout/fitness_goal" {
			goalMethods = append(goalMethods, ep.Method)
		}
	}
	if got := strings.Join(goalMethods, ","); got != "GET,POST,PATCH,DELETE" {
		t.Fatalf("fitness goal methods = %s", got)
	}
}
