package router

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/driftwatch/driftwatch/internal/cache"
	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/logging"
	"github.com/driftwatch/driftwatch/internal/metadata"
	"github.com/driftwatch/driftwatch/internal/storage"
)

func newTestRouter(t *testing.T, cfg config.Config) *fiber.App {
	t.Helper()
	logger := logging.NewDevelopment()
	manager := metadata.NewMemoryManager()
	store := storage.NewSeriesStore(128, logger)
	resultCache := cache.NewMemoryCache(0)

	if cfg.Detection.Algorithm == "" {
		cfg.Detection.Algorithm = "cusum"
	}
	if cfg.Detection.BaselineWindow == 0 {
		cfg.Detection.BaselineWindow = 4
	}
	if cfg.Detection.SweepWorkers == 0 {
		cfg.Detection.SweepWorkers = 2
	}

	return New(logger, manager, store, resultCache, nil, cfg)
}

func TestRouter_HealthWithoutAuth(t *testing.T) {
	apiKey := strings.Repeat("k", 32)
	app := newTestRouter(t, config.Config{
		Auth: config.AuthConfig{Enabled: true, APIKeys: []string{apiKey}},
	})

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to test request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected status 200 without auth, got %d", resp.StatusCode)
	}
}

func TestRouter_V1RequiresAuth(t *testing.T) {
	apiKey := strings.Repeat("k", 32)
	app := newTestRouter(t, config.Config{
		Auth: config.AuthConfig{Enabled: true, APIKeys: []string{apiKey}},
	})

	req := httptest.NewRequest("GET", "/v1/datasets", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to test request: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("Expected status 401 without key, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/v1/datasets", nil)
	req.Header.Set("X-API-Key", apiKey)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to test request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected status 200 with key, got %d", resp.StatusCode)
	}
}

func TestRouter_AdminRequiresAuth(t *testing.T) {
	apiKey := strings.Repeat("k", 32)
	app := newTestRouter(t, config.Config{
		Auth: config.AuthConfig{Enabled: true, APIKeys: []string{apiKey}},
	})

	req := httptest.NewRequest("GET", "/admin/stats", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to test request: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("Expected status 401 without key, got %d", resp.StatusCode)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	app := newTestRouter(t, config.Config{})

	req := httptest.NewRequest("GET", "/nope", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to test request: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
}

func TestRouter_AuthDisabled(t *testing.T) {
	app := newTestRouter(t, config.Config{})

	req := httptest.NewRequest("GET", "/v1/datasets", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to test request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected status 200 with auth disabled, got %d", resp.StatusCode)
	}
}
