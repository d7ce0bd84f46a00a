package middleware

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/driftwatch/driftwatch/internal/logging"
)

// generateAPIKey generates a valid API key of specified length
func generateAPIKey(length int) string {
	key := make([]byte, length)
	for i := range key {
		key[i] = 'a' + byte(i%26)
	}
	return string(key)
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected bool
	}{
		{name: "exactly_32_chars", key: generateAPIKey(32), expected: true},
		{name: "longer_than_32_chars", key: generateAPIKey(64), expected: true},
		{name: "too_short", key: generateAPIKey(31), expected: false},
		{name: "empty", key: "", expected: false},
		{name: "32_spaces", key: "                                ", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateAPIKey(tt.key); got != tt.expected {
				t.Errorf("ValidateAPIKey(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key      string
		expected string
	}{
		{"abcdefghijklmnop", "abcd****"},
		{"abcd", "****"},
		{"abc", "****"},
		{"", "****"},
		{"abcde", "abcd****"},
	}

	for _, tt := range tests {
		if got := maskAPIKey(tt.key); got != tt.expected {
			t.Errorf("maskAPIKey(%q) = %q, want %q", tt.key, got, tt.expected)
		}
	}
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	logger := logging.NewDevelopment()
	app := fiber.New()

	app.Use(APIKeyAuth(logger, []string{}, false))
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	req := httptest.NewRequest("GET", "/test", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to test request: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestAPIKeyAuth_ValidKey(t *testing.T) {
	logger := logging.NewDevelopment()
	validKey := generateAPIKey(32)

	app := fiber.New()
	app.Use(APIKeyAuth(logger, []string{validKey}, true))
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	tests := []struct {
		name       string
		headerName string
		headerVal  string
	}{
		{"x_api_key_header", "X-API-Key", validKey},
		{"authorization_bearer", "Authorization", "Bearer " + validKey},
		{"authorization_plain", "Authorization", validKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set(tt.headerName, tt.headerVal)

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("Failed to test request: %v", err)
			}

			if resp.StatusCode != fiber.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("Expected status 200, got %d, body: %s", resp.StatusCode, string(body))
			}
		})
	}
}

func TestAPIKeyAuth_InvalidKey(t *testing.T) {
	logger := logging.NewDevelopment()
	validKey := generateAPIKey(32)

	app := fiber.New()
	app.Use(APIKeyAuth(logger, []string{validKey}, true))
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	tests := []struct {
		name       string
		headerName string
		headerVal  string
	}{
		{"missing_key", "", ""},
		{"wrong_key", "X-API-Key", generateAPIKey(32) + "wrong"},
		{"short_key", "X-API-Key", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			if tt.headerName != "" {
				req.Header.Set(tt.headerName, tt.headerVal)
			}

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("Failed to test request: %v", err)
			}

			if resp.StatusCode != fiber.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", resp.StatusCode)
			}
		})
	}
}

func TestAPIKeyAuth_WeakKeysRejected(t *testing.T) {
	logger := logging.NewDevelopment()

	// Weak keys never make it into the valid key map
	weakKeys := []string{
		"a",
		"short",
		generateAPIKey(31),
	}

	app := fiber.New()
	app.Use(APIKeyAuth(logger, weakKeys, true))
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	for _, weakKey := range weakKeys {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-API-Key", weakKey)

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Failed to test request: %v", err)
		}

		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("Weak key %q (len=%d) should be rejected, got status %d",
				maskAPIKey(weakKey), len(weakKey), resp.StatusCode)
		}
	}
}
