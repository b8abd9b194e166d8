package auth_test

import (
	"net/http/httptest"
	"testing"

	"guild-backup/core/middleware/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(cfg auth.Config) *fiber.App {
	app := fiber.New()
	app.Use(auth.New(cfg))
	ok := func(c *fiber.Ctx) error { return c.SendString("ok") }
	app.Get("/backups", ok)
	app.Get("/metrics", ok)
	return app
}

func TestAuth(t *testing.T) {
	app := newApp(auth.Config{ApiKey: "secret", Skip: []string{"/metrics"}})

	tests := []struct {
		name string
		path string
		key  string
		want int
	}{
		{"MissingKey", "/backups", "", fiber.StatusUnauthorized},
		{"WrongKey", "/backups", "nope", fiber.StatusUnauthorized},
		{"ValidKey", "/backups", "secret", fiber.StatusOK},
		{"SkippedPath", "/metrics", "", fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.key != "" {
				req.Header.Set(auth.Header, tt.key)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestAuth_DisabledWithoutKey(t *testing.T) {
	resp, err := newApp(auth.Config{}).Test(httptest.NewRequest("GET", "/backups", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
