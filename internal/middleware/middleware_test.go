package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(key string) *fiber.App {
	app := fiber.New()
	app.Use(RequestMetrics())
	app.Get("/open", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/bot/:userId/status", RequireAPIKey(key), func(c *fiber.Ctx) error {
		return c.SendString(c.Params("userId"))
	})
	return app
}

func TestRequireAPIKey(t *testing.T) {
	app := newTestApp("s3cret")

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"wrong", "nope", fiber.StatusUnauthorized},
		{"prefix", "s3cre", fiber.StatusUnauthorized},
		{"valid", "s3cret", fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/bot/u1/status", nil)
			if tc.header != "" {
				req.Header.Set(APIKeyHeader, tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestRequireAPIKeyDisabled(t *testing.T) {
	app := newTestApp("")

	resp, err := app.Test(httptest.NewRequest("GET", "/bot/u1/status", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequestMetricsPassesThrough(t *testing.T) {
	app := newTestApp("")

	resp, err := app.Test(httptest.NewRequest("GET", "/open", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
