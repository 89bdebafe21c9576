package routes

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/botfleet-backend/internal/middleware"
	"github.com/Ananth-NQI/botfleet-backend/internal/observability"
	"github.com/Ananth-NQI/botfleet-backend/internal/protocol/protocoltest"
	"github.com/Ananth-NQI/botfleet-backend/internal/services"
	"github.com/Ananth-NQI/botfleet-backend/internal/storage"
)

func newApp(t *testing.T, apiKey string) *fiber.App {
	t.Helper()
	observability.RegisterMetrics()
	manager := services.NewBotManager(protocoltest.NewFactory(), storage.NewMemoryStore(), nil, services.DefaultOptions(), zerolog.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = manager.Shutdown(ctx)
	})

	app := fiber.New()
	SetupRoutes(app, manager, apiKey, nil, zerolog.Nop())
	return app
}

func TestBotRoutesRequireAPIKey(t *testing.T) {
	app := newApp(t, "s3cret")

	resp, err := app.Test(httptest.NewRequest("GET", "/bot/u1/status", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/bot/u1/status", nil)
	req.Header.Set(middleware.APIKeyHeader, "s3cret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("POST", "/api/connect", strings.NewReader(`{"phone":"15551234567"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestPublicRoutes(t *testing.T) {
	app := newApp(t, "s3cret")

	for _, path := range []string{"/", "/api/health", "/api/stats"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app := newApp(t, "")
	observability.SetFleetGauges(1, 1, 100)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "botfleet_")
}
