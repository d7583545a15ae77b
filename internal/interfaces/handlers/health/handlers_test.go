package health

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	healthsvc "stocksim-backend/internal/application/health"
	"stocksim-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHealth(t *testing.T) (*fiber.App, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	h := &Handlers{Probes: healthsvc.Probes{Redis: rdb}, HealthAdminKey: "k"}
	app := fiber.New()
	app.Use(middleware.HealthMarker(rdb))
	app.Get("/health/json", h.JSON)
	app.Get("/health/errors", h.Errors)
	app.Get("/health/reset", h.Reset)
	app.Get("/boom", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusInternalServerError) })
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app, rdb
}

func TestJSON(t *testing.T) {
	app, _ := setupHealth(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/health/json", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "stocksim-api", out["service"])
	assert.Equal(t, "issue", out["status"])
}

func TestErrorsAndReset(t *testing.T) {
	app, rdb := setupHealth(t)
	ctx := context.Background()

	for _, path := range []string{"/ok", "/boom", "/boom"} {
		_, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
	}
	total, _ := rdb.Get(ctx, middleware.KeyReqTotal).Int()
	assert.Equal(t, 3, total)
	failed, _ := rdb.Get(ctx, middleware.KeyReqErrors).Int()
	assert.Equal(t, 2, failed)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/errors", nil))
	require.NoError(t, err)
	var entries []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "/boom", entries[0]["path"])
	assert.Equal(t, float64(500), entries[0]["status"])

	resp, err = app.Test(httptest.NewRequest("GET", "/health/reset?key=wrong", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/health/reset?key=k", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	n, _ := rdb.Exists(ctx, middleware.KeyReqTotal, middleware.KeyErrorLog).Result()
	assert.Equal(t, int64(0), n)
}
