package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"stocksim-backend/internal/pkg/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieValue_Signing(t *testing.T) {
	v := formatCookieValue("abc", "secret")
	assert.Equal(t, "abc", parseCookieValue(v, "secret"))
	assert.Equal(t, "", parseCookieValue(v, "other"))
	assert.Equal(t, "", parseCookieValue("s:abc.bad", "secret"))
	assert.Equal(t, "abc", parseCookieValue("s:abc", ""))
	assert.Equal(t, "", parseCookieValue("abc", ""))
}

func TestAuthorizePermission(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if role := c.Get("X-Role"); role != "" {
			SetSessionUser(c, SessionUser{Username: "u", Role: role})
		}
		return c.Next()
	})
	app.Get("/admin", RequireAuth(), AuthorizePermission(constants.ManageAccounts), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/unknown", AuthorizePermission("nope"), func(c *fiber.Ctx) error { return nil })

	cases := []struct {
		path, role string
		status     int
	}{
		{"/admin", "", fiber.StatusUnauthorized},
		{"/admin", constants.RoleUser, fiber.StatusForbidden},
		{"/admin", constants.RoleAdmin, fiber.StatusOK},
		{"/unknown", constants.RoleAdmin, fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", tc.path, nil)
		if tc.role != "" {
			req.Header.Set("X-Role", tc.role)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.status, resp.StatusCode, "%s as %q", tc.path, tc.role)
	}
}

func TestRevokeUserSessions(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	for _, sid := range []string{"a", "b"} {
		require.NoError(t, rdb.Set(ctx, SessionRedisPrefix+sid, "{}", 0).Err())
		require.NoError(t, TrackSession(ctx, rdb, "alice", sid))
	}
	require.NoError(t, rdb.Set(ctx, SessionRedisPrefix+"c", "{}", 0).Err())

	require.NoError(t, RevokeUserSessions(ctx, rdb, "alice"))
	assert.False(t, mr.Exists(SessionRedisPrefix+"a"))
	assert.False(t, mr.Exists(SessionRedisPrefix+"b"))
	assert.False(t, mr.Exists(UserSessionsPrefix+"alice"))
	assert.True(t, mr.Exists(SessionRedisPrefix+"c"))
}

func TestSession_RollingKeepsRevocationIndex(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	app := fiber.New()
	app.Use(SessionWithClient(rdb, SessionConfig{}))
	app.Get("/me", RequireAuth(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	require.NoError(t, rdb.Set(ctx, SessionRedisPrefix+"abc", `{"user":{"username":"bob","role":"admin"}}`, sessionMaxAge).Err())
	require.NoError(t, TrackSession(ctx, rdb, "bob", "abc"))

	get := func() int {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Cookie", SessionCookieName+"=s:abc")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	// active for two days, one request every 12h
	for i := 0; i < 4; i++ {
		mr.FastForward(12 * time.Hour)
		require.Equal(t, fiber.StatusOK, get())
	}
	assert.True(t, mr.Exists(UserSessionsPrefix+"bob"))

	require.NoError(t, RevokeUserSessions(ctx, rdb, "bob"))
	assert.Equal(t, fiber.StatusUnauthorized, get())
	assert.False(t, mr.Exists(SessionRedisPrefix+"abc"))
}

func TestSession_SaveDoesNotResurrectRevokedSession(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	app := fiber.New()
	app.Use(SessionWithClient(rdb, SessionConfig{}))
	app.Get("/slow", func(c *fiber.Ctx) error {
		// revoked while the request is in flight
		require.NoError(t, RevokeUserSessions(ctx, rdb, "bob"))
		return c.SendStatus(fiber.StatusOK)
	})

	require.NoError(t, rdb.Set(ctx, SessionRedisPrefix+"abc", `{"user":{"username":"bob","role":"user"}}`, sessionMaxAge).Err())
	require.NoError(t, TrackSession(ctx, rdb, "bob", "abc"))

	req := httptest.NewRequest("GET", "/slow", nil)
	req.Header.Set("Cookie", SessionCookieName+"=s:abc")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.False(t, mr.Exists(SessionRedisPrefix+"abc"))
	assert.False(t, mr.Exists(UserSessionsPrefix+"bob"))
}

func TestCORS(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(CORSConfig{AllowedSuffix: ".example.com", AllowLocal: true}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("OPTIONS", "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://evil.test")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
