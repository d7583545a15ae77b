package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// SessionConfig for the Redis-backed session cookie.
type SessionConfig struct {
	Secret            string
	RedisURL          string
	AllowCrossSiteDev bool
	IsProduction      bool
}

const (
	SessionCookieName  = "stocksim.sid"
	SessionRedisPrefix = "session:"
	sessionMaxAge      = 24 * time.Hour

	localSessionID   = "session_id"
	localSessionUser = "user"
	localSessionGone = "session_destroyed"
)

// SessionUser is what a logged-in session carries.
type SessionUser struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type sessionData struct {
	User *SessionUser `json:"user,omitempty"`
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// Session opens a Redis client from cfg.RedisURL and returns the session middleware bound to it.
func Session(cfg SessionConfig) (fiber.Handler, *redis.Client, error) {
	rdb, err := NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return SessionWithClient(rdb, cfg), rdb, nil
}

// SessionWithClient loads the session named by the cookie before the handler runs and saves
// it afterwards. Sessions with a user get their TTL, and their user's session index TTL,
// refreshed on every request.
func SessionWithClient(rdb *redis.Client, cfg SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := parseCookieValue(c.Cookies(SessionCookieName), cfg.Secret)
		ctx := context.Background()

		var data sessionData
		if sessionID != "" {
			if b, err := rdb.Get(ctx, SessionRedisPrefix+sessionID).Bytes(); err == nil {
				_ = json.Unmarshal(b, &data)
			} else if err != redis.Nil {
				log.Warn().Err(err).Msg("session load")
			}
		}
		c.Locals(localSessionID, sessionID)
		c.Locals(localSessionUser, data.User)

		if err := c.Next(); err != nil {
			return err
		}

		if gone, _ := c.Locals(localSessionGone).(string); gone != "" {
			_ = rdb.Del(ctx, SessionRedisPrefix+gone).Err()
		}
		sid, _ := c.Locals(localSessionID).(string)
		user, _ := c.Locals(localSessionUser).(*SessionUser)
		if sid != "" && user != nil {
			// A session that existed at load time is only refreshed, never re-created, so a
			// revocation that lands mid-request sticks.
			existing := sid == sessionID && data.User != nil
			if err := saveSession(ctx, rdb, sid, user, existing); err != nil {
				log.Warn().Err(err).Msg("session save")
			}
		}
		return nil
	}
}

// saveSession writes the session and rolls the TTL of the user's session index with it, so the
// index always outlives the sessions it lists.
func saveSession(ctx context.Context, rdb *redis.Client, sid string, user *SessionUser, existing bool) error {
	b, err := json.Marshal(sessionData{User: user})
	if err != nil {
		return err
	}
	pipe := rdb.TxPipeline()
	if existing {
		pipe.SetXX(ctx, SessionRedisPrefix+sid, b, sessionMaxAge)
	} else {
		pipe.Set(ctx, SessionRedisPrefix+sid, b, sessionMaxAge)
	}
	pipe.Expire(ctx, UserSessionsPrefix+user.Username, sessionMaxAge)
	_, err = pipe.Exec(ctx)
	return err
}

// GetSessionID returns the current session id, or "".
func GetSessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals(localSessionID).(string)
	return sid
}

// SetSessionUser attaches user to the session. Call RegenerateSessionID first on login.
func SetSessionUser(c *fiber.Ctx, user SessionUser) {
	c.Locals(localSessionUser, &user)
}

// RegenerateSessionID replaces the session id. The previous session, if any, is deleted.
func RegenerateSessionID(c *fiber.Ctx) string {
	if old := GetSessionID(c); old != "" {
		c.Locals(localSessionGone, old)
	}
	newID := uuid.New().String()
	c.Locals(localSessionID, newID)
	return newID
}

// DestroySession drops the user and deletes the session from Redis once the handler returns.
// The caller clears the cookie.
func DestroySession(c *fiber.Ctx) {
	if sid := GetSessionID(c); sid != "" {
		c.Locals(localSessionGone, sid)
	}
	c.Locals(localSessionID, "")
	c.Locals(localSessionUser, (*SessionUser)(nil))
}

// SessionCookie returns the cookie that carries sessionID.
func SessionCookie(cfg SessionConfig, sessionID string) *fiber.Cookie {
	cookie := SessionCookieConfig(cfg)
	cookie.Value = formatCookieValue(sessionID, cfg.Secret)
	return &cookie
}

// SessionCookieConfig returns the cookie options used for set and clear.
func SessionCookieConfig(cfg SessionConfig) fiber.Cookie {
	sameSite := "Lax"
	if cfg.AllowCrossSiteDev {
		sameSite = "None"
	}
	return fiber.Cookie{
		Name:     SessionCookieName,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HTTPOnly: true,
		Secure:   cfg.IsProduction || cfg.AllowCrossSiteDev,
		SameSite: sameSite,
	}
}

// Cookie values are "s:<id>" or, with a secret, "s:<id>.<hmac>".
func formatCookieValue(id, secret string) string {
	if secret == "" {
		return "s:" + id
	}
	return "s:" + id + "." + sign(id, secret)
}

func parseCookieValue(v, secret string) string {
	if !strings.HasPrefix(v, "s:") {
		return ""
	}
	id, sig, _ := strings.Cut(v[2:], ".")
	if secret == "" {
		return id
	}
	if !hmac.Equal([]byte(sig), []byte(sign(id, secret))) {
		return ""
	}
	return id
}

func sign(id, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// UserSessionsPrefix names the Redis set holding a user's live session ids.
const UserSessionsPrefix = "user_sessions:"

// TrackSession records sessionID under username so the sessions can be revoked together.
func TrackSession(ctx context.Context, rdb *redis.Client, username, sessionID string) error {
	key := UserSessionsPrefix + username
	pipe := rdb.TxPipeline()
	pipe.SAdd(ctx, key, sessionID)
	pipe.Expire(ctx, key, sessionMaxAge)
	_, err := pipe.Exec(ctx)
	return err
}

// UntrackSession removes one session id from the user's set.
func UntrackSession(ctx context.Context, rdb *redis.Client, username, sessionID string) error {
	return rdb.SRem(ctx, UserSessionsPrefix+username, sessionID).Err()
}

// RevokeUserSessions deletes every tracked session of username. Used when an account is
// deleted or its role or password changes.
func RevokeUserSessions(ctx context.Context, rdb *redis.Client, username string) error {
	key := UserSessionsPrefix + username
	ids, err := rdb.SMembers(ctx, key).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, SessionRedisPrefix+id)
	}
	keys = append(keys, key)
	return rdb.Del(ctx, keys...).Err()
}
