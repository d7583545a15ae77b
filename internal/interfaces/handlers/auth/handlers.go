package auth

import (
	"errors"

	"stocksim-backend/internal/application/accounts"
	authsvc "stocksim-backend/internal/application/auth"
	"stocksim-backend/internal/application/ledger"
	"stocksim-backend/internal/middleware"
	"stocksim-backend/internal/pkg/response"
	"stocksim-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Auth     *authsvc.Service
	Accounts *accounts.Service
	Rdb      *redis.Client
	Config   middleware.SessionConfig
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register POST /api/v1/auth/register creates a regular account with the starting balance.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	if err := validation.Struct(req); err != nil {
		return response.BadRequest(c, err.Error(), nil)
	}
	acc, err := h.Accounts.Register(c.UserContext(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrAccountExists):
			return response.Error(c, "Username already taken", fiber.StatusConflict, nil)
		case errors.Is(err, accounts.ErrInvalidUsername), errors.Is(err, accounts.ErrInvalidPassword):
			return response.BadRequest(c, err.Error(), nil)
		}
		log.Error().Err(err).Msg("register")
		return response.Internal(c)
	}
	return response.SuccessCreated(c, "Account created", fiber.Map{"user": acc}, nil)
}

// Login POST /api/v1/auth/login starts a fresh session for the account.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, authsvc.ErrCredentialsRequired.Error(), nil)
	}
	acc, err := h.Auth.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrCredentialsRequired):
			return response.BadRequest(c, err.Error(), nil)
		case errors.Is(err, authsvc.ErrInvalidCredentials):
			return response.Unauthorized(c, err.Error())
		}
		log.Error().Err(err).Msg("login")
		return response.Internal(c)
	}

	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{Username: acc.Username, Role: acc.Role})
	if err := middleware.TrackSession(c.UserContext(), h.Rdb, acc.Username, sessionID); err != nil {
		log.Error().Err(err).Str("username", acc.Username).Msg("track session")
		return response.Internal(c)
	}
	c.Cookie(middleware.SessionCookie(h.Config, sessionID))
	log.Info().Str("username", acc.Username).Msg("login")

	return response.Success(c, "Login successful", fiber.Map{"user": acc}, nil)
}

// Me GET /api/v1/auth/me returns the session user with the current balance.
func (h *Handlers) Me(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return response.Unauthorized(c, authsvc.ErrNotAuthenticated.Error())
	}
	acc, err := h.Accounts.Ledger.GetAccount(c.UserContext(), user.Username)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			// account deleted while the session was alive
			middleware.DestroySession(c)
			return response.Unauthorized(c, authsvc.ErrNotAuthenticated.Error())
		}
		return response.Internal(c)
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": acc}, nil)
}

// Logout DELETE /api/v1/auth/logout destroys the session and clears the cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	if user := middleware.GetUser(c); user != nil && sessionID != "" {
		_ = middleware.UntrackSession(c.UserContext(), h.Rdb, user.Username, sessionID)
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.MaxAge = -1
	c.Cookie(&cookie)
	return response.Success(c, "Logged out successfully", nil, nil)
}
