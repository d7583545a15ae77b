package admin

import (
	"context"
	"errors"
	"strings"

	"stocksim-backend/internal/application/accounts"
	"stocksim-backend/internal/application/ledger"
	"stocksim-backend/internal/application/quotes"
	"stocksim-backend/internal/domain"
	"stocksim-backend/internal/middleware"
	"stocksim-backend/internal/pkg/response"
	"stocksim-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Invalidator drops derived data after a manual quote edit.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Handlers serve account management and manual quote edits. Routes are mounted behind the
// manage_accounts / edit_quotes permissions.
type Handlers struct {
	Accounts    *accounts.Service
	Quotes      *quotes.Store
	Rdb         *redis.Client
	Invalidator Invalidator
}

type CreateAccountRequest struct {
	Username string           `json:"username" validate:"required,username"`
	Password string           `json:"password" validate:"required,password"`
	Role     string           `json:"role" validate:"omitempty,oneof=user admin"`
	Balance  *decimal.Decimal `json:"balance"`
}

type UpdateAccountRequest struct {
	Role     *string          `json:"role" validate:"omitempty,oneof=user admin"`
	Balance  *decimal.Decimal `json:"balance"`
	Password *string          `json:"password" validate:"omitempty,password"`
}

type UpdateQuoteRequest struct {
	DisplayName   string          `json:"display_name"`
	LastPrice     decimal.Decimal `json:"last_price"`
	ChangePercent *float64        `json:"change_percent"`
}

// ListAccounts GET /api/v1/admin/accounts
func (h *Handlers) ListAccounts(c *fiber.Ctx) error {
	list, err := h.Accounts.List(c.UserContext())
	if err != nil {
		return response.Internal(c)
	}
	return response.Success(c, "Accounts", list, fiber.Map{"count": len(list)})
}

// CreateAccount POST /api/v1/admin/accounts
func (h *Handlers) CreateAccount(c *fiber.Ctx) error {
	var req CreateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	if err := validation.Struct(req); err != nil {
		return response.BadRequest(c, err.Error(), nil)
	}
	acc, err := h.Accounts.Create(c.UserContext(), accounts.CreateInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
		Balance:  req.Balance,
	})
	if err != nil {
		return accountError(c, err)
	}
	return response.SuccessCreated(c, "Account created", acc, nil)
}

// GetAccount GET /api/v1/admin/accounts/:username returns the account with its holdings.
func (h *Handlers) GetAccount(c *fiber.Ctx) error {
	d, err := h.Accounts.Get(c.UserContext(), c.Params("username"))
	if err != nil {
		return accountError(c, err)
	}
	return response.Success(c, "Account", d, nil)
}

// UpdateAccount PATCH /api/v1/admin/accounts/:username. A role or password change revokes the
// account's sessions.
func (h *Handlers) UpdateAccount(c *fiber.Ctx) error {
	var req UpdateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	if err := validation.Struct(req); err != nil {
		return response.BadRequest(c, err.Error(), nil)
	}
	username := c.Params("username")
	acc, err := h.Accounts.Update(c.UserContext(), username, accounts.UpdateInput{
		Role:     req.Role,
		Balance:  req.Balance,
		Password: req.Password,
	})
	if err != nil {
		return accountError(c, err)
	}
	if req.Role != nil || req.Password != nil {
		h.revoke(c, username)
	}
	return response.Success(c, "Account updated", acc, nil)
}

// DeleteAccount DELETE /api/v1/admin/accounts/:username removes the account, its holdings and
// transactions. Admins cannot delete themselves.
func (h *Handlers) DeleteAccount(c *fiber.Ctx) error {
	username := c.Params("username")
	if u := middleware.GetUser(c); u != nil && u.Username == username {
		return response.BadRequest(c, "Cannot delete the signed-in account", nil)
	}
	if err := h.Accounts.Delete(c.UserContext(), username); err != nil {
		return accountError(c, err)
	}
	h.revoke(c, username)
	return response.Success(c, "Account deleted", fiber.Map{"username": username}, nil)
}

// UpdateQuote PUT /api/v1/admin/quotes/:code writes a quote by hand. The next sync may
// overwrite it.
func (h *Handlers) UpdateQuote(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Params("code"))
	if !validation.IsValidSecurityCode(code) {
		return response.BadRequest(c, "code must look like sh.600000", nil)
	}
	var req UpdateQuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	if !req.LastPrice.IsPositive() {
		return response.BadRequest(c, "last_price must be greater than 0", nil)
	}

	ctx := c.UserContext()
	q := domain.Quote{SecurityCode: code, DisplayName: strings.TrimSpace(req.DisplayName), LastPrice: req.LastPrice}
	prior, err := h.Quotes.Get(ctx, code)
	switch {
	case err == nil:
		if q.DisplayName == "" {
			q.DisplayName = prior.DisplayName
		}
		q.ChangePercent = prior.ChangePercent
	case !errors.Is(err, quotes.ErrQuoteNotFound):
		return response.Internal(c)
	}
	if req.ChangePercent != nil {
		q.ChangePercent = *req.ChangePercent
	}
	if err := h.Quotes.Upsert(ctx, q); err != nil {
		log.Error().Err(err).Str("code", code).Msg("quote edit")
		return response.Internal(c)
	}
	if h.Invalidator != nil {
		h.Invalidator.Invalidate(ctx)
	}
	saved, err := h.Quotes.Get(ctx, code)
	if err != nil {
		return response.Internal(c)
	}
	log.Info().Str("code", code).Str("price", q.LastPrice.String()).Msg("quote edited")
	return response.Success(c, "Quote updated", saved, nil)
}

func (h *Handlers) revoke(c *fiber.Ctx, username string) {
	if h.Rdb == nil {
		return
	}
	if err := middleware.RevokeUserSessions(c.UserContext(), h.Rdb, username); err != nil {
		log.Warn().Err(err).Str("username", username).Msg("revoke sessions")
	}
}

func accountError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, ledger.ErrAccountExists):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	case errors.Is(err, ledger.ErrNegativeBalance),
		errors.Is(err, accounts.ErrInvalidUsername),
		errors.Is(err, accounts.ErrInvalidPassword),
		errors.Is(err, accounts.ErrInvalidRole):
		return response.BadRequest(c, err.Error(), nil)
	}
	log.Error().Err(err).Msg("admin account")
	return response.Internal(c)
}
