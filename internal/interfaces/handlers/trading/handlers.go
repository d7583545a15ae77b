package trading

import (
	"errors"
	"strings"

	tradesvc "stocksim-backend/internal/application/trading"
	"stocksim-backend/internal/middleware"
	"stocksim-backend/internal/pkg/response"
	"stocksim-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Executor *tradesvc.Executor
}

// TradeRequest is the body of POST /trading/trade. Kind and quantity are checked by the
// executor so the error messages match the trade rules.
type TradeRequest struct {
	Kind         string `json:"kind" validate:"required"`
	SecurityCode string `json:"security_code" validate:"required"`
	Quantity     int64  `json:"quantity"`
}

// Trade POST /api/v1/trading/trade executes a buy or sell for the session account at the
// stored quote price.
func (h *Handlers) Trade(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req TradeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	req.Kind = strings.ToLower(strings.TrimSpace(req.Kind))
	req.SecurityCode = strings.TrimSpace(req.SecurityCode)
	if err := validation.Struct(req); err != nil {
		return response.BadRequest(c, err.Error(), nil)
	}

	ctx := c.UserContext()
	tx, err := h.Executor.ExecuteTrade(ctx, user.Username, req.Kind, req.SecurityCode, req.Quantity)
	if err != nil {
		return tradeError(c, err)
	}
	acc, err := h.Executor.Ledger.GetAccount(ctx, user.Username)
	if err != nil {
		return response.Internal(c)
	}
	return response.SuccessCreated(c, "Trade executed", fiber.Map{
		"transaction": tx,
		"balance":     acc.Balance,
	}, nil)
}

func tradeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, tradesvc.ErrInvalidTradeKind),
		errors.Is(err, tradesvc.ErrInvalidQuantity),
		errors.Is(err, tradesvc.ErrInsufficientFunds),
		errors.Is(err, tradesvc.ErrInsufficientHoldings):
		return response.BadRequest(c, err.Error(), nil)
	case errors.Is(err, tradesvc.ErrSecurityNotFound),
		errors.Is(err, tradesvc.ErrAccountNotFound):
		return response.NotFound(c, err.Error())
	}
	log.Error().Err(err).Msg("trade failed")
	return response.Internal(c)
}
