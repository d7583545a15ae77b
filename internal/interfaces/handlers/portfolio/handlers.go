package portfolio

import (
	"errors"

	"stocksim-backend/internal/application/ledger"
	portfoliosvc "stocksim-backend/internal/application/portfolio"
	"stocksim-backend/internal/middleware"
	"stocksim-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *portfoliosvc.Service
}

// Summary GET /api/v1/portfolio/summary
func (h *Handlers) Summary(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	sum, err := h.Service.Summarize(c.UserContext(), user.Username)
	if err != nil {
		return portfolioError(c, err)
	}
	return response.Success(c, "Portfolio summary", sum, nil)
}

// Holdings GET /api/v1/portfolio/holdings
func (h *Handlers) Holdings(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	positions, err := h.Service.Positions(c.UserContext(), user.Username)
	if err != nil {
		return portfolioError(c, err)
	}
	return response.Success(c, "Holdings", positions, fiber.Map{"count": len(positions)})
}

// Transactions GET /api/v1/portfolio/transactions lists the account's trades oldest first.
func (h *Handlers) Transactions(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	txs, err := h.Service.Ledger.GetTransactions(c.UserContext(), user.Username)
	if err != nil {
		return portfolioError(c, err)
	}
	return response.Success(c, "Transactions", txs, fiber.Map{"count": len(txs)})
}

func portfolioError(c *fiber.Ctx, err error) error {
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return response.NotFound(c, err.Error())
	}
	log.Error().Err(err).Msg("portfolio")
	return response.Internal(c)
}
