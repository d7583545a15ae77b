package recommendations

import (
	"errors"

	"stocksim-backend/internal/application/quotes"
	"stocksim-backend/internal/application/recommend"
	"stocksim-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *recommend.Service
}

// List GET /api/v1/recommendations?limit= returns every stored security scored, most likely
// to rise first.
func (h *Handlers) List(c *fiber.Ctx) error {
	recs, err := h.Service.All(c.UserContext())
	if err != nil {
		log.Error().Err(err).Msg("recommendations")
		return response.Internal(c)
	}
	total := len(recs)
	if limit := c.QueryInt("limit", 0); limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}
	return response.Success(c, "Recommendations", recs, fiber.Map{"count": len(recs), "total": total})
}

// Get GET /api/v1/recommendations/:code
func (h *Handlers) Get(c *fiber.Ctx) error {
	rec, err := h.Service.For(c.UserContext(), c.Params("code"))
	if err != nil {
		if errors.Is(err, quotes.ErrQuoteNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.Internal(c)
	}
	return response.Success(c, "Recommendation", rec, nil)
}
