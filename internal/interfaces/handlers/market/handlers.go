package market

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"stocksim-backend/internal/application/pricesync"
	"stocksim-backend/internal/application/quotes"
	"stocksim-backend/internal/domain"
	"stocksim-backend/internal/pkg/response"
	"stocksim-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	defaultHistoryDays = 30
	defaultHourlyDays  = 10

	// chart bars are realigned to the stored price past this relative gap
	alignThreshold = 0.01
)

type HistorySource interface {
	History(ctx context.Context, q pricesync.HistoryQuery) ([]pricesync.Bar, error)
}

type SyncTrigger interface {
	TriggerSync() bool
}

type RunLister interface {
	Recent(ctx context.Context, limit int) ([]domain.SyncRun, error)
}

// Handlers serve quotes, chart history and manual sync.
type Handlers struct {
	Quotes      *quotes.Store
	Feed        HistorySource
	Syncer      SyncTrigger
	Runs        RunLister
	FeedTimeout time.Duration
	Now         func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// ListQuotes GET /api/v1/market/quotes
func (h *Handlers) ListQuotes(c *fiber.Ctx) error {
	list, err := h.Quotes.List(c.UserContext())
	if err != nil {
		log.Error().Err(err).Msg("list quotes")
		return response.Internal(c)
	}
	return response.Success(c, "Quotes", list, fiber.Map{"count": len(list)})
}

// Search GET /api/v1/market/quotes/search?q=
func (h *Handlers) Search(c *fiber.Ctx) error {
	list, err := h.Quotes.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		log.Error().Err(err).Msg("search quotes")
		return response.Internal(c)
	}
	return response.Success(c, "Quotes", list, fiber.Map{"count": len(list)})
}

// GetQuote GET /api/v1/market/quotes/:code
func (h *Handlers) GetQuote(c *fiber.Ctx) error {
	q, err := h.Quotes.Get(c.UserContext(), c.Params("code"))
	if err != nil {
		if errors.Is(err, quotes.ErrQuoteNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.Internal(c)
	}
	return response.Success(c, "Quote", q, nil)
}

type historyQuery struct {
	Period string `query:"period" validate:"omitempty,oneof=daily weekly monthly hourly"`
	Days   int    `query:"days" validate:"gte=0,lte=3650"`
}

// History GET /api/v1/market/history/:code?period=daily&days=30 returns bars from the feed.
// The last close is replaced with the stored price when the two disagree by more than 1%, so
// charts match the quote list.
func (h *Handlers) History(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Params("code"))
	var qp historyQuery
	if err := c.QueryParser(&qp); err != nil {
		return response.BadRequest(c, "Invalid query parameters", nil)
	}
	qp.Period = strings.ToLower(qp.Period)
	if err := validation.Struct(qp); err != nil {
		return response.BadRequest(c, err.Error(), nil)
	}
	period := pricesync.PeriodDaily
	if qp.Period != "" {
		period = pricesync.Period(qp.Period)
	}
	days := qp.Days
	if days == 0 {
		days = defaultHistoryDays
		if period == pricesync.PeriodHourly {
			days = defaultHourlyDays
		}
	}

	ctx := c.UserContext()
	stored, err := h.Quotes.Get(ctx, code)
	if err != nil && !errors.Is(err, quotes.ErrQuoteNotFound) {
		return response.Internal(c)
	}

	end := h.now()
	fctx := ctx
	if h.FeedTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, h.FeedTimeout)
		defer cancel()
	}
	bars, err := h.Feed.History(fctx, pricesync.HistoryQuery{
		Code:   code,
		Period: period,
		Start:  end.AddDate(0, 0, -days),
		End:    end,
	})
	if err != nil {
		log.Warn().Err(err).Str("code", code).Msg("history fetch failed")
		return response.Error(c, "Market data unavailable", fiber.StatusBadGateway, nil)
	}
	if bars == nil {
		bars = []pricesync.Bar{}
	}

	aligned := false
	if stored != nil {
		aligned = alignLastClose(bars, stored.LastPrice)
	}
	return response.Success(c, "History", bars, fiber.Map{
		"code":    code,
		"period":  period,
		"days":    days,
		"count":   len(bars),
		"aligned": aligned,
	})
}

func alignLastClose(bars []pricesync.Bar, price decimal.Decimal) bool {
	if len(bars) == 0 || !price.IsPositive() {
		return false
	}
	p := price.InexactFloat64()
	last := &bars[len(bars)-1]
	if math.Abs((last.Close-p)/p) <= alignThreshold {
		return false
	}
	last.Close = p
	return true
}

// Sync POST /api/v1/market/sync starts a price sync in the background. 202 when started, 200
// when one is already running.
func (h *Handlers) Sync(c *fiber.Ctx) error {
	if h.Syncer.TriggerSync() {
		return response.Accepted(c, "Sync started", fiber.Map{"started": true})
	}
	return response.Success(c, "Sync already running", fiber.Map{"started": false}, nil)
}

// SyncRuns GET /api/v1/market/sync/runs?limit=
func (h *Handlers) SyncRuns(c *fiber.Ctx) error {
	runs, err := h.Runs.Recent(c.UserContext(), c.QueryInt("limit", 20))
	if err != nil {
		log.Error().Err(err).Msg("list sync runs")
		return response.Internal(c)
	}
	return response.Success(c, "Sync runs", runs, fiber.Map{"count": len(runs)})
}
