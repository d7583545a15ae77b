package recommend

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"stocksim-backend/internal/application/pricesync"
	"stocksim-backend/internal/domain"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	DefaultWindowDays = 30
	defaultWorkers    = 8

	reasonNoData = "insufficient data"
	reasonFailed = "analysis failed"
)

type QuoteReader interface {
	List(ctx context.Context) ([]domain.Quote, error)
	Get(ctx context.Context, code string) (*domain.Quote, error)
}

type HistorySource interface {
	History(ctx context.Context, q pricesync.HistoryQuery) ([]pricesync.Bar, error)
}

// Recommendation is the scored view of one security.
type Recommendation struct {
	SecurityCode string          `json:"security_code"`
	DisplayName  string          `json:"display_name"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Probability  float64         `json:"probability"`
	Direction    string          `json:"direction"`
	Confidence   float64         `json:"confidence"`
	Reason       string          `json:"reason"`
	Signals      Signals         `json:"signals"`
}

// Service scores stored quotes over their recent daily history. It only reads.
type Service struct {
	Quotes      QuoteReader
	Feed        HistorySource
	Cache       *Cache
	WindowDays  int
	Workers     int
	FeedTimeout time.Duration
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// All returns a recommendation for every stored quote, most bullish first.
func (s *Service) All(ctx context.Context) ([]Recommendation, error) {
	if recs, ok := s.Cache.Get(ctx); ok {
		return recs, nil
	}
	stored, err := s.Quotes.List(ctx)
	if err != nil {
		return nil, err
	}

	workers := s.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	out := make([]Recommendation, len(stored))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range stored {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = s.analyze(ctx, stored[i])
		}(i)
	}
	wg.Wait()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Probability != out[j].Probability {
			return out[i].Probability > out[j].Probability
		}
		return out[i].SecurityCode < out[j].SecurityCode
	})
	s.Cache.Set(ctx, out)
	return out, nil
}

// For scores a single stored security.
func (s *Service) For(ctx context.Context, code string) (*Recommendation, error) {
	q, err := s.Quotes.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	rec := s.analyze(ctx, *q)
	return &rec, nil
}

// Invalidate drops the cached list so the next All recomputes.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.Cache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("recommend cache invalidate")
	}
}

func (s *Service) analyze(ctx context.Context, q domain.Quote) Recommendation {
	rec := Recommendation{
		SecurityCode: q.SecurityCode,
		DisplayName:  q.DisplayName,
		CurrentPrice: q.LastPrice,
	}

	window := s.WindowDays
	if window <= 0 {
		window = DefaultWindowDays
	}
	timeout := s.FeedTimeout
	if timeout <= 0 {
		timeout = pricesync.DefaultFeedTimeout
	}
	end := s.now()
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	bars, err := s.Feed.History(cctx, pricesync.HistoryQuery{
		Code:   q.SecurityCode,
		Period: pricesync.PeriodDaily,
		Start:  end.AddDate(0, 0, -window),
		End:    end,
	})

	switch {
	case err != nil:
		log.Debug().Err(err).Str("code", q.SecurityCode).Msg("recommend: history unavailable")
		rec.Probability, rec.Reason = 50, reasonFailed
	case len(bars) == 0:
		rec.Probability, rec.Reason = 50, reasonNoData
	default:
		score := Evaluate(bars)
		rec.Probability, rec.Reason, rec.Signals = score.Probability, score.Reason, score.Signals
	}

	rec.Direction = "down"
	if rec.Probability > 50 {
		rec.Direction = "up"
	}
	rec.Confidence = math.Abs(rec.Probability-50) * 2
	return rec
}
