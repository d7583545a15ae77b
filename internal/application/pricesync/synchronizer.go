package pricesync

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"stocksim-backend/internal/domain"
	"stocksim-backend/internal/pkg/seccode"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	DefaultFeedTimeout  = 8 * time.Second
	DefaultLookbackDays = 10

	// The snapshot is paginated, so it gets a budget of this many feed timeouts. Each page
	// request is still bounded by the feed client's own per-request timeout.
	snapshotTimeoutFactor = 15
)

type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomePartialFailure Outcome = "partial_failure"
)

// Result summarizes one run.
type Result struct {
	Outcome      Outcome
	StartedAt    time.Time
	FinishedAt   time.Time
	Total        int
	SnapshotHits int
	HistoryHits  int
	Failed       []string
	SnapshotErr  error
	ListErr      error

	// Aborted is set when the run panicked.
	Aborted error
}

func (r Result) PartialFailure() bool {
	return r.Outcome == OutcomePartialFailure
}

// QuoteStore is what the synchronizer reads and writes.
type QuoteStore interface {
	List(ctx context.Context) ([]domain.Quote, error)
	Upsert(ctx context.Context, q domain.Quote) error
}

type Recorder interface {
	Record(ctx context.Context, res Result) error
}

// Synchronizer refreshes the quote table from the feed. At most one run is active at a time;
// a request made while a run is active is dropped.
type Synchronizer struct {
	Quotes       QuoteStore
	Feed         Feed
	Notifier     *Notifier
	Recorder     Recorder
	FeedTimeout  time.Duration
	LookbackDays int
	Now          func() time.Time

	// SnapshotTimeout bounds the whole paginated snapshot. Zero means snapshotTimeoutFactor
	// times the feed timeout.
	SnapshotTimeout time.Duration

	guard sync.Mutex
}

func (s *Synchronizer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Synchronizer) timeout() time.Duration {
	if s.FeedTimeout > 0 {
		return s.FeedTimeout
	}
	return DefaultFeedTimeout
}

func (s *Synchronizer) snapshotTimeout() time.Duration {
	if s.SnapshotTimeout > 0 {
		return s.SnapshotTimeout
	}
	return s.timeout() * snapshotTimeoutFactor
}

func (s *Synchronizer) lookback() int {
	if s.LookbackDays > 0 {
		return s.LookbackDays
	}
	return DefaultLookbackDays
}

// Run executes a sync on the calling goroutine. It returns false without doing anything when
// another run holds the guard.
func (s *Synchronizer) Run(ctx context.Context) (Result, bool) {
	if !s.guard.TryLock() {
		log.Info().Msg("price sync already running, skipped")
		return Result{}, false
	}
	res := s.guarded(ctx)
	s.finish(ctx, res)
	return res, true
}

// TriggerSync starts a run on its own goroutine and returns immediately. It returns false when
// a run is already active.
func (s *Synchronizer) TriggerSync() bool {
	if !s.guard.TryLock() {
		log.Info().Msg("price sync already running, skipped")
		return false
	}
	go func() {
		ctx := context.Background()
		s.finish(ctx, s.guarded(ctx))
	}()
	return true
}

// guarded runs a sync while holding the guard and releases it even if the feed panics.
func (s *Synchronizer) guarded(ctx context.Context) (res Result) {
	defer s.guard.Unlock()
	started := s.now()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("price sync panicked")
			res = Result{
				Outcome:    OutcomePartialFailure,
				StartedAt:  started,
				FinishedAt: s.now(),
				Aborted:    fmt.Errorf("price sync panicked: %v", r),
			}
		}
	}()
	return s.run(ctx)
}

func (s *Synchronizer) finish(ctx context.Context, res Result) {
	if s.Recorder != nil {
		if err := s.Recorder.Record(ctx, res); err != nil {
			log.Warn().Err(err).Msg("record sync run")
		}
	}
	s.Notifier.Notify(res)
}

func (s *Synchronizer) run(ctx context.Context) Result {
	res := Result{StartedAt: s.now(), Outcome: OutcomeSuccess}

	stored, err := s.Quotes.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("price sync: list quotes")
		res.ListErr = err
		res.Outcome = OutcomePartialFailure
		res.FinishedAt = s.now()
		return res
	}
	res.Total = len(stored)

	snapshot := s.snapshot(ctx, &res)

	for _, q := range stored {
		switch {
		case s.fromSnapshot(ctx, q, snapshot):
			res.SnapshotHits++
		case s.fromHistory(ctx, q):
			res.HistoryHits++
		default:
			res.Failed = append(res.Failed, q.SecurityCode)
		}
	}
	if len(res.Failed) > 0 {
		res.Outcome = OutcomePartialFailure
	}

	res.FinishedAt = s.now()
	ev := log.Info()
	if res.PartialFailure() {
		ev = log.Warn().Strs("failed", res.Failed)
	}
	ev.Int("total", res.Total).
		Int("snapshot", res.SnapshotHits).
		Int("history", res.HistoryHits).
		Dur("took", res.FinishedAt.Sub(res.StartedAt)).
		Str("outcome", string(res.Outcome)).
		Msg("price sync finished")
	return res
}

func (s *Synchronizer) snapshot(ctx context.Context, res *Result) map[string]SnapshotQuote {
	cctx, cancel := context.WithTimeout(ctx, s.snapshotTimeout())
	defer cancel()
	snap, err := s.Feed.Snapshot(cctx)
	if err != nil {
		log.Warn().Err(err).Msg("price sync: snapshot unavailable, falling back to history")
		res.SnapshotErr = err
		return nil
	}
	log.Debug().Int("rows", len(snap)).Msg("price sync: snapshot loaded")
	return snap
}

func (s *Synchronizer) fromSnapshot(ctx context.Context, q domain.Quote, snap map[string]SnapshotQuote) bool {
	row, ok := snap[seccode.ToExternal(q.SecurityCode)]
	if !ok || !row.LastPrice.IsPositive() {
		return false
	}
	return s.store(ctx, q, row.LastPrice, row.ChangePercent, "snapshot")
}

func (s *Synchronizer) fromHistory(ctx context.Context, q domain.Quote) bool {
	end := s.now()
	cctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	bars, err := s.Feed.History(cctx, HistoryQuery{
		Code:   q.SecurityCode,
		Period: PeriodDaily,
		Start:  end.AddDate(0, 0, -s.lookback()),
		End:    end,
	})
	if err != nil {
		log.Debug().Err(err).Str("code", q.SecurityCode).Msg("price sync: history unavailable")
		return false
	}
	if len(bars) == 0 {
		return false
	}
	last := bars[len(bars)-1].Close
	if last <= 0 {
		return false
	}
	change := q.ChangePercent
	if len(bars) >= 2 {
		if prev := bars[len(bars)-2].Close; prev > 0 {
			change = math.Round((last-prev)/prev*100*100) / 100
		}
	}
	return s.store(ctx, q, decimal.NewFromFloat(last), change, "history")
}

func (s *Synchronizer) store(ctx context.Context, prior domain.Quote, price decimal.Decimal, change float64, tier string) bool {
	err := s.Quotes.Upsert(ctx, domain.Quote{
		SecurityCode:  prior.SecurityCode,
		DisplayName:   prior.DisplayName,
		LastPrice:     price,
		ChangePercent: change,
		UpdatedAt:     s.now(),
	})
	if err != nil {
		log.Warn().Err(err).Str("code", prior.SecurityCode).Str("tier", tier).Msg("price sync: upsert quote")
		return false
	}
	return true
}
