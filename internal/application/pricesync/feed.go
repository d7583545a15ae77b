package pricesync

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Period is the bar granularity of a history query.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodHourly  Period = "hourly"
)

func (p Period) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodHourly:
		return true
	}
	return false
}

// SnapshotQuote is one row of the full-market snapshot, keyed by the bare external code.
type SnapshotQuote struct {
	Code          string
	Name          string
	LastPrice     decimal.Decimal
	ChangePercent float64
}

// Bar is one OHLCV bar.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Amount float64   `json:"amount"`
}

// HistoryQuery asks for bars of one security. Code is the internal venue-prefixed code.
type HistoryQuery struct {
	Code   string
	Period Period
	Start  time.Time
	End    time.Time
}

// Feed is the external market data source. Both calls are unreliable: callers treat errors
// and empty results as a miss.
type Feed interface {
	Snapshot(ctx context.Context) (map[string]SnapshotQuote, error)
	History(ctx context.Context, q HistoryQuery) ([]Bar, error)
}
