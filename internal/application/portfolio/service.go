package portfolio

import (
	"context"
	"errors"
	"sort"

	"stocksim-backend/internal/application/ledger"
	"stocksim-backend/internal/application/quotes"
	"stocksim-backend/internal/domain"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type QuoteReader interface {
	Get(ctx context.Context, code string) (*domain.Quote, error)
}

// Position is a holding valued at the stored quote.
type Position struct {
	SecurityCode  string          `json:"security_code"`
	DisplayName   string          `json:"display_name"`
	Quantity      int64           `json:"quantity"`
	AverageCost   decimal.Decimal `json:"average_cost"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	ChangePercent float64         `json:"change_percent"`
	MarketValue   decimal.Decimal `json:"market_value"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	Profit        decimal.Decimal `json:"profit"`
	ProfitRate    decimal.Decimal `json:"profit_rate"`
	Priced        bool            `json:"priced"`
}

type Summary struct {
	Username      string          `json:"username"`
	Cash          decimal.Decimal `json:"cash"`
	HoldingsValue decimal.Decimal `json:"holdings_value"`
	TotalAssets   decimal.Decimal `json:"total_assets"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	Positions     []Position      `json:"positions"`
}

type Service struct {
	Ledger *ledger.Store
	Quotes QuoteReader
}

// Positions values every holding, ordered by security code. A holding without a usable quote
// is valued at its average cost.
func (s *Service) Positions(ctx context.Context, username string) ([]Position, error) {
	if _, err := s.Ledger.GetAccount(ctx, username); err != nil {
		return nil, err
	}
	holdings, err := s.Ledger.GetHoldings(ctx, username)
	if err != nil {
		return nil, err
	}

	out := make([]Position, 0, len(holdings))
	for _, h := range holdings {
		p, err := s.value(ctx, h)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SecurityCode < out[j].SecurityCode })
	return out, nil
}

func (s *Service) value(ctx context.Context, h domain.Holding) (Position, error) {
	p := Position{
		SecurityCode: h.SecurityCode,
		DisplayName:  h.DisplayName,
		Quantity:     h.Quantity,
		AverageCost:  h.AverageCost,
		CurrentPrice: h.AverageCost,
	}
	q, err := s.Quotes.Get(ctx, h.SecurityCode)
	switch {
	case err == nil && q.LastPrice.IsPositive():
		p.CurrentPrice = q.LastPrice
		p.ChangePercent = q.ChangePercent
		p.Priced = true
		if p.DisplayName == "" {
			p.DisplayName = q.DisplayName
		}
	case err != nil && !errors.Is(err, quotes.ErrQuoteNotFound):
		return p, err
	}

	qty := decimal.NewFromInt(h.Quantity)
	p.MarketValue = p.CurrentPrice.Mul(qty)
	p.CostBasis = h.AverageCost.Mul(qty)
	p.Profit = p.MarketValue.Sub(p.CostBasis)
	if p.CostBasis.IsPositive() {
		p.ProfitRate = p.Profit.Div(p.CostBasis).Mul(hundred).Round(2)
	}
	return p, nil
}

// Summarize totals cash and positions for one account.
func (s *Service) Summarize(ctx context.Context, username string) (*Summary, error) {
	acc, err := s.Ledger.GetAccount(ctx, username)
	if err != nil {
		return nil, err
	}
	positions, err := s.Positions(ctx, username)
	if err != nil {
		return nil, err
	}
	sum := &Summary{
		Username:      username,
		Cash:          acc.Balance,
		HoldingsValue: decimal.Zero,
		TotalCost:     decimal.Zero,
		TotalProfit:   decimal.Zero,
		Positions:     positions,
	}
	for _, p := range positions {
		sum.HoldingsValue = sum.HoldingsValue.Add(p.MarketValue)
		sum.TotalCost = sum.TotalCost.Add(p.CostBasis)
		sum.TotalProfit = sum.TotalProfit.Add(p.Profit)
	}
	sum.TotalAssets = sum.Cash.Add(sum.HoldingsValue)
	return sum, nil
}
