package trading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stocksim-backend/internal/application/ledger"
	"stocksim-backend/internal/application/quotes"
	"stocksim-backend/internal/domain"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound      = errors.New("Account not found")
	ErrSecurityNotFound     = errors.New("Security not found")
	ErrInsufficientFunds    = errors.New("Insufficient funds")
	ErrInsufficientHoldings = errors.New("Insufficient holdings to sell")
	ErrInvalidTradeKind     = errors.New("Trade kind must be buy or sell")
	ErrInvalidQuantity      = errors.New("Quantity must be a positive integer")
)

// QuoteReader is the read side of the quote table the executor prices trades from.
type QuoteReader interface {
	Get(ctx context.Context, code string) (*domain.Quote, error)
}

// Executor applies buy and sell orders against the ledger at the stored quote price.
type Executor struct {
	Ledger *ledger.Store
	Quotes QuoteReader
	Now    func() time.Time
}

func (e *Executor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// ExecuteTrade validates and applies one order. Balance, holding and transaction log change
// together or not at all. Trades on the same account are serialized.
func (e *Executor) ExecuteTrade(ctx context.Context, username, kind, code string, quantity int64) (*domain.Transaction, error) {
	if kind != domain.TradeBuy && kind != domain.TradeSell {
		return nil, ErrInvalidTradeKind
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	quote, err := e.Quotes.Get(ctx, code)
	if err != nil {
		if errors.Is(err, quotes.ErrQuoteNotFound) {
			return nil, ErrSecurityNotFound
		}
		return nil, err
	}
	if !quote.LastPrice.IsPositive() {
		return nil, ErrSecurityNotFound
	}

	unlock := e.Ledger.Lock(username)
	defer unlock()

	var rec domain.Transaction
	err = e.Ledger.Atomic(ctx, func(tx *ledger.Store) error {
		acc, err := tx.GetAccount(ctx, username)
		if err != nil {
			if errors.Is(err, ledger.ErrAccountNotFound) {
				return ErrAccountNotFound
			}
			return err
		}
		holdings, err := tx.GetHoldings(ctx, username)
		if err != nil {
			return err
		}
		held, hasHolding := holdings[code]

		price := quote.LastPrice
		qty := decimal.NewFromInt(quantity)
		amount := price.Mul(qty)

		name := quote.DisplayName
		if name == "" && hasHolding {
			name = held.DisplayName
		}

		switch kind {
		case domain.TradeBuy:
			if acc.Balance.LessThan(amount) {
				return ErrInsufficientFunds
			}
			if _, err := tx.ApplyBalanceDelta(ctx, username, amount.Neg()); err != nil {
				if errors.Is(err, ledger.ErrInsufficientFunds) {
					return ErrInsufficientFunds
				}
				return err
			}
			newQty := held.Quantity + quantity
			newCost := held.AverageCost.Mul(decimal.NewFromInt(held.Quantity)).Add(amount).
				DivRound(decimal.NewFromInt(newQty), 6)
			if err := tx.UpsertHolding(ctx, username, code, newQty, newCost, name); err != nil {
				return err
			}
		case domain.TradeSell:
			if !hasHolding || held.Quantity < quantity {
				return ErrInsufficientHoldings
			}
			if _, err := tx.ApplyBalanceDelta(ctx, username, amount); err != nil {
				return err
			}
			if err := tx.UpsertHolding(ctx, username, code, held.Quantity-quantity, held.AverageCost, name); err != nil {
				return err
			}
		}

		last, err := tx.LastTransactionTime(ctx, username)
		if err != nil {
			return err
		}
		ts := e.now()
		if ts.Before(last) {
			ts = last
		}

		rec = domain.Transaction{
			Username:     username,
			Kind:         kind,
			SecurityCode: code,
			DisplayName:  name,
			Price:        price,
			Quantity:     quantity,
			Amount:       amount,
			Timestamp:    ts,
		}
		if err := tx.AppendTransaction(ctx, &rec); err != nil {
			return fmt.Errorf("append transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("username", username).
		Str("kind", kind).
		Str("code", code).
		Int64("quantity", quantity).
		Str("amount", rec.Amount.String()).
		Msg("trade executed")
	return &rec, nil
}
