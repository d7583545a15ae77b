package ledger

import (
	"context"
	"errors"
	"time"

	"stocksim-backend/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store owns accounts, holdings and the transaction log.
//
// Mutations of one account must run under Lock(username). A Store handed to an Atomic callback
// is bound to a single database transaction and shares the lock registry of its parent.
type Store struct {
	DB    *gorm.DB
	locks *keyedMutex
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db, locks: newKeyedMutex()}
}

// AccountUpdate carries the administrative changes to an account. Nil fields are left alone.
type AccountUpdate struct {
	Role         *string
	Balance      *decimal.Decimal
	PasswordHash *string
}

// Lock serializes mutations of one account. Different usernames never contend.
func (s *Store) Lock(username string) (unlock func()) {
	if s.locks == nil {
		s.locks = newKeyedMutex()
	}
	return s.locks.lock(username)
}

// Atomic runs fn against a Store bound to one transaction. The transaction commits when fn
// returns nil and rolls back when it returns an error or panics.
func (s *Store) Atomic(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx, locks: s.locks})
	})
}

func (s *Store) GetAccount(ctx context.Context, username string) (*domain.Account, error) {
	var acc domain.Account
	if err := s.DB.WithContext(ctx).Where("username = ?", username).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acc, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	var out []domain.Account
	if err := s.DB.WithContext(ctx).Order("username ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetHoldings returns the account's holdings keyed by security code.
func (s *Store) GetHoldings(ctx context.Context, username string) (map[string]domain.Holding, error) {
	var rows []domain.Holding
	if err := s.DB.WithContext(ctx).Where("username = ?", username).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]domain.Holding, len(rows))
	for _, h := range rows {
		out[h.SecurityCode] = h
	}
	return out, nil
}

// GetTransactions returns the account's trades oldest first.
func (s *Store) GetTransactions(ctx context.Context, username string) ([]domain.Transaction, error) {
	var out []domain.Transaction
	if err := s.DB.WithContext(ctx).
		Where("username = ?", username).
		Order("timestamp ASC").Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// LastTransactionTime returns the timestamp of the newest trade, or the zero time.
func (s *Store) LastTransactionTime(ctx context.Context, username string) (time.Time, error) {
	var last []domain.Transaction
	if err := s.DB.WithContext(ctx).
		Where("username = ?", username).
		Order("timestamp DESC").Order("id DESC").
		Limit(1).
		Find(&last).Error; err != nil {
		return time.Time{}, err
	}
	if len(last) == 0 {
		return time.Time{}, nil
	}
	return last[0].Timestamp, nil
}

// ApplyBalanceDelta adds delta to the balance and returns the new balance.
// A result below zero fails with ErrInsufficientFunds and writes nothing.
func (s *Store) ApplyBalanceDelta(ctx context.Context, username string, delta decimal.Decimal) (decimal.Decimal, error) {
	acc, err := s.GetAccount(ctx, username)
	if err != nil {
		return decimal.Zero, err
	}
	next := acc.Balance.Add(delta)
	if next.IsNegative() {
		return acc.Balance, ErrInsufficientFunds
	}
	if err := s.DB.WithContext(ctx).Model(&domain.Account{}).
		Where("username = ?", username).
		Update("balance", next).Error; err != nil {
		return acc.Balance, err
	}
	return next, nil
}

// UpsertHolding writes the position, or deletes it when quantity is not positive.
func (s *Store) UpsertHolding(ctx context.Context, username, code string, quantity int64, averageCost decimal.Decimal, name string) error {
	db := s.DB.WithContext(ctx)
	if quantity <= 0 {
		return db.Where("username = ? AND security_code = ?", username, code).Delete(&domain.Holding{}).Error
	}
	h := domain.Holding{
		Username:     username,
		SecurityCode: code,
		Quantity:     quantity,
		AverageCost:  averageCost,
		DisplayName:  name,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}, {Name: "security_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "average_cost", "display_name"}),
	}).Create(&h).Error
}

// AppendTransaction inserts rec and fills in its id.
func (s *Store) AppendTransaction(ctx context.Context, rec *domain.Transaction) error {
	rec.ID = 0
	return s.DB.WithContext(ctx).Create(rec).Error
}

func (s *Store) CreateAccount(ctx context.Context, acc *domain.Account) error {
	if acc.Balance.IsNegative() {
		return ErrNegativeBalance
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Account{}).Where("username = ?", acc.Username).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAccountExists
		}
		if acc.CreatedAt.IsZero() {
			acc.CreatedAt = time.Now()
		}
		return tx.Create(acc).Error
	})
}

func (s *Store) UpdateAccount(ctx context.Context, username string, upd AccountUpdate) (*domain.Account, error) {
	updates := map[string]interface{}{}
	if upd.Role != nil {
		updates["role"] = *upd.Role
	}
	if upd.Balance != nil {
		if upd.Balance.IsNegative() {
			return nil, ErrNegativeBalance
		}
		updates["balance"] = *upd.Balance
	}
	if upd.PasswordHash != nil {
		updates["password_hash"] = *upd.PasswordHash
	}

	if _, err := s.GetAccount(ctx, username); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(&domain.Account{}).
			Where("username = ?", username).
			Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetAccount(ctx, username)
}

// DeleteAccount removes the account with its holdings and transactions in one transaction.
func (s *Store) DeleteAccount(ctx context.Context, username string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("username = ?", username).Delete(&domain.Transaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("username = ?", username).Delete(&domain.Holding{}).Error; err != nil {
			return err
		}
		res := tx.Where("username = ?", username).Delete(&domain.Account{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAccountNotFound
		}
		return nil
	})
}
