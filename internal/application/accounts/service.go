package accounts

import (
	"context"
	"errors"
	"sort"
	"strings"

	"stocksim-backend/internal/application/ledger"
	"stocksim-backend/internal/domain"
	"stocksim-backend/internal/pkg/constants"
	"stocksim-backend/internal/pkg/validation"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

var DefaultInitialBalance = decimal.NewFromInt(100000)

var (
	ErrInvalidUsername = errors.New("Invalid username")
	ErrInvalidPassword = errors.New("Invalid password")
	ErrInvalidRole     = errors.New("Invalid role")
)

type Service struct {
	Ledger     *ledger.Store
	BcryptCost int
}

type CreateInput struct {
	Username string
	Password string
	Role     string
	Balance  *decimal.Decimal
}

type UpdateInput struct {
	Role     *string
	Balance  *decimal.Decimal
	Password *string
}

// Detail is an account with its current positions.
type Detail struct {
	domain.Account
	Holdings         []domain.Holding `json:"holdings"`
	TransactionCount int              `json:"transaction_count"`
}

func (s *Service) hash(password string) (string, error) {
	cost := s.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Register creates a regular account with the default starting balance.
func (s *Service) Register(ctx context.Context, username, password string) (*domain.Account, error) {
	return s.Create(ctx, CreateInput{Username: username, Password: password, Role: constants.RoleUser})
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	if !validation.IsValidUsername(in.Username) {
		return nil, ErrInvalidUsername
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, ErrInvalidPassword
	}
	if in.Role == "" {
		in.Role = constants.RoleUser
	}
	if !constants.IsValidRole(in.Role) {
		return nil, ErrInvalidRole
	}
	balance := DefaultInitialBalance
	if in.Balance != nil {
		balance = *in.Balance
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	acc := &domain.Account{
		Username:     in.Username,
		PasswordHash: hash,
		Role:         in.Role,
		Balance:      balance,
	}
	if err := s.Ledger.CreateAccount(ctx, acc); err != nil {
		return nil, err
	}
	log.Info().Str("username", acc.Username).Str("role", acc.Role).Msg("account created")
	return acc, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Account, error) {
	return s.Ledger.ListAccounts(ctx)
}

func (s *Service) Get(ctx context.Context, username string) (*Detail, error) {
	acc, err := s.Ledger.GetAccount(ctx, username)
	if err != nil {
		return nil, err
	}
	holdings, err := s.Ledger.GetHoldings(ctx, username)
	if err != nil {
		return nil, err
	}
	txs, err := s.Ledger.GetTransactions(ctx, username)
	if err != nil {
		return nil, err
	}
	d := &Detail{Account: *acc, Holdings: make([]domain.Holding, 0, len(holdings)), TransactionCount: len(txs)}
	for _, h := range holdings {
		d.Holdings = append(d.Holdings, h)
	}
	sort.Slice(d.Holdings, func(i, j int) bool { return d.Holdings[i].SecurityCode < d.Holdings[j].SecurityCode })
	return d, nil
}

// Update applies an administrative change under the account lock, so it never interleaves
// with a trade on the same account.
func (s *Service) Update(ctx context.Context, username string, in UpdateInput) (*domain.Account, error) {
	upd := ledger.AccountUpdate{Balance: in.Balance}
	if in.Role != nil {
		if !constants.IsValidRole(*in.Role) {
			return nil, ErrInvalidRole
		}
		upd.Role = in.Role
	}
	if in.Password != nil {
		if !validation.IsValidPassword(*in.Password) {
			return nil, ErrInvalidPassword
		}
		hash, err := s.hash(*in.Password)
		if err != nil {
			return nil, err
		}
		upd.PasswordHash = &hash
	}

	unlock := s.Ledger.Lock(username)
	defer unlock()
	acc, err := s.Ledger.UpdateAccount(ctx, username, upd)
	if err != nil {
		return nil, err
	}
	log.Info().Str("username", username).Msg("account updated")
	return acc, nil
}

// Delete removes the account together with its holdings and transactions.
func (s *Service) Delete(ctx context.Context, username string) error {
	unlock := s.Ledger.Lock(username)
	defer unlock()
	if err := s.Ledger.DeleteAccount(ctx, username); err != nil {
		return err
	}
	log.Info().Str("username", username).Msg("account deleted")
	return nil
}
