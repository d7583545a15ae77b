package auth

import (
	"context"
	"errors"
	"strings"

	"stocksim-backend/internal/application/ledger"
	"stocksim-backend/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrCredentialsRequired = errors.New("Username and password are required")
	ErrInvalidCredentials  = errors.New("Invalid username or password")
	ErrNotAuthenticated    = errors.New("Not authenticated")
)

// AccountFinder looks up an account by username.
type AccountFinder interface {
	GetAccount(ctx context.Context, username string) (*domain.Account, error)
}

type Service struct {
	Accounts AccountFinder
}

// Authenticate checks username and password. Unknown users and wrong passwords fail the same
// way.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*domain.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrCredentialsRequired
	}
	acc, err := s.Accounts.GetAccount(ctx, username)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if acc.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}
