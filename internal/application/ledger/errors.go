package ledger

import "errors"

var (
	ErrAccountNotFound   = errors.New("Account not found")
	ErrAccountExists     = errors.New("Account already exists")
	ErrInsufficientFunds = errors.New("Insufficient funds")
	ErrNegativeBalance   = errors.New("Balance cannot be negative")
)
