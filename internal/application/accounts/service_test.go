package accounts

import (
	"context"
	"testing"

	"stocksim-backend/internal/application/ledger"
	"stocksim-backend/internal/infrastructure/database"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupAccounts(t *testing.T) *Service {
	db, err := database.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return &Service{Ledger: ledger.NewStore(db), BcryptCost: bcrypt.MinCost}
}

func TestRegister_DefaultBalance(t *testing.T) {
	svc := setupAccounts(t)
	acc, err := svc.Register(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "user", acc.Role)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(100000)))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte("secret1")))

	_, err = svc.Register(context.Background(), "alice", "secret1")
	assert.ErrorIs(t, err, ledger.ErrAccountExists)
}

func TestRegister_Validation(t *testing.T) {
	svc := setupAccounts(t)
	_, err := svc.Register(context.Background(), "al", "secret1")
	assert.ErrorIs(t, err, ErrInvalidUsername)
	_, err = svc.Register(context.Background(), "alice", "123")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestCreate_RoleAndBalance(t *testing.T) {
	svc := setupAccounts(t)
	ctx := context.Background()
	bal := decimal.NewFromInt(5000)
	acc, err := svc.Create(ctx, CreateInput{Username: "boss", Password: "secret1", Role: "admin", Balance: &bal})
	require.NoError(t, err)
	assert.Equal(t, "admin", acc.Role)
	assert.True(t, acc.Balance.Equal(bal))

	_, err = svc.Create(ctx, CreateInput{Username: "other", Password: "secret1", Role: "root"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	neg := decimal.NewFromInt(-1)
	_, err = svc.Create(ctx, CreateInput{Username: "broke", Password: "secret1", Balance: &neg})
	assert.ErrorIs(t, err, ledger.ErrNegativeBalance)
}

func TestUpdateAndDelete(t *testing.T) {
	svc := setupAccounts(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice", "secret1")
	require.NoError(t, err)

	pw := "newpass1"
	bal := decimal.RequireFromString("123.45")
	acc, err := svc.Update(ctx, "alice", UpdateInput{Password: &pw, Balance: &bal})
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(bal))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(pw)))

	bad := "root"
	_, err = svc.Update(ctx, "alice", UpdateInput{Role: &bad})
	assert.ErrorIs(t, err, ErrInvalidRole)

	d, err := svc.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, d.Holdings)
	assert.Equal(t, 0, d.TransactionCount)

	require.NoError(t, svc.Delete(ctx, "alice"))
	_, err = svc.Get(ctx, "alice")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "alice"), ledger.ErrAccountNotFound)
}
