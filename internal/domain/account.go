package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a simulator user with a cash balance.
type Account struct {
	Username     string          `gorm:"column:username;type:varchar(64);primaryKey" json:"username"`
	PasswordHash string          `gorm:"column:password_hash;not null" json:"-"`
	Role         string          `gorm:"column:role;type:varchar(16);not null;default:user" json:"role"`
	Balance      decimal.Decimal `gorm:"column:balance;type:numeric(20,4);not null;default:0" json:"balance"`
	CreatedAt    time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (Account) TableName() string {
	return "accounts"
}
