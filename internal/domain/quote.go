package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the locally stored current price of a security.
// ChangePercent is a signed percentage (1.25 means +1.25%).
type Quote struct {
	SecurityCode  string          `gorm:"column:security_code;type:varchar(16);primaryKey" json:"security_code"`
	DisplayName   string          `gorm:"column:display_name" json:"display_name"`
	LastPrice     decimal.Decimal `gorm:"column:last_price;type:numeric(20,4);not null;default:0" json:"last_price"`
	ChangePercent float64         `gorm:"column:change_percent;not null;default:0" json:"change_percent"`
	UpdatedAt     time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Quote) TableName() string {
	return "quotes"
}
