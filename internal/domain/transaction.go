package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TradeBuy  = "buy"
	TradeSell = "sell"
)

// Transaction is an executed trade. Rows are only ever inserted.
type Transaction struct {
	ID           uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Username     string          `gorm:"column:username;type:varchar(64);not null;index:idx_transactions_user_ts,priority:1" json:"username"`
	Kind         string          `gorm:"column:kind;type:varchar(8);not null" json:"kind"`
	SecurityCode string          `gorm:"column:security_code;type:varchar(16);not null" json:"security_code"`
	DisplayName  string          `gorm:"column:display_name" json:"display_name"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(20,4);not null" json:"price"`
	Quantity     int64           `gorm:"column:quantity;not null" json:"quantity"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(20,4);not null" json:"amount"`
	Timestamp    time.Time       `gorm:"column:timestamp;not null;index:idx_transactions_user_ts,priority:2" json:"timestamp"`
}

func (Transaction) TableName() string {
	return "transactions"
}
