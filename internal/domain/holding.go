package domain

import "github.com/shopspring/decimal"

// Holding is a position in one security. Rows with zero quantity are deleted, never stored.
type Holding struct {
	Username     string          `gorm:"column:username;type:varchar(64);primaryKey" json:"username"`
	SecurityCode string          `gorm:"column:security_code;type:varchar(16);primaryKey" json:"security_code"`
	Quantity     int64           `gorm:"column:quantity;not null" json:"quantity"`
	AverageCost  decimal.Decimal `gorm:"column:average_cost;type:numeric(20,6);not null;default:0" json:"average_cost"`
	DisplayName  string          `gorm:"column:display_name" json:"display_name"`
}

func (Holding) TableName() string {
	return "holdings"
}
