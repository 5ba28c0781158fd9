package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Settlement records a completed swap through the exchange venue.
// AmountOut is net of the swap fee. Price is the realized execution
// price (output per input, decimal-adjusted) kept for audit queries.
type Settlement struct {
	gorm.Model
	AmountIn  string          `json:"amount_in" gorm:"not null"`
	AmountOut string          `json:"amount_out" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:TEXT"`
	Caller    string          `json:"caller" gorm:"index"`
	Timestamp int64           `json:"timestamp"`
}
