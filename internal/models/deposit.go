package models

import "gorm.io/gorm"

// Deposit records an inbound input-asset transfer into custody.
// Amounts are decimal strings because they can exceed int64.
type Deposit struct {
	gorm.Model
	Amount    string `json:"amount" gorm:"not null"`
	NetAmount string `json:"net_amount" gorm:"not null"` // amount minus deposit fee
	Depositor string `json:"depositor" gorm:"index"`
	Timestamp int64  `json:"timestamp"`
}
