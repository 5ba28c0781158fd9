package models

import "gorm.io/gorm"

// Withdrawal records a release of output-asset balance to the token recipient.
type Withdrawal struct {
	gorm.Model
	Amount    string `json:"amount" gorm:"not null"`
	Recipient string `json:"recipient" gorm:"index"`
	Timestamp int64  `json:"timestamp"`
}
