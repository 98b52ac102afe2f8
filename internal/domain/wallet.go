package domain

import "time"

// Wallet Model. Balance is an integer number of credit units and is never
// negative; mutations go through the wallet service only.
type Wallet struct {
	ID         uint       `gorm:"primaryKey"`         // Primary key
	UserID     uint       `gorm:"uniqueIndex"`        // Foreign key to User
	Balance    int64      `gorm:"not null;default:0"` // Credit balance
	ExpiryDate *time.Time // Credits past this date are zeroed by the sweep
}
