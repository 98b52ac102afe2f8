package domain

import "time"

// Voucher is an admin-issued code redeemable once per account for a fixed
// credit amount. Immutable after creation except Description.
type Voucher struct {
	ID          uint      `gorm:"primaryKey"`      // Primary key
	Code        string    `gorm:"unique;not null"` // Redemption code
	Credits     int64     `gorm:"not null"`        // Credits granted on redemption
	ExpiryDate  time.Time `gorm:"not null"`        // Voucher is invalid past this instant
	CompanyID   *uint     // Restricts redemption to one company when set
	Description string    // Soft field, editable
	CreatedAt   int64     `gorm:"autoCreateTime:milli"`
}

// VoucherRedemption marks that a user has redeemed a voucher. The composite
// unique index is the concurrency gate: the insert either succeeds once or
// fails with a duplicate-key error, so two racing redemptions can never both
// pass. Rows are insert-only.
type VoucherRedemption struct {
	ID        uint  `gorm:"primaryKey"`
	UserID    uint  `gorm:"uniqueIndex:idx_user_voucher;not null"`
	VoucherID uint  `gorm:"uniqueIndex:idx_user_voucher;not null"`
	CreatedAt int64 `gorm:"autoCreateTime:milli"`
}
