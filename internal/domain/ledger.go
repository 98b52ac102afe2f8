package domain

// Transaction types recorded on ledger entries
const (
	TxnCredit         = "CREDIT"          // Voucher or admin credit
	TxnBundlePurchase = "BUNDLE_PURCHASE" // Paid bundle, credit- or cash-funded
	TxnAdjustment     = "ADJUSTMENT"      // Admin adjustment
	TxnExpiryZeroed   = "EXPIRY_ZEROED"   // Sweep zeroing of an expired wallet
)

// Modes of payment recorded on ledger entries
const (
	ModeCredits = "Credits"
	ModeCash    = "Cash"
)

// LedgerEntry is the append-only record of one balance-affecting event.
// Rows are never updated or deleted: replaying all entries of a wallet in
// order, applying +Amount for credits and -Amount for debits, reproduces the
// wallet's current balance.
type LedgerEntry struct {
	ID              uint    `gorm:"primaryKey"`           // Primary key
	WalletID        uint    `gorm:"index;not null"`       // Wallet this entry belongs to
	OwnerID         uint    `gorm:"index;not null"`       // Owning user, denormalised for history queries
	Amount          int64   `gorm:"not null"`             // Positive magnitude of the event
	IsCredit        bool    `gorm:"not null"`             // Direction of the event
	Type            string  `gorm:"not null"`             // One of the Txn* constants
	ModeOfPayment   string  `gorm:"not null"`             // Credits or Cash
	BalanceAfterTxn int64   `gorm:"not null"`             // Balance snapshot after applying the event
	RelatedOrderID  *string // External order reference, if any
	Remark          string  // Free-form note, e.g. admin reason
	CreatedAt       int64   `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
}
