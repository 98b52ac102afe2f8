package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wellness_wallet/internal/domain"
	"wellness_wallet/internal/store"
)

// Policy controls how a debit that would take the balance below zero is
// handled. User-initiated debits reject; admin removals and expiry zeroing
// clamp. The asymmetry is deliberate business policy.
type Policy int

const (
	RejectOnInsufficient Policy = iota
	ClampAtZero
)

// EntryMeta carries the ledger fields a caller supplies for one mutation.
type EntryMeta struct {
	Type           string  // One of the domain.Txn* constants
	ModeOfPayment  string  // domain.ModeCredits or domain.ModeCash
	RelatedOrderID *string // Optional external order reference
	Remark         string  // Optional note
}

// Service is the only component permitted to mutate a wallet balance. Every
// mutation locks the wallet row, writes the new balance and appends exactly
// one ledger entry inside the caller's transaction.
type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// MutateBalance applies delta in its own unit of work. See MutateBalanceTx.
func (s *Service) MutateBalance(ctx context.Context, walletID uint, delta int64, policy Policy, meta EntryMeta) (int64, uint, error) {
	var newBalance int64
	var entryID uint
	err := s.store.Atomically(ctx, func(tx *gorm.DB) error {
		var err error
		newBalance, entryID, err = s.MutateBalanceTx(tx, walletID, delta, policy, meta)
		return err
	})
	return newBalance, entryID, err
}

// MutateBalanceTx applies a signed delta to a wallet inside tx. The wallet
// row is locked for the remainder of the transaction, so concurrent mutations
// of the same wallet serialize at the store. Exactly one ledger entry is
// appended per call, carrying the resulting balance snapshot.
func (s *Service) MutateBalanceTx(tx *gorm.DB, walletID uint, delta int64, policy Policy, meta EntryMeta) (int64, uint, error) {
	if delta == 0 {
		return 0, 0, fmt.Errorf("%w: delta must be non-zero", domain.ErrValidation)
	}
	if meta.Type == "" || meta.ModeOfPayment == "" {
		return 0, 0, fmt.Errorf("%w: ledger metadata incomplete", domain.ErrValidation)
	}

	w, err := lockWallet(tx, walletID)
	if err != nil {
		return 0, 0, err
	}

	newBalance := w.Balance + delta
	if newBalance < 0 {
		if policy == RejectOnInsufficient {
			return 0, 0, fmt.Errorf("%w: balance %d, debit %d", domain.ErrInsufficientFunds, w.Balance, -delta)
		}
		newBalance = 0
	}

	if err := tx.Model(&domain.Wallet{}).Where("id = ?", walletID).
		Update("balance", newBalance).Error; err != nil {
		return 0, 0, err
	}

	amount := delta
	if amount < 0 {
		amount = -amount
	}
	entry := domain.LedgerEntry{
		WalletID:        w.ID,
		OwnerID:         w.UserID,
		Amount:          amount,
		IsCredit:        delta > 0,
		Type:            meta.Type,
		ModeOfPayment:   meta.ModeOfPayment,
		BalanceAfterTxn: newBalance,
		RelatedOrderID:  meta.RelatedOrderID,
		Remark:          meta.Remark,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return 0, 0, err
	}

	logrus.WithFields(logrus.Fields{
		"wallet_id": w.ID,
		"delta":     delta,
		"balance":   newBalance,
		"type":      meta.Type,
	}).Info("Balance mutated")
	return newBalance, entry.ID, nil
}

// RecordCashPaymentTx appends a cash-funded ledger entry without touching the
// balance. Used by the payment adapter when a bundle is paid outside the
// credit system; the snapshot records the balance as it stands.
func (s *Service) RecordCashPaymentTx(tx *gorm.DB, walletID uint, amount int64, orderID string) (uint, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	w, err := lockWallet(tx, walletID)
	if err != nil {
		return 0, err
	}
	entry := domain.LedgerEntry{
		WalletID:        w.ID,
		OwnerID:         w.UserID,
		Amount:          amount,
		IsCredit:        false,
		Type:            domain.TxnBundlePurchase,
		ModeOfPayment:   domain.ModeCash,
		BalanceAfterTxn: w.Balance,
		RelatedOrderID:  &orderID,
		Remark:          "cash payment confirmed",
	}
	if err := tx.Create(&entry).Error; err != nil {
		return 0, err
	}
	return entry.ID, nil
}

// ZeroExpiredTx zeroes a wallet's balance under lock, appending an
// EXPIRY_ZEROED entry so the ledger replay still matches the balance.
// A wallet already at zero is left untouched, which makes the sweep
// idempotent under re-execution.
func (s *Service) ZeroExpiredTx(tx *gorm.DB, walletID uint) error {
	w, err := lockWallet(tx, walletID)
	if err != nil {
		return err
	}
	if w.Balance == 0 {
		return nil
	}
	_, _, err = s.MutateBalanceTx(tx, walletID, -w.Balance, ClampAtZero, EntryMeta{
		Type:          domain.TxnExpiryZeroed,
		ModeOfPayment: domain.ModeCredits,
		Remark:        "credits expired",
	})
	return err
}

// lockWallet fetches the wallet row with a row-level write lock. SQLite has
// no SELECT ... FOR UPDATE; there the immediate transaction mode provides
// the same serialization.
func lockWallet(tx *gorm.DB, walletID uint) (*domain.Wallet, error) {
	q := tx
	if tx.Dialector.Name() == "mysql" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var w domain.Wallet
	err := q.Where("id = ?", walletID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: wallet %d", domain.ErrNotFound, walletID)
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}
