package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wellness_wallet/internal/domain"
	"wellness_wallet/internal/store"
	"wellness_wallet/internal/wallet"
)

// Confirmation is the callback payload the external gateway delivers.
type Confirmation struct {
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	UserID    uint   `json:"user_id" binding:"required"`
}

// Adapter turns verified gateway callbacks and credit-funded purchases into
// the single bundle entitlement. Both paths set HasPaidBundle exactly once.
type Adapter struct {
	store      *store.Store
	wallets    *wallet.Service
	secret     string
	bundleCost int64
}

func NewAdapter(st *store.Store, ws *wallet.Service, secret string, bundleCost int64) *Adapter {
	return &Adapter{store: st, wallets: ws, secret: secret, bundleCost: bundleCost}
}

// Confirm processes a cash-payment callback. The signature is checked before
// anything touches the store; a forged or tampered message never reaches the
// transaction. Replays of an already-granted payment are a no-op success so
// gateway retries stay harmless.
func (a *Adapter) Confirm(ctx context.Context, msg Confirmation) error {
	if !VerifySignature(a.secret, msg.OrderID, msg.PaymentID, msg.UserID, msg.Amount, msg.Signature) {
		return fmt.Errorf("%w: order %s", domain.ErrSignatureMismatch, msg.OrderID)
	}

	granted := false
	err := a.store.Atomically(ctx, func(tx *gorm.DB) error {
		u, err := lockUser(tx, msg.UserID)
		if err != nil {
			return err
		}
		if u.HasPaidBundle {
			return nil // Entitlement already granted; replay is a no-op
		}
		var w domain.Wallet
		if err := tx.Where("user_id = ?", u.ID).First(&w).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: wallet for user %d", domain.ErrNotFound, u.ID)
			}
			return err
		}
		if err := tx.Model(&domain.User{}).Where("id = ?", u.ID).
			Update("has_paid_bundle", true).Error; err != nil {
			return err
		}
		if _, err := a.wallets.RecordCashPaymentTx(tx, w.ID, msg.Amount, msg.OrderID); err != nil {
			return err
		}
		granted = true
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    msg.UserID,
		"order_id":   msg.OrderID,
		"payment_id": msg.PaymentID,
		"amount":     msg.Amount,
		"granted":    granted,
	}).Info("Cash payment confirmed")
	return nil
}

// PurchaseWithCredits buys the bundle from the user's credit balance. The
// debit rejects on insufficient funds, unlike admin removals which clamp.
// Debit and entitlement flag commit together.
func (a *Adapter) PurchaseWithCredits(ctx context.Context, userID uint) (int64, error) {
	var newBalance int64
	err := a.store.Atomically(ctx, func(tx *gorm.DB) error {
		u, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		if u.HasPaidBundle {
			return fmt.Errorf("%w: user %d", domain.ErrAlreadyEntitled, userID)
		}
		var w domain.Wallet
		if err := tx.Where("user_id = ?", u.ID).First(&w).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: wallet for user %d", domain.ErrNotFound, u.ID)
			}
			return err
		}
		balance, _, err := a.wallets.MutateBalanceTx(tx, w.ID, -a.bundleCost, wallet.RejectOnInsufficient, wallet.EntryMeta{
			Type:          domain.TxnBundlePurchase,
			ModeOfPayment: domain.ModeCredits,
			Remark:        "bundle purchase",
		})
		if err != nil {
			return err
		}
		if err := tx.Model(&domain.User{}).Where("id = ?", u.ID).
			Update("has_paid_bundle", true).Error; err != nil {
			return err
		}
		newBalance = balance
		return nil
	})
	if err != nil {
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"cost":    a.bundleCost,
		"balance": newBalance,
	}).Info("Bundle purchased with credits")
	return newBalance, nil
}

// lockUser fetches the user row under a write lock so the entitlement check
// and the flag write cannot interleave with a concurrent grant. SQLite has
// no SELECT ... FOR UPDATE; its single-writer transactions serialize instead.
func lockUser(tx *gorm.DB, userID uint) (*domain.User, error) {
	q := tx
	if tx.Dialector.Name() == "mysql" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var u domain.User
	err := q.First(&u, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user %d", domain.ErrNotFound, userID)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
