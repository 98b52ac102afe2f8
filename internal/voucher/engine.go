package voucher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"wellness_wallet/internal/domain"
	"wellness_wallet/internal/store"
	"wellness_wallet/internal/wallet"
)

// Engine validates voucher codes and turns each valid redemption into exactly
// one wallet credit. The redemption marker insert is the concurrency gate:
// its unique (user, voucher) index decides the winner when requests race, and
// marker plus credit commit in a single transaction.
type Engine struct {
	store   *store.Store
	wallets *wallet.Service
}

func NewEngine(st *store.Store, ws *wallet.Service) *Engine {
	return &Engine{store: st, wallets: ws}
}

// Redeem applies voucher code to userID's wallet. A (user, voucher) pair
// moves from unredeemed to redeemed at most once; the redeemed state is
// terminal.
func (e *Engine) Redeem(ctx context.Context, userID uint, code string) (int64, error) {
	if strings.TrimSpace(code) == "" {
		return 0, fmt.Errorf("%w: empty voucher code", domain.ErrValidation)
	}

	var v domain.Voucher
	if err := e.store.DB().WithContext(ctx).Where("code = ?", code).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: voucher %q", domain.ErrNotFound, code)
		}
		return 0, err
	}
	if v.ExpiryDate.Before(time.Now()) {
		return 0, fmt.Errorf("%w: voucher %q", domain.ErrExpired, code)
	}

	var u domain.User
	if err := e.store.DB().WithContext(ctx).First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: user %d", domain.ErrNotFound, userID)
		}
		return 0, err
	}
	if v.CompanyID != nil && (u.CompanyID == nil || *u.CompanyID != *v.CompanyID) {
		return 0, fmt.Errorf("%w: voucher restricted to another company", domain.ErrForbidden)
	}

	var newBalance int64
	err := e.store.Atomically(ctx, func(tx *gorm.DB) error {
		// Check-by-insert: the unique index rejects the second of two racing
		// attempts, which a prior existence check could not.
		marker := domain.VoucherRedemption{UserID: userID, VoucherID: v.ID}
		if err := tx.Create(&marker).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: voucher %q", domain.ErrAlreadyRedeemed, code)
			}
			return err
		}

		var w domain.Wallet
		if err := tx.Where("user_id = ?", userID).First(&w).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: wallet for user %d", domain.ErrNotFound, userID)
			}
			return err
		}
		balance, _, err := e.wallets.MutateBalanceTx(tx, w.ID, v.Credits, wallet.ClampAtZero, wallet.EntryMeta{
			Type:          domain.TxnCredit,
			ModeOfPayment: domain.ModeCredits,
			Remark:        "voucher " + code,
		})
		if err != nil {
			return err
		}
		newBalance = balance
		return nil
	})
	if err != nil {
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"voucher_id": v.ID,
		"credits":    v.Credits,
		"balance":    newBalance,
	}).Info("Voucher redeemed")
	return newBalance, nil
}

// Redeemed reports whether userID has already redeemed the voucher.
func (e *Engine) Redeemed(ctx context.Context, userID, voucherID uint) (bool, error) {
	var count int64
	err := e.store.DB().WithContext(ctx).Model(&domain.VoucherRedemption{}).
		Where("user_id = ? AND voucher_id = ?", userID, voucherID).
		Count(&count).Error
	return count > 0, err
}

// Create issues a new voucher. When code is empty a code is generated from a
// random UUID. Admin-only at the API layer.
func (e *Engine) Create(ctx context.Context, code string, credits int64, expiry time.Time, companyID *uint, description string) (*domain.Voucher, error) {
	if credits <= 0 {
		return nil, fmt.Errorf("%w: credits must be positive", domain.ErrValidation)
	}
	if code == "" {
		code = "WV-" + strings.ToUpper(uuid.NewString()[:8])
	}
	v := domain.Voucher{
		Code:        code,
		Credits:     credits,
		ExpiryDate:  expiry,
		CompanyID:   companyID,
		Description: description,
	}
	if err := e.store.DB().WithContext(ctx).Create(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: voucher code already exists", domain.ErrValidation)
		}
		return nil, err
	}
	return &v, nil
}
