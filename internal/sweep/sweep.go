package sweep

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"wellness_wallet/internal/domain"
	"wellness_wallet/internal/store"
	"wellness_wallet/internal/wallet"
)

// Sweeper zeroes wallets whose credits have passed their expiry date. Each
// wallet is handled in its own transaction under the row lock, so a credit
// racing with the sweep lands either before the zeroing (and is wiped) or
// after it (and survives) — never half of both.
type Sweeper struct {
	store   *store.Store
	wallets *wallet.Service
}

func NewSweeper(st *store.Store, ws *wallet.Service) *Sweeper {
	return &Sweeper{store: st, wallets: ws}
}

// Run performs one sweep. Re-running is a no-op for wallets already at zero.
// Returns the number of wallets zeroed.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	var ids []uint
	err := s.store.DB().WithContext(ctx).Model(&domain.Wallet{}).
		Where("expiry_date IS NOT NULL AND expiry_date < ? AND balance > 0", time.Now()).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, id := range ids {
		err := s.store.Atomically(ctx, func(tx *gorm.DB) error {
			// Balance is re-read under lock; a wallet drained since the
			// candidate query is skipped.
			return s.wallets.ZeroExpiredTx(tx, id)
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"wallet_id": id,
				"error":     err.Error(),
			}).Error("Expiry sweep failed for wallet")
			continue
		}
		swept++
	}

	if swept > 0 {
		logrus.WithFields(logrus.Fields{"swept": swept}).Info("Expiry sweep completed")
	}
	return swept, nil
}
