package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"wellness_wallet/internal/dbtest"
	"wellness_wallet/internal/domain"
	"wellness_wallet/internal/store"
	"wellness_wallet/internal/wallet"
)

func newSweeper(t *testing.T) (*Sweeper, *wallet.Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	st := store.New(db)
	ws := wallet.NewService(st)
	return NewSweeper(st, ws), ws, db
}

func setExpiry(t *testing.T, db *gorm.DB, walletID uint, at time.Time) {
	t.Helper()
	require.NoError(t, db.Model(&domain.Wallet{}).Where("id = ?", walletID).
		Update("expiry_date", at).Error)
}

func ledgerSum(t *testing.T, db *gorm.DB, walletID uint) int64 {
	t.Helper()
	var entries []domain.LedgerEntry
	require.NoError(t, db.Where("wallet_id = ?", walletID).Find(&entries).Error)
	var sum int64
	for _, e := range entries {
		if e.IsCredit {
			sum += e.Amount
		} else {
			sum -= e.Amount
		}
	}
	return sum
}

func TestSweepZeroesExpiredWallets(t *testing.T) {
	sweeper, _, db := newSweeper(t)
	expired := dbtest.SeedUser(t, db, "alice", 400)
	fresh := dbtest.SeedUser(t, db, "bob", 300)
	setExpiry(t, db, expired.Wallet.ID, time.Now().Add(-time.Hour))
	setExpiry(t, db, fresh.Wallet.ID, time.Now().Add(time.Hour))

	swept, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	var w domain.Wallet
	require.NoError(t, db.First(&w, expired.Wallet.ID).Error)
	assert.Equal(t, int64(0), w.Balance)

	// The zeroing leaves an audit trail: one EXPIRY_ZEROED debit of the old
	// balance, keeping the ledger replay equal to the balance.
	var entry domain.LedgerEntry
	require.NoError(t, db.Where("wallet_id = ?", expired.Wallet.ID).First(&entry).Error)
	assert.Equal(t, domain.TxnExpiryZeroed, entry.Type)
	assert.False(t, entry.IsCredit)
	assert.Equal(t, int64(400), entry.Amount)
	assert.Equal(t, int64(0), entry.BalanceAfterTxn)

	var untouched domain.Wallet
	require.NoError(t, db.First(&untouched, fresh.Wallet.ID).Error)
	assert.Equal(t, int64(300), untouched.Balance)
}

func TestSweepIdempotent(t *testing.T) {
	sweeper, _, db := newSweeper(t)
	u := dbtest.SeedUser(t, db, "carol", 250)
	setExpiry(t, db, u.Wallet.ID, time.Now().Add(-time.Hour))

	swept, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	// Second run: already-zero wallet is not a candidate, no extra entry.
	swept, err = sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, swept)

	var count int64
	require.NoError(t, db.Model(&domain.LedgerEntry{}).Where("wallet_id = ?", u.Wallet.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSweepSkipsWalletsWithoutExpiry(t *testing.T) {
	sweeper, _, db := newSweeper(t)
	dbtest.SeedUser(t, db, "dave", 100)

	swept, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, swept)
}

func TestSweepRacingCreditStaysConsistent(t *testing.T) {
	sweeper, ws, db := newSweeper(t)
	u := dbtest.SeedUser(t, db, "erin", 0)
	// Fund through the service so the ledger replay covers the full history.
	_, _, err := ws.MutateBalance(context.Background(), u.Wallet.ID, 500, wallet.ClampAtZero, wallet.EntryMeta{
		Type: domain.TxnCredit, ModeOfPayment: domain.ModeCredits, Remark: "initial grant",
	})
	require.NoError(t, err)
	setExpiry(t, db, u.Wallet.ID, time.Now().Add(-time.Hour))

	// A credit races the sweep. Whichever order the store serializes them
	// in, the final balance must equal the ledger replay and be one of the
	// two sequential outcomes: credit-then-zero (0) or zero-then-credit
	// (the credit amount).
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := sweeper.Run(context.Background())
		require.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		for {
			_, _, err := ws.MutateBalance(context.Background(), u.Wallet.ID, 300, wallet.ClampAtZero, wallet.EntryMeta{
				Type: domain.TxnCredit, ModeOfPayment: domain.ModeCredits, Remark: "racing credit",
			})
			if !errors.Is(err, domain.ErrTxAborted) {
				require.NoError(t, err)
				return
			}
		}
	}()
	wg.Wait()

	var w domain.Wallet
	require.NoError(t, db.First(&w, u.Wallet.ID).Error)
	assert.Contains(t, []int64{0, 300}, w.Balance)
	assert.Equal(t, w.Balance, ledgerSum(t, db, u.Wallet.ID))
}
