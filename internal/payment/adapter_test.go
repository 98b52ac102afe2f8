package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"wellness_wallet/internal/dbtest"
	"wellness_wallet/internal/domain"
	"wellness_wallet/internal/store"
	"wellness_wallet/internal/wallet"
)

const testSecret = "gateway-shared-secret"

func newAdapter(t *testing.T, bundleCost int64) (*Adapter, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	st := store.New(db)
	return NewAdapter(st, wallet.NewService(st), testSecret, bundleCost), db
}

func signedConfirmation(userID uint, orderID, paymentID string, amount int64) Confirmation {
	return Confirmation{
		OrderID:   orderID,
		PaymentID: paymentID,
		Amount:    amount,
		UserID:    userID,
		Signature: Signature(testSecret, orderID, paymentID, userID, amount),
	}
}

func TestVerifySignature(t *testing.T) {
	sig := Signature(testSecret, "ord-1", "pay-1", 7, 499)
	assert.True(t, VerifySignature(testSecret, "ord-1", "pay-1", 7, 499, sig))
	assert.False(t, VerifySignature(testSecret, "ord-1", "pay-1", 7, 499, sig+"00"))
	assert.False(t, VerifySignature(testSecret, "ord-2", "pay-1", 7, 499, sig))
	assert.False(t, VerifySignature(testSecret, "ord-1", "pay-1", 8, 499, sig))
	assert.False(t, VerifySignature("wrong", "ord-1", "pay-1", 7, 499, sig))
}

func TestConfirmGrantsEntitlementOnce(t *testing.T) {
	adapter, db := newAdapter(t, 299)
	u := dbtest.SeedUser(t, db, "alice", 120)
	msg := signedConfirmation(u.ID, "ord-1", "pay-1", 499)

	require.NoError(t, adapter.Confirm(context.Background(), msg))

	var got domain.User
	require.NoError(t, db.First(&got, u.ID).Error)
	assert.True(t, got.HasPaidBundle)

	// Balance untouched: the bundle was paid in cash, the entry only records it.
	var w domain.Wallet
	require.NoError(t, db.First(&w, u.Wallet.ID).Error)
	assert.Equal(t, int64(120), w.Balance)

	var entries []domain.LedgerEntry
	require.NoError(t, db.Where("wallet_id = ?", u.Wallet.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ModeCash, entries[0].ModeOfPayment)
	assert.Equal(t, domain.TxnBundlePurchase, entries[0].Type)
	assert.Equal(t, int64(499), entries[0].Amount)
	require.NotNil(t, entries[0].RelatedOrderID)
	assert.Equal(t, "ord-1", *entries[0].RelatedOrderID)

	// Webhook retry: same message again is a no-op success, not a second
	// grant or a second ledger entry.
	require.NoError(t, adapter.Confirm(context.Background(), msg))
	var count int64
	require.NoError(t, db.Model(&domain.LedgerEntry{}).Where("wallet_id = ?", u.Wallet.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestConfirmRejectsTamperedAmount(t *testing.T) {
	adapter, db := newAdapter(t, 299)
	u := dbtest.SeedUser(t, db, "bob", 0)
	msg := signedConfirmation(u.ID, "ord-2", "pay-2", 499)
	msg.Amount = 1 // tampered after signing

	err := adapter.Confirm(context.Background(), msg)
	require.ErrorIs(t, err, domain.ErrSignatureMismatch)

	var got domain.User
	require.NoError(t, db.First(&got, u.ID).Error)
	assert.False(t, got.HasPaidBundle)
	var count int64
	require.NoError(t, db.Model(&domain.LedgerEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestConfirmRejectsRedirectedUser(t *testing.T) {
	adapter, db := newAdapter(t, 299)
	victim := dbtest.SeedUser(t, db, "victim", 0)
	attacker := dbtest.SeedUser(t, db, "attacker", 0)

	// A captured callback signed for one account must not grant the
	// entitlement to another.
	msg := signedConfirmation(victim.ID, "ord-5", "pay-5", 499)
	msg.UserID = attacker.ID

	err := adapter.Confirm(context.Background(), msg)
	require.ErrorIs(t, err, domain.ErrSignatureMismatch)

	var got domain.User
	require.NoError(t, db.First(&got, attacker.ID).Error)
	assert.False(t, got.HasPaidBundle)
	// Reset: gorm folds a populated primary key on the dest struct into the
	// WHERE clause, which would make this query id=victim AND id=attacker.
	got = domain.User{}
	require.NoError(t, db.First(&got, victim.ID).Error)
	assert.False(t, got.HasPaidBundle)
	var count int64
	require.NoError(t, db.Model(&domain.LedgerEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestConfirmUnknownUser(t *testing.T) {
	adapter, _ := newAdapter(t, 299)
	msg := signedConfirmation(9999, "ord-3", "pay-3", 499)
	err := adapter.Confirm(context.Background(), msg)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPurchaseWithCredits(t *testing.T) {
	adapter, db := newAdapter(t, 299)
	u := dbtest.SeedUser(t, db, "carol", 500)

	balance, err := adapter.PurchaseWithCredits(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(201), balance)

	var got domain.User
	require.NoError(t, db.First(&got, u.ID).Error)
	assert.True(t, got.HasPaidBundle)

	var entry domain.LedgerEntry
	require.NoError(t, db.Where("wallet_id = ?", u.Wallet.ID).First(&entry).Error)
	assert.False(t, entry.IsCredit)
	assert.Equal(t, int64(299), entry.Amount)
	assert.Equal(t, domain.ModeCredits, entry.ModeOfPayment)

	// Second purchase is a definitive rejection.
	_, err = adapter.PurchaseWithCredits(context.Background(), u.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyEntitled)
}

func TestPurchaseWithCreditsInsufficientFunds(t *testing.T) {
	adapter, db := newAdapter(t, 299)
	u := dbtest.SeedUser(t, db, "dave", 200)

	_, err := adapter.PurchaseWithCredits(context.Background(), u.ID)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// Nothing partial: flag unset, balance unchanged, no ledger entry.
	var got domain.User
	require.NoError(t, db.First(&got, u.ID).Error)
	assert.False(t, got.HasPaidBundle)
	var w domain.Wallet
	require.NoError(t, db.First(&w, u.Wallet.ID).Error)
	assert.Equal(t, int64(200), w.Balance)
	var count int64
	require.NoError(t, db.Model(&domain.LedgerEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}
