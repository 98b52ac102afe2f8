// Package dbtest provides the sqlite-backed store used by package tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"wellness_wallet/internal/domain"
)

// Open returns a migrated sqlite database in a per-test temp directory.
// _txlock=immediate makes every transaction take the write lock at BEGIN, so
// concurrent transactions serialize the way MySQL row locks serialize them;
// the busy timeout makes waiters queue instead of failing.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "wallet.db") + "?_busy_timeout=10000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = db.AutoMigrate(
		&domain.User{},
		&domain.Wallet{},
		&domain.LedgerEntry{},
		&domain.Voucher{},
		&domain.VoucherRedemption{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// SeedUser creates a user with a wallet holding the given balance and
// returns it with the wallet populated.
func SeedUser(t *testing.T, db *gorm.DB, username string, balance int64) *domain.User {
	t.Helper()
	u := domain.User{
		Username: username,
		Password: "x",
		Role:     domain.RoleEmployee,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	// Insert the wallet row explicitly: a zero-balance wallet is all zero
	// values and gorm skips zero-value associations on Create.
	w := domain.Wallet{UserID: u.ID, Balance: balance}
	if err := db.Create(&w).Error; err != nil {
		t.Fatalf("seed wallet for %s: %v", username, err)
	}
	u.Wallet = w
	return &u
}
