package main

import (
	"context"

	"wellness_wallet/internal/config" // Configuration
	"wellness_wallet/internal/store"  // Unit-of-work store
	"wellness_wallet/internal/sweep"  // Expiry sweep
	"wellness_wallet/internal/wallet" // Wallet service

	"github.com/robfig/cron/v3"  // Cron scheduler
	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/gorm"               // GORM ORM library
)

// Runs the expiry sweep on a schedule. The sweep is idempotent, so an
// overlapping or repeated run is harmless.
func main() {
	cfg := config.LoadConfig()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}

	st := store.New(db)
	sweeper := sweep.NewSweeper(st, wallet.NewService(st))

	c := cron.New()
	_, err = c.AddFunc(cfg.SweepCron, func() {
		if _, err := sweeper.Run(context.Background()); err != nil {
			logrus.Errorf("expiry sweep failed: %v", err)
		}
	})
	if err != nil {
		logrus.Fatalf("invalid SWEEP_CRON: %v", err)
	}

	logrus.Infof("Expiry sweeper running on schedule %q", cfg.SweepCron)
	c.Run()
}
