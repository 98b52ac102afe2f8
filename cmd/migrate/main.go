package main

import (
	"wellness_wallet/internal/config" // Custom import path (Config)
	"wellness_wallet/internal/db"     // Custom import path (Database)
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	db.Migrate(cfg.DSN())
}
