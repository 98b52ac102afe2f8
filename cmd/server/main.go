package main

import (
	"context"                           // context package is needed for Redis operations
	"log"                               // log package is needed for logging
	"wellness_wallet/internal/api"        // Custom package for API handlers
	"wellness_wallet/internal/config"     // Custom package for configuration
	"wellness_wallet/internal/domain"     // Domain models
	"wellness_wallet/internal/middleware" // Custom package for middleware
	"wellness_wallet/internal/payment"    // Payment confirmation adapter
	"wellness_wallet/internal/store"      // Unit-of-work store
	"wellness_wallet/internal/voucher"    // Voucher redemption engine
	"wellness_wallet/internal/wallet"     // Wallet service

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Connect to the database. TranslateError is required: the voucher
	// redemption gate relies on gorm.ErrDuplicatedKey.
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Wire the ledger core: the store owns atomicity, the wallet service is
	// the sole balance writer, engine and adapter sit in front of it.
	st := store.New(db)
	wallets := wallet.NewService(st)
	vouchers := voucher.NewEngine(st, wallets)
	payments := payment.NewAdapter(st, wallets, cfg.PaymentSecret, cfg.BundleCost)

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/user", api.RegisterHandler(db))            // Registration endpoint
	r.GET("/user", api.LoginHandler(db, cfg.JWTSecret)) // Login endpoint

	// Payment gateway webhook; signature-gated, not JWT-gated
	r.POST("/payments/confirm", api.PaymentWebhookHandler(payments, redisClient))

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet")
	// Protect wallet routes with JWT middleware and inject Redis client into context
	walletGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), func(c *gin.Context) {
		c.Set("redisClient", redisClient)
		c.Next()
	})
	walletGroup.GET("", api.GetWalletHandler(db, redisClient))              // Balance, expiry, entitlement
	walletGroup.GET("/ledger", api.GetLedgerHistoryHandler(db, redisClient)) // Ledger history endpoint
	walletGroup.POST("/redeem", api.RedeemHandler(vouchers))                // Voucher redemption endpoint
	walletGroup.POST("/purchase", api.PurchaseBundleHandler(payments))      // Credit-funded bundle purchase
	walletGroup.GET("/redemptions/:id", api.RedemptionStatusHandler(vouchers)) // Redemption status endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.RequireRole(db, domain.RoleAdmin), func(c *gin.Context) {
		c.Set("redisClient", redisClient)
		c.Next()
	})
	adminGroup.GET("/users", api.ListUsersHandler(db, redisClient))    // List users endpoint
	adminGroup.GET("/ledger", api.ListLedgerHandler(db, redisClient))  // Cross-account ledger endpoint
	adminGroup.POST("/adjust", api.AdjustHandler(db, wallets))         // Balance adjustment endpoint
	adminGroup.POST("/vouchers", api.CreateVoucherHandler(vouchers))   // Voucher creation endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
