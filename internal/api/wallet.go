package api

import (
	"context"                         // Context for Redis operations
	"net/http"                        // HTTP status codes
	"strconv"                         // String conversion
	"time"                            // Time durations
	"wellness_wallet/internal/domain" // Importing domain models
	"wellness_wallet/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// WalletResponse is the read model for the authenticated user's wallet.
type WalletResponse struct {
	WalletID      uint       `json:"wallet_id"`
	Balance       int64      `json:"balance"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	HasPaidBundle bool       `json:"has_paid_bundle"`
}

// GetWalletHandler returns balance, expiry and entitlement for the
// authenticated user, cached for 60 seconds.
func GetWalletHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := context.Background()
		cacheKey := "wallet:user:" + strconv.Itoa(int(userID.(uint)))
		var resp WalletResponse
		found, err := utils.GetCache(ctx, rdb, cacheKey, &resp)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"wallet": resp, "cached": true})
			return
		}
		var user domain.User
		if err := db.Preload("Wallet").First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		resp = WalletResponse{
			WalletID:      user.Wallet.ID,
			Balance:       user.Wallet.Balance,
			ExpiryDate:    user.Wallet.ExpiryDate,
			HasPaidBundle: user.HasPaidBundle,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, gin.H{"wallet": resp, "cached": false})
	}
}

// GetLedgerHistoryHandler returns the authenticated user's ledger entries,
// newest first, paginated and cached the same way the wallet read is.
func GetLedgerHistoryHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		page := 1      // Default page
		pageSize := 20 // Default page size
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v
			}
		}
		if ps := c.Query("page_size"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v
			}
		}
		offset := (page - 1) * pageSize
		cacheKey := "ledger:user:" + strconv.Itoa(int(userID.(uint))) + ":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
		ctx := context.Background()
		var cached struct {
			Entries    []domain.LedgerEntry `json:"entries"`
			Page       int                  `json:"page"`
			PageSize   int                  `json:"page_size"`
			Total      int64                `json:"total"`
			TotalPages int                  `json:"total_pages"`
		}
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"entries":     cached.Entries,
				"page":        cached.Page,
				"page_size":   cached.PageSize,
				"total":       cached.Total,
				"total_pages": cached.TotalPages,
				"cached":      true,
			})
			return
		}
		var total int64
		if err := db.Model(&domain.LedgerEntry{}).
			Where("owner_id = ?", userID).
			Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count ledger entries"})
			return
		}
		var entries []domain.LedgerEntry
		if err := db.Where("owner_id = ?", userID).
			Order("created_at desc").
			Offset(offset).
			Limit(pageSize).
			Find(&entries).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch ledger entries"})
			return
		}
		totalPages := (int(total) + pageSize - 1) / pageSize
		resp := gin.H{
			"entries":     entries,
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages,
			"cached":      false,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp)
	}
}

// invalidateWalletCache drops the wallet read cache and the first ledger
// pages for a user after a mutation (simple version: delete first 5 pages).
func invalidateWalletCache(c *gin.Context, userID uint) {
	rdb, ok := c.MustGet("redisClient").(*redis.Client)
	if !ok {
		return
	}
	ctx := context.Background()
	uid := strconv.Itoa(int(userID))
	_ = utils.DeleteCache(ctx, rdb, "wallet:user:"+uid)
	for i := 1; i <= 5; i++ {
		_ = utils.DeleteCache(ctx, rdb, "ledger:user:"+uid+":page:"+strconv.Itoa(i)+":size:20")
	}
}
