package api

import (
	"context"                         // Context for Redis operations
	"net/http"                        // HTTP status codes
	"strconv"                         // String conversion
	"strings"                         // String manipulation
	"time"                            // Time durations
	"wellness_wallet/internal/domain" // Importing domain models
	"wellness_wallet/internal/utils"  // Utility functions
	"wellness_wallet/internal/wallet" // Wallet service

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// AdjustRequest is the admin payload for a direct credit or debit
type AdjustRequest struct {
	WalletID  uint   `json:"wallet_id" binding:"required"`              // Target wallet
	Direction string `json:"direction" binding:"required,oneof=ADD REMOVE"` // ADD or REMOVE
	Amount    int64  `json:"amount" binding:"required,gt=0"`            // Positive amount
	Reason    string `json:"reason" binding:"required"`                 // Recorded as the ledger remark
}

// AdjustHandler applies a privileged adjustment. ADD credits
// unconditionally; REMOVE floors the balance at zero instead of failing,
// unlike user-initiated debits which reject on insufficient funds.
func AdjustHandler(db *gorm.DB, wallets *wallet.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AdjustRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		delta := req.Amount
		if req.Direction == "REMOVE" {
			delta = -req.Amount
		}
		newBalance, entryID, err := wallets.MutateBalance(c.Request.Context(), req.WalletID, delta, wallet.ClampAtZero, wallet.EntryMeta{
			Type:          domain.TxnAdjustment,
			ModeOfPayment: domain.ModeCredits,
			Remark:        req.Reason,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"wallet_id": req.WalletID,
			"direction": req.Direction,
			"amount":    req.Amount,
			"balance":   newBalance,
			"reason":    req.Reason,
		}).Info("Admin adjustment")
		// Invalidate the owner's cached reads
		var w domain.Wallet
		if err := db.First(&w, req.WalletID).Error; err == nil {
			invalidateWalletCache(c, w.UserID)
		}
		c.JSON(http.StatusOK, gin.H{"balance": newBalance, "ledger_entry_id": entryID})
	}
}

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID            uint          `json:"id"`              // User ID
	Username      string        `json:"username"`        // Username
	Role          string        `json:"role"`            // User role
	CompanyID     *uint         `json:"company_id"`      // Company scope
	HasPaidBundle bool          `json:"has_paid_bundle"` // Entitlement flag
	Wallet        domain.Wallet `json:"wallet"`          // Associated wallet
}

// ListUsersHandler returns all users with their wallet info
func ListUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		// Create a cache key based on pagination parameters
		cacheKey := "admin:users:page=" + c.DefaultQuery("page", "1") + ":size=" + c.DefaultQuery("page_size", "20")
		var cached struct {
			Users      []UserAdminResponse `json:"users"`
			Page       int                 `json:"page"`
			PageSize   int                 `json:"page_size"`
			Total      int64               `json:"total"`
			TotalPages int                 `json:"total_pages"`
		}
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"users":       cached.Users,
				"page":        cached.Page,
				"page_size":   cached.PageSize,
				"total":       cached.Total,
				"total_pages": cached.TotalPages,
				"cached":      true,
			})
			return
		}
		page := 1
		pageSize := 20
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
		var total int64
		if err := db.Model(&domain.User{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
			return
		}
		var users []domain.User
		if err := db.Preload("Wallet").Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
			return
		}
		totalPages := (int(total) + pageSize - 1) / pageSize
		resp := make([]UserAdminResponse, len(users))
		for i, u := range users {
			resp[i] = UserAdminResponse{
				ID:            u.ID,
				Username:      u.Username,
				Role:          u.Role,
				CompanyID:     u.CompanyID,
				HasPaidBundle: u.HasPaidBundle,
				Wallet:        u.Wallet,
			}
		}
		respData := gin.H{
			"users":       resp,
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages,
			"cached":      false,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData)
	}
}

// parseEpochMillis parses a ledger timestamp filter value.
func parseEpochMillis(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil && v >= 0
}

// ListLedgerHandler returns ledger entries across all accounts, with optional
// filtering by owner, type, or a created_at range in epoch milliseconds
func ListLedgerHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		// Build cache key from all query params
		var keyParts []string
		for _, k := range []string{"owner_id", "type", "from", "to", "page", "page_size"} {
			keyParts = append(keyParts, k+"="+c.DefaultQuery(k, ""))
		}
		cacheKey := "admin:ledger:" + strings.Join(keyParts, ":")
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
		page := 1
		pageSize := 20
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
		query := db.Model(&domain.LedgerEntry{})
		if ownerID := c.Query("owner_id"); ownerID != "" {
			query = query.Where("owner_id = ?", ownerID)
		}
		if txType := c.Query("type"); txType != "" {
			query = query.Where("type = ?", txType)
		}
		// created_at is stored as epoch milliseconds; the range filters take
		// the same unit.
		if from := c.Query("from"); from != "" {
			ms, ok := parseEpochMillis(from)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "from must be epoch milliseconds"})
				return
			}
			query = query.Where("created_at >= ?", ms)
		}
		if to := c.Query("to"); to != "" {
			ms, ok := parseEpochMillis(to)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "to must be epoch milliseconds"})
				return
			}
			query = query.Where("created_at <= ?", ms)
		}
		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count ledger entries"})
			return
		}
		var entries []domain.LedgerEntry
		if err := query.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&entries).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch ledger entries"})
			return
		}
		totalPages := (int(total) + pageSize - 1) / pageSize
		respData := gin.H{
			"entries":     entries,
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages,
			"cached":      false,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData)
	}
}
