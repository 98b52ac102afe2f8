package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"wellness_wallet/internal/payment" // Payment adapter
	"wellness_wallet/internal/utils"   // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// PaymentWebhookHandler receives cash-payment confirmations from the external
// gateway. The route is unauthenticated: the HMAC signature inside the
// payload is the trust boundary, verified by the adapter before any write.
func PaymentWebhookHandler(adapter *payment.Adapter, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var msg payment.Confirmation
		if err := c.ShouldBindJSON(&msg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if err := adapter.Confirm(c.Request.Context(), msg); err != nil {
			respondError(c, err)
			return
		}
		// Drop the wallet read cache so the entitlement shows up immediately
		ctx := context.Background()
		_ = utils.DeleteCache(ctx, rdb, "wallet:user:"+strconv.Itoa(int(msg.UserID)))
		c.JSON(http.StatusOK, gin.H{"message": "Payment confirmed"})
	}
}

// PurchaseBundleHandler buys the paid bundle from the authenticated user's
// credit balance.
func PurchaseBundleHandler(adapter *payment.Adapter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		newBalance, err := adapter.PurchaseWithCredits(c.Request.Context(), userID.(uint))
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateWalletCache(c, userID.(uint))
		c.JSON(http.StatusOK, gin.H{"message": "Bundle purchased", "balance": newBalance})
	}
}
