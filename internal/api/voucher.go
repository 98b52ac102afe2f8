package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Expiry parsing

	"wellness_wallet/internal/voucher" // Redemption engine

	"github.com/gin-gonic/gin" // Gin web framework
)

// RedeemRequest carries the voucher code to redeem
type RedeemRequest struct {
	Code string `json:"code" binding:"required"` // Voucher code
}

// RedeemHandler redeems a voucher code for the authenticated user
func RedeemHandler(engine *voucher.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req RedeemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		newBalance, err := engine.Redeem(c.Request.Context(), userID.(uint), req.Code)
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateWalletCache(c, userID.(uint))
		c.JSON(http.StatusOK, gin.H{"message": "Voucher redeemed", "balance": newBalance})
	}
}

// RedemptionStatusHandler reports whether the authenticated user has redeemed
// the voucher identified in the path.
func RedemptionStatusHandler(engine *voucher.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		voucherID, err := strconv.Atoi(c.Param("id"))
		if err != nil || voucherID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid voucher id"})
			return
		}
		redeemed, err := engine.Redeemed(c.Request.Context(), userID.(uint), uint(voucherID))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"voucher_id": voucherID, "redeemed": redeemed})
	}
}

// CreateVoucherRequest is the admin payload for issuing a voucher
type CreateVoucherRequest struct {
	Code        string    `json:"code"`                            // Optional, generated when empty
	Credits     int64     `json:"credits" binding:"required,gt=0"` // Credits granted on redemption
	ExpiryDate  time.Time `json:"expiry_date" binding:"required"`  // RFC3339 expiry
	CompanyID   *uint     `json:"company_id"`                      // Optional company scope
	Description string    `json:"description"`                     // Soft field
}

// CreateVoucherHandler issues a new voucher (admin only, enforced in routing)
func CreateVoucherHandler(engine *voucher.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateVoucherRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		v, err := engine.Create(c.Request.Context(), req.Code, req.Credits, req.ExpiryDate, req.CompanyID, req.Description)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"voucher": v})
	}
}
