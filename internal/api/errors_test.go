package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"wellness_wallet/internal/domain"
)

func TestRespondErrorStatusPerKind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrValidation, http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrExpired, http.StatusGone},
		{domain.ErrAlreadyRedeemed, http.StatusConflict},
		{domain.ErrAlreadyEntitled, http.StatusConflict},
		{domain.ErrInsufficientFunds, http.StatusPaymentRequired},
		{domain.ErrSignatureMismatch, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrTxAborted, http.StatusServiceUnavailable},
		{fmt.Errorf("wrapped: %w", domain.ErrInsufficientFunds), http.StatusPaymentRequired},
		{fmt.Errorf("unknown"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tc.err)
		assert.Equal(t, tc.status, w.Code, "error %v", tc.err)
	}
}
