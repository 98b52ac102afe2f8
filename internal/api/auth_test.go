package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellness_wallet/internal/dbtest"
	"wellness_wallet/internal/domain"
)

func TestRegisterCreatesWalletWithAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := dbtest.Open(t)

	r := gin.New()
	r.POST("/user", RegisterHandler(db))

	body := `{"username":"alice","password":"secretpass"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/user", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	// The account must never exist without its wallet row.
	var user domain.User
	require.NoError(t, db.Where("username = ?", "alice").First(&user).Error)
	var wallets int64
	require.NoError(t, db.Model(&domain.Wallet{}).Where("user_id = ?", user.ID).Count(&wallets).Error)
	assert.Equal(t, int64(1), wallets)

	var wal domain.Wallet
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&wal).Error)
	assert.Equal(t, int64(0), wal.Balance)
}

func TestRegisterDuplicateUsernameLeavesNoWallet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := dbtest.Open(t)

	r := gin.New()
	r.POST("/user", RegisterHandler(db))

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/user", strings.NewReader(`{"username":"bob","password":"secretpass"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}
	require.Equal(t, http.StatusCreated, send().Code)
	require.Equal(t, http.StatusBadRequest, send().Code)

	// The rejected registration rolled back; exactly one wallet exists.
	var wallets int64
	require.NoError(t, db.Model(&domain.Wallet{}).Count(&wallets).Error)
	assert.Equal(t, int64(1), wallets)
}
