package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Signature computes the hex HMAC-SHA256 the gateway is expected to send,
// over "orderID|paymentID|userID|amount". Every field that affects state is
// part of the MAC input, so tampering with any of them invalidates the
// signature.
func Signature(secret, orderID, paymentID string, userID uint, amount int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID + "|" +
		strconv.FormatUint(uint64(userID), 10) + "|" +
		strconv.FormatInt(amount, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the signature and compares it in constant time.
// This is the only trust boundary for payment callbacks, so it runs before
// any transactional work.
func VerifySignature(secret, orderID, paymentID string, userID uint, amount int64, supplied string) bool {
	expected := Signature(secret, orderID, paymentID, userID, amount)
	return hmac.Equal([]byte(expected), []byte(supplied))
}
