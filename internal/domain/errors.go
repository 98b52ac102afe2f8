package domain

import "errors"

// Rejection kinds surfaced by the wallet, voucher and payment services.
// Callers branch with errors.Is; ErrTxAborted is the only retryable kind,
// everything else is a definitive business-rule rejection.
var (
	ErrValidation        = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrExpired           = errors.New("voucher expired")
	ErrAlreadyRedeemed   = errors.New("voucher already redeemed")
	ErrAlreadyEntitled   = errors.New("bundle already purchased")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSignatureMismatch = errors.New("payment signature mismatch")
	ErrForbidden         = errors.New("operation not permitted for role")
	ErrTxAborted         = errors.New("store transaction aborted")
)
