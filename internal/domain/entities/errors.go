package entities

import "errors"

// Business errors surfaced by the wallet service. These are expected
// outcomes: handlers map them to structured rejections, they never
// indicate partial state mutation.
var (
	ErrValidation          = errors.New("invalid request")
	ErrLimitExceeded       = errors.New("limit exceeded")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientGold    = errors.New("insufficient gold balance")
	ErrInvalidState        = errors.New("invalid state")
	ErrWalletFrozen        = errors.New("wallet is frozen")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrKYCRequired         = errors.New("identity verification required")
	ErrKYCNotFound         = errors.New("kyc record not found")
	ErrDuplicateReference  = errors.New("duplicate reference key")
)

// IsBusinessError reports whether err belongs to the expected
// business-outcome taxonomy, as opposed to a persistence failure.
func IsBusinessError(err error) bool {
	for _, target := range []error{
		ErrValidation,
		ErrLimitExceeded,
		ErrInsufficientBalance,
		ErrInsufficientGold,
		ErrInvalidState,
		ErrWalletFrozen,
		ErrKYCRequired,
		ErrDuplicateReference,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
