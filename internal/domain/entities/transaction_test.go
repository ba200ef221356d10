package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    TransactionStatus
		to      TransactionStatus
		allowed bool
	}{
		{TxStatusPending, TxStatusProcessing, true},
		{TxStatusPending, TxStatusCompleted, true},
		{TxStatusPending, TxStatusFailed, true},
		{TxStatusPending, TxStatusCancelled, true},
		{TxStatusPending, TxStatusRefunded, false},
		{TxStatusProcessing, TxStatusCompleted, true},
		{TxStatusProcessing, TxStatusRefunded, true},
		{TxStatusProcessing, TxStatusPending, false},
		{TxStatusCompleted, TxStatusRefunded, false},
		{TxStatusFailed, TxStatusPending, false},
		{TxStatusCancelled, TxStatusProcessing, false},
		{TxStatusRefunded, TxStatusCompleted, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestValidateTransitionTerminal(t *testing.T) {
	for _, s := range []TransactionStatus{TxStatusCompleted, TxStatusFailed, TxStatusCancelled, TxStatusRefunded} {
		require.True(t, s.IsTerminal())
		err := s.ValidateTransition(TxStatusProcessing)
		assert.ErrorIs(t, err, ErrInvalidState, string(s))
	}
}

func TestValidateTransitionUnknownStatus(t *testing.T) {
	err := TxStatusPending.ValidateTransition("shipped")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNonTerminalStatuses(t *testing.T) {
	assert.False(t, TxStatusPending.IsTerminal())
	assert.False(t, TxStatusProcessing.IsTerminal())
}

func TestOperationClassFromTransaction(t *testing.T) {
	tx := &Transaction{Type: TxTypeBuyGold}
	assert.Equal(t, OpBuyGold, tx.OperationClass())
}
