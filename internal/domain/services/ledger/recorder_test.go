package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurum-service/aurum_service/internal/domain/entities"
)

func validDraft() Draft {
	return Draft{
		UserID:   uuid.New(),
		WalletID: uuid.New(),
		Type:     entities.TxTypeWithdrawal,
		Amount:   decimal.NewFromInt(100),
		Currency: "USD",
		Fee:      decimal.NewFromInt(1),
	}
}

func TestCreateBuildsPendingRecord(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	d := validDraft()

	tx := Create(d, now)

	assert.Equal(t, entities.TxStatusPending, tx.Status)
	assert.True(t, tx.NetAmount.Equal(decimal.NewFromInt(99)))
	require.Len(t, tx.History, 1)
	assert.Equal(t, entities.TxStatusPending, tx.History[0].To)
	assert.Equal(t, now, tx.CreatedAt)
	assert.Nil(t, tx.CompletedAt)
}

func TestTransitionAppendsHistoryAndStampsTimestamp(t *testing.T) {
	now := time.Now().UTC()
	tx := Create(validDraft(), now)

	later := now.Add(time.Minute)
	require.NoError(t, Transition(tx, entities.TxStatusCompleted, "paid out", later))

	assert.Equal(t, entities.TxStatusCompleted, tx.Status)
	require.Len(t, tx.History, 2)
	assert.Equal(t, entities.TxStatusPending, tx.History[1].From)
	assert.Equal(t, entities.TxStatusCompleted, tx.History[1].To)
	assert.Equal(t, "paid out", tx.History[1].Note)
	require.NotNil(t, tx.CompletedAt)
	assert.Equal(t, later, *tx.CompletedAt)
}

func TestTransitionOffTerminalRejected(t *testing.T) {
	now := time.Now().UTC()
	tx := Create(validDraft(), now)
	require.NoError(t, Transition(tx, entities.TxStatusCancelled, "", now))

	err := Transition(tx, entities.TxStatusCompleted, "", now)
	require.ErrorIs(t, err, entities.ErrInvalidState)
	assert.Len(t, tx.History, 2)
	assert.Equal(t, entities.TxStatusCancelled, tx.Status)
}

func TestFailRecordsErrorDetail(t *testing.T) {
	now := time.Now().UTC()
	tx := Create(validDraft(), now)

	require.NoError(t, Fail(tx, "PAYOUT_REJECTED", "bank rejected the transfer", now))

	assert.Equal(t, entities.TxStatusFailed, tx.Status)
	require.NotNil(t, tx.ErrorCode)
	assert.Equal(t, "PAYOUT_REJECTED", *tx.ErrorCode)
	require.NotNil(t, tx.FailedAt)
}

func TestDraftValidate(t *testing.T) {
	d := validDraft()
	require.NoError(t, d.Validate())

	missing := d
	missing.WalletID = uuid.Nil
	assert.ErrorIs(t, missing.Validate(), entities.ErrValidation)

	negative := d
	negative.Amount = decimal.NewFromInt(-1)
	assert.ErrorIs(t, negative.Validate(), entities.ErrValidation)

	feeTooBig := d
	feeTooBig.Fee = decimal.NewFromInt(101)
	assert.ErrorIs(t, feeTooBig.Validate(), entities.ErrValidation)
}
