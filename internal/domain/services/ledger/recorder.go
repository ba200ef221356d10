// Package ledger creates transaction records and drives their status
// machine. The functions are pure: they take the current record and
// return the next state, leaving the single atomic persistence write
// to the orchestrator.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurum-service/aurum_service/internal/domain/entities"
)

// Draft describes a transaction to be recorded
type Draft struct {
	UserID         uuid.UUID
	WalletID       uuid.UUID
	Type           entities.TransactionType
	Amount         decimal.Decimal
	Currency       string
	Fee            decimal.Decimal
	GoldDetail     *entities.GoldTradeDetail
	PaymentDetail  *entities.PaymentDetail
	DeliveryDetail *entities.DeliveryDetail
	ReferenceKey   *string
	Description    string
}

// Create builds a pending transaction from the draft and appends the
// first status-history entry. NetAmount is always Amount - Fee.
func Create(d Draft, now time.Time) *entities.Transaction {
	return &entities.Transaction{
		ID:             uuid.New(),
		UserID:         d.UserID,
		WalletID:       d.WalletID,
		Type:           d.Type,
		Status:         entities.TxStatusPending,
		Amount:         d.Amount,
		Currency:       d.Currency,
		Fee:            d.Fee,
		NetAmount:      d.Amount.Sub(d.Fee),
		GoldDetail:     d.GoldDetail,
		PaymentDetail:  d.PaymentDetail,
		DeliveryDetail: d.DeliveryDetail,
		ReferenceKey:   d.ReferenceKey,
		Description:    d.Description,
		History: []entities.StatusChange{
			{To: entities.TxStatusPending, Note: "created", At: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the transaction to newStatus, appending to the
// history and stamping the matching terminal timestamp exactly once.
// Transitions off a terminal status are rejected: the history must
// reflect only genuine transitions.
func Transition(tx *entities.Transaction, newStatus entities.TransactionStatus, note string, now time.Time) error {
	if err := tx.Status.ValidateTransition(newStatus); err != nil {
		return err
	}

	tx.History = append(tx.History, entities.StatusChange{
		From: tx.Status,
		To:   newStatus,
		Note: note,
		At:   now,
	})
	tx.Status = newStatus
	tx.UpdatedAt = now

	switch newStatus {
	case entities.TxStatusCompleted:
		tx.CompletedAt = &now
	case entities.TxStatusFailed:
		tx.FailedAt = &now
	case entities.TxStatusCancelled:
		tx.CancelledAt = &now
	case entities.TxStatusRefunded:
		tx.RefundedAt = &now
	}

	return nil
}

// Fail transitions to failed and records the error code and message
// on the transaction for the audit trail.
func Fail(tx *entities.Transaction, code, message string, now time.Time) error {
	if err := Transition(tx, entities.TxStatusFailed, message, now); err != nil {
		return err
	}
	tx.ErrorCode = &code
	tx.ErrorMessage = &message
	return nil
}

// Validate checks draft consistency before any state is touched
func (d Draft) Validate() error {
	if d.UserID == uuid.Nil || d.WalletID == uuid.Nil {
		return fmt.Errorf("%w: missing user or wallet id", entities.ErrValidation)
	}
	if d.Amount.Sign() < 0 || d.Fee.Sign() < 0 {
		return fmt.Errorf("%w: negative amount or fee", entities.ErrValidation)
	}
	if d.Fee.GreaterThan(d.Amount) {
		return fmt.Errorf("%w: fee exceeds amount", entities.ErrValidation)
	}
	return nil
}
