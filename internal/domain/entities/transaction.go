package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType mirrors the operation class that produced the record
type TransactionType string

const (
	TxTypeDeposit    TransactionType = "deposit"
	TxTypeWithdrawal TransactionType = "withdrawal"
	TxTypeBuyGold    TransactionType = "buy_gold"
	TxTypeSellGold   TransactionType = "sell_gold"
	TxTypeDelivery   TransactionType = "physical_delivery"
)

// TransactionStatus represents the status of a transaction
type TransactionStatus string

const (
	TxStatusPending    TransactionStatus = "pending"
	TxStatusProcessing TransactionStatus = "processing"
	TxStatusCompleted  TransactionStatus = "completed" // Terminal: success
	TxStatusFailed     TransactionStatus = "failed"    // Terminal: failed
	TxStatusCancelled  TransactionStatus = "cancelled" // Terminal: cancelled
	TxStatusRefunded   TransactionStatus = "refunded"  // Terminal: refunded
)

// ValidTransactionStatuses contains all valid transaction statuses
var ValidTransactionStatuses = map[TransactionStatus]bool{
	TxStatusPending:    true,
	TxStatusProcessing: true,
	TxStatusCompleted:  true,
	TxStatusFailed:     true,
	TxStatusCancelled:  true,
	TxStatusRefunded:   true,
}

// ValidTransactionTransitions defines allowed status transitions.
// Terminal statuses permit none.
var ValidTransactionTransitions = map[TransactionStatus][]TransactionStatus{
	TxStatusPending:    {TxStatusProcessing, TxStatusCompleted, TxStatusFailed, TxStatusCancelled},
	TxStatusProcessing: {TxStatusCompleted, TxStatusFailed, TxStatusCancelled, TxStatusRefunded},
	TxStatusCompleted:  {},
	TxStatusFailed:     {},
	TxStatusCancelled:  {},
	TxStatusRefunded:   {},
}

// IsValid checks if the status is valid
func (s TransactionStatus) IsValid() bool {
	return ValidTransactionStatuses[s]
}

// IsTerminal returns true if no further transition is permitted
func (s TransactionStatus) IsTerminal() bool {
	return s == TxStatusCompleted || s == TxStatusFailed ||
		s == TxStatusCancelled || s == TxStatusRefunded
}

// CanTransitionTo checks if transition to new status is allowed
func (s TransactionStatus) CanTransitionTo(newStatus TransactionStatus) bool {
	for _, allowed := range ValidTransactionTransitions[s] {
		if allowed == newStatus {
			return true
		}
	}
	return false
}

// ValidateTransition validates and returns error if transition is invalid
func (s TransactionStatus) ValidateTransition(newStatus TransactionStatus) error {
	if !newStatus.IsValid() {
		return fmt.Errorf("%w: unknown transaction status %q", ErrValidation, newStatus)
	}
	if s.IsTerminal() {
		return fmt.Errorf("%w: transaction already %s", ErrInvalidState, s)
	}
	if !s.CanTransitionTo(newStatus) {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidState, s, newStatus)
	}
	return nil
}

// StatusChange is one entry in a transaction's ordered status history
type StatusChange struct {
	From TransactionStatus `json:"from"`
	To   TransactionStatus `json:"to"`
	Note string            `json:"note,omitempty"`
	At   time.Time         `json:"at"`
}

// GoldTradeDetail carries the gold-specific payload of buy/sell and
// delivery transactions
type GoldTradeDetail struct {
	Grams        decimal.Decimal `json:"grams"`
	PricePerGram decimal.Decimal `json:"price_per_gram"`
}

// PaymentDetail carries the payment payload of deposit/withdrawal
// transactions
type PaymentDetail struct {
	Method    string `json:"method"`
	Reference string `json:"reference,omitempty"`
}

// DeliveryDetail carries the shipment payload of physical deliveries
type DeliveryDetail struct {
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

// Transaction is an immutable record of one wallet operation. The
// detail fields form a tagged union keyed on Type: exactly the payload
// for the operation is set, the rest stay nil. Records are retained
// forever.
type Transaction struct {
	ID             uuid.UUID         `json:"id"`
	UserID         uuid.UUID         `json:"user_id"`
	WalletID       uuid.UUID         `json:"wallet_id"`
	Type           TransactionType   `json:"type"`
	Status         TransactionStatus `json:"status"`
	Amount         decimal.Decimal   `json:"amount"`
	Currency       string            `json:"currency"`
	Fee            decimal.Decimal   `json:"fee"`
	NetAmount      decimal.Decimal   `json:"net_amount"`
	GoldDetail     *GoldTradeDetail  `json:"gold_detail,omitempty"`
	PaymentDetail  *PaymentDetail    `json:"payment_detail,omitempty"`
	DeliveryDetail *DeliveryDetail   `json:"delivery_detail,omitempty"`
	ReferenceKey   *string           `json:"reference_key,omitempty"`
	Description    string            `json:"description,omitempty"`
	ErrorCode      *string           `json:"error_code,omitempty"`
	ErrorMessage   *string           `json:"error_message,omitempty"`
	History        []StatusChange    `json:"history"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	FailedAt       *time.Time        `json:"failed_at,omitempty"`
	CancelledAt    *time.Time        `json:"cancelled_at,omitempty"`
	RefundedAt     *time.Time        `json:"refunded_at,omitempty"`
}

// OperationClass maps the transaction type back to its limit/fee class
func (t *Transaction) OperationClass() OperationClass {
	return OperationClass(t.Type)
}
