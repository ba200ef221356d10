package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditActionDeposit          AuditAction = "deposit"
	AuditActionWithdrawal       AuditAction = "withdrawal"
	AuditActionBuyGold          AuditAction = "buy_gold"
	AuditActionSellGold         AuditAction = "sell_gold"
	AuditActionDelivery         AuditAction = "physical_delivery"
	AuditActionKYCSubmit        AuditAction = "kyc_submit"
	AuditActionKYCApprove       AuditAction = "kyc_approve"
	AuditActionKYCReject        AuditAction = "kyc_reject"
	AuditActionWalletFreeze     AuditAction = "wallet_freeze"
	AuditActionWalletUnfreeze   AuditAction = "wallet_unfreeze"
	AuditActionTxCancel         AuditAction = "transaction_cancel"
	AuditActionTxRefund         AuditAction = "transaction_refund"
	AuditActionSettingsChange   AuditAction = "settings_change"
	AuditActionStatusTransition AuditAction = "status_transition"
)

type AuditCategory string

const (
	AuditCategoryWallet     AuditCategory = "wallet"
	AuditCategoryCompliance AuditCategory = "compliance"
	AuditCategoryAdmin      AuditCategory = "admin"
	AuditCategorySettings   AuditCategory = "settings"
)

// AuditLog is an append-only record of a privileged action. Entries
// are never mutated or deleted; unlike user-facing errors they retain
// the full error code and message for investigation.
type AuditLog struct {
	ID           uuid.UUID              `json:"id" db:"id"`
	ActorID      uuid.UUID              `json:"actor_id" db:"actor_id"`
	ActorRole    string                 `json:"actor_role" db:"actor_role"`
	Action       AuditAction            `json:"action" db:"action"`
	Category     AuditCategory          `json:"category" db:"category"`
	Description  string                 `json:"description" db:"description"`
	ResourceType string                 `json:"resource_type" db:"resource_type"`
	ResourceID   *uuid.UUID             `json:"resource_id,omitempty" db:"resource_id"`
	Before       map[string]interface{} `json:"before,omitempty" db:"before"`
	After        map[string]interface{} `json:"after,omitempty" db:"after"`
	IPAddress    string                 `json:"ip_address" db:"ip_address"`
	UserAgent    string                 `json:"user_agent" db:"user_agent"`
	Status       string                 `json:"status" db:"status"`
	ErrorDetail  *string                `json:"error_detail,omitempty" db:"error_detail"`
	PreviousHash string                 `json:"previous_hash" db:"previous_hash"`
	CurrentHash  string                 `json:"current_hash" db:"current_hash"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at"`
}

// CalculateHash computes the integrity hash over the immutable fields
// and the previous entry's hash, chaining the log.
func (a *AuditLog) CalculateHash() string {
	payload := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%d|%s",
		a.ID.String(),
		a.ActorID.String(),
		a.Action,
		a.Category,
		a.ResourceType,
		a.Status,
		a.CreatedAt.UnixNano(),
		a.PreviousHash,
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// SetIntegrityFields links this entry to the previous one
func (a *AuditLog) SetIntegrityFields(previousHash string) {
	a.PreviousHash = previousHash
	a.CurrentHash = a.CalculateHash()
}

// ErrorResponse is the API error envelope. Internal fields (raw ids,
// stack traces) never appear here.
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
