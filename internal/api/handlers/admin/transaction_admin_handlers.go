package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aurum-service/aurum_service/internal/api/handlers/common"
	"github.com/aurum-service/aurum_service/internal/domain/entities"
)

type statusNoteRequest struct {
	Note string `json:"note"`
}

// ConfirmDeposit settles a pending deposit and credits the wallet
func (h *Handlers) ConfirmDeposit(c *gin.Context) {
	admin := common.RequireAdminContext(c)
	if admin == nil {
		return
	}

	txID, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	tx, err := h.wallets.ConfirmDeposit(c.Request.Context(), txID)
	if common.HandleDomainError(c, err) {
		return
	}

	h.logTransition(c, admin, tx, "deposit confirmed")
	common.RespondSuccess(c, tx)
}

// CompleteTransaction marks a pending transaction as completed, e.g.
// a delivery that reached the customer or a withdrawal that paid out
func (h *Handlers) CompleteTransaction(c *gin.Context) {
	h.transition(c, func(c *gin.Context, txID uuid.UUID, note string) (*entities.Transaction, error) {
		return h.wallets.CompleteTransaction(c.Request.Context(), txID, note)
	})
}

// CancelTransaction cancels a pending transaction, reversing any
// balance effect it had
func (h *Handlers) CancelTransaction(c *gin.Context) {
	h.transition(c, func(c *gin.Context, txID uuid.UUID, note string) (*entities.Transaction, error) {
		return h.wallets.CancelTransaction(c.Request.Context(), txID, note)
	})
}

// RefundTransaction refunds a transaction, restoring the wallet to
// its prior position
func (h *Handlers) RefundTransaction(c *gin.Context) {
	h.transition(c, func(c *gin.Context, txID uuid.UUID, note string) (*entities.Transaction, error) {
		return h.wallets.RefundTransaction(c.Request.Context(), txID, note)
	})
}

func (h *Handlers) transition(c *gin.Context, apply func(*gin.Context, uuid.UUID, string) (*entities.Transaction, error)) {
	admin := common.RequireAdminContext(c)
	if admin == nil {
		return
	}

	txID, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	var req statusNoteRequest
	if c.Request.ContentLength > 0 && !common.BindAndValidate(c, &req) {
		return
	}

	tx, err := apply(c, txID, req.Note)
	if common.HandleDomainError(c, err) {
		return
	}

	h.logTransition(c, admin, tx, req.Note)
	common.RespondSuccess(c, tx)
}

// logTransition audits the latest hop in the transaction's history
func (h *Handlers) logTransition(c *gin.Context, admin *common.UserContext, tx *entities.Transaction, note string) {
	from := tx.Status
	if n := len(tx.History); n > 0 {
		from = tx.History[n-1].From
	}
	if err := h.audit.LogStatusTransition(c.Request.Context(), admin.UserID, admin.Role, tx, from, tx.Status, note); err != nil {
		h.auditFailed("status_transition", err)
	}
}

type freezeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// FreezeWallet blocks all money movement on a user's wallet
func (h *Handlers) FreezeWallet(c *gin.Context) {
	admin := common.RequireAdminContext(c)
	if admin == nil {
		return
	}

	userID, ok := common.ParsePathUUID(c, "user_id")
	if !ok {
		return
	}

	var req freezeRequest
	if !common.BindAndValidate(c, &req) {
		return
	}

	if err := h.wallets.FreezeWallet(c.Request.Context(), userID, req.Reason); common.HandleDomainError(c, err) {
		return
	}

	if auditErr := h.audit.LogWalletFreeze(c.Request.Context(), admin.UserID, userID, true, req.Reason); auditErr != nil {
		h.auditFailed("wallet_freeze", auditErr)
	}
	common.RespondSuccess(c, gin.H{"user_id": userID, "frozen": true})
}

// UnfreezeWallet restores a frozen wallet to active
func (h *Handlers) UnfreezeWallet(c *gin.Context) {
	admin := common.RequireAdminContext(c)
	if admin == nil {
		return
	}

	userID, ok := common.ParsePathUUID(c, "user_id")
	if !ok {
		return
	}

	if err := h.wallets.UnfreezeWallet(c.Request.Context(), userID); common.HandleDomainError(c, err) {
		return
	}

	if auditErr := h.audit.LogWalletFreeze(c.Request.Context(), admin.UserID, userID, false, ""); auditErr != nil {
		h.auditFailed("wallet_unfreeze", auditErr)
	}
	common.RespondSuccess(c, gin.H{"user_id": userID, "frozen": false})
}
