package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/aurum-service/aurum_service/internal/api/handlers/common"
)

// ListKYCQueue returns submitted records awaiting review
func (h *Handlers) ListKYCQueue(c *gin.Context) {
	admin := common.RequireAdminContext(c)
	if admin == nil {
		return
	}

	page := common.ExtractPagination(c, 50, 200)
	records, err := h.kyc.ListPendingReview(c.Request.Context(), page.Limit, page.Offset)
	if common.HandleDomainError(c, err) {
		return
	}

	common.RespondSuccess(c, gin.H{
		"records": records,
		"limit":   page.Limit,
		"offset":  page.Offset,
	})
}

// StartKYCReview claims a submitted record for review
func (h *Handlers) StartKYCReview(c *gin.Context) {
	admin := common.RequireAdminContext(c)
	if admin == nil {
		return
	}

	recordID, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	record, err := h.kyc.StartReview(c.Request.Context(), recordID, admin.UserID)
	if common.HandleDomainError(c, err) {
		return
	}
	common.RespondSuccess(c, record)
}

// ApproveKYC verifies the record under review
func (h *Handlers) ApproveKYC(c *gin.Context) {
	admin := common.RequireAdminContext(c)
	if admin == nil {
		return
	}

	recordID, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	record, err := h.kyc.Approve(c.Request.Context(), recordID, admin.UserID)
	if common.HandleDomainError(c, err) {
		return
	}

	if auditErr := h.audit.LogKYCDecision(c.Request.Context(), admin.UserID, record.ID, true, ""); auditErr != nil {
		h.auditFailed("kyc_approve", auditErr)
	}
	common.RespondSuccess(c, record)
}

type rejectKYCRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectKYC rejects the record under review with a reason
func (h *Handlers) RejectKYC(c *gin.Context) {
	admin := common.RequireAdminContext(c)
	if admin == nil {
		return
	}

	recordID, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	var req rejectKYCRequest
	if !common.BindAndValidate(c, &req) {
		return
	}

	record, err := h.kyc.Reject(c.Request.Context(), recordID, admin.UserID, req.Reason)
	if common.HandleDomainError(c, err) {
		return
	}

	if auditErr := h.audit.LogKYCDecision(c.Request.Context(), admin.UserID, record.ID, false, req.Reason); auditErr != nil {
		h.auditFailed("kyc_reject", auditErr)
	}
	common.RespondSuccess(c, record)
}
