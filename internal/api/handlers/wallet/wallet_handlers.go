// Package wallet exposes the wallet and transaction endpoints.
package wallet

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aurum-service/aurum_service/internal/api/handlers/common"
	"github.com/aurum-service/aurum_service/internal/domain/entities"
	"github.com/aurum-service/aurum_service/internal/domain/repositories"
	"github.com/aurum-service/aurum_service/internal/domain/services/audit"
	walletsvc "github.com/aurum-service/aurum_service/internal/domain/services/wallet"
)

type Handlers struct {
	service *walletsvc.Service
	audit   *audit.Service
	logger  *zap.Logger
}

func NewHandlers(service *walletsvc.Service, auditService *audit.Service, logger *zap.Logger) *Handlers {
	return &Handlers{
		service: service,
		audit:   auditService,
		logger:  logger,
	}
}

// CreateWallet opens a wallet for the caller. Creating twice is a
// conflict; each user holds exactly one wallet.
func (h *Handlers) CreateWallet(c *gin.Context) {
	user := common.RequireUserContext(c)
	if user == nil {
		return
	}

	wallet, err := h.service.CreateWallet(c.Request.Context(), user.UserID)
	if common.HandleDomainError(c, err) {
		return
	}
	common.RespondCreated(c, wallet)
}

// GetWallet returns the caller's wallet
func (h *Handlers) GetWallet(c *gin.Context) {
	user := common.RequireUserContext(c)
	if user == nil {
		return
	}

	wallet, err := h.service.GetWallet(c.Request.Context(), user.UserID)
	if common.HandleDomainError(c, err) {
		return
	}
	common.RespondSuccess(c, wallet)
}

// GetHoldings returns the wallet with gold marked to the live quote
func (h *Handlers) GetHoldings(c *gin.Context) {
	user := common.RequireUserContext(c)
	if user == nil {
		return
	}

	holdings, err := h.service.GetHoldings(c.Request.Context(), user.UserID)
	if common.HandleDomainError(c, err) {
		return
	}
	common.RespondSuccess(c, holdings)
}

// ListTransactions returns a page of the caller's transaction history
func (h *Handlers) ListTransactions(c *gin.Context) {
	user := common.RequireUserContext(c)
	if user == nil {
		return
	}

	page := common.ExtractPagination(c, 50, 200)
	filter := repositories.TransactionFilter{
		Limit:  page.Limit,
		Offset: page.Offset,
	}

	if typeParam := c.Query("type"); typeParam != "" {
		class, ok := entities.NormalizeOperationClass(typeParam)
		if !ok {
			common.RespondBadRequest(c, "Unknown transaction type", map[string]interface{}{"value": typeParam})
			return
		}
		txType := entities.TransactionType(class)
		filter.Type = &txType
	}
	if statusParam := c.Query("status"); statusParam != "" {
		status := entities.TransactionStatus(statusParam)
		if !status.IsValid() {
			common.RespondBadRequest(c, "Unknown transaction status", map[string]interface{}{"value": statusParam})
			return
		}
		filter.Status = &status
	}

	items, total, err := h.service.ListTransactions(c.Request.Context(), user.UserID, filter)
	if common.HandleDomainError(c, err) {
		return
	}

	common.RespondSuccess(c, gin.H{
		"transactions": items,
		"total":        total,
		"limit":        page.Limit,
		"offset":       page.Offset,
	})
}

// GetTransaction returns one of the caller's transactions with its
// full status history
func (h *Handlers) GetTransaction(c *gin.Context) {
	user := common.RequireUserContext(c)
	if user == nil {
		return
	}

	txID, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	tx, err := h.service.GetTransaction(c.Request.Context(), txID)
	if common.HandleDomainError(c, err) {
		return
	}
	if tx.UserID != user.UserID {
		common.RespondNotFound(c, "Transaction not found")
		return
	}
	common.RespondSuccess(c, tx)
}
