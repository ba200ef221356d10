package wallet

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aurum-service/aurum_service/internal/api/handlers/common"
	"github.com/aurum-service/aurum_service/internal/domain/entities"
	walletsvc "github.com/aurum-service/aurum_service/internal/domain/services/wallet"
)

// Monetary values cross the wire as strings to keep exact precision.

type depositRequest struct {
	Amount       string `json:"amount" binding:"required,amount_string"`
	Currency     string `json:"currency" binding:"required,currency_code"`
	Method       string `json:"method" binding:"required"`
	Reference    string `json:"reference"`
	ReferenceKey string `json:"reference_key"`
}

// Deposit initiates a cash deposit; funds are credited at settlement
func (h *Handlers) Deposit(c *gin.Context) {
	user := common.RequireUserContext(c)
	if user == nil {
		return
	}

	var req depositRequest
	if !common.BindAndValidate(c, &req) {
		return
	}
	amount, ok := common.ParseDecimalField(c, "amount", req.Amount)
	if !ok {
		return
	}

	tx, err := h.service.Deposit(c.Request.Context(), user.UserID, walletsvc.DepositRequest{
		Amount:       amount,
		Currency:     req.Currency,
		Method:       req.Method,
		Reference:    req.Reference,
		ReferenceKey: req.ReferenceKey,
	})
	if common.HandleDomainError(c, err) {
		return
	}

	h.recordAudit(c, user, entities.AuditActionDeposit, tx)
	common.RespondCreated(c, tx)
}

type withdrawRequest struct {
	Amount       string `json:"amount" binding:"required,amount_string"`
	Currency     string `json:"currency" binding:"required,currency_code"`
	Method       string `json:"method" binding:"required"`
	Reference    string `json:"reference"`
	ReferenceKey string `json:"reference_key"`
}

// Withdraw debits the wallet and queues a payout
func (h *Handlers) Withdraw(c *gin.Context) {
	user := common.RequireUserContext(c)
	if user == nil {
		return
	}

	var req withdrawRequest
	if !common.BindAndValidate(c, &req) {
		return
	}
	amount, ok := common.ParseDecimalField(c, "amount", req.Amount)
	if !ok {
		return
	}

	tx, err := h.service.Withdraw(c.Request.Context(), user.UserID, walletsvc.WithdrawRequest{
		Amount:       amount,
		Currency:     req.Currency,
		Method:       req.Method,
		Reference:    req.Reference,
		ReferenceKey: req.ReferenceKey,
	})
	if common.HandleDomainError(c, err) {
		return
	}

	h.recordAudit(c, user, entities.AuditActionWithdrawal, tx)
	common.RespondCreated(c, tx)
}

type tradeRequest struct {
	Grams        string `json:"grams" binding:"required,amount_string"`
	Currency     string `json:"currency" binding:"required,currency_code"`
	ReferenceKey string `json:"reference_key"`
}

// BuyGold purchases grams at the current quote
func (h *Handlers) BuyGold(c *gin.Context) {
	h.trade(c, entities.AuditActionBuyGold)
}

// SellGold sells grams at the current quote
func (h *Handlers) SellGold(c *gin.Context) {
	h.trade(c, entities.AuditActionSellGold)
}

func (h *Handlers) trade(c *gin.Context, action entities.AuditAction) {
	user := common.RequireUserContext(c)
	if user == nil {
		return
	}

	var req tradeRequest
	if !common.BindAndValidate(c, &req) {
		return
	}
	grams, ok := common.ParseDecimalField(c, "grams", req.Grams)
	if !ok {
		return
	}

	trade := walletsvc.TradeRequest{
		Grams:        grams,
		Currency:     req.Currency,
		ReferenceKey: req.ReferenceKey,
	}

	var (
		tx  *entities.Transaction
		err error
	)
	if action == entities.AuditActionBuyGold {
		tx, err = h.service.BuyGold(c.Request.Context(), user.UserID, trade)
	} else {
		tx, err = h.service.SellGold(c.Request.Context(), user.UserID, trade)
	}
	if common.HandleDomainError(c, err) {
		return
	}

	h.recordAudit(c, user, action, tx)
	common.RespondCreated(c, tx)
}

type deliveryRequest struct {
	Grams        string `json:"grams" binding:"required,amount_string"`
	Currency     string `json:"currency" binding:"required,currency_code"`
	AddressLine1 string `json:"address_line1" binding:"required"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city" binding:"required"`
	PostalCode   string `json:"postal_code" binding:"required"`
	Country      string `json:"country" binding:"required,iso3166_1_alpha2"`
	ReferenceKey string `json:"reference_key"`
}

// RequestDelivery ships held grams to the caller's address
func (h *Handlers) RequestDelivery(c *gin.Context) {
	user := common.RequireUserContext(c)
	if user == nil {
		return
	}

	var req deliveryRequest
	if !common.BindAndValidate(c, &req) {
		return
	}
	grams, ok := common.ParseDecimalField(c, "grams", req.Grams)
	if !ok {
		return
	}

	tx, err := h.service.RequestDelivery(c.Request.Context(), user.UserID, walletsvc.DeliveryRequest{
		Grams:    grams,
		Currency: req.Currency,
		Address: entities.DeliveryDetail{
			AddressLine1: req.AddressLine1,
			AddressLine2: req.AddressLine2,
			City:         req.City,
			PostalCode:   req.PostalCode,
			Country:      req.Country,
		},
		ReferenceKey: req.ReferenceKey,
	})
	if common.HandleDomainError(c, err) {
		return
	}

	h.recordAudit(c, user, entities.AuditActionDelivery, tx)
	common.RespondCreated(c, tx)
}

// recordAudit appends the operation to the audit log. Audit failure
// is logged, never surfaced: the operation already committed.
func (h *Handlers) recordAudit(c *gin.Context, user *common.UserContext, action entities.AuditAction, tx *entities.Transaction) {
	if err := h.audit.LogTransaction(c.Request.Context(), user.UserID, action, tx); err != nil {
		h.logger.Error("failed to audit wallet operation",
			zap.Error(err),
			zap.String("action", string(action)),
			zap.String("transaction_id", tx.ID.String()),
		)
	}
}
