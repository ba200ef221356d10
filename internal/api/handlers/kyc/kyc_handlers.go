// Package kyc exposes the identity-verification endpoints.
package kyc

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aurum-service/aurum_service/internal/api/handlers/common"
	"github.com/aurum-service/aurum_service/internal/domain/entities"
	"github.com/aurum-service/aurum_service/internal/domain/services/audit"
	kycsvc "github.com/aurum-service/aurum_service/internal/domain/services/kyc"
)

type Handlers struct {
	service *kycsvc.Service
	audit   *audit.Service
	logger  *zap.Logger
}

func NewHandlers(service *kycsvc.Service, auditService *audit.Service, logger *zap.Logger) *Handlers {
	return &Handlers{
		service: service,
		audit:   auditService,
		logger:  logger,
	}
}

type documentUpload struct {
	Type  string `json:"type" binding:"required,document_type"`
	Image string `json:"image" binding:"required"`
}

type submitRequest struct {
	FirstName   string           `json:"first_name" binding:"required"`
	LastName    string           `json:"last_name" binding:"required"`
	Email       string           `json:"email" binding:"omitempty,email"`
	DateOfBirth string           `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Nationality string           `json:"nationality" binding:"omitempty,iso3166_1_alpha2"`
	Address     string           `json:"address"`
	City        string           `json:"city"`
	Country     string           `json:"country" binding:"omitempty,iso3166_1_alpha2"`
	Documents   []documentUpload `json:"documents" binding:"required,min=1,dive"`
}

// Submit accepts a verification submission with identity documents
func (h *Handlers) Submit(c *gin.Context) {
	user := common.RequireUserContext(c)
	if user == nil {
		return
	}

	var req submitRequest
	if !common.BindAndValidate(c, &req) {
		return
	}

	info := entities.KYCPersonalInfo{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Nationality: req.Nationality,
		Address:     req.Address,
		City:        req.City,
		Country:     req.Country,
	}
	if req.Email == "" {
		info.Email = user.Email
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			common.RespondBadRequest(c, "Invalid date of birth", nil)
			return
		}
		info.DateOfBirth = &dob
	}

	docs := make([]kycsvc.DocumentUpload, 0, len(req.Documents))
	for _, doc := range req.Documents {
		docs = append(docs, kycsvc.DocumentUpload{Type: doc.Type, Image: doc.Image})
	}

	record, err := h.service.Submit(c.Request.Context(), kycsvc.SubmitRequest{
		UserID:       user.UserID,
		PersonalInfo: info,
		Documents:    docs,
	})
	if common.HandleDomainError(c, err) {
		return
	}

	if auditErr := h.audit.Record(c.Request.Context(), audit.Entry{
		ActorID:      user.UserID,
		Action:       entities.AuditActionKYCSubmit,
		Category:     entities.AuditCategoryCompliance,
		Description:  "identity verification submitted",
		ResourceType: "kyc_record",
		ResourceID:   &record.ID,
	}); auditErr != nil {
		h.logger.Error("failed to audit kyc submission",
			zap.Error(auditErr),
			zap.String("record_id", record.ID.String()),
		)
	}

	common.RespondCreated(c, record)
}

// GetStatus returns the caller's current verification record
func (h *Handlers) GetStatus(c *gin.Context) {
	user := common.RequireUserContext(c)
	if user == nil {
		return
	}

	record, err := h.service.GetStatus(c.Request.Context(), user.UserID)
	if common.HandleDomainError(c, err) {
		return
	}
	common.RespondSuccess(c, record)
}
