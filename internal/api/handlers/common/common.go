// Package common holds shared request/response helpers for the API
// handlers.
package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurum-service/aurum_service/internal/domain/entities"
)

// GetUserID extracts and validates the authenticated user ID
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, fmt.Errorf("user ID not found in context")
	}

	switch v := userIDVal.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		return uuid.Parse(v)
	default:
		return uuid.Nil, fmt.Errorf("invalid user ID type in context")
	}
}

// RespondError sends a standardized error response
func RespondError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, entities.ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

func RespondUnauthorized(c *gin.Context, message string) {
	RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

func RespondBadRequest(c *gin.Context, message string, details ...map[string]interface{}) {
	var det map[string]interface{}
	if len(details) > 0 {
		det = details[0]
	}
	RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", message, det)
}

func RespondInternalError(c *gin.Context, message string) {
	RespondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", message, nil)
}

func RespondNotFound(c *gin.Context, message string) {
	RespondError(c, http.StatusNotFound, "NOT_FOUND", message, nil)
}

func RespondForbidden(c *gin.Context, message string) {
	RespondError(c, http.StatusForbidden, "FORBIDDEN", message, nil)
}

func RespondConflict(c *gin.Context, message string) {
	RespondError(c, http.StatusConflict, "CONFLICT", message, nil)
}

func RespondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// HandleDomainError maps domain sentinel errors onto HTTP responses.
// Returns true if err was non-nil and a response was sent. Unknown
// errors become an opaque 500; the raw message never leaves the
// service.
func HandleDomainError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, entities.ErrValidation):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, entities.ErrLimitExceeded):
		RespondError(c, http.StatusUnprocessableEntity, "LIMIT_EXCEEDED", err.Error(), nil)
	case errors.Is(err, entities.ErrInsufficientBalance):
		RespondError(c, http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE", err.Error(), nil)
	case errors.Is(err, entities.ErrInsufficientGold):
		RespondError(c, http.StatusUnprocessableEntity, "INSUFFICIENT_GOLD", err.Error(), nil)
	case errors.Is(err, entities.ErrWalletFrozen):
		RespondForbidden(c, err.Error())
	case errors.Is(err, entities.ErrKYCRequired):
		RespondForbidden(c, "Identity verification required")
	case errors.Is(err, entities.ErrInvalidState):
		RespondConflict(c, err.Error())
	case errors.Is(err, entities.ErrDuplicateReference):
		RespondConflict(c, err.Error())
	case errors.Is(err, entities.ErrWalletNotFound):
		RespondNotFound(c, "Wallet not found")
	case errors.Is(err, entities.ErrTransactionNotFound):
		RespondNotFound(c, "Transaction not found")
	case errors.Is(err, entities.ErrKYCNotFound):
		RespondNotFound(c, "Verification record not found")
	default:
		RespondInternalError(c, "An unexpected error occurred")
	}
	return true
}

// UserContext holds the authenticated principal
type UserContext struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

// RequireUserContext extracts the principal or sends 401
func RequireUserContext(c *gin.Context) *UserContext {
	userID, err := GetUserID(c)
	if err != nil {
		RespondUnauthorized(c, "User not authenticated")
		return nil
	}
	return &UserContext{
		UserID: userID,
		Email:  c.GetString("user_email"),
		Role:   c.GetString("user_role"),
	}
}

// RequireAdminContext extracts the principal and verifies admin role
func RequireAdminContext(c *gin.Context) *UserContext {
	ctx := RequireUserContext(c)
	if ctx == nil {
		return nil
	}
	if ctx.Role != "admin" && ctx.Role != "super_admin" {
		RespondForbidden(c, "Admin privileges required")
		return nil
	}
	return ctx
}

// ParsePathUUID parses a UUID path parameter, responding 400 on
// failure
func ParsePathUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	str := c.Param(param)
	id, err := uuid.Parse(str)
	if err != nil {
		RespondBadRequest(c, fmt.Sprintf("Invalid %s format", param), map[string]interface{}{"value": str})
		return uuid.Nil, false
	}
	return id, true
}

// BindAndValidate binds JSON to a struct; false means a 400 was sent
func BindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		RespondBadRequest(c, "Invalid request format", map[string]interface{}{"error": err.Error()})
		return false
	}
	return true
}

// ParseDecimalField parses a decimal request field, rejecting
// non-numeric input
func ParseDecimalField(c *gin.Context, name, value string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		RespondBadRequest(c, fmt.Sprintf("Invalid %s", name), map[string]interface{}{"value": value})
		return decimal.Zero, false
	}
	return d, true
}

// PaginationParams holds pagination parameters
type PaginationParams struct {
	Limit  int
	Offset int
}

// ExtractPagination reads limit/offset query params with bounds
func ExtractPagination(c *gin.Context, defaultLimit, maxLimit int) PaginationParams {
	limit := queryInt(c, "limit", defaultLimit)
	if limit > maxLimit {
		limit = maxLimit
	}
	if limit < 1 {
		limit = defaultLimit
	}

	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	return PaginationParams{Limit: limit, Offset: offset}
}

func queryInt(c *gin.Context, param string, defaultVal int) int {
	val := c.Query(param)
	if val == "" {
		return defaultVal
	}
	var i int
	if _, err := fmt.Sscanf(val, "%d", &i); err != nil {
		return defaultVal
	}
	return i
}
