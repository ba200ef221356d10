package admin

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/aurum-service/aurum_service/internal/api/handlers/common"
	"github.com/aurum-service/aurum_service/internal/domain/entities"
)

// GetSettings returns the active fee and limit schedules
func (h *Handlers) GetSettings(c *gin.Context) {
	admin := common.RequireAdminContext(c)
	if admin == nil {
		return
	}

	fees, err := h.settings.FeeSchedule(c.Request.Context())
	if common.HandleDomainError(c, err) {
		return
	}
	limits, err := h.settings.LimitSchedule(c.Request.Context())
	if common.HandleDomainError(c, err) {
		return
	}

	common.RespondSuccess(c, gin.H{
		"fees":   fees,
		"limits": limits,
	})
}

// UpdateFeeSchedule replaces the fee policy. Existing wallets pick up
// the change on their next operation.
func (h *Handlers) UpdateFeeSchedule(c *gin.Context) {
	admin := common.RequireAdminContext(c)
	if admin == nil {
		return
	}

	var schedule entities.FeeSchedule
	if !common.BindAndValidate(c, &schedule) {
		return
	}

	previous, err := h.settings.UpdateFeeSchedule(c.Request.Context(), schedule)
	if common.HandleDomainError(c, err) {
		return
	}

	if auditErr := h.audit.LogSettingsChange(c.Request.Context(), admin.UserID, "fee_schedule", asMap(previous), asMap(schedule)); auditErr != nil {
		h.auditFailed("settings_change", auditErr)
	}
	common.RespondSuccess(c, schedule)
}

// UpdateLimitSchedule replaces the limit caps per operation class
func (h *Handlers) UpdateLimitSchedule(c *gin.Context) {
	admin := common.RequireAdminContext(c)
	if admin == nil {
		return
	}

	var schedule entities.LimitSchedule
	if !common.BindAndValidate(c, &schedule) {
		return
	}
	for class := range schedule {
		if _, ok := entities.NormalizeOperationClass(string(class)); !ok {
			common.RespondBadRequest(c, "Unknown operation class", map[string]interface{}{"class": string(class)})
			return
		}
	}

	previous, err := h.settings.UpdateLimitSchedule(c.Request.Context(), schedule)
	if common.HandleDomainError(c, err) {
		return
	}

	if auditErr := h.audit.LogSettingsChange(c.Request.Context(), admin.UserID, "limit_schedule", asMap(previous), asMap(schedule)); auditErr != nil {
		h.auditFailed("settings_change", auditErr)
	}
	common.RespondSuccess(c, schedule)
}

// asMap round-trips a schedule through JSON for the audit before/after
// snapshot
func asMap(v interface{}) map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
