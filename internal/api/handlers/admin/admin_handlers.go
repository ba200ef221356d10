// Package admin exposes the back-office endpoints: KYC review,
// transaction settlement overrides, wallet freezes, fee and limit
// configuration, and audit log access.
package admin

import (
	"go.uber.org/zap"

	"github.com/aurum-service/aurum_service/internal/domain/services/audit"
	kycsvc "github.com/aurum-service/aurum_service/internal/domain/services/kyc"
	settingssvc "github.com/aurum-service/aurum_service/internal/domain/services/settings"
	walletsvc "github.com/aurum-service/aurum_service/internal/domain/services/wallet"
)

type Handlers struct {
	wallets  *walletsvc.Service
	kyc      *kycsvc.Service
	settings *settingssvc.Service
	audit    *audit.Service
	logger   *zap.Logger
}

func NewHandlers(
	wallets *walletsvc.Service,
	kyc *kycsvc.Service,
	settings *settingssvc.Service,
	auditService *audit.Service,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		wallets:  wallets,
		kyc:      kyc,
		settings: settings,
		audit:    auditService,
		logger:   logger,
	}
}

func (h *Handlers) auditFailed(action string, err error) {
	h.logger.Error("failed to audit admin action",
		zap.Error(err),
		zap.String("action", action),
	)
}
