// Package audit maintains the append-only log of privileged and
// money-moving actions. Entries are hash-chained so tampering or
// deletion is detectable after the fact.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aurum-service/aurum_service/internal/domain/entities"
	"github.com/aurum-service/aurum_service/internal/domain/repositories"
)

type contextKey string

const (
	ContextKeyIPAddress contextKey = "audit_ip_address"
	ContextKeyUserAgent contextKey = "audit_user_agent"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

type Service struct {
	repo          repositories.AuditRepository
	logger        *zap.Logger
	chainEnabled  bool
	lastHash      string
	lastHashMutex sync.Mutex
}

func NewService(repo repositories.AuditRepository, logger *zap.Logger) *Service {
	return &Service{
		repo:         repo,
		logger:       logger,
		chainEnabled: true,
	}
}

func (s *Service) EnableChain(enabled bool) {
	s.chainEnabled = enabled
}

// Entry describes one auditable event
type Entry struct {
	ActorID      uuid.UUID
	ActorRole    string
	Action       entities.AuditAction
	Category     entities.AuditCategory
	Description  string
	ResourceType string
	ResourceID   *uuid.UUID
	Before       map[string]interface{}
	After        map[string]interface{}
	Status       string
	ErrorDetail  *string
}

// Record appends an entry to the log. Failure to audit is returned to
// the caller but the audited action itself is never rolled back.
func (s *Service) Record(ctx context.Context, e Entry) error {
	if e.Status == "" {
		e.Status = StatusSuccess
	}

	log := &entities.AuditLog{
		ID:           uuid.New(),
		ActorID:      e.ActorID,
		ActorRole:    e.ActorRole,
		Action:       e.Action,
		Category:     e.Category,
		Description:  e.Description,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Before:       e.Before,
		After:        e.After,
		IPAddress:    getStringFromContext(ctx, ContextKeyIPAddress),
		UserAgent:    getStringFromContext(ctx, ContextKeyUserAgent),
		Status:       e.Status,
		ErrorDetail:  e.ErrorDetail,
		CreatedAt:    time.Now().UTC(),
	}

	if s.chainEnabled {
		log.SetIntegrityFields(s.getLastHash())
	}

	if err := s.repo.Create(ctx, log); err != nil {
		s.logger.Error("failed to create audit log",
			zap.Error(err),
			zap.String("action", string(e.Action)),
			zap.String("actor_id", e.ActorID.String()),
		)
		return err
	}

	if s.chainEnabled {
		s.setLastHash(log.CurrentHash)
	}

	s.logger.Info("Audit log created",
		zap.String("action", string(e.Action)),
		zap.String("actor_id", e.ActorID.String()),
		zap.String("resource_type", e.ResourceType),
	)
	return nil
}

func (s *Service) getLastHash() string {
	s.lastHashMutex.Lock()
	defer s.lastHashMutex.Unlock()
	return s.lastHash
}

func (s *Service) setLastHash(hash string) {
	s.lastHashMutex.Lock()
	defer s.lastHashMutex.Unlock()
	s.lastHash = hash
}

// LogTransaction records a wallet operation against the transaction it
// produced
func (s *Service) LogTransaction(ctx context.Context, actorID uuid.UUID, action entities.AuditAction, tx *entities.Transaction) error {
	return s.Record(ctx, Entry{
		ActorID:      actorID,
		ActorRole:    "user",
		Action:       action,
		Category:     entities.AuditCategoryWallet,
		Description:  tx.Description,
		ResourceType: "transaction",
		ResourceID:   &tx.ID,
		After: map[string]interface{}{
			"amount":     tx.Amount.String(),
			"fee":        tx.Fee.String(),
			"net_amount": tx.NetAmount.String(),
			"currency":   tx.Currency,
			"status":     string(tx.Status),
		},
	})
}

// LogStatusTransition records a transaction status change
func (s *Service) LogStatusTransition(ctx context.Context, actorID uuid.UUID, actorRole string, tx *entities.Transaction, from, to entities.TransactionStatus, note string) error {
	return s.Record(ctx, Entry{
		ActorID:      actorID,
		ActorRole:    actorRole,
		Action:       entities.AuditActionStatusTransition,
		Category:     entities.AuditCategoryWallet,
		Description:  note,
		ResourceType: "transaction",
		ResourceID:   &tx.ID,
		Before:       map[string]interface{}{"status": string(from)},
		After:        map[string]interface{}{"status": string(to)},
	})
}

// LogWalletFreeze records an admin freeze or unfreeze
func (s *Service) LogWalletFreeze(ctx context.Context, adminID uuid.UUID, userID uuid.UUID, frozen bool, reason string) error {
	action := entities.AuditActionWalletFreeze
	if !frozen {
		action = entities.AuditActionWalletUnfreeze
	}
	return s.Record(ctx, Entry{
		ActorID:      adminID,
		ActorRole:    "admin",
		Action:       action,
		Category:     entities.AuditCategoryAdmin,
		Description:  reason,
		ResourceType: "wallet",
		ResourceID:   &userID,
	})
}

// LogKYCDecision records an approve or reject of a KYC record
func (s *Service) LogKYCDecision(ctx context.Context, reviewerID uuid.UUID, recordID uuid.UUID, approved bool, reason string) error {
	action := entities.AuditActionKYCApprove
	if !approved {
		action = entities.AuditActionKYCReject
	}
	return s.Record(ctx, Entry{
		ActorID:      reviewerID,
		ActorRole:    "admin",
		Action:       action,
		Category:     entities.AuditCategoryCompliance,
		Description:  reason,
		ResourceType: "kyc_record",
		ResourceID:   &recordID,
	})
}

// LogSettingsChange records a fee or limit schedule update
func (s *Service) LogSettingsChange(ctx context.Context, adminID uuid.UUID, resource string, before, after map[string]interface{}) error {
	return s.Record(ctx, Entry{
		ActorID:      adminID,
		ActorRole:    "admin",
		Action:       entities.AuditActionSettingsChange,
		Category:     entities.AuditCategorySettings,
		Description:  fmt.Sprintf("Updated %s", resource),
		ResourceType: resource,
		Before:       before,
		After:        after,
	})
}

// GetAuditLogs returns a page of the log matching the filter
func (s *Service) GetAuditLogs(ctx context.Context, filter repositories.AuditLogFilter) ([]*entities.AuditLog, int64, error) {
	logs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return logs, count, nil
}

// IntegrityVerificationResult summarizes a hash-chain walk
type IntegrityVerificationResult struct {
	PeriodStart     time.Time
	PeriodEnd       time.Time
	TotalLogs       int64
	VerifiedAt      time.Time
	IntegrityStatus string
	BrokenLinks     []string
	TamperedLogs    []string
}

// VerifyIntegrity recomputes every hash in the period and walks the
// chain, reporting tampered entries and broken links.
func (s *Service) VerifyIntegrity(ctx context.Context, startTime, endTime time.Time) (*IntegrityVerificationResult, error) {
	filter := repositories.AuditLogFilter{
		StartDate: &startTime,
		EndDate:   &endTime,
		Limit:     10000,
		Offset:    0,
	}

	logs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve audit logs: %w", err)
	}

	result := &IntegrityVerificationResult{
		PeriodStart:  startTime,
		PeriodEnd:    endTime,
		TotalLogs:    int64(len(logs)),
		VerifiedAt:   time.Now().UTC(),
		BrokenLinks:  []string{},
		TamperedLogs: []string{},
	}

	var previousHash string
	for _, log := range logs {
		if log.CurrentHash != log.CalculateHash() {
			result.TamperedLogs = append(result.TamperedLogs, log.ID.String())
		}
		if previousHash != "" && log.PreviousHash != previousHash {
			result.BrokenLinks = append(result.BrokenLinks, log.ID.String())
		}
		previousHash = log.CurrentHash
	}

	switch {
	case len(result.TamperedLogs) > 0:
		result.IntegrityStatus = "compromised"
	case len(result.BrokenLinks) > 0:
		result.IntegrityStatus = "chain_broken"
	default:
		result.IntegrityStatus = "verified"
	}

	s.logger.Info("Integrity verification completed",
		zap.String("status", result.IntegrityStatus),
		zap.Int64("total_logs", result.TotalLogs),
		zap.Int("tampered_count", len(result.TamperedLogs)),
		zap.Int("broken_links", len(result.BrokenLinks)),
	)

	return result, nil
}

// ExportAuditLogs serializes the matching entries for a compliance
// export
func (s *Service) ExportAuditLogs(ctx context.Context, filter repositories.AuditLogFilter) ([]byte, error) {
	logs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve audit logs: %w", err)
	}

	jsonBytes, err := json.MarshalIndent(logs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit logs: %w", err)
	}

	return jsonBytes, nil
}

// WithAuditContext attaches request metadata picked up by Record
func WithAuditContext(ctx context.Context, ipAddress, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyIPAddress, ipAddress)
	ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent)
	return ctx
}

func getStringFromContext(ctx context.Context, key contextKey) string {
	if val, ok := ctx.Value(key).(string); ok {
		return val
	}
	return ""
}
