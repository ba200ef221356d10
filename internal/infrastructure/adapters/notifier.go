package adapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aurum-service/aurum_service/internal/domain/entities"
	"github.com/aurum-service/aurum_service/internal/domain/repositories"
	"github.com/aurum-service/aurum_service/internal/pkg/util"
)

// Notifier resolves a user's email from their verification record and
// delivers transaction and KYC notifications. Users without an email
// on file are silently skipped.
type Notifier struct {
	emails *EmailService
	kyc    repositories.KYCRepository
	logger *zap.Logger
}

func NewNotifier(emails *EmailService, kycRepo repositories.KYCRepository, logger *zap.Logger) *Notifier {
	return &Notifier{
		emails: emails,
		kyc:    kycRepo,
		logger: logger,
	}
}

func (n *Notifier) NotifyTransactionCompleted(ctx context.Context, userID uuid.UUID, tx *entities.Transaction) error {
	email, ok := n.lookupEmail(ctx, userID)
	if !ok {
		return nil
	}
	return n.emails.SendTransactionEmail(ctx, email, string(tx.Type), "completed", tx.Amount.String(), tx.Currency)
}

func (n *Notifier) NotifyTransactionFailed(ctx context.Context, userID uuid.UUID, tx *entities.Transaction, reason string) error {
	email, ok := n.lookupEmail(ctx, userID)
	if !ok {
		return nil
	}
	status := string(tx.Status)
	if reason != "" {
		status = fmt.Sprintf("%s (%s)", status, reason)
	}
	return n.emails.SendTransactionEmail(ctx, email, string(tx.Type), status, tx.Amount.String(), tx.Currency)
}

func (n *Notifier) NotifyKYCDecision(ctx context.Context, userID uuid.UUID, approved bool, reason string) error {
	email, ok := n.lookupEmail(ctx, userID)
	if !ok {
		return nil
	}
	return n.emails.SendKYCDecisionEmail(ctx, email, approved, reason)
}

func (n *Notifier) lookupEmail(ctx context.Context, userID uuid.UUID) (string, bool) {
	record, err := n.kyc.GetCurrentByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, entities.ErrKYCNotFound) {
			n.logger.Warn("failed to resolve notification email",
				zap.Error(err),
				zap.String("user_id", userID.String()),
			)
		}
		return "", false
	}
	if record.PersonalInfo.Email == "" {
		return "", false
	}
	n.logger.Debug("resolved notification recipient",
		zap.String("user_id", userID.String()),
		zap.String("email_hash", util.Redact(record.PersonalInfo.Email)),
	)
	return record.PersonalInfo.Email, true
}
