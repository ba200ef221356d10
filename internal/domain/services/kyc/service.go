// Package kyc manages identity verification records and their review
// lifecycle. Verified records expire and must be renewed; only a
// currently valid record unlocks money movement.
package kyc

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aurum-service/aurum_service/internal/domain/entities"
	"github.com/aurum-service/aurum_service/internal/domain/repositories"
)

// Sentinels wrap the shared domain errors so the API layer maps them
// to status codes without knowing this package.
var (
	ErrInvalidImage      = fmt.Errorf("%w: invalid image format", entities.ErrValidation)
	ErrImageTooLarge     = fmt.Errorf("%w: image exceeds 10MB limit", entities.ErrValidation)
	ErrAlreadyVerified   = fmt.Errorf("%w: verification already approved", entities.ErrInvalidState)
	ErrSubmissionPending = fmt.Errorf("%w: a submission is already under review", entities.ErrInvalidState)
	ErrUnknownDocType    = fmt.Errorf("%w: unknown document type", entities.ErrValidation)
	ErrRejectNeedsReason = fmt.Errorf("%w: rejection requires a reason", entities.ErrValidation)
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10MB

	// Verified records are valid for two years, with a renewal
	// reminder window before expiry.
	verificationValidity = 2 * 365 * 24 * time.Hour
	renewalWindow        = 30 * 24 * time.Hour
)

var validDocumentTypes = map[string]bool{
	"passport":        true,
	"drivers_license": true,
	"national_id":     true,
}

// DocumentStore persists uploaded document images and returns an
// opaque URL. The raw image never touches the database.
type DocumentStore interface {
	Store(ctx context.Context, userID uuid.UUID, docType string, data []byte) (string, error)
}

// Notifier informs the user of review outcomes
type Notifier interface {
	NotifyKYCDecision(ctx context.Context, userID uuid.UUID, approved bool, reason string) error
}

type Service struct {
	repo     repositories.KYCRepository
	store    DocumentStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(repo repositories.KYCRepository, store DocumentStore, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetNotifier sets the decision notifier (optional)
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetClock overrides the time source (tests)
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// DocumentUpload is one identity document in a submission, as a
// data-URI base64 image
type DocumentUpload struct {
	Type  string
	Image string
}

// SubmitRequest is a verification submission
type SubmitRequest struct {
	UserID       uuid.UUID
	PersonalInfo entities.KYCPersonalInfo
	Documents    []DocumentUpload
}

// Submit creates a new verification record in submitted status. A
// resubmission after rejection or expiry creates a fresh record that
// supersedes the old one; submitting over a live review or a valid
// verification is rejected.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*entities.KYCRecord, error) {
	if err := s.validateSubmission(req); err != nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrValidation, err.Error())
	}

	now := s.now()

	current, err := s.repo.GetCurrentByUserID(ctx, req.UserID)
	if err != nil && !errors.Is(err, entities.ErrKYCNotFound) {
		return nil, fmt.Errorf("failed to load current record: %w", err)
	}
	if current != nil {
		switch {
		case current.IsVerified(now):
			return nil, ErrAlreadyVerified
		case current.Status == entities.KYCStatusSubmitted || current.Status == entities.KYCStatusUnderReview:
			return nil, ErrSubmissionPending
		}
	}

	record := &entities.KYCRecord{
		ID:           uuid.New(),
		UserID:       req.UserID,
		PersonalInfo: req.PersonalInfo,
		Status:       entities.KYCStatusSubmitted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for _, doc := range req.Documents {
		data, err := decodeImage(doc.Image)
		if err != nil {
			return nil, err
		}
		url, err := s.store.Store(ctx, req.UserID, doc.Type, data)
		if err != nil {
			return nil, fmt.Errorf("failed to store document: %w", err)
		}
		record.Documents = append(record.Documents, entities.KYCDocument{
			Type:       doc.Type,
			FileURL:    url,
			Status:     entities.KYCDocumentPending,
			UploadedAt: now,
		})
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create verification record: %w", err)
	}

	s.logger.Info("KYC submitted",
		zap.String("user_id", req.UserID.String()),
		zap.String("record_id", record.ID.String()),
		zap.Int("documents", len(record.Documents)),
	)
	return record, nil
}

// StartReview moves a submitted record to under_review, claiming it
// for a reviewer
func (s *Service) StartReview(ctx context.Context, recordID, reviewerID uuid.UUID) (*entities.KYCRecord, error) {
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if !record.Status.CanTransitionTo(entities.KYCStatusUnderReview) {
		return nil, fmt.Errorf("%w: cannot review a %s record", entities.ErrInvalidState, record.Status)
	}

	now := s.now()
	record.Status = entities.KYCStatusUnderReview
	record.ReviewedBy = &reviewerID
	record.UpdatedAt = now

	if err := s.repo.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}
	return record, nil
}

// Approve marks the record verified with a fresh expiry
func (s *Service) Approve(ctx context.Context, recordID, reviewerID uuid.UUID) (*entities.KYCRecord, error) {
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if !record.Status.CanTransitionTo(entities.KYCStatusVerified) {
		return nil, fmt.Errorf("%w: cannot approve a %s record", entities.ErrInvalidState, record.Status)
	}

	now := s.now()
	expires := now.Add(verificationValidity)
	record.Status = entities.KYCStatusVerified
	record.ReviewedBy = &reviewerID
	record.ReviewedAt = &now
	record.ExpiresAt = &expires
	record.UpdatedAt = now
	for i := range record.Documents {
		record.Documents[i].Status = entities.KYCDocumentApproved
	}

	if err := s.repo.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}

	s.notifyDecision(ctx, record.UserID, true, "")
	s.logger.Info("KYC approved",
		zap.String("record_id", record.ID.String()),
		zap.String("reviewer_id", reviewerID.String()),
		zap.Time("expires_at", expires),
	)
	return record, nil
}

// Reject marks the record rejected with the reviewer's reason. The
// user may resubmit, which creates a new record.
func (s *Service) Reject(ctx context.Context, recordID, reviewerID uuid.UUID, reason string) (*entities.KYCRecord, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrRejectNeedsReason
	}

	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if !record.Status.CanTransitionTo(entities.KYCStatusRejected) {
		return nil, fmt.Errorf("%w: cannot reject a %s record", entities.ErrInvalidState, record.Status)
	}

	now := s.now()
	record.Status = entities.KYCStatusRejected
	record.ReviewedBy = &reviewerID
	record.ReviewedAt = &now
	record.RejectionReason = &reason
	record.UpdatedAt = now

	if err := s.repo.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}

	s.notifyDecision(ctx, record.UserID, false, reason)
	s.logger.Info("KYC rejected",
		zap.String("record_id", record.ID.String()),
		zap.String("reviewer_id", reviewerID.String()),
		zap.String("reason", reason),
	)
	return record, nil
}

// GetStatus returns the user's current record, or a pending shell if
// they never submitted
func (s *Service) GetStatus(ctx context.Context, userID uuid.UUID) (*entities.KYCRecord, error) {
	record, err := s.repo.GetCurrentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, entities.ErrKYCNotFound) {
			return &entities.KYCRecord{UserID: userID, Status: entities.KYCStatusPending}, nil
		}
		return nil, err
	}
	return record, nil
}

// IsVerified reports whether the user holds a currently valid
// verification. Satisfies the wallet service's gate interface.
func (s *Service) IsVerified(ctx context.Context, userID uuid.UUID) (bool, error) {
	record, err := s.repo.GetCurrentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, entities.ErrKYCNotFound) {
			return false, nil
		}
		return false, err
	}
	return record.IsVerified(s.now()), nil
}

// ListPendingReview returns submitted and in-review records for the
// admin queue
func (s *Service) ListPendingReview(ctx context.Context, limit, offset int) ([]*entities.KYCRecord, error) {
	submitted, err := s.repo.ListByStatus(ctx, entities.KYCStatusSubmitted, limit, offset)
	if err != nil {
		return nil, err
	}
	return submitted, nil
}

// ExpireStale transitions verified records whose expiry has passed.
// Called by the settlement worker; returns the number expired.
func (s *Service) ExpireStale(ctx context.Context, batchSize int) (int, error) {
	now := s.now()
	records, err := s.repo.ListExpiring(ctx, now, batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list expiring records: %w", err)
	}

	expired := 0
	for _, record := range records {
		if !record.Status.CanTransitionTo(entities.KYCStatusExpired) {
			continue
		}
		record.Status = entities.KYCStatusExpired
		record.UpdatedAt = now
		if err := s.repo.Update(ctx, record); err != nil {
			s.logger.Error("failed to expire verification record",
				zap.Error(err),
				zap.String("record_id", record.ID.String()),
			)
			continue
		}
		expired++
	}

	if expired > 0 {
		s.logger.Info("Expired stale verifications", zap.Int("count", expired))
	}
	return expired, nil
}

func (s *Service) notifyDecision(ctx context.Context, userID uuid.UUID, approved bool, reason string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyKYCDecision(ctx, userID, approved, reason); err != nil {
		s.logger.Warn("failed to send KYC decision notification",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
	}
}

func (s *Service) validateSubmission(req SubmitRequest) error {
	if req.UserID == uuid.Nil {
		return errors.New("missing user id")
	}
	if strings.TrimSpace(req.PersonalInfo.FirstName) == "" || strings.TrimSpace(req.PersonalInfo.LastName) == "" {
		return errors.New("first and last name are required")
	}
	if len(req.Documents) == 0 {
		return errors.New("at least one document is required")
	}
	for _, doc := range req.Documents {
		if !validDocumentTypes[doc.Type] {
			return ErrUnknownDocType
		}
		if len(doc.Image) > maxImageSize {
			return ErrImageTooLarge
		}
		if !isValidBase64Image(doc.Image) {
			return ErrInvalidImage
		}
	}
	return nil
}

func decodeImage(dataURI string) ([]byte, error) {
	parts := strings.Split(dataURI, ",")
	if len(parts) != 2 {
		return nil, ErrInvalidImage
	}
	data, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidImage
	}
	return data, nil
}

func isValidBase64Image(data string) bool {
	if !strings.HasPrefix(data, "data:image/") {
		return false
	}
	parts := strings.Split(data, ",")
	if len(parts) != 2 {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(parts[1])
	return err == nil
}
