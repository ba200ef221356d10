package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aurum-service/aurum_service/internal/domain/entities"
)

type KYCRepository struct {
	db *sqlx.DB
}

func NewKYCRepository(db *sqlx.DB) *KYCRepository {
	return &KYCRepository{db: db}
}

type kycRow struct {
	ID              uuid.UUID  `db:"id"`
	UserID          uuid.UUID  `db:"user_id"`
	PersonalInfo    []byte     `db:"personal_info"`
	Documents       []byte     `db:"documents"`
	Status          string     `db:"status"`
	ReviewedBy      *uuid.UUID `db:"reviewed_by"`
	ReviewedAt      *time.Time `db:"reviewed_at"`
	RejectionReason *string    `db:"rejection_reason"`
	ExpiresAt       *time.Time `db:"expires_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

func (r *kycRow) toEntity() (*entities.KYCRecord, error) {
	record := &entities.KYCRecord{
		ID:              r.ID,
		UserID:          r.UserID,
		Status:          entities.KYCStatus(r.Status),
		ReviewedBy:      r.ReviewedBy,
		ReviewedAt:      r.ReviewedAt,
		RejectionReason: r.RejectionReason,
		ExpiresAt:       r.ExpiresAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if err := json.Unmarshal(r.PersonalInfo, &record.PersonalInfo); err != nil {
		return nil, fmt.Errorf("failed to decode personal info: %w", err)
	}
	if err := json.Unmarshal(r.Documents, &record.Documents); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return record, nil
}

func kycArgs(record *entities.KYCRecord) (personalInfo, documents []byte, err error) {
	personalInfo, err = json.Marshal(record.PersonalInfo)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode personal info: %w", err)
	}
	documents, err = json.Marshal(record.Documents)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode documents: %w", err)
	}
	return personalInfo, documents, nil
}

func (r *KYCRepository) Create(ctx context.Context, record *entities.KYCRecord) error {
	personalInfo, documents, err := kycArgs(record)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO kyc_records (id, user_id, personal_info, documents, status,
			reviewed_by, reviewed_at, rejection_reason, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.ExecContext(ctx, query,
		record.ID, record.UserID, personalInfo, documents, string(record.Status),
		record.ReviewedBy, record.ReviewedAt, record.RejectionReason,
		record.ExpiresAt, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create kyc record: %w", err)
	}
	return nil
}

const kycColumns = `id, user_id, personal_info, documents, status,
	reviewed_by, reviewed_at, rejection_reason, expires_at, created_at, updated_at`

func (r *KYCRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.KYCRecord, error) {
	var row kycRow
	query := `SELECT ` + kycColumns + ` FROM kyc_records WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrKYCNotFound
		}
		return nil, fmt.Errorf("failed to get kyc record: %w", err)
	}
	return row.toEntity()
}

// GetCurrentByUserID returns the user's most recent record
func (r *KYCRepository) GetCurrentByUserID(ctx context.Context, userID uuid.UUID) (*entities.KYCRecord, error) {
	var row kycRow
	query := `SELECT ` + kycColumns + ` FROM kyc_records
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrKYCNotFound
		}
		return nil, fmt.Errorf("failed to get current kyc record: %w", err)
	}
	return row.toEntity()
}

func (r *KYCRepository) Update(ctx context.Context, record *entities.KYCRecord) error {
	personalInfo, documents, err := kycArgs(record)
	if err != nil {
		return err
	}

	query := `
		UPDATE kyc_records
		SET personal_info = $2, documents = $3, status = $4, reviewed_by = $5,
			reviewed_at = $6, rejection_reason = $7, expires_at = $8, updated_at = $9
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query,
		record.ID, personalInfo, documents, string(record.Status), record.ReviewedBy,
		record.ReviewedAt, record.RejectionReason, record.ExpiresAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update kyc record: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return entities.ErrKYCNotFound
	}
	return nil
}

func (r *KYCRepository) ListByStatus(ctx context.Context, status entities.KYCStatus, limit, offset int) ([]*entities.KYCRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM kyc_records
		WHERE status = $1 ORDER BY created_at ASC LIMIT %d OFFSET %d`,
		kycColumns, limit, offset)

	var rows []kycRow
	if err := r.db.SelectContext(ctx, &rows, query, string(status)); err != nil {
		return nil, fmt.Errorf("failed to list kyc records: %w", err)
	}

	result := make([]*entities.KYCRecord, 0, len(rows))
	for i := range rows {
		record, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, nil
}

// ListExpiring returns verified records whose expiry precedes the
// cutoff
func (r *KYCRepository) ListExpiring(ctx context.Context, before time.Time, limit int) ([]*entities.KYCRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`SELECT %s FROM kyc_records
		WHERE status = 'verified' AND expires_at IS NOT NULL AND expires_at < $1
		ORDER BY expires_at ASC LIMIT %d`, kycColumns, limit)

	var rows []kycRow
	if err := r.db.SelectContext(ctx, &rows, query, before); err != nil {
		return nil, fmt.Errorf("failed to list expiring kyc records: %w", err)
	}

	result := make([]*entities.KYCRecord, 0, len(rows))
	for i := range rows {
		record, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, nil
}
