package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/aurum-service/aurum_service/internal/domain/entities"
	"github.com/aurum-service/aurum_service/internal/domain/repositories"
)

type TransactionRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

type transactionRow struct {
	ID             uuid.UUID       `db:"id"`
	UserID         uuid.UUID       `db:"user_id"`
	WalletID       uuid.UUID       `db:"wallet_id"`
	Type           string          `db:"type"`
	Status         string          `db:"status"`
	Amount         decimal.Decimal `db:"amount"`
	Currency       string          `db:"currency"`
	Fee            decimal.Decimal `db:"fee"`
	NetAmount      decimal.Decimal `db:"net_amount"`
	GoldDetail     []byte          `db:"gold_detail"`
	PaymentDetail  []byte          `db:"payment_detail"`
	DeliveryDetail []byte          `db:"delivery_detail"`
	ReferenceKey   *string         `db:"reference_key"`
	Description    string          `db:"description"`
	ErrorCode      *string         `db:"error_code"`
	ErrorMessage   *string         `db:"error_message"`
	History        []byte          `db:"history"`
	CompletedAt    *time.Time      `db:"completed_at"`
	FailedAt       *time.Time      `db:"failed_at"`
	CancelledAt    *time.Time      `db:"cancelled_at"`
	RefundedAt     *time.Time      `db:"refunded_at"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (r *transactionRow) toEntity() (*entities.Transaction, error) {
	t := &entities.Transaction{
		ID:           r.ID,
		UserID:       r.UserID,
		WalletID:     r.WalletID,
		Type:         entities.TransactionType(r.Type),
		Status:       entities.TransactionStatus(r.Status),
		Amount:       r.Amount,
		Currency:     strings.TrimSpace(r.Currency),
		Fee:          r.Fee,
		NetAmount:    r.NetAmount,
		ReferenceKey: r.ReferenceKey,
		Description:  r.Description,
		ErrorCode:    r.ErrorCode,
		ErrorMessage: r.ErrorMessage,
		CompletedAt:  r.CompletedAt,
		FailedAt:     r.FailedAt,
		CancelledAt:  r.CancelledAt,
		RefundedAt:   r.RefundedAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if err := json.Unmarshal(r.History, &t.History); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	if len(r.GoldDetail) > 0 {
		if err := json.Unmarshal(r.GoldDetail, &t.GoldDetail); err != nil {
			return nil, fmt.Errorf("failed to decode gold detail: %w", err)
		}
	}
	if len(r.PaymentDetail) > 0 {
		if err := json.Unmarshal(r.PaymentDetail, &t.PaymentDetail); err != nil {
			return nil, fmt.Errorf("failed to decode payment detail: %w", err)
		}
	}
	if len(r.DeliveryDetail) > 0 {
		if err := json.Unmarshal(r.DeliveryDetail, &t.DeliveryDetail); err != nil {
			return nil, fmt.Errorf("failed to decode delivery detail: %w", err)
		}
	}
	return t, nil
}

func marshalDetail(v interface{}) ([]byte, error) {
	switch d := v.(type) {
	case *entities.GoldTradeDetail:
		if d == nil {
			return nil, nil
		}
	case *entities.PaymentDetail:
		if d == nil {
			return nil, nil
		}
	case *entities.DeliveryDetail:
		if d == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

// upsertTransaction inserts a new record or, for a known id, persists
// a status transition. Amounts and details are immutable after insert:
// the update path touches only status, history, error fields and the
// terminal timestamps. The update arm fires only while the stored
// status is still open, so a transition raced by another settler finds
// a finalized row, writes nothing and fails the enclosing mutation.
func upsertTransaction(ctx context.Context, tx *sqlx.Tx, t *entities.Transaction) error {
	history, err := json.Marshal(t.History)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	goldDetail, err := marshalDetail(t.GoldDetail)
	if err != nil {
		return fmt.Errorf("failed to encode gold detail: %w", err)
	}
	paymentDetail, err := marshalDetail(t.PaymentDetail)
	if err != nil {
		return fmt.Errorf("failed to encode payment detail: %w", err)
	}
	deliveryDetail, err := marshalDetail(t.DeliveryDetail)
	if err != nil {
		return fmt.Errorf("failed to encode delivery detail: %w", err)
	}

	query := `
		INSERT INTO transactions (id, user_id, wallet_id, type, status, amount,
			currency, fee, net_amount, gold_detail, payment_detail, delivery_detail,
			reference_key, description, error_code, error_message, history,
			completed_at, failed_at, cancelled_at, refunded_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			error_code = EXCLUDED.error_code,
			error_message = EXCLUDED.error_message,
			history = EXCLUDED.history,
			completed_at = EXCLUDED.completed_at,
			failed_at = EXCLUDED.failed_at,
			cancelled_at = EXCLUDED.cancelled_at,
			refunded_at = EXCLUDED.refunded_at,
			updated_at = EXCLUDED.updated_at
		WHERE transactions.status IN ('pending', 'processing')`

	result, err := tx.ExecContext(ctx, query,
		t.ID, t.UserID, t.WalletID, string(t.Type), string(t.Status), t.Amount,
		t.Currency, t.Fee, t.NetAmount, goldDetail, paymentDetail, deliveryDetail,
		t.ReferenceKey, t.Description, t.ErrorCode, t.ErrorMessage, history,
		t.CompletedAt, t.FailedAt, t.CancelledAt, t.RefundedAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: reference key already used", entities.ErrDuplicateReference)
		}
		return fmt.Errorf("failed to persist transaction: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: transaction already finalized", entities.ErrInvalidState)
	}
	return nil
}

const transactionColumns = `id, user_id, wallet_id, type, status, amount,
	currency, fee, net_amount, gold_detail, payment_detail, delivery_detail,
	reference_key, description, error_code, error_message, history,
	completed_at, failed_at, cancelled_at, refunded_at, created_at, updated_at`

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	var row transactionRow
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return row.toEntity()
}

func (r *TransactionRepository) GetByReferenceKey(ctx context.Context, walletID uuid.UUID, key string) (*entities.Transaction, error) {
	var row transactionRow
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE wallet_id = $1 AND reference_key = $2`
	if err := r.db.GetContext(ctx, &row, query, walletID, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by reference: %w", err)
	}
	return row.toEntity()
}

func buildTransactionFilter(filter repositories.TransactionFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != nil {
		conditions = append(conditions, "user_id = "+arg(*filter.UserID))
	}
	if filter.WalletID != nil {
		conditions = append(conditions, "wallet_id = "+arg(*filter.WalletID))
	}
	if filter.Type != nil {
		conditions = append(conditions, "type = "+arg(string(*filter.Type)))
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = "+arg(string(*filter.Status)))
	}
	if filter.Since != nil {
		conditions = append(conditions, "created_at >= "+arg(*filter.Since))
	}
	if filter.Until != nil {
		conditions = append(conditions, "created_at <= "+arg(*filter.Until))
	}

	return strings.Join(conditions, " AND "), args
}

func (r *TransactionRepository) List(ctx context.Context, filter repositories.TransactionFilter) ([]*entities.Transaction, error) {
	where, args := buildTransactionFilter(filter)

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s
		ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		transactionColumns, where, limit, filter.Offset)

	var rows []transactionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	result := make([]*entities.Transaction, 0, len(rows))
	for i := range rows {
		t, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

func (r *TransactionRepository) Count(ctx context.Context, filter repositories.TransactionFilter) (int64, error) {
	where, args := buildTransactionFilter(filter)

	var count int64
	query := "SELECT COUNT(*) FROM transactions WHERE " + where
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// UpdateStatus persists a status transition made outside a wallet
// mutation. Only the transition fields are written, and only while the
// stored status is still open.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, t *entities.Transaction) error {
	history, err := json.Marshal(t.History)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	query := `
		UPDATE transactions
		SET status = $2, error_code = $3, error_message = $4, history = $5,
			completed_at = $6, failed_at = $7, cancelled_at = $8, refunded_at = $9,
			updated_at = $10
		WHERE id = $1 AND status IN ('pending', 'processing')`
	result, err := r.db.ExecContext(ctx, query,
		t.ID, string(t.Status), t.ErrorCode, t.ErrorMessage, history,
		t.CompletedAt, t.FailedAt, t.CancelledAt, t.RefundedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: transaction missing or already finalized", entities.ErrInvalidState)
	}
	return nil
}

func (r *TransactionRepository) ListPendingDepositsBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entities.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`SELECT %s FROM transactions
		WHERE type = 'deposit' AND status = 'pending' AND created_at < $1
		ORDER BY created_at ASC LIMIT %d`, transactionColumns, limit)

	var rows []transactionRow
	if err := r.db.SelectContext(ctx, &rows, query, cutoff); err != nil {
		return nil, fmt.Errorf("failed to list pending deposits: %w", err)
	}

	result := make([]*entities.Transaction, 0, len(rows))
	for i := range rows {
		t, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}
