// Package repositories contains the Postgres implementations of the
// domain repository interfaces.
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
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/aurum-service/aurum_service/internal/domain/entities"
	"github.com/aurum-service/aurum_service/internal/domain/repositories"
)

type WalletRepository struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

type walletRow struct {
	ID            uuid.UUID       `db:"id"`
	UserID        uuid.UUID       `db:"user_id"`
	Balances      []byte          `db:"balances"`
	GoldGrams     decimal.Decimal `db:"gold_grams"`
	GoldAvgCost   decimal.Decimal `db:"gold_avg_cost"`
	Limits        []byte          `db:"limits"`
	LimitsResetAt time.Time       `db:"limits_reset_at"`
	Frozen        bool            `db:"frozen"`
	FrozenReason  string          `db:"frozen_reason"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (r *walletRow) toEntity() (*entities.Wallet, error) {
	w := &entities.Wallet{
		ID:            r.ID,
		UserID:        r.UserID,
		GoldGrams:     r.GoldGrams,
		GoldAvgCost:   r.GoldAvgCost,
		LimitsResetAt: r.LimitsResetAt,
		Frozen:        r.Frozen,
		FrozenReason:  r.FrozenReason,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if err := json.Unmarshal(r.Balances, &w.Balances); err != nil {
		return nil, fmt.Errorf("failed to decode balances: %w", err)
	}
	if err := json.Unmarshal(r.Limits, &w.Limits); err != nil {
		return nil, fmt.Errorf("failed to decode limits: %w", err)
	}
	if w.Balances == nil {
		w.Balances = make(map[string]decimal.Decimal)
	}
	if w.Limits == nil {
		w.Limits = make(map[entities.OperationClass]*entities.LimitUsage)
	}
	return w, nil
}

func walletArgs(w *entities.Wallet) (balances, limits []byte, err error) {
	balances, err = json.Marshal(w.Balances)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode balances: %w", err)
	}
	limits, err = json.Marshal(w.Limits)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode limits: %w", err)
	}
	return balances, limits, nil
}

func (r *WalletRepository) Create(ctx context.Context, wallet *entities.Wallet) error {
	balances, limits, err := walletArgs(wallet)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO wallets (id, user_id, balances, gold_grams, gold_avg_cost,
			limits, limits_reset_at, frozen, frozen_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.ExecContext(ctx, query,
		wallet.ID, wallet.UserID, balances, wallet.GoldGrams, wallet.GoldAvgCost,
		limits, wallet.LimitsResetAt, wallet.Frozen, wallet.FrozenReason,
		wallet.CreatedAt, wallet.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: wallet already exists for user", entities.ErrValidation)
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

const walletColumns = `id, user_id, balances, gold_grams, gold_avg_cost,
	limits, limits_reset_at, frozen, frozen_reason, created_at, updated_at`

func (r *WalletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.Wallet, error) {
	var row walletRow
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return row.toEntity()
}

func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	var row walletRow
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return row.toEntity()
}

// Mutate loads the wallet under a row lock, applies fn, and persists
// the wallet together with the transaction record fn returns, all in
// one storage transaction. Concurrent mutations of the same wallet
// serialize on the lock.
func (r *WalletRepository) Mutate(ctx context.Context, userID uuid.UUID, fn repositories.WalletMutation) (*entities.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var row walletRow
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}

	wallet, err := row.toEntity()
	if err != nil {
		return nil, err
	}

	record, err := fn(wallet)
	if err != nil {
		return nil, err
	}

	wallet.UpdatedAt = time.Now().UTC()
	balances, limits, err := walletArgs(wallet)
	if err != nil {
		return nil, err
	}

	updateQuery := `
		UPDATE wallets
		SET balances = $2, gold_grams = $3, gold_avg_cost = $4, limits = $5,
			limits_reset_at = $6, frozen = $7, frozen_reason = $8, updated_at = $9
		WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateQuery,
		wallet.ID, balances, wallet.GoldGrams, wallet.GoldAvgCost, limits,
		wallet.LimitsResetAt, wallet.Frozen, wallet.FrozenReason, wallet.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to update wallet: %w", err)
	}

	if record != nil {
		if err := upsertTransaction(ctx, tx, record); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit wallet mutation: %w", err)
	}
	return record, nil
}
