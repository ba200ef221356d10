package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aurum-service/aurum_service/internal/domain/entities"
)

const (
	feeScheduleKey   = "fee_schedule"
	limitScheduleKey = "limit_schedule"
)

// SettingsRepository stores the fee and limit schedules as versioned
// JSON documents keyed by name. Defaults seed the table when a key is
// missing.
type SettingsRepository struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) get(ctx context.Context, key string, out interface{}) (bool, error) {
	var raw []byte
	err := r.db.GetContext(ctx, &raw, `SELECT value FROM settings WHERE key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode setting %s: %w", key, err)
	}
	return true, nil
}

func (r *SettingsRepository) save(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}

	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, key, raw, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

func (r *SettingsRepository) GetFeeSchedule(ctx context.Context) (entities.FeeSchedule, error) {
	var schedule entities.FeeSchedule
	found, err := r.get(ctx, feeScheduleKey, &schedule)
	if err != nil {
		return entities.FeeSchedule{}, err
	}
	if !found {
		return entities.DefaultFeeSchedule(), nil
	}
	return schedule, nil
}

func (r *SettingsRepository) SaveFeeSchedule(ctx context.Context, s entities.FeeSchedule) error {
	return r.save(ctx, feeScheduleKey, s)
}

func (r *SettingsRepository) GetLimitSchedule(ctx context.Context) (entities.LimitSchedule, error) {
	var schedule entities.LimitSchedule
	found, err := r.get(ctx, limitScheduleKey, &schedule)
	if err != nil {
		return nil, err
	}
	if !found {
		return entities.DefaultLimitSchedule(), nil
	}
	return schedule, nil
}

func (r *SettingsRepository) SaveLimitSchedule(ctx context.Context, s entities.LimitSchedule) error {
	return r.save(ctx, limitScheduleKey, s)
}
