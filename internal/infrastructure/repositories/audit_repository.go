package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aurum-service/aurum_service/internal/domain/entities"
	"github.com/aurum-service/aurum_service/internal/domain/repositories"
)

// AuditRepository persists the append-only audit log. There is no
// update or delete path.
type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

type auditRow struct {
	ID           uuid.UUID  `db:"id"`
	ActorID      uuid.UUID  `db:"actor_id"`
	ActorRole    string     `db:"actor_role"`
	Action       string     `db:"action"`
	Category     string     `db:"category"`
	Description  string     `db:"description"`
	ResourceType string     `db:"resource_type"`
	ResourceID   *uuid.UUID `db:"resource_id"`
	Before       []byte     `db:"before"`
	After        []byte     `db:"after"`
	IPAddress    string     `db:"ip_address"`
	UserAgent    string     `db:"user_agent"`
	Status       string     `db:"status"`
	ErrorDetail  *string    `db:"error_detail"`
	PreviousHash string     `db:"previous_hash"`
	CurrentHash  string     `db:"current_hash"`
	CreatedAt    time.Time  `db:"created_at"`
}

func (r *auditRow) toEntity() (*entities.AuditLog, error) {
	log := &entities.AuditLog{
		ID:           r.ID,
		ActorID:      r.ActorID,
		ActorRole:    r.ActorRole,
		Action:       entities.AuditAction(r.Action),
		Category:     entities.AuditCategory(r.Category),
		Description:  r.Description,
		ResourceType: r.ResourceType,
		ResourceID:   r.ResourceID,
		IPAddress:    r.IPAddress,
		UserAgent:    r.UserAgent,
		Status:       r.Status,
		ErrorDetail:  r.ErrorDetail,
		PreviousHash: r.PreviousHash,
		CurrentHash:  r.CurrentHash,
		CreatedAt:    r.CreatedAt,
	}
	if len(r.Before) > 0 {
		if err := json.Unmarshal(r.Before, &log.Before); err != nil {
			return nil, fmt.Errorf("failed to decode before snapshot: %w", err)
		}
	}
	if len(r.After) > 0 {
		if err := json.Unmarshal(r.After, &log.After); err != nil {
			return nil, fmt.Errorf("failed to decode after snapshot: %w", err)
		}
	}
	return log, nil
}

func (r *AuditRepository) Create(ctx context.Context, log *entities.AuditLog) error {
	var before, after []byte
	var err error
	if log.Before != nil {
		if before, err = json.Marshal(log.Before); err != nil {
			return fmt.Errorf("failed to encode before snapshot: %w", err)
		}
	}
	if log.After != nil {
		if after, err = json.Marshal(log.After); err != nil {
			return fmt.Errorf("failed to encode after snapshot: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (id, actor_id, actor_role, action, category,
			description, resource_type, resource_id, before, after,
			ip_address, user_agent, status, error_detail,
			previous_hash, current_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = r.db.ExecContext(ctx, query,
		log.ID, log.ActorID, log.ActorRole, string(log.Action), string(log.Category),
		log.Description, log.ResourceType, log.ResourceID, before, after,
		log.IPAddress, log.UserAgent, log.Status, log.ErrorDetail,
		log.PreviousHash, log.CurrentHash, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func buildAuditFilter(filter repositories.AuditLogFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ActorID != nil {
		conditions = append(conditions, "actor_id = "+arg(*filter.ActorID))
	}
	if filter.Action != nil {
		conditions = append(conditions, "action = "+arg(string(*filter.Action)))
	}
	if filter.Category != nil {
		conditions = append(conditions, "category = "+arg(string(*filter.Category)))
	}
	if filter.ResourceType != nil {
		conditions = append(conditions, "resource_type = "+arg(*filter.ResourceType))
	}
	if filter.ResourceID != nil {
		conditions = append(conditions, "resource_id = "+arg(*filter.ResourceID))
	}
	if filter.StartDate != nil {
		conditions = append(conditions, "created_at >= "+arg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "created_at <= "+arg(*filter.EndDate))
	}

	return strings.Join(conditions, " AND "), args
}

const auditColumns = `id, actor_id, actor_role, action, category, description,
	resource_type, resource_id, before, after, ip_address, user_agent,
	status, error_detail, previous_hash, current_hash, created_at`

func (r *AuditRepository) List(ctx context.Context, filter repositories.AuditLogFilter) ([]*entities.AuditLog, error) {
	where, args := buildAuditFilter(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	// Chain verification walks entries oldest first.
	query := fmt.Sprintf(`SELECT %s FROM audit_logs WHERE %s
		ORDER BY created_at ASC LIMIT %d OFFSET %d`,
		auditColumns, where, limit, filter.Offset)

	var rows []auditRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}

	result := make([]*entities.AuditLog, 0, len(rows))
	for i := range rows {
		log, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		result = append(result, log)
	}
	return result, nil
}

func (r *AuditRepository) Count(ctx context.Context, filter repositories.AuditLogFilter) (int64, error) {
	where, args := buildAuditFilter(filter)

	var count int64
	query := "SELECT COUNT(*) FROM audit_logs WHERE " + where
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count audit logs: %w", err)
	}
	return count, nil
}
