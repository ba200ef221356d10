package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aurum-service/aurum_service/internal/domain/entities"
)

// WalletMutation is applied to a wallet inside one storage
// transaction. The wallet row is locked for the duration; the
// returned transaction record, if any, is inserted in the same
// storage transaction. If fn returns an error nothing is persisted.
type WalletMutation func(w *entities.Wallet) (*entities.Transaction, error)

// WalletRepository defines wallet persistence. Mutate is the only
// write path for balances and limit counters: implementations must
// guarantee that the read-check-write sequence is serialized per
// wallet and applied atomically with the transaction insert. A status
// transition whose stored record was finalized by a concurrent
// mutation must fail the whole mutation with ErrInvalidState, so a
// settlement raced from two sides applies exactly once.
type WalletRepository interface {
	Create(ctx context.Context, wallet *entities.Wallet) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.Wallet, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error)
	Mutate(ctx context.Context, userID uuid.UUID, fn WalletMutation) (*entities.Transaction, error)
}

// TransactionFilter narrows transaction queries
type TransactionFilter struct {
	UserID   *uuid.UUID
	WalletID *uuid.UUID
	Type     *entities.TransactionType
	Status   *entities.TransactionStatus
	Since    *time.Time
	Until    *time.Time
	Limit    int
	Offset   int
}

// TransactionRepository defines transaction persistence. Records are
// append-and-transition only: no update path can rewrite amounts or
// history, and nothing is ever deleted.
type TransactionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error)
	GetByReferenceKey(ctx context.Context, walletID uuid.UUID, key string) (*entities.Transaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]*entities.Transaction, error)
	Count(ctx context.Context, filter TransactionFilter) (int64, error)
	// UpdateStatus persists a status transition: the new status, the
	// appended history entry, terminal timestamp and error fields.
	// Fails with ErrInvalidState if the stored record is already
	// terminal.
	UpdateStatus(ctx context.Context, tx *entities.Transaction) error
	// ListPendingDepositsBefore returns pending deposits created
	// before the cutoff, for settlement.
	ListPendingDepositsBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entities.Transaction, error)
}

// AuditLogFilter narrows audit log queries
type AuditLogFilter struct {
	ActorID      *uuid.UUID
	Action       *entities.AuditAction
	Category     *entities.AuditCategory
	ResourceType *string
	ResourceID   *uuid.UUID
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int
	Offset       int
}

// AuditRepository defines append-only audit log persistence
type AuditRepository interface {
	Create(ctx context.Context, log *entities.AuditLog) error
	List(ctx context.Context, filter AuditLogFilter) ([]*entities.AuditLog, error)
	Count(ctx context.Context, filter AuditLogFilter) (int64, error)
}

// KYCRepository defines KYC record persistence. GetCurrentByUserID
// returns the most recent record for the user.
type KYCRepository interface {
	Create(ctx context.Context, record *entities.KYCRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.KYCRecord, error)
	GetCurrentByUserID(ctx context.Context, userID uuid.UUID) (*entities.KYCRecord, error)
	Update(ctx context.Context, record *entities.KYCRecord) error
	ListByStatus(ctx context.Context, status entities.KYCStatus, limit, offset int) ([]*entities.KYCRecord, error)
	ListExpiring(ctx context.Context, before time.Time, limit int) ([]*entities.KYCRecord, error)
}

// SettingsRepository is the source of truth for fee and limit
// schedules. Defaults from config seed it on first run.
type SettingsRepository interface {
	GetFeeSchedule(ctx context.Context) (entities.FeeSchedule, error)
	SaveFeeSchedule(ctx context.Context, s entities.FeeSchedule) error
	GetLimitSchedule(ctx context.Context) (entities.LimitSchedule, error)
	SaveLimitSchedule(ctx context.Context, s entities.LimitSchedule) error
}
