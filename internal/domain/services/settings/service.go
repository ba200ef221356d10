// Package settings serves the fee and limit schedules. The database
// is the source of truth; compiled-in defaults only seed it. Reads
// are cached briefly since every wallet operation consults them.
package settings

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aurum-service/aurum_service/internal/domain/entities"
	"github.com/aurum-service/aurum_service/internal/domain/repositories"
)

const cacheTTL = 30 * time.Second

type Service struct {
	repo   repositories.SettingsRepository
	logger *zap.Logger

	mu             sync.RWMutex
	fees           entities.FeeSchedule
	feesLoadedAt   time.Time
	limits         entities.LimitSchedule
	limitsLoadedAt time.Time
}

func NewService(repo repositories.SettingsRepository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// FeeSchedule returns the current fee policy
func (s *Service) FeeSchedule(ctx context.Context) (entities.FeeSchedule, error) {
	s.mu.RLock()
	if time.Since(s.feesLoadedAt) < cacheTTL {
		fees := s.fees
		s.mu.RUnlock()
		return fees, nil
	}
	s.mu.RUnlock()

	fees, err := s.repo.GetFeeSchedule(ctx)
	if err != nil {
		return entities.FeeSchedule{}, err
	}

	s.mu.Lock()
	s.fees = fees
	s.feesLoadedAt = time.Now()
	s.mu.Unlock()
	return fees, nil
}

// LimitSchedule returns the current limit caps
func (s *Service) LimitSchedule(ctx context.Context) (entities.LimitSchedule, error) {
	s.mu.RLock()
	if time.Since(s.limitsLoadedAt) < cacheTTL {
		limits := s.limits
		s.mu.RUnlock()
		return limits, nil
	}
	s.mu.RUnlock()

	limits, err := s.repo.GetLimitSchedule(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.limits = limits
	s.limitsLoadedAt = time.Now()
	s.mu.Unlock()
	return limits, nil
}

// UpdateFeeSchedule persists a new fee policy and invalidates the
// cache. Returns the previous schedule for the audit trail.
func (s *Service) UpdateFeeSchedule(ctx context.Context, schedule entities.FeeSchedule) (entities.FeeSchedule, error) {
	previous, err := s.repo.GetFeeSchedule(ctx)
	if err != nil {
		return entities.FeeSchedule{}, err
	}
	if err := s.repo.SaveFeeSchedule(ctx, schedule); err != nil {
		return entities.FeeSchedule{}, err
	}

	s.mu.Lock()
	s.feesLoadedAt = time.Time{}
	s.mu.Unlock()

	s.logger.Info("Fee schedule updated")
	return previous, nil
}

// UpdateLimitSchedule persists new limit caps and invalidates the
// cache. New caps apply to existing wallets on their next operation.
// Returns the previous schedule for the audit trail.
func (s *Service) UpdateLimitSchedule(ctx context.Context, schedule entities.LimitSchedule) (entities.LimitSchedule, error) {
	previous, err := s.repo.GetLimitSchedule(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveLimitSchedule(ctx, schedule); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.limitsLoadedAt = time.Time{}
	s.mu.Unlock()

	s.logger.Info("Limit schedule updated")
	return previous, nil
}
