// Package settlement runs the periodic housekeeping sweep: pending
// deposits past their hold are confirmed and credited, and verified
// KYC records past their expiry are retired.
package settlement

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/aurum-service/aurum_service/internal/domain/repositories"
	kycsvc "github.com/aurum-service/aurum_service/internal/domain/services/kyc"
	walletsvc "github.com/aurum-service/aurum_service/internal/domain/services/wallet"
	"github.com/aurum-service/aurum_service/internal/infrastructure/config"
	"github.com/aurum-service/aurum_service/pkg/metrics"
)

// Worker sweeps on a cron schedule
type Worker struct {
	cfg          config.SettlementConfig
	wallets      *walletsvc.Service
	kyc          *kycsvc.Service
	transactions repositories.TransactionRepository
	logger       *zap.Logger

	cron *cron.Cron
}

func NewWorker(
	cfg config.SettlementConfig,
	wallets *walletsvc.Service,
	kyc *kycsvc.Service,
	transactions repositories.TransactionRepository,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		cfg:          cfg,
		wallets:      wallets,
		kyc:          kyc,
		transactions: transactions,
		logger:       logger,
	}
}

// Start schedules the sweep. Runs until Stop is called.
func (w *Worker) Start() error {
	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.cfg.Schedule, w.sweep); err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info("settlement worker started",
		zap.String("schedule", w.cfg.Schedule),
		zap.Int("deposit_hold_minutes", w.cfg.DepositHoldMinutes),
	)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (w *Worker) Stop() {
	if w.cron == nil {
		return
	}
	ctx := w.cron.Stop()
	<-ctx.Done()
	w.logger.Info("settlement worker stopped")
}

func (w *Worker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	failed := false
	if err := w.settleDeposits(ctx); err != nil {
		w.logger.Error("deposit settlement sweep failed", zap.Error(err))
		failed = true
	}
	if err := w.expireKYC(ctx); err != nil {
		w.logger.Error("kyc expiry sweep failed", zap.Error(err))
		failed = true
	}

	outcome := "success"
	if failed {
		outcome = "failure"
	}
	metrics.SettlementRunsTotal.WithLabelValues(outcome).Inc()
}

// settleDeposits confirms pending deposits older than the hold window.
// Each deposit settles independently; one failure does not stop the
// batch.
func (w *Worker) settleDeposits(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-time.Duration(w.cfg.DepositHoldMinutes) * time.Minute)

	deposits, err := w.transactions.ListPendingDepositsBefore(ctx, cutoff, w.cfg.BatchSize)
	if err != nil {
		return err
	}

	settled := 0
	for _, deposit := range deposits {
		if _, err := w.wallets.ConfirmDeposit(ctx, deposit.ID); err != nil {
			w.logger.Warn("failed to settle deposit",
				zap.Error(err),
				zap.String("transaction_id", deposit.ID.String()),
			)
			continue
		}
		settled++
		metrics.DepositsSettledTotal.Inc()
	}

	if len(deposits) > 0 {
		w.logger.Info("deposit settlement sweep finished",
			zap.Int("eligible", len(deposits)),
			zap.Int("settled", settled),
		)
	}
	return nil
}

func (w *Worker) expireKYC(ctx context.Context) error {
	expired, err := w.kyc.ExpireStale(ctx, w.cfg.BatchSize)
	if err != nil {
		return err
	}
	if expired > 0 {
		w.logger.Info("expired stale verifications", zap.Int("count", expired))
	}
	return nil
}
