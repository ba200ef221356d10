// Package wallet orchestrates wallet operations: limit tracking, fee
// calculation, balance mutation and transaction recording, applied as
// one atomic unit per wallet.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurum-service/aurum_service/internal/domain/entities"
	"github.com/aurum-service/aurum_service/internal/domain/repositories"
	"github.com/aurum-service/aurum_service/internal/domain/services/ledger"
	"github.com/aurum-service/aurum_service/pkg/logger"
	"github.com/aurum-service/aurum_service/pkg/metrics"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// SettingsProvider supplies the current fee and limit schedules
type SettingsProvider interface {
	FeeSchedule(ctx context.Context) (entities.FeeSchedule, error)
	LimitSchedule(ctx context.Context) (entities.LimitSchedule, error)
}

// QuoteProvider supplies the current gold price per gram
type QuoteProvider interface {
	PricePerGram(ctx context.Context) (decimal.Decimal, error)
}

// KYCGate answers whether a user holds a currently valid verification
type KYCGate interface {
	IsVerified(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Notifier sends user notifications after a transaction reaches a
// terminal state. Failures are logged and never roll anything back.
type Notifier interface {
	NotifyTransactionCompleted(ctx context.Context, userID uuid.UUID, tx *entities.Transaction) error
	NotifyTransactionFailed(ctx context.Context, userID uuid.UUID, tx *entities.Transaction, reason string) error
}

// Service coordinates wallet operations
type Service struct {
	wallets      repositories.WalletRepository
	transactions repositories.TransactionRepository
	settings     SettingsProvider
	quotes       QuoteProvider
	kycGate      KYCGate
	notifier     Notifier
	logger       *logger.Logger
	now          func() time.Time
}

// NewService creates a wallet service. The notifier is optional; the
// time source is injected so day-boundary behaviour is testable.
func NewService(
	wallets repositories.WalletRepository,
	transactions repositories.TransactionRepository,
	settings SettingsProvider,
	quotes QuoteProvider,
	kycGate KYCGate,
	log *logger.Logger,
) *Service {
	return &Service{
		wallets:      wallets,
		transactions: transactions,
		settings:     settings,
		quotes:       quotes,
		kycGate:      kycGate,
		logger:       log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetNotifier sets the terminal-state notifier (optional)
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetClock overrides the time source (tests)
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateWallet provisions the wallet for a new user with the current
// limit schedule. Called once at account creation.
func (s *Service) CreateWallet(ctx context.Context, userID uuid.UUID) (*entities.Wallet, error) {
	schedule, err := s.settings.LimitSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load limit schedule: %w", err)
	}

	w := entities.NewWallet(userID, schedule, s.now())
	if err := s.wallets.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	s.logger.Info("Wallet created", "user_id", userID.String(), "wallet_id", w.ID.String())
	return w, nil
}

// GetWallet returns the wallet for a user
func (s *Service) GetWallet(ctx context.Context, userID uuid.UUID) (*entities.Wallet, error) {
	return s.wallets.GetByUserID(ctx, userID)
}

// Holdings is the wallet view enriched with the live quote
type Holdings struct {
	Wallet        *entities.Wallet `json:"wallet"`
	PricePerGram  decimal.Decimal  `json:"price_per_gram"`
	GoldValue     decimal.Decimal  `json:"gold_value"`
	UnrealizedPnL decimal.Decimal  `json:"unrealized_pnl"`
}

// GetHoldings returns the wallet with gold marked to the current quote
func (s *Service) GetHoldings(ctx context.Context, userID uuid.UUID) (*Holdings, error) {
	w, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	price, err := s.quotes.PricePerGram(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gold quote: %w", err)
	}

	return &Holdings{
		Wallet:        w,
		PricePerGram:  price,
		GoldValue:     w.GoldGrams.Mul(price).Round(2),
		UnrealizedPnL: w.UnrealizedPnL(price).Round(2),
	}, nil
}

// DepositRequest initiates a cash deposit
type DepositRequest struct {
	Amount       decimal.Decimal
	Currency     string
	Method       string
	Reference    string
	ReferenceKey string
}

// Deposit records a provisional deposit. The balance is credited only
// when the settlement worker (or an admin) confirms the transaction;
// the daily-used counter is charged at acceptance.
func (s *Service) Deposit(ctx context.Context, userID uuid.UUID, req DepositRequest) (*entities.Transaction, error) {
	if err := validateAmount(req.Amount, req.Currency); err != nil {
		return nil, err
	}

	if tx, ok, err := s.findByReference(ctx, userID, req.ReferenceKey); err != nil || ok {
		return tx, err
	}

	fees, err := s.settings.FeeSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load fee schedule: %w", err)
	}
	limitSched, err := s.settings.LimitSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load limit schedule: %w", err)
	}

	tx, err := s.wallets.Mutate(ctx, userID, func(w *entities.Wallet) (*entities.Transaction, error) {
		now := s.now()
		w.ResetIfNewDay(now)
		applyCaps(w, limitSched)

		if w.Frozen {
			return nil, fmt.Errorf("%w: %s", entities.ErrWalletFrozen, w.FrozenReason)
		}
		if err := checkLimits(w, entities.OpDeposit, req.Amount); err != nil {
			return nil, err
		}

		result := CalculateFee(fees, entities.OpDeposit, req.Amount)
		draft := ledger.Draft{
			UserID:   userID,
			WalletID: w.ID,
			Type:     entities.TxTypeDeposit,
			Amount:   req.Amount,
			Currency: req.Currency,
			Fee:      result.Fee,
			PaymentDetail: &entities.PaymentDetail{
				Method:    req.Method,
				Reference: req.Reference,
			},
			ReferenceKey: refKey(req.ReferenceKey),
			Description:  fmt.Sprintf("Deposit %s %s", req.Amount.String(), req.Currency),
		}
		if err := draft.Validate(); err != nil {
			return nil, err
		}

		w.RecordUsage(entities.OpDeposit, req.Amount)
		return ledger.Create(draft, now), nil
	})
	if err != nil {
		return nil, s.reject(entities.OpDeposit, userID, err)
	}

	metrics.WalletOperationsTotal.WithLabelValues(string(entities.OpDeposit), "accepted").Inc()
	s.logger.Info("Deposit initiated",
		"user_id", userID.String(),
		"transaction_id", tx.ID.String(),
		"amount", req.Amount.String(),
		"currency", req.Currency)

	return tx, nil
}

// ConfirmDeposit credits the wallet and completes a pending deposit.
// Called by the settlement worker once the payment provider confirms,
// or by an admin.
func (s *Service) ConfirmDeposit(ctx context.Context, txID uuid.UUID) (*entities.Transaction, error) {
	pending, err := s.transactions.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if pending.Type != entities.TxTypeDeposit {
		return nil, fmt.Errorf("%w: transaction is not a deposit", entities.ErrInvalidState)
	}

	tx, err := s.wallets.Mutate(ctx, pending.UserID, func(w *entities.Wallet) (*entities.Transaction, error) {
		now := s.now()
		w.ResetIfNewDay(now)

		if err := ledger.Transition(pending, entities.TxStatusCompleted, "settlement confirmed", now); err != nil {
			return nil, err
		}
		if err := w.Credit(pending.Currency, pending.NetAmount); err != nil {
			return nil, err
		}
		return pending, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyTerminal(ctx, tx)
	s.logger.Info("Deposit confirmed",
		"transaction_id", tx.ID.String(),
		"net_amount", tx.NetAmount.String())
	return tx, nil
}

// WithdrawRequest initiates a cash withdrawal
type WithdrawRequest struct {
	Amount       decimal.Decimal
	Currency     string
	Method       string
	Reference    string
	ReferenceKey string
}

// Withdraw debits the wallet and records a pending withdrawal to be
// paid out by the payment provider. The user receives the net amount
// after the withdrawal fee.
func (s *Service) Withdraw(ctx context.Context, userID uuid.UUID, req WithdrawRequest) (*entities.Transaction, error) {
	if err := validateAmount(req.Amount, req.Currency); err != nil {
		return nil, err
	}

	if tx, ok, err := s.findByReference(ctx, userID, req.ReferenceKey); err != nil || ok {
		return tx, err
	}

	fees, err := s.settings.FeeSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load fee schedule: %w", err)
	}
	limitSched, err := s.settings.LimitSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load limit schedule: %w", err)
	}

	tx, err := s.wallets.Mutate(ctx, userID, func(w *entities.Wallet) (*entities.Transaction, error) {
		now := s.now()
		w.ResetIfNewDay(now)
		applyCaps(w, limitSched)

		if err := s.checkPreconditions(ctx, w, userID); err != nil {
			return nil, err
		}
		if err := checkLimits(w, entities.OpWithdrawal, req.Amount); err != nil {
			return nil, err
		}

		result := CalculateFee(fees, entities.OpWithdrawal, req.Amount)
		draft := ledger.Draft{
			UserID:   userID,
			WalletID: w.ID,
			Type:     entities.TxTypeWithdrawal,
			Amount:   req.Amount,
			Currency: req.Currency,
			Fee:      result.Fee,
			PaymentDetail: &entities.PaymentDetail{
				Method:    req.Method,
				Reference: req.Reference,
			},
			ReferenceKey: refKey(req.ReferenceKey),
			Description:  fmt.Sprintf("Withdraw %s %s", req.Amount.String(), req.Currency),
		}
		if err := draft.Validate(); err != nil {
			return nil, err
		}

		if err := w.Debit(req.Currency, req.Amount); err != nil {
			return nil, err
		}
		w.RecordUsage(entities.OpWithdrawal, req.Amount)
		return ledger.Create(draft, now), nil
	})
	if err != nil {
		return nil, s.reject(entities.OpWithdrawal, userID, err)
	}

	metrics.WalletOperationsTotal.WithLabelValues(string(entities.OpWithdrawal), "accepted").Inc()
	s.logger.Info("Withdrawal initiated",
		"user_id", userID.String(),
		"transaction_id", tx.ID.String(),
		"amount", req.Amount.String(),
		"net_amount", tx.NetAmount.String())

	return tx, nil
}

// TradeRequest initiates a gold purchase or sale by grams at the
// current quote
type TradeRequest struct {
	Grams        decimal.Decimal
	Currency     string
	ReferenceKey string
}

// BuyGold purchases grams at the current quote. The wallet is charged
// the gold value plus the buy fee; grams and the weighted-average
// cost basis update together. Settles instantly against the vault.
func (s *Service) BuyGold(ctx context.Context, userID uuid.UUID, req TradeRequest) (*entities.Transaction, error) {
	if err := validateAmount(req.Grams, req.Currency); err != nil {
		return nil, err
	}

	if tx, ok, err := s.findByReference(ctx, userID, req.ReferenceKey); err != nil || ok {
		return tx, err
	}

	fees, err := s.settings.FeeSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load fee schedule: %w", err)
	}
	limitSched, err := s.settings.LimitSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load limit schedule: %w", err)
	}
	price, err := s.quotes.PricePerGram(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gold quote: %w", err)
	}

	amount := req.Grams.Mul(price).Round(2)

	tx, err := s.wallets.Mutate(ctx, userID, func(w *entities.Wallet) (*entities.Transaction, error) {
		now := s.now()
		w.ResetIfNewDay(now)
		applyCaps(w, limitSched)

		if err := s.checkPreconditions(ctx, w, userID); err != nil {
			return nil, err
		}
		if err := checkLimits(w, entities.OpBuyGold, amount); err != nil {
			return nil, err
		}

		result := CalculateFee(fees, entities.OpBuyGold, amount)
		totalCharge := amount.Add(result.Fee)

		if err := w.Debit(req.Currency, totalCharge); err != nil {
			return nil, err
		}
		if err := w.ApplyGoldPurchase(req.Grams, price); err != nil {
			return nil, err
		}
		w.RecordUsage(entities.OpBuyGold, amount)

		draft := ledger.Draft{
			UserID:   userID,
			WalletID: w.ID,
			Type:     entities.TxTypeBuyGold,
			Amount:   amount,
			Currency: req.Currency,
			Fee:      result.Fee,
			GoldDetail: &entities.GoldTradeDetail{
				Grams:        req.Grams,
				PricePerGram: price,
			},
			ReferenceKey: refKey(req.ReferenceKey),
			Description:  fmt.Sprintf("Buy %sg gold at %s/g", req.Grams.String(), price.String()),
		}
		if err := draft.Validate(); err != nil {
			return nil, err
		}

		record := ledger.Create(draft, now)
		if err := ledger.Transition(record, entities.TxStatusCompleted, "settled against vault", now); err != nil {
			return nil, err
		}
		return record, nil
	})
	if err != nil {
		return nil, s.reject(entities.OpBuyGold, userID, err)
	}

	metrics.WalletOperationsTotal.WithLabelValues(string(entities.OpBuyGold), "accepted").Inc()
	s.notifyTerminal(ctx, tx)
	s.logger.Info("Gold purchased",
		"user_id", userID.String(),
		"transaction_id", tx.ID.String(),
		"grams", req.Grams.String(),
		"price_per_gram", price.String())

	return tx, nil
}

// SellGold sells grams at the current quote. Grams decrease, the cost
// basis is unchanged, and the wallet is credited the sale value net
// of the sell fee. Settles instantly against the vault.
func (s *Service) SellGold(ctx context.Context, userID uuid.UUID, req TradeRequest) (*entities.Transaction, error) {
	if err := validateAmount(req.Grams, req.Currency); err != nil {
		return nil, err
	}

	if tx, ok, err := s.findByReference(ctx, userID, req.ReferenceKey); err != nil || ok {
		return tx, err
	}

	fees, err := s.settings.FeeSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load fee schedule: %w", err)
	}
	limitSched, err := s.settings.LimitSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load limit schedule: %w", err)
	}
	price, err := s.quotes.PricePerGram(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gold quote: %w", err)
	}

	amount := req.Grams.Mul(price).Round(2)

	tx, err := s.wallets.Mutate(ctx, userID, func(w *entities.Wallet) (*entities.Transaction, error) {
		now := s.now()
		w.ResetIfNewDay(now)
		applyCaps(w, limitSched)

		if err := s.checkPreconditions(ctx, w, userID); err != nil {
			return nil, err
		}
		if err := checkLimits(w, entities.OpSellGold, amount); err != nil {
			return nil, err
		}

		result := CalculateFee(fees, entities.OpSellGold, amount)

		if err := w.ApplyGoldSale(req.Grams); err != nil {
			return nil, err
		}
		if err := w.Credit(req.Currency, result.Net); err != nil {
			return nil, err
		}
		w.RecordUsage(entities.OpSellGold, amount)

		draft := ledger.Draft{
			UserID:   userID,
			WalletID: w.ID,
			Type:     entities.TxTypeSellGold,
			Amount:   amount,
			Currency: req.Currency,
			Fee:      result.Fee,
			GoldDetail: &entities.GoldTradeDetail{
				Grams:        req.Grams,
				PricePerGram: price,
			},
			ReferenceKey: refKey(req.ReferenceKey),
			Description:  fmt.Sprintf("Sell %sg gold at %s/g", req.Grams.String(), price.String()),
		}
		if err := draft.Validate(); err != nil {
			return nil, err
		}

		record := ledger.Create(draft, now)
		if err := ledger.Transition(record, entities.TxStatusCompleted, "settled against vault", now); err != nil {
			return nil, err
		}
		return record, nil
	})
	if err != nil {
		return nil, s.reject(entities.OpSellGold, userID, err)
	}

	metrics.WalletOperationsTotal.WithLabelValues(string(entities.OpSellGold), "accepted").Inc()
	s.notifyTerminal(ctx, tx)
	s.logger.Info("Gold sold",
		"user_id", userID.String(),
		"transaction_id", tx.ID.String(),
		"grams", req.Grams.String(),
		"net_amount", tx.NetAmount.String())

	return tx, nil
}

// DeliveryRequest initiates a physical gold delivery
type DeliveryRequest struct {
	Grams        decimal.Decimal
	Currency     string
	Address      entities.DeliveryDetail
	ReferenceKey string
}

// RequestDelivery ships held grams to the user. The flat charge
// (insurance plus shipping tier) is debited, grams leave the vault,
// and the shipment stays pending until an admin marks it delivered.
// The delivery limit class is tracked in grams, not cash.
func (s *Service) RequestDelivery(ctx context.Context, userID uuid.UUID, req DeliveryRequest) (*entities.Transaction, error) {
	if err := validateAmount(req.Grams, req.Currency); err != nil {
		return nil, err
	}
	if req.Address.AddressLine1 == "" || req.Address.City == "" || req.Address.Country == "" {
		return nil, fmt.Errorf("%w: incomplete delivery address", entities.ErrValidation)
	}

	if tx, ok, err := s.findByReference(ctx, userID, req.ReferenceKey); err != nil || ok {
		return tx, err
	}

	fees, err := s.settings.FeeSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load fee schedule: %w", err)
	}
	limitSched, err := s.settings.LimitSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load limit schedule: %w", err)
	}
	price, err := s.quotes.PricePerGram(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gold quote: %w", err)
	}

	charge := DeliveryCharge(fees, req.Grams)

	tx, err := s.wallets.Mutate(ctx, userID, func(w *entities.Wallet) (*entities.Transaction, error) {
		now := s.now()
		w.ResetIfNewDay(now)
		applyCaps(w, limitSched)

		if err := s.checkPreconditions(ctx, w, userID); err != nil {
			return nil, err
		}
		if err := checkLimits(w, entities.OpDelivery, req.Grams); err != nil {
			return nil, err
		}

		if err := w.Debit(req.Currency, charge); err != nil {
			return nil, err
		}
		if err := w.ApplyGoldSale(req.Grams); err != nil {
			return nil, err
		}
		w.RecordUsage(entities.OpDelivery, req.Grams)

		address := req.Address
		draft := ledger.Draft{
			UserID:   userID,
			WalletID: w.ID,
			Type:     entities.TxTypeDelivery,
			Amount:   charge,
			Currency: req.Currency,
			Fee:      charge,
			GoldDetail: &entities.GoldTradeDetail{
				Grams:        req.Grams,
				PricePerGram: price,
			},
			DeliveryDetail: &address,
			ReferenceKey:   refKey(req.ReferenceKey),
			Description:    fmt.Sprintf("Physical delivery of %sg gold", req.Grams.String()),
		}
		if err := draft.Validate(); err != nil {
			return nil, err
		}
		return ledger.Create(draft, now), nil
	})
	if err != nil {
		return nil, s.reject(entities.OpDelivery, userID, err)
	}

	metrics.WalletOperationsTotal.WithLabelValues(string(entities.OpDelivery), "accepted").Inc()
	s.logger.Info("Delivery requested",
		"user_id", userID.String(),
		"transaction_id", tx.ID.String(),
		"grams", req.Grams.String(),
		"charge", charge.String())

	return tx, nil
}

// CompleteTransaction transitions a pending withdrawal or delivery to
// completed once the external leg settles. Deposits must go through
// ConfirmDeposit, which credits the balance with the completion.
func (s *Service) CompleteTransaction(ctx context.Context, txID uuid.UUID, note string) (*entities.Transaction, error) {
	pending, err := s.transactions.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if pending.Type == entities.TxTypeDeposit {
		return nil, fmt.Errorf("%w: deposits are completed through settlement confirmation", entities.ErrInvalidState)
	}

	tx, err := s.wallets.Mutate(ctx, pending.UserID, func(w *entities.Wallet) (*entities.Transaction, error) {
		if err := ledger.Transition(pending, entities.TxStatusCompleted, note, s.now()); err != nil {
			return nil, err
		}
		return pending, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyTerminal(ctx, tx)
	return tx, nil
}

// CancelTransaction cancels a non-terminal transaction and reverses
// any balance effects its initiation applied, atomically with the
// status change.
func (s *Service) CancelTransaction(ctx context.Context, txID uuid.UUID, note string) (*entities.Transaction, error) {
	return s.reverse(ctx, txID, entities.TxStatusCancelled, note)
}

// RefundTransaction refunds a non-terminal transaction, reversing its
// balance effects
func (s *Service) RefundTransaction(ctx context.Context, txID uuid.UUID, note string) (*entities.Transaction, error) {
	return s.reverse(ctx, txID, entities.TxStatusRefunded, note)
}

func (s *Service) reverse(ctx context.Context, txID uuid.UUID, target entities.TransactionStatus, note string) (*entities.Transaction, error) {
	pending, err := s.transactions.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}

	tx, err := s.wallets.Mutate(ctx, pending.UserID, func(w *entities.Wallet) (*entities.Transaction, error) {
		now := s.now()
		w.ResetIfNewDay(now)

		if target == entities.TxStatusRefunded && pending.Status == entities.TxStatusPending {
			// The machine only permits refunds from processing.
			if err := ledger.Transition(pending, entities.TxStatusProcessing, "refund requested", now); err != nil {
				return nil, err
			}
		}
		if err := ledger.Transition(pending, target, note, now); err != nil {
			return nil, err
		}
		if err := s.compensate(w, pending); err != nil {
			return nil, err
		}
		return pending, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyTerminal(ctx, tx)
	s.logger.Info("Transaction reversed",
		"transaction_id", tx.ID.String(),
		"status", string(tx.Status))
	return tx, nil
}

// compensate undoes the balance effects of an initiated operation.
// Deposits never credited anything, so there is nothing to undo.
func (s *Service) compensate(w *entities.Wallet, tx *entities.Transaction) error {
	switch tx.Type {
	case entities.TxTypeDeposit:
		return nil
	case entities.TxTypeWithdrawal:
		return w.Credit(tx.Currency, tx.Amount)
	case entities.TxTypeDelivery:
		if err := w.Credit(tx.Currency, tx.Amount); err != nil {
			return err
		}
		// Returning grams at the wallet's own cost basis keeps the
		// average unchanged.
		basis := w.GoldAvgCost
		if basis.IsZero() && tx.GoldDetail != nil {
			basis = tx.GoldDetail.PricePerGram
		}
		return w.ApplyGoldPurchase(tx.GoldDetail.Grams, basis)
	default:
		return fmt.Errorf("%w: %s transactions settle instantly and cannot be reversed", entities.ErrInvalidState, tx.Type)
	}
}

// FreezeWallet soft-freezes a wallet; every subsequent operation is
// rejected until it is unfrozen
func (s *Service) FreezeWallet(ctx context.Context, userID uuid.UUID, reason string) error {
	_, err := s.wallets.Mutate(ctx, userID, func(w *entities.Wallet) (*entities.Transaction, error) {
		w.Freeze(reason)
		return nil, nil
	})
	if err != nil {
		return err
	}
	s.logger.Warn("Wallet frozen", "user_id", userID.String(), "reason", reason)
	return nil
}

// UnfreezeWallet reactivates a frozen wallet
func (s *Service) UnfreezeWallet(ctx context.Context, userID uuid.UUID) error {
	_, err := s.wallets.Mutate(ctx, userID, func(w *entities.Wallet) (*entities.Transaction, error) {
		w.Unfreeze()
		return nil, nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("Wallet unfrozen", "user_id", userID.String())
	return nil
}

// GetTransaction returns a transaction by id
func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	return s.transactions.GetByID(ctx, id)
}

// ListTransactions returns a page of the user's transactions
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, filter repositories.TransactionFilter) ([]*entities.Transaction, int64, error) {
	filter.UserID = &userID
	items, err := s.transactions.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.transactions.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// checkPreconditions verifies the wallet is active and the user holds
// a valid KYC verification. Deposits skip the KYC gate.
func (s *Service) checkPreconditions(ctx context.Context, w *entities.Wallet, userID uuid.UUID) error {
	if w.Frozen {
		return fmt.Errorf("%w: %s", entities.ErrWalletFrozen, w.FrozenReason)
	}
	verified, err := s.kycGate.IsVerified(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check verification status: %w", err)
	}
	if !verified {
		return entities.ErrKYCRequired
	}
	return nil
}

// applyCaps overlays the current limit schedule onto the wallet's
// caps, so schedule changes reach existing wallets on their next
// operation. Running totals are untouched.
func applyCaps(w *entities.Wallet, schedule entities.LimitSchedule) {
	for class, caps := range schedule {
		usage, ok := w.Limits[class]
		if !ok {
			usage = &entities.LimitUsage{}
			if w.Limits == nil {
				w.Limits = make(map[entities.OperationClass]*entities.LimitUsage)
			}
			w.Limits[class] = usage
		}
		usage.DailyLimit = caps.Daily
		usage.LifetimeLimit = caps.Lifetime
	}
}

// checkLimits runs the daily and lifetime checks for the class. The
// checks return booleans; a violation rejects the operation before
// any state is touched.
func checkLimits(w *entities.Wallet, class entities.OperationClass, amount decimal.Decimal) error {
	if !w.CheckDailyLimit(class, amount) {
		usage := w.Limits[class]
		return fmt.Errorf("%w: daily %s limit %s, used %s", entities.ErrLimitExceeded,
			class, usage.DailyLimit.String(), usage.DailyUsed.String())
	}
	if !w.CheckLifetimeLimit(class, amount) {
		usage := w.Limits[class]
		return fmt.Errorf("%w: lifetime %s limit %s, used %s", entities.ErrLimitExceeded,
			class, usage.LifetimeLimit.String(), usage.LifetimeUsed.String())
	}
	return nil
}

// findByReference implements idempotent initiation: a repeated
// request with the same reference key returns the original record
// instead of creating a second one.
func (s *Service) findByReference(ctx context.Context, userID uuid.UUID, key string) (*entities.Transaction, bool, error) {
	if key == "" {
		return nil, false, nil
	}
	w, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	tx, err := s.transactions.GetByReferenceKey(ctx, w.ID, key)
	if err != nil {
		if errors.Is(err, entities.ErrTransactionNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return tx, true, nil
}

// reject classifies a failed mutation for metrics and logging; the
// error itself is passed through untouched.
func (s *Service) reject(class entities.OperationClass, userID uuid.UUID, err error) error {
	reason := "persistence"
	switch {
	case errors.Is(err, entities.ErrLimitExceeded):
		reason = "limit_exceeded"
	case errors.Is(err, entities.ErrInsufficientBalance):
		reason = "insufficient_balance"
	case errors.Is(err, entities.ErrInsufficientGold):
		reason = "insufficient_gold"
	case errors.Is(err, entities.ErrWalletFrozen):
		reason = "wallet_frozen"
	case errors.Is(err, entities.ErrKYCRequired):
		reason = "kyc_required"
	case errors.Is(err, entities.ErrValidation):
		reason = "validation"
	}
	metrics.WalletOperationsTotal.WithLabelValues(string(class), reason).Inc()

	if entities.IsBusinessError(err) {
		s.logger.Warn("Operation rejected",
			"user_id", userID.String(),
			"class", string(class),
			"reason", reason)
	} else {
		s.logger.Error("Operation failed",
			"user_id", userID.String(),
			"class", string(class),
			"error", err.Error())
	}
	return err
}

// notifyTerminal sends the terminal-state notification. Notification
// failure never rolls back the transaction.
func (s *Service) notifyTerminal(ctx context.Context, tx *entities.Transaction) {
	if s.notifier == nil || !tx.Status.IsTerminal() {
		return
	}
	var err error
	switch tx.Status {
	case entities.TxStatusCompleted:
		err = s.notifier.NotifyTransactionCompleted(ctx, tx.UserID, tx)
	case entities.TxStatusFailed, entities.TxStatusCancelled, entities.TxStatusRefunded:
		reason := string(tx.Status)
		if tx.ErrorMessage != nil {
			reason = *tx.ErrorMessage
		}
		err = s.notifier.NotifyTransactionFailed(ctx, tx.UserID, tx, reason)
	}
	if err != nil {
		s.logger.Warn("Failed to send transaction notification",
			"transaction_id", tx.ID.String(),
			"error", err.Error())
	}
}

func validateAmount(amount decimal.Decimal, currency string) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", entities.ErrValidation)
	}
	if !currencyPattern.MatchString(currency) {
		return fmt.Errorf("%w: invalid currency code %q", entities.ErrValidation, currency)
	}
	return nil
}

func refKey(key string) *string {
	if key == "" {
		return nil
	}
	return &key
}
