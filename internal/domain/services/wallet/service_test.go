package wallet

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurum-service/aurum_service/internal/domain/entities"
	"github.com/aurum-service/aurum_service/internal/domain/repositories"
	"github.com/aurum-service/aurum_service/pkg/logger"
)

// In-memory fakes mirroring the repository contracts: Mutate works on
// a copy and commits only on success, the transaction record is
// persisted with the wallet, and a status transition against an
// already-finalized record fails the whole mutation. The stale field
// lets a test hand a caller the snapshot a concurrent settler would
// have read before the row lock.

type fakeTransactionRepo struct {
	byID  map[uuid.UUID]*entities.Transaction
	byRef map[string]*entities.Transaction
	stale *entities.Transaction
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{
		byID:  make(map[uuid.UUID]*entities.Transaction),
		byRef: make(map[string]*entities.Transaction),
	}
}

func (r *fakeTransactionRepo) save(tx *entities.Transaction) error {
	if existing, ok := r.byID[tx.ID]; ok && existing.Status.IsTerminal() {
		return fmt.Errorf("%w: transaction already finalized", entities.ErrInvalidState)
	}
	stored := cloneTransaction(tx)
	r.byID[stored.ID] = stored
	if stored.ReferenceKey != nil {
		r.byRef[stored.WalletID.String()+"/"+*stored.ReferenceKey] = stored
	}
	return nil
}

func (r *fakeTransactionRepo) GetByID(_ context.Context, id uuid.UUID) (*entities.Transaction, error) {
	if r.stale != nil && r.stale.ID == id {
		return cloneTransaction(r.stale), nil
	}
	tx, ok := r.byID[id]
	if !ok {
		return nil, entities.ErrTransactionNotFound
	}
	return cloneTransaction(tx), nil
}

func (r *fakeTransactionRepo) GetByReferenceKey(_ context.Context, walletID uuid.UUID, key string) (*entities.Transaction, error) {
	tx, ok := r.byRef[walletID.String()+"/"+key]
	if !ok {
		return nil, entities.ErrTransactionNotFound
	}
	return cloneTransaction(tx), nil
}

func (r *fakeTransactionRepo) List(_ context.Context, filter repositories.TransactionFilter) ([]*entities.Transaction, error) {
	var out []*entities.Transaction
	for _, tx := range r.byID {
		if filter.UserID != nil && tx.UserID != *filter.UserID {
			continue
		}
		out = append(out, cloneTransaction(tx))
	}
	return out, nil
}

func (r *fakeTransactionRepo) Count(ctx context.Context, filter repositories.TransactionFilter) (int64, error) {
	items, err := r.List(ctx, filter)
	return int64(len(items)), err
}

func (r *fakeTransactionRepo) UpdateStatus(_ context.Context, tx *entities.Transaction) error {
	r.byID[tx.ID] = tx
	return nil
}

func (r *fakeTransactionRepo) ListPendingDepositsBefore(_ context.Context, cutoff time.Time, limit int) ([]*entities.Transaction, error) {
	var out []*entities.Transaction
	for _, tx := range r.byID {
		if tx.Type == entities.TxTypeDeposit && tx.Status == entities.TxStatusPending && tx.CreatedAt.Before(cutoff) {
			out = append(out, tx)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeWalletRepo struct {
	wallets map[uuid.UUID]*entities.Wallet
	txs     *fakeTransactionRepo
}

func newFakeWalletRepo(txs *fakeTransactionRepo) *fakeWalletRepo {
	return &fakeWalletRepo{
		wallets: make(map[uuid.UUID]*entities.Wallet),
		txs:     txs,
	}
}

func (r *fakeWalletRepo) Create(_ context.Context, w *entities.Wallet) error {
	if _, exists := r.wallets[w.UserID]; exists {
		return entities.ErrValidation
	}
	r.wallets[w.UserID] = w
	return nil
}

func (r *fakeWalletRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*entities.Wallet, error) {
	w, ok := r.wallets[userID]
	if !ok {
		return nil, entities.ErrWalletNotFound
	}
	return w, nil
}

func (r *fakeWalletRepo) GetByID(_ context.Context, id uuid.UUID) (*entities.Wallet, error) {
	for _, w := range r.wallets {
		if w.ID == id {
			return w, nil
		}
	}
	return nil, entities.ErrWalletNotFound
}

func (r *fakeWalletRepo) Mutate(_ context.Context, userID uuid.UUID, fn repositories.WalletMutation) (*entities.Transaction, error) {
	w, ok := r.wallets[userID]
	if !ok {
		return nil, entities.ErrWalletNotFound
	}

	work := cloneWallet(w)
	tx, err := fn(work)
	if err != nil {
		return nil, err
	}

	if tx != nil {
		if err := r.txs.save(tx); err != nil {
			return nil, err
		}
	}
	r.wallets[userID] = work
	return tx, nil
}

func cloneTransaction(tx *entities.Transaction) *entities.Transaction {
	cp := *tx
	cp.History = append([]entities.StatusChange(nil), tx.History...)
	return &cp
}

func cloneWallet(w *entities.Wallet) *entities.Wallet {
	cp := *w
	cp.Balances = make(map[string]decimal.Decimal, len(w.Balances))
	for k, v := range w.Balances {
		cp.Balances[k] = v
	}
	cp.Limits = make(map[entities.OperationClass]*entities.LimitUsage, len(w.Limits))
	for k, v := range w.Limits {
		usage := *v
		cp.Limits[k] = &usage
	}
	return &cp
}

type fakeSettings struct {
	fees   entities.FeeSchedule
	limits entities.LimitSchedule
}

func (s *fakeSettings) FeeSchedule(context.Context) (entities.FeeSchedule, error) {
	return s.fees, nil
}

func (s *fakeSettings) LimitSchedule(context.Context) (entities.LimitSchedule, error) {
	return s.limits, nil
}

type fakeQuotes struct {
	price decimal.Decimal
}

func (q *fakeQuotes) PricePerGram(context.Context) (decimal.Decimal, error) {
	return q.price, nil
}

type fakeKYCGate struct {
	verified bool
}

func (g *fakeKYCGate) IsVerified(context.Context, uuid.UUID) (bool, error) {
	return g.verified, nil
}

type notification struct {
	txID   uuid.UUID
	status entities.TransactionStatus
}

type fakeNotifier struct {
	sent []notification
}

func (n *fakeNotifier) NotifyTransactionCompleted(_ context.Context, _ uuid.UUID, tx *entities.Transaction) error {
	n.sent = append(n.sent, notification{txID: tx.ID, status: tx.Status})
	return nil
}

func (n *fakeNotifier) NotifyTransactionFailed(_ context.Context, _ uuid.UUID, tx *entities.Transaction, _ string) error {
	n.sent = append(n.sent, notification{txID: tx.ID, status: tx.Status})
	return nil
}

var fixtureNow = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

type fixture struct {
	service  *Service
	wallets  *fakeWalletRepo
	txs      *fakeTransactionRepo
	settings *fakeSettings
	quotes   *fakeQuotes
	kyc      *fakeKYCGate
	notifier *fakeNotifier
	userID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	txs := newFakeTransactionRepo()
	wallets := newFakeWalletRepo(txs)
	settings := &fakeSettings{
		fees:   entities.DefaultFeeSchedule(),
		limits: entities.DefaultLimitSchedule(),
	}
	quotes := &fakeQuotes{price: dec("65")}
	kyc := &fakeKYCGate{verified: true}
	notifier := &fakeNotifier{}

	svc := NewService(wallets, txs, settings, quotes, kyc, logger.NewNop())
	svc.SetNotifier(notifier)
	svc.SetClock(func() time.Time { return fixtureNow })

	f := &fixture{
		service:  svc,
		wallets:  wallets,
		txs:      txs,
		settings: settings,
		quotes:   quotes,
		kyc:      kyc,
		notifier: notifier,
		userID:   uuid.New(),
	}

	_, err := svc.CreateWallet(context.Background(), f.userID)
	require.NoError(t, err)
	return f
}

func (f *fixture) fund(t *testing.T, currency, amount string) {
	t.Helper()
	_, err := f.wallets.Mutate(context.Background(), f.userID, func(w *entities.Wallet) (*entities.Transaction, error) {
		return nil, w.Credit(currency, dec(amount))
	})
	require.NoError(t, err)
}

func (f *fixture) wallet(t *testing.T) *entities.Wallet {
	t.Helper()
	w, err := f.wallets.GetByUserID(context.Background(), f.userID)
	require.NoError(t, err)
	return w
}

func TestDepositRecordsPendingWithoutCrediting(t *testing.T) {
	f := newFixture(t)

	tx, err := f.service.Deposit(context.Background(), f.userID, DepositRequest{
		Amount:   dec("1000"),
		Currency: "USD",
		Method:   "bank_transfer",
	})
	require.NoError(t, err)

	assert.Equal(t, entities.TxStatusPending, tx.Status)
	assert.True(t, tx.Fee.IsZero())
	assert.True(t, tx.NetAmount.Equal(dec("1000")))
	require.NotNil(t, tx.PaymentDetail)
	assert.Equal(t, "bank_transfer", tx.PaymentDetail.Method)

	w := f.wallet(t)
	assert.True(t, w.Balance("USD").IsZero(), "deposit must not credit until confirmed")
	assert.True(t, w.Limits[entities.OpDeposit].DailyUsed.Equal(dec("1000")), "usage is charged at acceptance")
}

func TestConfirmDepositCreditsNet(t *testing.T) {
	f := newFixture(t)

	tx, err := f.service.Deposit(context.Background(), f.userID, DepositRequest{
		Amount: dec("1000"), Currency: "USD", Method: "card",
	})
	require.NoError(t, err)

	confirmed, err := f.service.ConfirmDeposit(context.Background(), tx.ID)
	require.NoError(t, err)

	assert.Equal(t, entities.TxStatusCompleted, confirmed.Status)
	assert.True(t, f.wallet(t).Balance("USD").Equal(dec("1000")))
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, tx.ID, f.notifier.sent[0].txID)
}

func TestConfirmDepositRacedSettlerCreditsOnce(t *testing.T) {
	f := newFixture(t)

	tx, err := f.service.Deposit(context.Background(), f.userID, DepositRequest{
		Amount: dec("1000"), Currency: "USD", Method: "card",
	})
	require.NoError(t, err)

	// Snapshot the record as a second settler would have read it
	// before the row lock, then let the first settler win.
	snapshot := cloneTransaction(tx)
	_, err = f.service.ConfirmDeposit(context.Background(), tx.ID)
	require.NoError(t, err)
	require.True(t, f.wallet(t).Balance("USD").Equal(dec("1000")))

	// The loser's status check ran against the pending snapshot; the
	// conditional write finds the finalized record and the whole
	// mutation rolls back instead of crediting a second time.
	f.txs.stale = snapshot
	_, err = f.service.ConfirmDeposit(context.Background(), tx.ID)
	require.ErrorIs(t, err, entities.ErrInvalidState)
	assert.True(t, f.wallet(t).Balance("USD").Equal(dec("1000")), "credit applied exactly once")
}

func TestCompleteTransactionRejectsDeposits(t *testing.T) {
	f := newFixture(t)

	tx, err := f.service.Deposit(context.Background(), f.userID, DepositRequest{
		Amount: dec("1000"), Currency: "USD", Method: "card",
	})
	require.NoError(t, err)

	_, err = f.service.CompleteTransaction(context.Background(), tx.ID, "manual")
	require.ErrorIs(t, err, entities.ErrInvalidState)

	// The record is still pending, so the credit path stays open.
	confirmed, err := f.service.ConfirmDeposit(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.TxStatusCompleted, confirmed.Status)
	assert.True(t, f.wallet(t).Balance("USD").Equal(dec("1000")))
}

func TestConfirmDepositRejectsNonDeposits(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "USD", "1000")

	tx, err := f.service.Withdraw(context.Background(), f.userID, WithdrawRequest{
		Amount: dec("100"), Currency: "USD", Method: "bank_transfer",
	})
	require.NoError(t, err)

	_, err = f.service.ConfirmDeposit(context.Background(), tx.ID)
	assert.ErrorIs(t, err, entities.ErrInvalidState)
}

func TestDepositSkipsKYCGate(t *testing.T) {
	f := newFixture(t)
	f.kyc.verified = false

	_, err := f.service.Deposit(context.Background(), f.userID, DepositRequest{
		Amount: dec("100"), Currency: "USD", Method: "card",
	})
	assert.NoError(t, err)
}

func TestDepositDailyLimitBoundary(t *testing.T) {
	f := newFixture(t)

	// Default daily cap is 50000: exactly at the cap is accepted.
	_, err := f.service.Deposit(context.Background(), f.userID, DepositRequest{
		Amount: dec("50000"), Currency: "USD", Method: "card",
	})
	require.NoError(t, err)

	_, err = f.service.Deposit(context.Background(), f.userID, DepositRequest{
		Amount: dec("0.01"), Currency: "USD", Method: "card",
	})
	assert.ErrorIs(t, err, entities.ErrLimitExceeded)
}

func TestDailyLimitResetsAtUTCMidnight(t *testing.T) {
	f := newFixture(t)

	day1 := fixtureNow.Add(8 * time.Hour) // 22:00 UTC, same day
	f.service.SetClock(func() time.Time { return day1 })

	_, err := f.service.Deposit(context.Background(), f.userID, DepositRequest{
		Amount: dec("50000"), Currency: "USD", Method: "card",
	})
	require.NoError(t, err)

	_, err = f.service.Deposit(context.Background(), f.userID, DepositRequest{
		Amount: dec("1"), Currency: "USD", Method: "card",
	})
	require.ErrorIs(t, err, entities.ErrLimitExceeded)

	f.service.SetClock(func() time.Time { return day1.Add(3 * time.Hour) })

	_, err = f.service.Deposit(context.Background(), f.userID, DepositRequest{
		Amount: dec("1"), Currency: "USD", Method: "card",
	})
	assert.NoError(t, err, "daily usage resets on the next UTC day")
	assert.True(t, f.wallet(t).Limits[entities.OpDeposit].LifetimeUsed.Equal(dec("50001")),
		"lifetime usage never resets")
}

func TestScheduleChangeReachesExistingWallet(t *testing.T) {
	f := newFixture(t)

	f.settings.limits = entities.LimitSchedule{
		entities.OpDeposit: {Daily: dec("100"), Lifetime: decimal.Zero},
	}

	_, err := f.service.Deposit(context.Background(), f.userID, DepositRequest{
		Amount: dec("101"), Currency: "USD", Method: "card",
	})
	assert.ErrorIs(t, err, entities.ErrLimitExceeded)
}

func TestFrozenWalletRejectsDeposits(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.service.FreezeWallet(context.Background(), f.userID, "compliance hold"))

	_, err := f.service.Deposit(context.Background(), f.userID, DepositRequest{
		Amount: dec("100"), Currency: "USD", Method: "card",
	})
	require.ErrorIs(t, err, entities.ErrWalletFrozen)

	require.NoError(t, f.service.UnfreezeWallet(context.Background(), f.userID))
	_, err = f.service.Deposit(context.Background(), f.userID, DepositRequest{
		Amount: dec("100"), Currency: "USD", Method: "card",
	})
	assert.NoError(t, err)
}

func TestWithdrawDebitsGrossCreditsNet(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "USD", "1000")

	tx, err := f.service.Withdraw(context.Background(), f.userID, WithdrawRequest{
		Amount: dec("500"), Currency: "USD", Method: "bank_transfer",
	})
	require.NoError(t, err)

	// 1% withdrawal fee: user receives 495, wallet is debited 500.
	assert.Equal(t, entities.TxStatusPending, tx.Status)
	assert.True(t, tx.Fee.Equal(dec("5")))
	assert.True(t, tx.NetAmount.Equal(dec("495")))
	assert.True(t, f.wallet(t).Balance("USD").Equal(dec("500")))
}

func TestWithdrawRequiresKYC(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "USD", "1000")
	f.kyc.verified = false

	_, err := f.service.Withdraw(context.Background(), f.userID, WithdrawRequest{
		Amount: dec("100"), Currency: "USD", Method: "bank_transfer",
	})
	assert.ErrorIs(t, err, entities.ErrKYCRequired)
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "USD", "100")

	_, err := f.service.Withdraw(context.Background(), f.userID, WithdrawRequest{
		Amount: dec("100.01"), Currency: "USD", Method: "bank_transfer",
	})
	require.ErrorIs(t, err, entities.ErrInsufficientBalance)
	assert.True(t, f.wallet(t).Balance("USD").Equal(dec("100")), "rejected operation mutates nothing")
	assert.True(t, f.wallet(t).Limits[entities.OpWithdrawal].DailyUsed.IsZero())
}

func TestBuyGoldChargesValuePlusFee(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "USD", "1000")

	tx, err := f.service.BuyGold(context.Background(), f.userID, TradeRequest{
		Grams: dec("10"), Currency: "USD",
	})
	require.NoError(t, err)

	// 10g at 65/g: value 650, 1% fee 6.50, total charge 656.50.
	assert.Equal(t, entities.TxStatusCompleted, tx.Status)
	assert.True(t, tx.Amount.Equal(dec("650")))
	assert.True(t, tx.Fee.Equal(dec("6.50")))
	require.NotNil(t, tx.GoldDetail)
	assert.True(t, tx.GoldDetail.Grams.Equal(dec("10")))
	assert.True(t, tx.GoldDetail.PricePerGram.Equal(dec("65")))

	w := f.wallet(t)
	assert.True(t, w.Balance("USD").Equal(dec("343.50")), "got %s", w.Balance("USD"))
	assert.True(t, w.GoldGrams.Equal(dec("10")))
	assert.True(t, w.GoldAvgCost.Equal(dec("65")))
}

func TestSellGoldCreditsNetKeepsBasis(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "USD", "1000")

	_, err := f.service.BuyGold(context.Background(), f.userID, TradeRequest{
		Grams: dec("10"), Currency: "USD",
	})
	require.NoError(t, err)

	f.quotes.price = dec("70")
	tx, err := f.service.SellGold(context.Background(), f.userID, TradeRequest{
		Grams: dec("5"), Currency: "USD",
	})
	require.NoError(t, err)

	// 5g at 70/g: value 350, 2% fee 7, credit 343.
	assert.Equal(t, entities.TxStatusCompleted, tx.Status)
	assert.True(t, tx.NetAmount.Equal(dec("343")))

	w := f.wallet(t)
	assert.True(t, w.Balance("USD").Equal(dec("686.50")), "got %s", w.Balance("USD"))
	assert.True(t, w.GoldGrams.Equal(dec("5")))
	assert.True(t, w.GoldAvgCost.Equal(dec("65")), "sale leaves the cost basis unchanged")
}

func TestSellGoldInsufficientGold(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SellGold(context.Background(), f.userID, TradeRequest{
		Grams: dec("1"), Currency: "USD",
	})
	assert.ErrorIs(t, err, entities.ErrInsufficientGold)
}

func TestRequestDeliveryFlatChargeAndGramUsage(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "USD", "1000")

	_, err := f.service.BuyGold(context.Background(), f.userID, TradeRequest{
		Grams: dec("10"), Currency: "USD",
	})
	require.NoError(t, err)

	tx, err := f.service.RequestDelivery(context.Background(), f.userID, DeliveryRequest{
		Grams:    dec("10"),
		Currency: "USD",
		Address: entities.DeliveryDetail{
			AddressLine1: "1 Vault St",
			City:         "Zurich",
			PostalCode:   "8001",
			Country:      "CH",
		},
	})
	require.NoError(t, err)

	// Flat charge 9.99 insurance + 14.99 tier = 24.98; the full
	// charge is the fee, nothing is net to the user.
	assert.Equal(t, entities.TxStatusPending, tx.Status)
	assert.True(t, tx.Amount.Equal(dec("24.98")))
	assert.True(t, tx.Fee.Equal(dec("24.98")))
	assert.True(t, tx.NetAmount.IsZero())

	w := f.wallet(t)
	assert.True(t, w.GoldGrams.IsZero())
	assert.True(t, w.Balance("USD").Equal(dec("318.52")), "got %s", w.Balance("USD"))
	assert.True(t, w.Limits[entities.OpDelivery].DailyUsed.Equal(dec("10")),
		"delivery usage is tracked in grams")
}

func TestRequestDeliveryRequiresAddress(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.RequestDelivery(context.Background(), f.userID, DeliveryRequest{
		Grams:    dec("1"),
		Currency: "USD",
		Address:  entities.DeliveryDetail{AddressLine1: "1 Vault St"},
	})
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestIdempotentInitiationByReferenceKey(t *testing.T) {
	f := newFixture(t)

	first, err := f.service.Deposit(context.Background(), f.userID, DepositRequest{
		Amount: dec("100"), Currency: "USD", Method: "card", ReferenceKey: "dep-001",
	})
	require.NoError(t, err)

	second, err := f.service.Deposit(context.Background(), f.userID, DepositRequest{
		Amount: dec("100"), Currency: "USD", Method: "card", ReferenceKey: "dep-001",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "repeat returns the original record")
	assert.True(t, f.wallet(t).Limits[entities.OpDeposit].DailyUsed.Equal(dec("100")),
		"usage is charged once")
}

func TestCancelWithdrawalRestoresBalance(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "USD", "1000")

	tx, err := f.service.Withdraw(context.Background(), f.userID, WithdrawRequest{
		Amount: dec("500"), Currency: "USD", Method: "bank_transfer",
	})
	require.NoError(t, err)

	cancelled, err := f.service.CancelTransaction(context.Background(), tx.ID, "user request")
	require.NoError(t, err)

	assert.Equal(t, entities.TxStatusCancelled, cancelled.Status)
	assert.True(t, f.wallet(t).Balance("USD").Equal(dec("1000")))
}

func TestRefundDeliveryRestoresCashAndGold(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "USD", "1000")

	_, err := f.service.BuyGold(context.Background(), f.userID, TradeRequest{
		Grams: dec("10"), Currency: "USD",
	})
	require.NoError(t, err)

	tx, err := f.service.RequestDelivery(context.Background(), f.userID, DeliveryRequest{
		Grams:    dec("4"),
		Currency: "USD",
		Address: entities.DeliveryDetail{
			AddressLine1: "1 Vault St", City: "Zurich", PostalCode: "8001", Country: "CH",
		},
	})
	require.NoError(t, err)
	before := f.wallet(t)
	balanceBefore := before.Balance("USD")

	refunded, err := f.service.RefundTransaction(context.Background(), tx.ID, "shipment lost")
	require.NoError(t, err)

	// Pending deliveries hop through processing on their way to
	// refunded, so the history shows only permitted transitions.
	assert.Equal(t, entities.TxStatusRefunded, refunded.Status)
	statuses := make([]entities.TransactionStatus, 0, len(refunded.History))
	for _, h := range refunded.History {
		statuses = append(statuses, h.To)
	}
	assert.Equal(t, []entities.TransactionStatus{
		entities.TxStatusPending, entities.TxStatusProcessing, entities.TxStatusRefunded,
	}, statuses)

	w := f.wallet(t)
	assert.True(t, w.Balance("USD").Equal(balanceBefore.Add(dec("24.98"))))
	assert.True(t, w.GoldGrams.Equal(dec("10")))
	assert.True(t, w.GoldAvgCost.Equal(dec("65")), "returning grams at basis keeps the average")
}

func TestInstantTradesCannotBeReversed(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "USD", "1000")

	tx, err := f.service.BuyGold(context.Background(), f.userID, TradeRequest{
		Grams: dec("1"), Currency: "USD",
	})
	require.NoError(t, err)

	_, err = f.service.CancelTransaction(context.Background(), tx.ID, "")
	assert.ErrorIs(t, err, entities.ErrInvalidState)
}

func TestCompleteTransaction(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "USD", "1000")

	tx, err := f.service.Withdraw(context.Background(), f.userID, WithdrawRequest{
		Amount: dec("100"), Currency: "USD", Method: "bank_transfer",
	})
	require.NoError(t, err)

	completed, err := f.service.CompleteTransaction(context.Background(), tx.ID, "payout confirmed")
	require.NoError(t, err)
	assert.Equal(t, entities.TxStatusCompleted, completed.Status)

	_, err = f.service.CompleteTransaction(context.Background(), tx.ID, "again")
	assert.ErrorIs(t, err, entities.ErrInvalidState)
}

func TestValidateAmountRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Deposit(context.Background(), f.userID, DepositRequest{
		Amount: dec("-5"), Currency: "USD", Method: "card",
	})
	assert.ErrorIs(t, err, entities.ErrValidation)

	_, err = f.service.Deposit(context.Background(), f.userID, DepositRequest{
		Amount: dec("5"), Currency: "usd", Method: "card",
	})
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestGetHoldingsMarksToQuote(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "USD", "1000")

	_, err := f.service.BuyGold(context.Background(), f.userID, TradeRequest{
		Grams: dec("10"), Currency: "USD",
	})
	require.NoError(t, err)

	f.quotes.price = dec("70")
	holdings, err := f.service.GetHoldings(context.Background(), f.userID)
	require.NoError(t, err)

	assert.True(t, holdings.PricePerGram.Equal(dec("70")))
	assert.True(t, holdings.GoldValue.Equal(dec("700")))
	assert.True(t, holdings.UnrealizedPnL.Equal(dec("50")))
}

func TestCreateWalletTwiceFails(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateWallet(context.Background(), f.userID)
	assert.Error(t, err)
}
