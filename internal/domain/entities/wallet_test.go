package entities

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testWallet(t *testing.T) *Wallet {
	t.Helper()
	return NewWallet(uuid.New(), DefaultLimitSchedule(), time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC))
}

func TestNewWalletSeedsLimits(t *testing.T) {
	w := testWallet(t)

	require.Len(t, w.Limits, 5)
	assert.True(t, w.Limits[OpDeposit].DailyLimit.Equal(dec("50000")))
	assert.True(t, w.Limits[OpDeposit].DailyUsed.IsZero())
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), w.LimitsResetAt)
}

func TestCreditAndDebit(t *testing.T) {
	w := testWallet(t)

	require.NoError(t, w.Credit("USD", dec("100.50")))
	require.NoError(t, w.Credit("EUR", dec("20")))
	assert.True(t, w.Balance("USD").Equal(dec("100.50")))
	assert.True(t, w.Balance("EUR").Equal(dec("20")))
	assert.True(t, w.Balance("GBP").IsZero())

	require.NoError(t, w.Debit("USD", dec("40.25")))
	assert.True(t, w.Balance("USD").Equal(dec("60.25")))
}

func TestDebitInsufficientBalanceLeavesWalletUntouched(t *testing.T) {
	w := testWallet(t)
	require.NoError(t, w.Credit("USD", dec("10")))

	err := w.Debit("USD", dec("10.01"))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.True(t, w.Balance("USD").Equal(dec("10")))
}

func TestDebitRejectsNonPositiveAmounts(t *testing.T) {
	w := testWallet(t)
	require.NoError(t, w.Credit("USD", dec("10")))

	assert.ErrorIs(t, w.Debit("USD", decimal.Zero), ErrValidation)
	assert.ErrorIs(t, w.Debit("USD", dec("-1")), ErrValidation)
	assert.ErrorIs(t, w.Credit("USD", dec("-1")), ErrValidation)
}

func TestApplyGoldPurchaseWeightedAverage(t *testing.T) {
	w := testWallet(t)

	require.NoError(t, w.ApplyGoldPurchase(dec("10"), dec("65")))
	assert.True(t, w.GoldGrams.Equal(dec("10")))
	assert.True(t, w.GoldAvgCost.Equal(dec("65")))

	// 10g @ 65 + 10g @ 75 -> 20g @ 70
	require.NoError(t, w.ApplyGoldPurchase(dec("10"), dec("75")))
	assert.True(t, w.GoldGrams.Equal(dec("20")))
	assert.True(t, w.GoldAvgCost.Equal(dec("70")))
}

func TestApplyGoldSaleKeepsCostBasis(t *testing.T) {
	w := testWallet(t)
	require.NoError(t, w.ApplyGoldPurchase(dec("10"), dec("65")))

	require.NoError(t, w.ApplyGoldSale(dec("4")))
	assert.True(t, w.GoldGrams.Equal(dec("6")))
	assert.True(t, w.GoldAvgCost.Equal(dec("65")))
}

func TestApplyGoldSaleInsufficientGold(t *testing.T) {
	w := testWallet(t)
	require.NoError(t, w.ApplyGoldPurchase(dec("5"), dec("65")))

	err := w.ApplyGoldSale(dec("5.0001"))
	require.ErrorIs(t, err, ErrInsufficientGold)
	assert.True(t, w.GoldGrams.Equal(dec("5")))
}

func TestUnrealizedPnL(t *testing.T) {
	w := testWallet(t)
	require.NoError(t, w.ApplyGoldPurchase(dec("10"), dec("65")))

	assert.True(t, w.UnrealizedPnL(dec("70")).Equal(dec("50")))
	assert.True(t, w.UnrealizedPnL(dec("60")).Equal(dec("-50")))
}

func TestCheckDailyLimitBoundary(t *testing.T) {
	w := testWallet(t)
	w.Limits[OpDeposit].DailyLimit = dec("1000")
	w.Limits[OpDeposit].DailyUsed = dec("400")

	// used + amount == limit is accepted; one cent over is not
	assert.True(t, w.CheckDailyLimit(OpDeposit, dec("600")))
	assert.False(t, w.CheckDailyLimit(OpDeposit, dec("600.01")))
}

func TestZeroLimitMeansUnlimited(t *testing.T) {
	w := testWallet(t)
	w.Limits[OpDeposit].DailyLimit = decimal.Zero
	w.Limits[OpDeposit].DailyUsed = dec("999999999")

	assert.True(t, w.CheckDailyLimit(OpDeposit, dec("1000000")))
	assert.True(t, w.CheckLifetimeLimit(OpDeposit, dec("1000000")))
}

func TestCheckLifetimeLimit(t *testing.T) {
	w := testWallet(t)
	w.Limits[OpWithdrawal].LifetimeLimit = dec("5000")
	w.Limits[OpWithdrawal].LifetimeUsed = dec("4500")

	assert.True(t, w.CheckLifetimeLimit(OpWithdrawal, dec("500")))
	assert.False(t, w.CheckLifetimeLimit(OpWithdrawal, dec("500.01")))
}

func TestResetIfNewDay(t *testing.T) {
	w := testWallet(t)
	w.Limits[OpDeposit].DailyUsed = dec("100")
	w.Limits[OpDeposit].LifetimeUsed = dec("100")

	// Later the same UTC day: no reset.
	sameDay := time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC)
	assert.False(t, w.ResetIfNewDay(sameDay))
	assert.True(t, w.Limits[OpDeposit].DailyUsed.Equal(dec("100")))

	// Just past UTC midnight: daily resets, lifetime survives.
	nextDay := time.Date(2026, 3, 11, 0, 0, 1, 0, time.UTC)
	assert.True(t, w.ResetIfNewDay(nextDay))
	assert.True(t, w.Limits[OpDeposit].DailyUsed.IsZero())
	assert.True(t, w.Limits[OpDeposit].LifetimeUsed.Equal(dec("100")))
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), w.LimitsResetAt)
}

func TestResetHandlesMultiDayGap(t *testing.T) {
	w := testWallet(t)
	w.Limits[OpDeposit].DailyUsed = dec("100")

	assert.True(t, w.ResetIfNewDay(time.Date(2026, 3, 25, 8, 0, 0, 0, time.UTC)))
	assert.True(t, w.Limits[OpDeposit].DailyUsed.IsZero())
	assert.Equal(t, time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC), w.LimitsResetAt)
}

func TestRecordUsageAccumulates(t *testing.T) {
	w := testWallet(t)

	w.RecordUsage(OpBuyGold, dec("100"))
	w.RecordUsage(OpBuyGold, dec("50"))

	assert.True(t, w.Limits[OpBuyGold].DailyUsed.Equal(dec("150")))
	assert.True(t, w.Limits[OpBuyGold].LifetimeUsed.Equal(dec("150")))
}

func TestFreezeUnfreeze(t *testing.T) {
	w := testWallet(t)

	w.Freeze("compliance hold")
	assert.True(t, w.Frozen)
	assert.Equal(t, "compliance hold", w.FrozenReason)

	w.Unfreeze()
	assert.False(t, w.Frozen)
	assert.Empty(t, w.FrozenReason)
}

func TestNormalizeOperationClass(t *testing.T) {
	for input, want := range map[string]OperationClass{
		"deposit":           OpDeposit,
		"gold_purchase":     OpBuyGold,
		"gold_sale":         OpSellGold,
		"buy_gold":          OpBuyGold,
		"physical_delivery": OpDelivery,
	} {
		got, ok := NormalizeOperationClass(input)
		require.True(t, ok, input)
		assert.Equal(t, want, got)
	}

	_, ok := NormalizeOperationClass("margin_loan")
	assert.False(t, ok)
}
