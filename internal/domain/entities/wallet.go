package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OperationClass identifies an operation for limit and fee policy
type OperationClass string

const (
	OpDeposit    OperationClass = "deposit"
	OpWithdrawal OperationClass = "withdrawal"
	OpBuyGold    OperationClass = "buy_gold"
	OpSellGold   OperationClass = "sell_gold"
	OpDelivery   OperationClass = "physical_delivery"
)

// ValidOperationClasses contains all valid operation classes
var ValidOperationClasses = map[OperationClass]bool{
	OpDeposit:    true,
	OpWithdrawal: true,
	OpBuyGold:    true,
	OpSellGold:   true,
	OpDelivery:   true,
}

// NormalizeOperationClass maps legacy aliases onto the canonical
// class names. The aliases survive only at this boundary.
func NormalizeOperationClass(s string) (OperationClass, bool) {
	switch s {
	case "gold_purchase":
		return OpBuyGold, true
	case "gold_sale":
		return OpSellGold, true
	}
	op := OperationClass(s)
	return op, ValidOperationClasses[op]
}

// LimitUsage tracks configured caps and running totals for one
// operation class. A zero limit means unlimited.
type LimitUsage struct {
	DailyLimit    decimal.Decimal `json:"daily_limit" db:"daily_limit"`
	DailyUsed     decimal.Decimal `json:"daily_used" db:"daily_used"`
	LifetimeLimit decimal.Decimal `json:"lifetime_limit" db:"lifetime_limit"`
	LifetimeUsed  decimal.Decimal `json:"lifetime_used" db:"lifetime_used"`
}

// Wallet is the per-user record of cash balances, gold holdings and
// limit usage. Mutated exclusively through the wallet service inside
// a per-wallet storage transaction; never deleted, only frozen.
type Wallet struct {
	ID            uuid.UUID                      `json:"id"`
	UserID        uuid.UUID                      `json:"user_id"`
	Balances      map[string]decimal.Decimal     `json:"balances"`
	GoldGrams     decimal.Decimal                `json:"gold_grams"`
	GoldAvgCost   decimal.Decimal                `json:"gold_avg_cost"`
	Limits        map[OperationClass]*LimitUsage `json:"limits"`
	LimitsResetAt time.Time                      `json:"limits_reset_at"`
	Frozen        bool                           `json:"frozen"`
	FrozenReason  string                         `json:"frozen_reason,omitempty"`
	CreatedAt     time.Time                      `json:"created_at"`
	UpdatedAt     time.Time                      `json:"updated_at"`
}

// NewWallet creates a wallet for a new user with the given limit
// schedule and limits anchored to the current UTC day.
func NewWallet(userID uuid.UUID, schedule LimitSchedule, now time.Time) *Wallet {
	limits := make(map[OperationClass]*LimitUsage, len(schedule))
	for class, caps := range schedule {
		limits[class] = &LimitUsage{
			DailyLimit:    caps.Daily,
			LifetimeLimit: caps.Lifetime,
		}
	}
	return &Wallet{
		ID:            uuid.New(),
		UserID:        userID,
		Balances:      make(map[string]decimal.Decimal),
		Limits:        limits,
		LimitsResetAt: StartOfUTCDay(now),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// StartOfUTCDay truncates t to UTC midnight
func StartOfUTCDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Balance returns the cash balance for a currency, zero if unseen
func (w *Wallet) Balance(currency string) decimal.Decimal {
	if b, ok := w.Balances[currency]; ok {
		return b
	}
	return decimal.Zero
}

// Credit adds amount to the currency balance
func (w *Wallet) Credit(currency string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: credit amount must be positive", ErrValidation)
	}
	if w.Balances == nil {
		w.Balances = make(map[string]decimal.Decimal)
	}
	w.Balances[currency] = w.Balance(currency).Add(amount)
	return nil
}

// Debit subtracts amount from the currency balance. The sufficiency
// check and the mutation are one step: on error the balance is
// untouched.
func (w *Wallet) Debit(currency string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: debit amount must be positive", ErrValidation)
	}
	current := w.Balance(currency)
	if current.LessThan(amount) {
		return fmt.Errorf("%w: have %s %s, need %s", ErrInsufficientBalance,
			current.String(), currency, amount.String())
	}
	w.Balances[currency] = current.Sub(amount)
	return nil
}

// ApplyGoldPurchase adds grams and recomputes the weighted-average
// cost basis: (oldGrams*oldAvg + grams*price) / (oldGrams+grams).
func (w *Wallet) ApplyGoldPurchase(grams, pricePerGram decimal.Decimal) error {
	if grams.Sign() <= 0 || pricePerGram.Sign() <= 0 {
		return fmt.Errorf("%w: grams and price must be positive", ErrValidation)
	}
	total := w.GoldGrams.Add(grams)
	w.GoldAvgCost = w.GoldGrams.Mul(w.GoldAvgCost).
		Add(grams.Mul(pricePerGram)).
		Div(total)
	w.GoldGrams = total
	return nil
}

// ApplyGoldSale removes grams. The average cost basis is unchanged;
// realized P&L is computed at query time.
func (w *Wallet) ApplyGoldSale(grams decimal.Decimal) error {
	if grams.Sign() <= 0 {
		return fmt.Errorf("%w: grams must be positive", ErrValidation)
	}
	if w.GoldGrams.LessThan(grams) {
		return fmt.Errorf("%w: have %sg, need %sg", ErrInsufficientGold,
			w.GoldGrams.String(), grams.String())
	}
	w.GoldGrams = w.GoldGrams.Sub(grams)
	return nil
}

// UnrealizedPnL returns (currentPrice - avgCost) * grams held
func (w *Wallet) UnrealizedPnL(currentPrice decimal.Decimal) decimal.Decimal {
	return currentPrice.Sub(w.GoldAvgCost).Mul(w.GoldGrams)
}

// RealizedPnL returns (salePrice - avgCost) * soldGrams for a sale at
// the wallet's current cost basis.
func (w *Wallet) RealizedPnL(salePrice, soldGrams decimal.Decimal) decimal.Decimal {
	return salePrice.Sub(w.GoldAvgCost).Mul(soldGrams)
}

// ResetIfNewDay zeroes the daily running totals when the stored reset
// date precedes the current UTC day. Must run before every limit
// check and every usage update. Returns true if a reset happened.
func (w *Wallet) ResetIfNewDay(now time.Time) bool {
	today := StartOfUTCDay(now)
	if !w.LimitsResetAt.Before(today) {
		return false
	}
	for _, usage := range w.Limits {
		usage.DailyUsed = decimal.Zero
	}
	w.LimitsResetAt = today
	return true
}

// CheckDailyLimit reports whether used + amount fits within the daily
// cap for the class. The boundary used+amount == limit is accepted.
// A zero cap means unlimited. Never returns an error: callers reject
// the operation without mutating any state.
func (w *Wallet) CheckDailyLimit(class OperationClass, amount decimal.Decimal) bool {
	usage, ok := w.Limits[class]
	if !ok || usage.DailyLimit.IsZero() {
		return true
	}
	return usage.DailyUsed.Add(amount).LessThanOrEqual(usage.DailyLimit)
}

// CheckLifetimeLimit reports whether used + amount fits within the
// lifetime cap for the class. A zero cap means unlimited.
func (w *Wallet) CheckLifetimeLimit(class OperationClass, amount decimal.Decimal) bool {
	usage, ok := w.Limits[class]
	if !ok || usage.LifetimeLimit.IsZero() {
		return true
	}
	return usage.LifetimeUsed.Add(amount).LessThanOrEqual(usage.LifetimeLimit)
}

// RecordUsage adds amount to the running totals after an accepted
// operation
func (w *Wallet) RecordUsage(class OperationClass, amount decimal.Decimal) {
	usage, ok := w.Limits[class]
	if !ok {
		usage = &LimitUsage{}
		if w.Limits == nil {
			w.Limits = make(map[OperationClass]*LimitUsage)
		}
		w.Limits[class] = usage
	}
	usage.DailyUsed = usage.DailyUsed.Add(amount)
	usage.LifetimeUsed = usage.LifetimeUsed.Add(amount)
}

// Freeze soft-freezes the wallet; frozen wallets reject every
// operation but are never deleted
func (w *Wallet) Freeze(reason string) {
	w.Frozen = true
	w.FrozenReason = reason
}

// Unfreeze reactivates a frozen wallet
func (w *Wallet) Unfreeze() {
	w.Frozen = false
	w.FrozenReason = ""
}
