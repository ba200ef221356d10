package entities

import "github.com/shopspring/decimal"

// FeeSchedule holds the fee policy per operation class. Percentages
// are fractions (0.01 = 1%). Delivery is charged flat: insurance plus
// a shipping tier by grams shipped. The schedule is admin-configurable
// through the settings store; the defaults below only seed it.
type FeeSchedule struct {
	DepositPct        decimal.Decimal `json:"deposit_pct"`
	WithdrawalPct     decimal.Decimal `json:"withdrawal_pct"`
	BuyGoldPct        decimal.Decimal `json:"buy_gold_pct"`
	SellGoldPct       decimal.Decimal `json:"sell_gold_pct"`
	DeliveryInsurance decimal.Decimal `json:"delivery_insurance"`
	DeliveryTiers     []DeliveryTier  `json:"delivery_tiers"`
}

// DeliveryTier is one shipping price band: grams up to and including
// MaxGrams ship for Price. Tiers are ordered ascending; the last tier
// with MaxGrams zero is the catch-all.
type DeliveryTier struct {
	MaxGrams decimal.Decimal `json:"max_grams"`
	Price    decimal.Decimal `json:"price"`
}

// LimitCaps holds the daily and lifetime caps for one operation
// class. Zero means unlimited.
type LimitCaps struct {
	Daily    decimal.Decimal `json:"daily"`
	Lifetime decimal.Decimal `json:"lifetime"`
}

// LimitSchedule maps operation class to its caps
type LimitSchedule map[OperationClass]LimitCaps

// DefaultFeeSchedule returns the seed fee policy
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		DepositPct:        decimal.Zero,
		WithdrawalPct:     decimal.NewFromFloat(0.01),
		BuyGoldPct:        decimal.NewFromFloat(0.01),
		SellGoldPct:       decimal.NewFromFloat(0.02),
		DeliveryInsurance: decimal.NewFromFloat(9.99),
		DeliveryTiers: []DeliveryTier{
			{MaxGrams: decimal.NewFromInt(100), Price: decimal.NewFromFloat(14.99)},
			{MaxGrams: decimal.NewFromInt(500), Price: decimal.NewFromFloat(29.99)},
			{MaxGrams: decimal.Zero, Price: decimal.NewFromFloat(59.99)},
		},
	}
}

// DefaultLimitSchedule returns the seed limit caps per class. Cash
// classes are capped in currency units; delivery is capped in grams
// shipped.
func DefaultLimitSchedule() LimitSchedule {
	return LimitSchedule{
		OpDeposit:    {Daily: decimal.NewFromInt(50000), Lifetime: decimal.Zero},
		OpWithdrawal: {Daily: decimal.NewFromInt(10000), Lifetime: decimal.Zero},
		OpBuyGold:    {Daily: decimal.NewFromInt(25000), Lifetime: decimal.Zero},
		OpSellGold:   {Daily: decimal.NewFromInt(25000), Lifetime: decimal.Zero},
		OpDelivery:   {Daily: decimal.NewFromInt(500), Lifetime: decimal.Zero},
	}
}
