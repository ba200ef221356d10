package wallet

import (
	"github.com/shopspring/decimal"

	"github.com/aurum-service/aurum_service/internal/domain/entities"
)

// FeeResult is the outcome of a fee computation
type FeeResult struct {
	Fee decimal.Decimal
	Net decimal.Decimal
}

// CalculateFee maps (operation class, gross amount) to fee and net
// amount using the percentage for the class. Deterministic and
// side-effect free; delivery is priced separately by DeliveryCharge.
// Fees are rounded to cents.
func CalculateFee(schedule entities.FeeSchedule, class entities.OperationClass, amount decimal.Decimal) FeeResult {
	var pct decimal.Decimal
	switch class {
	case entities.OpDeposit:
		pct = schedule.DepositPct
	case entities.OpWithdrawal:
		pct = schedule.WithdrawalPct
	case entities.OpBuyGold:
		pct = schedule.BuyGoldPct
	case entities.OpSellGold:
		pct = schedule.SellGoldPct
	default:
		pct = decimal.Zero
	}

	fee := amount.Mul(pct).Round(2)
	return FeeResult{Fee: fee, Net: amount.Sub(fee)}
}

// DeliveryCharge returns the flat charge for shipping grams of gold:
// insurance plus the first matching shipping tier. A tier with zero
// MaxGrams is the catch-all.
func DeliveryCharge(schedule entities.FeeSchedule, grams decimal.Decimal) decimal.Decimal {
	charge := schedule.DeliveryInsurance
	for _, tier := range schedule.DeliveryTiers {
		if tier.MaxGrams.IsZero() || grams.LessThanOrEqual(tier.MaxGrams) {
			return charge.Add(tier.Price)
		}
	}
	return charge
}
