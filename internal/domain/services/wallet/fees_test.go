package wallet

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/aurum-service/aurum_service/internal/domain/entities"
)

func TestCalculateFeePerClass(t *testing.T) {
	schedule := entities.DefaultFeeSchedule()

	cases := []struct {
		class   entities.OperationClass
		amount  string
		wantFee string
		wantNet string
	}{
		{entities.OpDeposit, "1000", "0", "1000"},
		{entities.OpWithdrawal, "1000", "10", "990"},
		{entities.OpBuyGold, "650", "6.5", "643.5"},
		{entities.OpSellGold, "350", "7", "343"},
	}

	for _, tc := range cases {
		got := CalculateFee(schedule, tc.class, dec(tc.amount))
		assert.True(t, got.Fee.Equal(dec(tc.wantFee)), "%s fee: got %s", tc.class, got.Fee)
		assert.True(t, got.Net.Equal(dec(tc.wantNet)), "%s net: got %s", tc.class, got.Net)
	}
}

func TestCalculateFeeRoundsToCents(t *testing.T) {
	schedule := entities.FeeSchedule{WithdrawalPct: dec("0.015")}

	// 33.33 * 1.5% = 0.49995 -> 0.50
	got := CalculateFee(schedule, entities.OpWithdrawal, dec("33.33"))
	assert.True(t, got.Fee.Equal(dec("0.50")), "got %s", got.Fee)
	assert.True(t, got.Net.Equal(dec("32.83")))
}

func TestCalculateFeeUnknownClassIsFree(t *testing.T) {
	got := CalculateFee(entities.DefaultFeeSchedule(), entities.OpDelivery, dec("100"))
	assert.True(t, got.Fee.IsZero())
	assert.True(t, got.Net.Equal(dec("100")))
}

func TestDeliveryChargeTiers(t *testing.T) {
	schedule := entities.DefaultFeeSchedule()

	// insurance 9.99 + tier price
	cases := []struct {
		grams string
		want  string
	}{
		{"50", "24.98"},    // <= 100g tier 14.99
		{"100", "24.98"},   // boundary stays in the first tier
		{"100.1", "39.98"}, // 29.99 tier
		{"500", "39.98"},
		{"750", "69.98"}, // catch-all 59.99
	}

	for _, tc := range cases {
		got := DeliveryCharge(schedule, dec(tc.grams))
		assert.True(t, got.Equal(dec(tc.want)), "%sg: got %s", tc.grams, got)
	}
}

func TestDeliveryChargeNoTiersChargesInsuranceOnly(t *testing.T) {
	schedule := entities.FeeSchedule{DeliveryInsurance: dec("9.99")}
	assert.True(t, DeliveryCharge(schedule, dec("10")).Equal(dec("9.99")))
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
