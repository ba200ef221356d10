package entities

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuditLog() *AuditLog {
	return &AuditLog{
		ID:           uuid.New(),
		ActorID:      uuid.New(),
		Action:       AuditActionDeposit,
		Category:     AuditCategoryWallet,
		ResourceType: "transaction",
		Status:       "success",
		CreatedAt:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestCalculateHashIsDeterministic(t *testing.T) {
	log := testAuditLog()
	log.PreviousHash = "abc"

	assert.Equal(t, log.CalculateHash(), log.CalculateHash())
}

func TestHashCoversImmutableFields(t *testing.T) {
	log := testAuditLog()
	original := log.CalculateHash()

	log.Action = AuditActionWithdrawal
	assert.NotEqual(t, original, log.CalculateHash())
}

func TestSetIntegrityFieldsChainsEntries(t *testing.T) {
	first := testAuditLog()
	first.SetIntegrityFields("")
	require.NotEmpty(t, first.CurrentHash)

	second := testAuditLog()
	second.SetIntegrityFields(first.CurrentHash)

	assert.Equal(t, first.CurrentHash, second.PreviousHash)
	assert.Equal(t, second.CalculateHash(), second.CurrentHash)
	assert.NotEqual(t, first.CurrentHash, second.CurrentHash)
}

func TestTamperedEntryFailsVerification(t *testing.T) {
	log := testAuditLog()
	log.SetIntegrityFields("")

	log.ActorID = uuid.New()
	assert.NotEqual(t, log.CurrentHash, log.CalculateHash())
}
