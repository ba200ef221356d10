package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	assert.Empty(t, Redact(""))
	assert.Equal(t, Redact("user@example.com"), Redact("user@example.com"))
	assert.NotEqual(t, Redact("user@example.com"), Redact("other@example.com"))
	assert.Len(t, Redact("user@example.com"), 64)
	assert.NotContains(t, Redact("user@example.com"), "@")
}
