package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// Redact returns a deterministic SHA-256 hash of the input. Log lines
// carry the hash instead of raw PII, which still lets entries for the
// same value be correlated.
func Redact(input string) string {
	if input == "" {
		return ""
	}
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}
