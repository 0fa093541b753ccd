package shared

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashIdentifier hashes client-identifying values (IPs, user agents) before
// they are persisted. Raw identifiers never reach the database.
func HashIdentifier(value string) string {
	if value == "" {
		value = "unknown"
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
