package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashClientKey returns a path-safe identifier for a client ID. Raw client IDs
// never appear in storage keys or file names.
func HashClientKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
