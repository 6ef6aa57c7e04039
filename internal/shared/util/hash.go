package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashUserKey returns a stable, non-reversible key for a caller identity.
// Rate-limit buckets are keyed by it so raw user ids and client addresses
// are never held in limiter state.
func HashUserKey(principal string) string {
	sum := sha256.Sum256([]byte(principal))
	return hex.EncodeToString(sum[:])
}
