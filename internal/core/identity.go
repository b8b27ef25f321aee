package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// IdentityHasher derives stable, non-reversible client keys from raw
// addresses. Storing the salted hash instead of the address lets the
// same visitor be recognized for rate limiting without keeping the
// address itself; without the salt the hash cannot be reversed offline.
type IdentityHasher struct {
	salt string
}

// NewIdentityHasher creates a hasher with the given secret salt. The
// salt is process configuration, loaded once and never mutated.
func NewIdentityHasher(salt string) *IdentityHasher {
	return &IdentityHasher{salt: salt}
}

// Hash returns the lowercase hex SHA-256 digest of address+salt.
// Deterministic for a fixed (address, salt) pair.
func (h *IdentityHasher) Hash(address string) string {
	sum := sha256.Sum256([]byte(address + h.salt))
	return hex.EncodeToString(sum[:])
}
