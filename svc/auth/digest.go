package auth

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Digest returns the BLAKE2b-256 hex digest of a password. It is
// deliberately unsalted: the store compares the digest inside a single SQL
// WHERE clause, so the same password must always produce the same value.
// The digest gates reads; it is not an account credential.
func Digest(password string) string {
	sum := blake2b.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
