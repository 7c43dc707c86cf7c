// Package shared provides sentinel errors and small utilities used across
// the ledger and its sync engine.
package shared

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the lowercase hex SHA-256 digest of data. The sync engine
// hashes serialized payloads with it to detect content changes between cycles.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// Used to remove backup passwords from memory after key derivation.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}
