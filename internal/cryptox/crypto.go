// Package cryptox implements password-based encryption for exported backups.
// Keys are derived with Argon2id and payloads sealed with AES-256-GCM, so a
// wrong password or tampered ciphertext fails authentication instead of
// producing garbage.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"unicode"

	"golang.org/x/crypto/argon2"

	"pocketledger/internal/models"
	"pocketledger/internal/shared"
)

const (
	// EncryptionVersion is written into every EncryptedPayload. Readers
	// refuse payloads with a version they do not know.
	EncryptionVersion = 1

	saltLength = 16
	ivLength   = 12
	keyLength  = 32

	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
)

// DeriveKey derives a 256-bit AES key from password and salt using Argon2id.
func DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, keyLength)
}

// EncryptBackup seals the serialized backup with a key derived from password.
// A fresh random salt and nonce are generated for every call.
func EncryptBackup(plaintext, password []byte) (*models.EncryptedPayload, error) {

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}

	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	key := DeriveKey(password, salt)
	defer shared.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	ciphertext := aead.Seal(nil, iv, plaintext, nil)

	return &models.EncryptedPayload{
		Encrypted: true,
		Salt:      base64.StdEncoding.EncodeToString(salt),
		IV:        base64.StdEncoding.EncodeToString(iv),
		Data:      base64.StdEncoding.EncodeToString(ciphertext),
		Version:   EncryptionVersion,
	}, nil
}

// DecryptBackup opens an encrypted payload with a key derived from password.
// A wrong password or corrupted ciphertext returns ErrorDecryptionFailed; an
// unknown envelope version returns ErrorEncryptionVersionMismatch. Both are
// recoverable conditions for the caller to surface, never retried.
func DecryptBackup(p *models.EncryptedPayload, password []byte) ([]byte, error) {

	if p.Version != EncryptionVersion {
		return nil, fmt.Errorf("%w: %d", shared.ErrorEncryptionVersionMismatch, p.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(p.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: bad salt encoding", shared.ErrorDecryptionFailed)
	}
	iv, err := base64.StdEncoding.DecodeString(p.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: bad nonce encoding", shared.ErrorDecryptionFailed)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: bad data encoding", shared.ErrorDecryptionFailed)
	}

	key := DeriveKey(password, salt)
	defer shared.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: check your password", shared.ErrorDecryptionFailed)
	}
	return plaintext, nil
}

// IsEncryptedPayload reports whether raw JSON looks like an EncryptedPayload
// envelope rather than a plain backup.
func IsEncryptedPayload(raw []byte) bool {
	var p models.EncryptedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return false
	}
	return p.Encrypted && p.Salt != "" && p.IV != "" && p.Data != "" && p.Version > 0
}

// ValidatePassword enforces the minimum strength for backup passwords:
// at least 8 characters with at least one letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: at least 8 characters required", shared.ErrorWeakPassword)
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		return fmt.Errorf("%w: at least one letter required", shared.ErrorWeakPassword)
	}
	if !hasDigit {
		return fmt.Errorf("%w: at least one digit required", shared.ErrorWeakPassword)
	}
	return nil
}
