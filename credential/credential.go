// Package credential hashes and verifies the optional passwords anonymous authors
// attach to their content.
//
// New credentials are bcrypt hashes. Credentials written before the bcrypt migration
// are bare hex SHA-256 digests; they are recognised purely by shape (64 lowercase hex
// characters) and keep verifying.
package credential

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// Cost is the bcrypt work factor of new credentials.
	Cost = 12

	// MaxSecretLength is the longest secret bcrypt accepts.
	MaxSecretLength = 72

	legacyLength = sha256.Size * 2
)

// ErrSecretTooLong is returned by Hash for secrets over MaxSecretLength bytes.
var ErrSecretTooLong = errors.New("password is too long")

// Hash returns the bcrypt credential for secret.
func Hash(secret string) (string, error) {
	if len(secret) > MaxSecretLength {
		return "", ErrSecretTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(secret), Cost)
	return string(b), err
}

// Verify reports whether secret produced credential. It never fails loudly: an
// empty or malformed input is simply a mismatch.
func Verify(secret, credential string) bool {
	if secret == "" || credential == "" {
		return false
	}
	if IsLegacy(credential) {
		sum := sha256.Sum256([]byte(secret))
		return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(credential)) == 1
	}
	// bcrypt ignores everything past MaxSecretLength bytes
	if len(secret) > MaxSecretLength {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(credential), []byte(secret)) == nil
}

// IsLegacy reports whether credential has the shape of a bare SHA-256 hex digest.
func IsLegacy(credential string) bool {
	if len(credential) != legacyLength {
		return false
	}
	for i := 0; i < len(credential); i++ {
		c := credential[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}
