// Package secrets generates and verifies the operator tokens guarding the
// admin surface. Tokens are opaque random strings; only their bcrypt hash is
// kept in configuration, the plaintext lives with the operator.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	dErrors "labtrail/pkg/domain-errors"
)

const tokenBytes = 32

// Generate returns a new operator token. The lt_ prefix makes leaked tokens
// recognizable in scanner output.
func Generate() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return "lt_" + base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash bcrypt-hashes a token for storage in configuration.
func Hash(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "token cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "token exceeds the bcrypt length limit")
		}
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether the presented token matches the stored hash.
func Verify(token, hash string) error {
	switch err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	default:
		return fmt.Errorf("verify token: %w", err)
	}
}
