// Package auth implements API-key verification for the admin surface.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

var (
	// ErrInvalidKey is returned when the presented key does not match.
	ErrInvalidKey = errors.New("invalid API key")
	// ErrMissingKey is returned when no key was presented.
	ErrMissingKey = errors.New("missing API key")
)

const (
	saltLength     = 16
	iterationCount = 4096
	keyLength      = 32
)

// KeyVerifier holds a derived hash of the admin API key. The plaintext key
// never lives beyond construction.
type KeyVerifier struct {
	salt []byte
	hash []byte
}

// NewKeyVerifier derives a verifier from the plaintext key.
func NewKeyVerifier(key string) (*KeyVerifier, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return &KeyVerifier{
		salt: salt,
		hash: pbkdf2.Key([]byte(key), salt, iterationCount, keyLength, sha256.New),
	}, nil
}

// Verify checks the presented key against the stored hash in constant time.
func (v *KeyVerifier) Verify(key string) error {
	candidate := pbkdf2.Key([]byte(key), v.salt, iterationCount, keyLength, sha256.New)
	if !hmac.Equal(candidate, v.hash) {
		return ErrInvalidKey
	}
	return nil
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	if header == "" {
		return "", ErrMissingKey
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrMissingKey
	}
	return parts[1], nil
}

// GenerateKey returns a random URL-safe API key. The server does not call it;
// an empty admin key disables the check instead.
func GenerateKey() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
