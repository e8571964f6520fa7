package persistence

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// sealedPrefix marks a value produced by SecretSealer.Seal
const sealedPrefix = "sealed:v1:"

var (
	// ErrInvalidSealingKey is returned when the key is not 32 bytes of base64
	ErrInvalidSealingKey = errors.New("persistence: sealing key must be 32 bytes, base64 encoded")
	// ErrSealedValueCorrupt is returned when a sealed value fails authentication
	ErrSealedValueCorrupt = errors.New("persistence: sealed value is corrupt or was sealed with another key")
	// ErrSealerDisabled is returned when a sealed value is read without a key
	ErrSealerDisabled = errors.New("persistence: sealed value found but no sealing key is configured")
)

// SecretSealer encrypts credential secrets at rest with XChaCha20-Poly1305.
// Each value is bound to its row through the associated data, so a sealed
// secret copied into another row does not open.
//
// A sealer built from an empty key stores values in plain text; configuration
// validation rejects that in production.
type SecretSealer struct {
	aead interface {
		NonceSize() int
		Overhead() int
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

// NewSecretSealer creates a sealer from a base64 encoded 32 byte key
func NewSecretSealer(encodedKey string) (*SecretSealer, error) {
	if encodedKey == "" {
		return &SecretSealer{}, nil
	}
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidSealingKey
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("persistence: create cipher: %w", err)
	}
	return &SecretSealer{aead: aead}, nil
}

// Enabled reports whether values are encrypted
func (s *SecretSealer) Enabled() bool {
	return s != nil && s.aead != nil
}

// Seal encrypts plaintext bound to rowID. Empty values stay empty.
func (s *SecretSealer) Seal(rowID, plaintext string) (string, error) {
	if plaintext == "" || !s.Enabled() {
		return plaintext, nil
	}
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("persistence: generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), []byte(rowID))
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal. Values without the sealed prefix are
// returned unchanged.
func (s *SecretSealer) Open(rowID, value string) (string, error) {
	encoded, ok := strings.CutPrefix(value, sealedPrefix)
	if !ok {
		return value, nil
	}
	if !s.Enabled() {
		return "", ErrSealerDisabled
	}
	data, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil || len(data) < s.aead.NonceSize() {
		return "", ErrSealedValueCorrupt
	}
	nonce, ciphertext := data[:s.aead.NonceSize()], data[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(rowID))
	if err != nil {
		return "", ErrSealedValueCorrupt
	}
	return string(plain), nil
}
