// Package encoder seals secrets, such as session tokens, before they are
// written to a session store.
package encoder

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const sealedPrefix = "sealed:v1:"

var (
	// ErrKeyRequired is returned when a sealed value is opened without an encryption key.
	ErrKeyRequired = errors.New("value is sealed but no encryption key is configured")

	// ErrUnsealed is returned when an encryption key is configured but the value was stored in plain text.
	ErrUnsealed = errors.New("value is not sealed")

	// ErrMalformed is returned for a sealed value that is not valid base64 or too short to hold a nonce.
	ErrMalformed = errors.New("malformed sealed value")
)

// Sealer protects individual string values with AES-GCM. Sealed values are
// unpadded URL-safe base64 behind a version prefix, so plain values written
// without a key are told apart and the result fits files and text columns.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer returns a Sealer that encrypts under a key derived from passphrase.
// An empty passphrase yields a Sealer that stores values in plain text.
func NewSealer(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return &Sealer{}, nil
	}

	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to build cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to build cipher: %w", err)
	}

	return &Sealer{aead: aead}, nil
}

// Keyed reports whether values are encrypted.
func (s *Sealer) Keyed() bool {
	return s.aead != nil
}

// Seal returns the stored form of value. Empty values stay empty.
func (s *Sealer) Seal(value string) (string, error) {
	if value == "" || !s.Keyed() {
		return value, nil
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(value), nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal.
func (s *Sealer) Open(stored string) (string, error) {
	if stored == "" {
		return "", nil
	}

	sealed, ok := strings.CutPrefix(stored, sealedPrefix)
	switch {
	case ok && !s.Keyed():
		return "", ErrKeyRequired
	case !ok && s.Keyed():
		return "", ErrUnsealed
	case !ok:
		return stored, nil
	}

	data, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrMalformed)
	}

	value, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to open sealed value: %w", err)
	}
	return string(value), nil
}
