// Package secretstore seals and opens platform credentials at rest.
// It generalizes the teacher's TokenEncryption (AES-256-GCM over a
// raw 32-byte key) with a key-derivation step, so operators configure
// one passphrase and a salt instead of managing a raw key directly.
package secretstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// KDFIterations is the PBKDF2 iteration count applied to the
// configured passphrase. 100,000 rounds of SHA-256 is the floor
// recommended by OWASP for PBKDF2-HMAC-SHA256 as of this writing.
const KDFIterations = 100_000

const keySize = 32 // AES-256

// ErrTamper is returned when Open fails authentication — either the
// ciphertext was corrupted or it was sealed under a different key.
var ErrTamper = errors.New("secretstore: ciphertext failed authentication")

// Store seals and opens secrets with AES-256-GCM under a key derived
// from a passphrase via PBKDF2-HMAC-SHA256.
type Store struct {
	key []byte
}

// New derives the AES-256 key from passphrase and salt and returns a
// ready-to-use Store. salt should be a stable, per-deployment value
// read from configuration; it need not be secret but must not change
// once secrets have been sealed under it.
func New(passphrase, salt string) (*Store, error) {
	if passphrase == "" {
		return nil, errors.New("secretstore: passphrase must not be empty")
	}
	if salt == "" {
		return nil, errors.New("secretstore: salt must not be empty")
	}
	key := pbkdf2.Key([]byte(passphrase), []byte(salt), KDFIterations, keySize, sha256.New)
	return &Store{key: key}, nil
}

// Seal encrypts plaintext and returns the nonce-prefixed ciphertext.
func (s *Store) Seal(plaintext []byte) ([]byte, error) {
	gcm, err := s.gcm()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a value produced by Seal. Any authentication failure
// (tampering, truncation, or wrong key) is reported as ErrTamper.
func (s *Store) Open(sealed []byte) ([]byte, error) {
	gcm, err := s.gcm()
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrTamper
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrTamper
	}
	return plaintext, nil
}

// SealString is a convenience wrapper for string secrets (OAuth
// tokens are handled as strings everywhere above the store).
func (s *Store) SealString(plaintext string) ([]byte, error) {
	return s.Seal([]byte(plaintext))
}

// OpenString is the inverse of SealString.
func (s *Store) OpenString(sealed []byte) (string, error) {
	plaintext, err := s.Open(sealed)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (s *Store) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
