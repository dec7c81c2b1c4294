// Package vault encrypts the blobs persisted in local storage with a key
// derived from the user identity.
//
// The key is deterministic per user so the same user can always read their
// own data back. It obfuscates local storage from casual inspection and is
// not a protection against someone with access to the device.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	iterations = 10_000
	keySize    = 32 // AES-256
)

// salt is fixed: the key must be derivable from the user id alone.
var salt = []byte("planner/finance-data/v1")

// ErrEmptyUser is returned when deriving a key for an empty user id.
var ErrEmptyUser = errors.New("empty user id")

// Key is a per-user symmetric key.
type Key struct {
	aead cipher.AEAD
}

// DeriveKey returns the key of a user.
func DeriveKey(userID string) (*Key, error) {
	if userID == "" {
		return nil, ErrEmptyUser
	}
	raw := pbkdf2.Key([]byte(userID), salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Key{aead: aead}, nil
}

// Seal encrypts plaintext and returns base64(nonce+ciphertext).
func (k *Key) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, k.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	sealed := k.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal.
func (k *Key) Open(blob string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	ns := k.aead.NonceSize()
	if len(data) < ns {
		return nil, fmt.Errorf("cipher too short")
	}
	nonce, ciphertext := data[:ns], data[ns:]
	plaintext, err := k.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// Seal encrypts plaintext with the key of userID.
func Seal(userID string, plaintext []byte) (string, error) {
	k, err := DeriveKey(userID)
	if err != nil {
		return "", err
	}
	return k.Seal(plaintext)
}

// Open decrypts blob with the key of userID.
func Open(userID string, blob string) ([]byte, error) {
	k, err := DeriveKey(userID)
	if err != nil {
		return nil, err
	}
	return k.Open(blob)
}
