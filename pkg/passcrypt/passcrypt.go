// SPDX-License-Identifier: GPL-3.0-or-later

// Package passcrypt encrypts and decrypts credentials stored in configuration files.
//
// The encrypted form is base64(salt | nonce | AES-256-GCM(ciphertext+tag)); the AES key is
// derived from the operator supplied encryption key with PBKDF2-SHA256.
package passcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keySize    = 32
	iterations = 100_000
)

var (
	ErrEmptyKey          = errors.New("empty encryption key")
	ErrMalformedCipher   = errors.New("malformed encrypted value")
	ErrDecryptionFailure = errors.New("decryption failed: wrong encryption key or corrupted value")
)

// Codec implements the credential decryption contract with Decrypt.
type Codec struct{}

func (Codec) Decrypt(cipherText, key string) (string, error) { return Decrypt(cipherText, key) }

func Encrypt(plainText, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %v", err)
	}

	aead, err := newAEAD(key, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %v", err)
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(plainText)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, []byte(plainText), nil)

	return base64.StdEncoding.EncodeToString(out), nil
}

func Decrypt(cipherText, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(cipherText))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCipher, err)
	}
	if len(raw) < saltSize {
		return "", ErrMalformedCipher
	}

	salt, rest := raw[:saltSize], raw[saltSize:]

	aead, err := newAEAD(key, salt)
	if err != nil {
		return "", err
	}
	if len(rest) < aead.NonceSize()+aead.Overhead() {
		return "", ErrMalformedCipher
	}

	nonce, sealed := rest[:aead.NonceSize()], rest[aead.NonceSize():]

	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptionFailure
	}
	return string(plain), nil
}

func newAEAD(key string, salt []byte) (cipher.AEAD, error) {
	dk := pbkdf2.Key([]byte(key), salt, iterations, keySize, sha256.New)

	block, err := aes.NewCipher(dk)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
