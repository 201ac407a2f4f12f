// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package encryption provides the secret-key primitives used to protect
// platform access tokens and OAuth client secrets at rest.
package encryption

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/zeebo/errs"
	"golang.org/x/crypto/nacl/secretbox"
)

// Error is the default error class for the encryption package.
var Error = errs.Class("encryption")

// KeySize is the size of the secret key in bytes.
const KeySize = 32

const nonceSize = 24

// Key is a secret key used for encrypting and decrypting tokens.
// It is immutable after initialization.
type Key [KeySize]byte

// NewKey generates a random secret key.
func NewKey() (*Key, error) {
	var key Key
	if _, err := rand.Read(key[:]); err != nil {
		return nil, Error.Wrap(err)
	}
	return &key, nil
}

// KeyFromBase64 parses a standard base64 encoded secret key.
func KeyFromBase64(encoded string) (*Key, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, Error.New("invalid key encoding: %v", err)
	}
	if len(raw) != KeySize {
		return nil, Error.New("invalid key length %d, expected %d", len(raw), KeySize)
	}
	var key Key
	copy(key[:], raw)
	return &key, nil
}

// Encrypt seals plaintext with a fresh random nonce.
// The nonce is prepended to the returned ciphertext.
func Encrypt(plaintext []byte, key *Key) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, Error.Wrap(err)
	}

	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, (*[KeySize]byte)(key))
	return sealed, nil
}

// Decrypt opens ciphertext produced by Encrypt.
func Decrypt(ciphertext []byte, key *Key) ([]byte, error) {
	if len(ciphertext) < nonceSize {
		return nil, Error.New("ciphertext too short")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])

	plaintext, ok := secretbox.Open(nil, ciphertext[nonceSize:], &nonce, (*[KeySize]byte)(key))
	if !ok {
		return nil, Error.New("decryption failed")
	}
	return plaintext, nil
}

// EncryptString seals a string and returns base64 for relational storage.
func EncryptString(plaintext string, key *Key) (string, error) {
	sealed, err := Encrypt([]byte(plaintext), key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString reverses EncryptString.
func DecryptString(encoded string, key *Key) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", Error.New("invalid ciphertext encoding: %v", err)
	}
	plaintext, err := Decrypt(raw, key)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
