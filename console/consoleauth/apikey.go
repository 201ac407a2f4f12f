// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package consoleauth implements api key secrets and their hashing.
package consoleauth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/zeebo/errs"
)

// Error is the default consoleauth error class.
var Error = errs.Class("consoleauth")

// secretLength is the entropy of a generated key secret in bytes.
const secretLength = 32

// NewSecret generates an opaque api key secret.
func NewSecret() (string, error) {
	buf := make([]byte, secretLength)
	if _, err := rand.Read(buf); err != nil {
		return "", Error.Wrap(err)
	}
	return "chr_" + base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashSecret derives the stored hash of a key secret.
func HashSecret(secret string) []byte {
	hash := sha256.Sum256([]byte(secret))
	return hash[:]
}

// Equal compares two hashes in constant time.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
