// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package encryption_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chroniclehq/chronicle/encryption"
)

func TestEncryptDecrypt(t *testing.T) {
	key, err := encryption.NewKey()
	require.NoError(t, err)

	sealed, err := encryption.Encrypt([]byte("gho_supersecrettoken"), key)
	require.NoError(t, err)
	require.NotContains(t, string(sealed), "supersecret")

	opened, err := encryption.Decrypt(sealed, key)
	require.NoError(t, err)
	require.Equal(t, "gho_supersecrettoken", string(opened))
}

func TestEncryptIsRandomized(t *testing.T) {
	key, err := encryption.NewKey()
	require.NoError(t, err)

	first, err := encryption.EncryptString("same-token", key)
	require.NoError(t, err)
	second, err := encryption.EncryptString("same-token", key)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestDecryptWrongKey(t *testing.T) {
	key, err := encryption.NewKey()
	require.NoError(t, err)
	other, err := encryption.NewKey()
	require.NoError(t, err)

	sealed, err := encryption.EncryptString("token", key)
	require.NoError(t, err)

	_, err = encryption.DecryptString(sealed, other)
	require.Error(t, err)
}

func TestKeyFromBase64(t *testing.T) {
	key, err := encryption.NewKey()
	require.NoError(t, err)

	sealed, err := encryption.EncryptString("token", key)
	require.NoError(t, err)

	_, err = encryption.KeyFromBase64("not base64!!")
	require.Error(t, err)
	_, err = encryption.KeyFromBase64("c2hvcnQ=")
	require.Error(t, err)

	opened, err := encryption.DecryptString(sealed, key)
	require.NoError(t, err)
	require.Equal(t, "token", opened)
}
