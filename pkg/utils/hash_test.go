package utils

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashSecretRoundTrip(t *testing.T) {
	hashed, err := HashSecret("0427")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hashed, "$argon2id$"))

	ok, err := VerifySecret("0427", hashed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifySecret("0428", hashed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashSecretSalted(t *testing.T) {
	a, err := HashSecret("1111")
	require.NoError(t, err)
	b, err := HashSecret("1111")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifySecretRejectsGarbage(t *testing.T) {
	_, err := VerifySecret("1234", "plaintext")
	assert.Error(t, err)
}

func TestEncryptorRoundTrip(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	enc, err := NewEncryptor(key)
	require.NoError(t, err)

	sealed, err := enc.Encrypt("me@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "me@example.com", sealed)

	plain, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", plain)
}

func TestEncryptorNilPassThrough(t *testing.T) {
	var enc *Encryptor
	sealed, err := enc.Encrypt("x@y.z")
	require.NoError(t, err)
	assert.Equal(t, "x@y.z", sealed)
}

func TestNewEncryptorBadKey(t *testing.T) {
	_, err := NewEncryptor("")
	assert.Error(t, err)
	_, err = NewEncryptor("not base64!")
	assert.Error(t, err)
	_, err = NewEncryptor(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}
