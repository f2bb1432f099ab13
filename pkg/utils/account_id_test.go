package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccountID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		key     string
		special bool
		wantErr bool
	}{
		{name: "plain", raw: "123456", key: "123456"},
		{name: "trimmed", raw: "  654321 ", key: "654321"},
		{name: "special", raw: "#123456", key: "special_123456", special: true},
		{name: "too short", raw: "12345", wantErr: true},
		{name: "too long", raw: "1234567", wantErr: true},
		{name: "letters", raw: "12a456", wantErr: true},
		{name: "marker only", raw: "#", wantErr: true},
		{name: "double marker", raw: "##123456", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseAccountID(tt.raw)
			if tt.wantErr {
				var vErr *ValidationError
				require.True(t, errors.As(err, &vErr), "want ValidationError, got %v", err)
				assert.Equal(t, "user_id", vErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.key, id.Key())
			assert.Equal(t, tt.special, id.Special())
		})
	}
}

func TestAccountIDKeysDoNotCollide(t *testing.T) {
	plain, err := ParseAccountID("123456")
	require.NoError(t, err)
	special, err := ParseAccountID("#123456")
	require.NoError(t, err)

	assert.NotEqual(t, plain.Key(), special.Key())
	assert.Equal(t, "123456", plain.String())
	assert.Equal(t, "#123456", special.String())
}

func TestParseAccountKey(t *testing.T) {
	id, err := ParseAccountKey("special_000111")
	require.NoError(t, err)
	assert.True(t, id.Special())
	assert.Equal(t, "#000111", id.String())

	id, err = ParseAccountKey("000111")
	require.NoError(t, err)
	assert.False(t, id.Special())

	_, err = ParseAccountKey("special_abc")
	assert.Error(t, err)
}
