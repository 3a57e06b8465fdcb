package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"valid", "password123", nil},
		{"minimum length", "abcdef", nil},
		{"multibyte counts runes", "密碼密碼密碼", nil},
		{"too short", "abc", ErrPasswordTooShort},
		{"empty", "", ErrPasswordTooShort},
		{"bcrypt limit", strings.Repeat("a", MaxPasswordBytes), nil},
		{"over bcrypt limit", strings.Repeat("a", MaxPasswordBytes+1), ErrPasswordTooLong},
		{"multibyte over limit", strings.Repeat("密", 25), ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)

	assert.NotEqual(t, "password123", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	_, err = HashPassword(strings.Repeat("a", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestVerifyPassword(t *testing.T) {
	password := "mySecurePassword123"
	hash, err := HashPassword(password)
	require.NoError(t, err)

	tests := []struct {
		name           string
		hashedPassword string
		password       string
		want           bool
	}{
		{"correct password", hash, password, true},
		{"incorrect password", hash, "wrongPassword", false},
		{"empty password", hash, "", false},
		{"invalid hash", "invalid-hash", password, false},
		{"passwordless account", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyPassword(tt.hashedPassword, tt.password))
		})
	}
}

func TestHashPasswordIsSalted(t *testing.T) {
	hash1, err := HashPassword("testPassword")
	require.NoError(t, err)
	hash2, err := HashPassword("testPassword")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
	assert.True(t, VerifyPassword(hash1, "testPassword"))
	assert.True(t, VerifyPassword(hash2, "testPassword"))
}
