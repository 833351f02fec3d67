package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateAdminToken(secret, "ops", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateAdminToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)

	_, err = ValidateAdminToken([]byte("other-secret"), token)
	assert.Error(t, err)
}

func TestAdminTokenRejectsExpiredAndNonAdmin(t *testing.T) {
	secret := []byte("test-secret")
	expired, err := GenerateAdminToken(secret, "ops", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateAdminToken(secret, expired)
	assert.Error(t, err)

	viewer := jwt.NewWithClaims(jwt.SigningMethodHS256, &AdminClaims{
		Role: "viewer",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := viewer.SignedString(secret)
	require.NoError(t, err)
	_, err = ValidateAdminToken(secret, signed)
	assert.ErrorIs(t, err, ErrNotAdmin)

	_, err = GenerateAdminToken(nil, "ops", time.Hour)
	assert.Error(t, err)
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{"", 10, true},
		{"5", 5, true},
		{"500", 100, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"ten", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseLimit(tt.raw, 10, 100)
		assert.Equal(t, tt.wantOK, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Equal(t, "abc", BearerToken("abc"))
	assert.Equal(t, "", BearerToken(""))
}
