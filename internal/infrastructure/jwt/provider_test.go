package jwtinfra

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wazir-realty/api/internal/config"
)

func TestSignAndVerify(t *testing.T) {
	p := NewProvider(&config.Config{JWTSecret: "test-secret"})

	token, err := p.Sign(42)
	require.NoError(t, err)

	claims, err := p.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := NewProvider(&config.Config{JWTSecret: "one"}).Sign(42)
	require.NoError(t, err)

	_, err = NewProvider(&config.Config{JWTSecret: "other"}).Verify(token)
	assert.Error(t, err)
}

func TestVerify_Garbage(t *testing.T) {
	p := NewProvider(&config.Config{JWTSecret: "test-secret"})
	_, err := p.Verify("not-a-token")
	assert.Error(t, err)
}

func TestVerify_SubjectOnlyToken(t *testing.T) {
	// Tokens minted before the typed user_id claim carry only the subject.
	secret := []byte("test-secret")
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(77, 10),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token, err := raw.SignedString(secret)
	require.NoError(t, err)

	claims, err := NewProvider(&config.Config{JWTSecret: "test-secret"}).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(77), claims.UserID)
}
