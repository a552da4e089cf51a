package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-tools/internal/models"
	"github.com/noah-isme/campus-tools/pkg/config"
	appErrors "github.com/noah-isme/campus-tools/pkg/errors"
)

func TestAuthenticateJWT(t *testing.T) {
	svc := NewAuthService(config.AuthConfig{Enabled: true, Secret: "secret"}, zap.NewNop())

	token, err := svc.IssueToken("operator", []string{"leave:write"}, time.Hour)
	require.NoError(t, err)

	principal, err := svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", principal.ID)
	assert.Equal(t, AuthMethodJWT, principal.Method)
	assert.Equal(t, []string{"leave:write"}, principal.Scopes)
}

func TestAuthenticateRejectsExpiredAndForeignTokens(t *testing.T) {
	svc := NewAuthService(config.AuthConfig{Enabled: true, Secret: "secret"}, nil)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "operator",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.Authenticate(signed)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	other := NewAuthService(config.AuthConfig{Secret: "other"}, nil)
	foreign, err := other.IssueToken("intruder", nil, time.Hour)
	require.NoError(t, err)
	_, err = svc.Authenticate(foreign)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthenticateAPIKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("k3y"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := NewAuthService(config.AuthConfig{Enabled: true, APIKeyHash: string(hash)}, nil)

	principal, err := svc.Authenticate("k3y")
	require.NoError(t, err)
	assert.Equal(t, AuthMethodAPIKey, principal.Method)
	assert.Contains(t, principal.ID, "api-key:")

	_, err = svc.Authenticate("wrong")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.Authenticate("  ")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestHashAPIKeyRoundTrip(t *testing.T) {
	hash, err := HashAPIKey("secret-key")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret-key")))
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	_, err := NewAuthService(config.AuthConfig{}, nil).IssueToken("x", nil, 0)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
