package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-tools/internal/models"
	"github.com/noah-isme/campus-tools/pkg/config"
	appErrors "github.com/noah-isme/campus-tools/pkg/errors"
)

const (
	AuthMethodJWT    = "jwt"
	AuthMethodAPIKey = "api_key"
)

// AuthService authenticates callers of the HTTP surfaces with either an HS256 bearer token
// or a static API key compared against a bcrypt hash.
type AuthService struct {
	cfg    config.AuthConfig
	logger *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(cfg config.AuthConfig, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{cfg: cfg, logger: logger}
}

// Enabled reports whether requests must carry credentials.
func (s *AuthService) Enabled() bool {
	return s != nil && s.cfg.Enabled
}

// Authenticate resolves a credential to a principal. JWT-shaped values are checked as tokens
// first; anything else is treated as an API key.
func (s *AuthService) Authenticate(credential string) (*models.Principal, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing credentials")
	}

	if s.cfg.Secret != "" && strings.Count(credential, ".") == 2 {
		claims, err := s.ValidateToken(credential)
		if err == nil {
			return &models.Principal{ID: claims.Subject, Method: AuthMethodJWT, Scopes: claims.Scopes}, nil
		}
		if s.cfg.APIKeyHash == "" {
			return nil, err
		}
	}

	if s.cfg.APIKeyHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.APIKeyHash), []byte(credential)); err == nil {
			return &models.Principal{ID: "api-key:" + keyFingerprint(credential), Method: AuthMethodAPIKey}, nil
		}
	}

	s.logger.Debug("credential rejected")
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid credentials")
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// IssueToken signs a token for subject. Used by the CLI to mint operator tokens.
func (s *AuthService) IssueToken(subject string, scopes []string, ttl time.Duration) (string, error) {
	if s.cfg.Secret == "" {
		return "", appErrors.Clone(appErrors.ErrInternal, "jwt secret not configured")
	}
	issuedAt := time.Now().UTC()
	claims := &models.JWTClaims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(issuedAt.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
}

// HashAPIKey produces the bcrypt hash expected in API_KEY_HASH.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func keyFingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:4])
}
