package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-tools/internal/models"
	"github.com/noah-isme/campus-tools/internal/service"
	appErrors "github.com/noah-isme/campus-tools/pkg/errors"
	"github.com/noah-isme/campus-tools/pkg/response"
)

// ContextPrincipalKey is the gin context key storing the authenticated principal.
const ContextPrincipalKey = "principal"

// APIKeyHeader carries a static API key as an alternative to a bearer token.
const APIKeyHeader = "X-API-Key"

type principalCtxKey struct{}

// Auth rejects requests without a valid bearer token or API key. It is a no-op when
// authentication is disabled.
func Auth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authService.Enabled() {
			c.Next()
			return
		}

		credential, err := credentialFromRequest(c)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		principal, err := authService.Authenticate(credential)
		if err != nil {
			c.Header("WWW-Authenticate", `Bearer realm="campus-tools"`)
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextPrincipalKey, principal)
		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

func credentialFromRequest(c *gin.Context) (string, error) {
	if key := strings.TrimSpace(c.GetHeader(APIKeyHeader)); key != "" {
		return key, nil
	}
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", appErrors.ErrUnauthorized
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}
	return parts[1], nil
}

// WithPrincipal stores p on ctx so handlers outside gin can read it.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext returns the principal stored by Auth, if any.
func PrincipalFromContext(ctx context.Context) *models.Principal {
	p, _ := ctx.Value(principalCtxKey{}).(*models.Principal)
	return p
}
