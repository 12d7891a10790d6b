package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/edusupport/helpdesk-service/internal/domain"
	apperrors "github.com/edusupport/helpdesk-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal is the request-scoped identity resolved from a verified access
// token. It carries no password hash and is never loaded from the store.
type Principal struct {
	ID    string
	Name  string
	Email string
	Role  domain.Role
}

// Middleware authenticates bearer tokens. Verification is pure: signature
// and expiry only, no store access, so a revoked account's token stays valid
// until its expiry.
type Middleware struct {
	tokens *TokenManager
}

// NewMiddleware constructs the authentication middleware.
func NewMiddleware(tokens *TokenManager) *Middleware {
	return &Middleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.Verify(parts[1])
	if err != nil {
		// Generic message regardless of expired vs tampered.
		return apperrors.NewUnauthorized("invalid or expired token")
	}

	c.Locals(principalKey, &Principal{
		ID:    claims.Subject,
		Name:  claims.Name,
		Email: claims.Email,
		Role:  claims.Role,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
