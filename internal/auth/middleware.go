package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

const (
	identityKey = "auth_identity"
	tokenKey    = "auth_token"
)

// IdentityResolver turns a bearer token into the caller identity. An expired
// or revoked token yields a SESSION_EXPIRED error, and the resolver has
// already discarded the session by then.
type IdentityResolver interface {
	Identify(ctx context.Context, token string) (domain.Identity, error)
}

// AuthMiddleware validates bearer tokens and stores the identity in locals.
type AuthMiddleware struct {
	resolver IdentityResolver
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(resolver IdentityResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, err := BearerToken(c)
	if err != nil {
		return err
	}
	identity, err := m.resolver.Identify(c.UserContext(), token)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeSessionExpired) {
			c.Set(fiber.HeaderWWWAuthenticate, `Bearer error="invalid_token", error_description="session expired"`)
		}
		return err
	}
	c.Locals(identityKey, identity)
	c.Locals(tokenKey, token)
	return c.Next()
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", apperrors.NewUnauthorized("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(domain.Identity)
	return identity, ok
}

// TokenFromContext returns the token the request was authenticated with.
func TokenFromContext(c *fiber.Ctx) string {
	token, _ := c.Locals(tokenKey).(string)
	return token
}
