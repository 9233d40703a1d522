package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 30)
	identity := domain.Identity{UserID: "u1", Role: domain.RoleDepartment, Department: "IT Department", DisplayName: "IT"}

	issued, err := tm.GenerateToken(identity)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.SessionID)

	claims, err := tm.ParseToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, identity, claims.Identity())
	assert.Equal(t, issued.SessionID, claims.ID)

	_, err = NewTokenManager("other", 30).ParseToken(issued.Token)
	assert.Error(t, err)
}

func TestExpiredTokenKeepsClaims(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	issued, err := tm.GenerateToken(domain.Identity{UserID: "u1", Role: domain.RoleStudent})
	require.NoError(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	claims, err := tm.ParseToken(issued.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	require.NotNil(t, claims)
	assert.Equal(t, issued.SessionID, claims.ID)
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	store := NewMemorySessionStore().(*memorySessionStore)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "s1", UserID: "u1", ExpiresAt: now.Add(time.Minute)}))
	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Save(ctx, &Session{ID: "s2", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.Delete(ctx, "s2"))
	_, err = store.Get(ctx, "s2")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPasswordHashing(t *testing.T) {
	hashed, err := HashPassword("password123", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hashed, "password123"))
	assert.ErrorIs(t, ComparePassword(hashed, "wrong"), ErrPasswordMismatch)
}

type stubResolver map[string]domain.Identity

func (s stubResolver) Identify(_ context.Context, token string) (domain.Identity, error) {
	if token == "expired" {
		return domain.Identity{}, apperrors.NewSessionExpired("session expired")
	}
	identity, ok := s[token]
	if !ok {
		return domain.Identity{}, apperrors.NewUnauthorized("invalid token")
	}
	return identity, nil
}

func newTestApp(resolver IdentityResolver) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	mw := NewAuthMiddleware(resolver)
	app.Get("/any", mw.Handle, RequireRole(), func(c *fiber.Ctx) error {
		identity, _ := IdentityFromContext(c)
		return c.SendString(identity.UserID)
	})
	app.Get("/supervisors", mw.Handle, RequireRole(SupervisorRoles...), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestMiddlewareAndRoleGate(t *testing.T) {
	app := newTestApp(stubResolver{
		"student-token": {UserID: "s1", Role: domain.RoleStudent},
		"manager-token": {UserID: "m1", Role: domain.RoleManager},
	})

	cases := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing header", "/any", "", fiber.StatusUnauthorized},
		{"malformed header", "/any", "Token abc", fiber.StatusUnauthorized},
		{"unknown token", "/any", "Bearer nope", fiber.StatusUnauthorized},
		{"expired session", "/any", "Bearer expired", fiber.StatusUnauthorized},
		{"student allowed", "/any", "Bearer student-token", fiber.StatusOK},
		{"student forbidden", "/supervisors", "Bearer student-token", fiber.StatusForbidden},
		{"manager allowed", "/supervisors", "Bearer manager-token", fiber.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestExpiredSessionSetsChallenge(t *testing.T) {
	app := newTestApp(stubResolver{})
	req := httptest.NewRequest("GET", "/any", nil)
	req.Header.Set("Authorization", "Bearer expired")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "session expired")
}
