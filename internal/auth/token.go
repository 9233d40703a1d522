package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// ErrTokenExpired is returned by ParseToken for a well-formed token whose
// lifetime has passed. The claims are still returned alongside it.
var ErrTokenExpired = errors.New("token expired")

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    time.Duration(ttlMinutes) * time.Minute,
		now:    time.Now,
	}
}

// TTL reports the access token lifetime.
func (tm *TokenManager) TTL() time.Duration { return tm.ttl }

// Claims describes JWT payload. RegisteredClaims.Subject is the user id and
// RegisteredClaims.ID the session id.
type Claims struct {
	Role        domain.Role `json:"role"`
	Department  string      `json:"department,omitempty"`
	DisplayName string      `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Identity projects the claims onto a caller identity.
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{
		UserID:      c.Subject,
		Role:        c.Role,
		Department:  c.Department,
		DisplayName: c.DisplayName,
	}
}

// IssuedToken is a signed token and its session metadata.
type IssuedToken struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
}

// GenerateToken builds and signs a JWT for the identity.
func (tm *TokenManager) GenerateToken(identity domain.Identity) (IssuedToken, error) {
	now := tm.now()
	expiresAt := now.Add(tm.ttl)
	sessionID := uuid.NewString()
	claims := &Claims{
		Role:        identity.Role,
		Department:  identity.Department,
		DisplayName: identity.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   identity.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: signed, SessionID: sessionID, ExpiresAt: expiresAt}, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return claims, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, err
	}
	if !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
