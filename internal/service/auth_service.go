package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-helpdesk/internal/auth"
	"github.com/spec-kit/campus-helpdesk/internal/config"
	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

// AuthService coordinates sign-in, sign-out and session checks.
type AuthService struct {
	users      repository.UserRepository
	sessions   auth.SessionStore
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
	now        Clock
}

// AuthDependencies encapsulates collaborators for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Sessions auth.SessionStore
	Logger   *zap.Logger
	Clock    Clock
}

// RegisterInput describes a self-service student sign-up.
type RegisterInput struct {
	Username string
	Password string
	FullName string
	Email    string
}

// AccountInput describes an account provisioned by operators or seeding.
type AccountInput struct {
	Username   string
	Password   string
	FullName   string
	Email      string
	Role       domain.Role
	Department string
}

// LoginResult is returned after a successful sign-in.
type LoginResult struct {
	User  *domain.User
	Token auth.IssuedToken
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	sessions := deps.Sessions
	if sessions == nil {
		sessions = auth.NewMemorySessionStore()
	}
	return &AuthService{
		users:      deps.UserRepo,
		sessions:   sessions,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrDefault(deps.Clock),
	}
}

// Register creates a student account.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	return s.createAccount(ctx, AccountInput{
		Username: input.Username,
		Password: input.Password,
		FullName: input.FullName,
		Email:    input.Email,
		Role:     domain.RoleStudent,
	})
}

// EnsureAccount creates the account unless the username is already taken.
func (s *AuthService) EnsureAccount(ctx context.Context, input AccountInput) (*domain.User, error) {
	existing, err := s.users.GetByUsername(ctx, strings.TrimSpace(input.Username))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}
	return s.createAccount(ctx, input)
}

func (s *AuthService) createAccount(ctx context.Context, input AccountInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, apperrors.NewValidationError("username is required", map[string]any{"field": "username"})
	}
	if len(input.Password) < auth.MinPasswordLength {
		return nil, apperrors.NewValidationError("password is too short",
			map[string]any{"field": "password", "min_length": auth.MinPasswordLength})
	}
	if input.Role == domain.RoleDepartment && strings.TrimSpace(input.Department) == "" {
		return nil, apperrors.NewValidationError("department accounts need a department", map[string]any{"field": "department"})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		fullName = username
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		FullName:     fullName,
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: hash,
		Role:         input.Role,
		Department:   strings.TrimSpace(input.Department),
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, mapRepoError(err, "username", map[string]any{"username": username})
	}
	s.logger.Info("account created", zap.String("username", username), zap.String("role", string(user.Role)))
	return user, nil
}

// Login verifies credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	issued, err := s.tokenMgr.GenerateToken(user.Identity())
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	identity := user.Identity()
	session := &auth.Session{
		ID:          issued.SessionID,
		UserID:      identity.UserID,
		Role:        identity.Role,
		Department:  identity.Department,
		DisplayName: identity.DisplayName,
		ExpiresAt:   issued.ExpiresAt,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("signed in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &LoginResult{User: user, Token: issued}, nil
}

// Identify resolves a bearer token. An expired token or session is
// discarded and reported as SESSION_EXPIRED.
func (s *AuthService) Identify(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			s.discard(ctx, claims.ID)
			return domain.Identity{}, apperrors.NewSessionExpired("session expired, please sign in again")
		}
		return domain.Identity{}, apperrors.NewUnauthorized("invalid token")
	}

	session, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			return domain.Identity{}, apperrors.NewSessionExpired("session expired, please sign in again")
		}
		return domain.Identity{}, apperrors.NewInternalError(err)
	}
	if !session.ExpiresAt.After(s.now()) {
		s.discard(ctx, session.ID)
		return domain.Identity{}, apperrors.NewSessionExpired("session expired, please sign in again")
	}
	return session.Identity(), nil
}

// Logout revokes the session behind the token. Unknown or expired tokens
// are accepted so logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokenMgr.ParseToken(token)
	if claims == nil {
		if err != nil {
			return apperrors.NewUnauthorized("invalid token")
		}
		return nil
	}
	s.discard(ctx, claims.ID)
	return nil
}

// Me returns the account behind an identity.
func (s *AuthService) Me(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, mapRepoError(err, "user", map[string]any{"user_id": identity.UserID})
	}
	return user, nil
}

// TokenManager exposes the underlying token manager.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) discard(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("failed to delete session", zap.String("session_id", sessionID), zap.Error(err))
	}
}
