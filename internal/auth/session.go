package auth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// ErrSessionNotFound means the session was revoked or has lapsed.
var ErrSessionNotFound = errors.New("session not found")

// Session is the server-side record behind an access token.
type Session struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Role        domain.Role `json:"role"`
	Department  string      `json:"department,omitempty"`
	DisplayName string      `json:"display_name,omitempty"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// Identity returns the caller identity recorded in the session.
func (s *Session) Identity() domain.Identity {
	return domain.Identity{
		UserID:      s.UserID,
		Role:        s.Role,
		Department:  s.Department,
		DisplayName: s.DisplayName,
	}
}

// SessionStore persists sessions keyed by session id.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

const sessionKeyPrefix = "helpdesk:session:"

type redisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore keeps sessions in Redis with a TTL matching the token.
func NewRedisSessionStore(client *redis.Client) SessionStore {
	return &redisSessionStore{client: client}
}

func (s *redisSessionStore) Save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, sessionKeyPrefix+session.ID, data, ttl).Err()
}

func (s *redisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *redisSessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKeyPrefix+id).Err()
}

type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

// NewMemorySessionStore keeps sessions in process; used without Redis.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{sessions: make(map[string]Session), now: time.Now}
}

func (s *memorySessionStore) Save(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

func (s *memorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *memorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
