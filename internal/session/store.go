package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found or expired")

const (
	UserTypePatient  = "patient"
	UserTypeProvider = "provider"
)

// Session is the authenticated identity attached to a request.
type Session struct {
	Token       string    `json:"token"`
	UserType    string    `json:"user_type"`
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Store manages login session lifecycle: create, validate, revoke.
// Expiry is handled by the backing store's TTL.
type Store interface {
	Create(ctx context.Context, userType string, userID uuid.UUID, displayName, email string) (*Session, error)
	Get(ctx context.Context, token string) (*Session, error)
	Revoke(ctx context.Context, token string) error
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a session store backed by per-token Redis keys.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{
		client: client,
		ttl:    ttl,
	}
}

func sessionKey(token string) string {
	return "session:" + token
}

func (s *redisStore) Create(ctx context.Context, userType string, userID uuid.UUID, displayName, email string) (*Session, error) {
	sess := &Session{
		Token:       uuid.NewString(),
		UserType:    userType,
		UserID:      userID,
		DisplayName: displayName,
		Email:       email,
		ExpiresAt:   time.Now().Add(s.ttl).UTC(),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(sess.Token), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return sess, nil
}

func (s *redisStore) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	// The TTL should have removed it already, but clocks drift.
	if !sess.ExpiresAt.After(time.Now()) {
		_ = s.client.Del(ctx, sessionKey(token)).Err()
		return nil, ErrSessionNotFound
	}

	return &sess, nil
}

func (s *redisStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
