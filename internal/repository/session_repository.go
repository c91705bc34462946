package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
)

// SessionKeyPrefix namespaces session records in Redis.
const SessionKeyPrefix = "session:"

// SessionRepository stores authentication sessions in Redis.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
	Extend(ctx context.Context, id string, expiresAt time.Time) error
}

type sessionRepository struct {
	client redis.UniversalClient
}

// NewSessionRepository constructs a Redis-backed session store.
func NewSessionRepository(client redis.UniversalClient) SessionRepository {
	return &sessionRepository{client: client}
}

func sessionKey(id string) string {
	return SessionKeyPrefix + id
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if session.IsExpired(time.Now()) {
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

// Save writes the session with a TTL matching its expiry. Expired sessions are rejected.
func (r *sessionRepository) Save(ctx context.Context, session *domain.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", session.ID)
	}

	stored := *session
	stored.AccessToken = ""
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return r.client.Set(ctx, sessionKey(session.ID), data, ttl).Err()
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, sessionKey(id)).Err()
}

func (r *sessionRepository) Extend(ctx context.Context, id string, expiresAt time.Time) error {
	session, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	session.ExpiresAt = expiresAt
	return r.Save(ctx, session)
}
