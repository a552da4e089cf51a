package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "campus:mcp:session:"

// Session states stored per MCP session id.
const (
	SessionActive     = "active"
	SessionTerminated = "terminated"
)

// ErrSessionNotFound is returned for ids that were never issued or have expired.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository tracks Streamable HTTP session ids in Redis so any replica can
// validate a session issued by another.
type SessionRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSessionRepository constructs a session repository with the given idle TTL.
func NewSessionRepository(client redis.UniversalClient, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionRepository{client: client, ttl: ttl}
}

// Create records a new active session.
func (r *SessionRepository) Create(ctx context.Context, id string) error {
	if err := r.client.Set(ctx, sessionKeyPrefix+id, SessionActive, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis create session: %w", err)
	}
	return nil
}

// State returns the stored state and refreshes the TTL of active sessions.
func (r *SessionRepository) State(ctx context.Context, id string) (string, error) {
	state, err := r.client.Get(ctx, sessionKeyPrefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("redis get session: %w", err)
	}
	if state == SessionActive {
		_ = r.client.Expire(ctx, sessionKeyPrefix+id, r.ttl).Err()
	}
	return state, nil
}

// Terminate marks a session as terminated; the marker expires with the TTL.
func (r *SessionRepository) Terminate(ctx context.Context, id string) error {
	if err := r.client.Set(ctx, sessionKeyPrefix+id, SessionTerminated, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis terminate session: %w", err)
	}
	return nil
}
