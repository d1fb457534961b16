package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "session:revoked:"

// SessionStore tracks revoked session tokens in Redis. Entries expire
// with the token itself, keeping the denylist bounded.
type SessionStore struct {
	rdb *redis.Client
}

// NewSessionStore creates a store over a redis client.
func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// Revoke marks a token id unusable until it would have expired anyway.
func (s *SessionStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, revokedPrefix+tokenID, "1", ttl).Err()
}

// Revoked reports whether a token id has been revoked.
func (s *SessionStore) Revoked(ctx context.Context, tokenID string) (bool, error) {
	_, err := s.rdb.Get(ctx, revokedPrefix+tokenID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
