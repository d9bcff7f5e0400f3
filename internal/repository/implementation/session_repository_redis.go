package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"startup-hunter-be/internal/repository/contract"
	"startup-hunter-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// RedisSessionRepository shares sessions between instances. Sessions are
// stored as JSON under session:<id>.
type RedisSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

var _ contract.SessionRepository = (*RedisSessionRepository)(nil)

func NewRedisSessionRepository(client *redis.Client, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (r *RedisSessionRepository) Get(ctx context.Context, id string) (store.Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return store.Session{}, fmt.Errorf("%w: %s", contract.ErrSessionNotFound, id)
	}
	if err != nil {
		return store.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	var s store.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return store.Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return s, nil
}

func (r *RedisSessionRepository) Create(ctx context.Context, session store.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID, err)
	}
	ok, err := r.client.SetNX(ctx, sessionKey(session.ID), raw, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("create session %s: %w", session.ID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", contract.ErrSessionExists, session.ID)
	}
	return nil
}

func (r *RedisSessionRepository) Update(ctx context.Context, session store.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID, err)
	}
	ok, err := r.client.SetXX(ctx, sessionKey(session.ID), raw, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("update session %s: %w", session.ID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", contract.ErrSessionNotFound, session.ID)
	}
	return nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, sessionKey(id)).Err()
}
