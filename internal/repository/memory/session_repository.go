package memory

import (
	"context"
	"fmt"
	"time"

	"startup-hunter-be/internal/repository/contract"
	"startup-hunter-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

type SessionRepository struct {
	cache *cache.Cache
}

var _ contract.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository keeps sessions in process memory. A ttl of zero
// keeps them for the life of the process.
func NewSessionRepository(ttl time.Duration) *SessionRepository {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = 10 * time.Minute
	}
	return &SessionRepository{cache: cache.New(expiration, cleanup)}
}

func (r *SessionRepository) Get(_ context.Context, id string) (store.Session, error) {
	if x, found := r.cache.Get(id); found {
		return x.(store.Session).Clone(), nil
	}
	return store.Session{}, fmt.Errorf("%w: %s", contract.ErrSessionNotFound, id)
}

func (r *SessionRepository) Create(_ context.Context, session store.Session) error {
	if err := r.cache.Add(session.ID, session.Clone(), cache.DefaultExpiration); err != nil {
		return fmt.Errorf("%w: %s", contract.ErrSessionExists, session.ID)
	}
	return nil
}

func (r *SessionRepository) Update(_ context.Context, session store.Session) error {
	if err := r.cache.Replace(session.ID, session.Clone(), cache.DefaultExpiration); err != nil {
		return fmt.Errorf("%w: %s", contract.ErrSessionNotFound, session.ID)
	}
	return nil
}

func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.cache.Delete(id)
	return nil
}
