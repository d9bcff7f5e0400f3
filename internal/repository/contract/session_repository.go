package contract

import (
	"context"
	"errors"

	"startup-hunter-be/pkg/store"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
)

// SessionRepository stores pipeline sessions by value. Implementations
// must be safe for concurrent use.
type SessionRepository interface {
	Get(ctx context.Context, id string) (store.Session, error)
	Create(ctx context.Context, session store.Session) error
	Update(ctx context.Context, session store.Session) error
	Delete(ctx context.Context, id string) error
}
