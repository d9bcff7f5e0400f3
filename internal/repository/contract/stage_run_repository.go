package contract

import (
	"context"

	"startup-hunter-be/internal/entity"
)

type StageRunRepository interface {
	Create(ctx context.Context, run *entity.StageRun) error
	// ListBySession returns runs oldest first. limit <= 0 means all.
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*entity.StageRun, error)
	DeleteBySession(ctx context.Context, sessionID string) error
}
