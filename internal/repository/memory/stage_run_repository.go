package memory

import (
	"context"
	"sync"
	"time"

	"startup-hunter-be/internal/entity"
	"startup-hunter-be/internal/repository/contract"

	"github.com/google/uuid"
)

// StageRunRepository is the history store used when no database is
// configured.
type StageRunRepository struct {
	mu   sync.RWMutex
	runs map[string][]*entity.StageRun
}

var _ contract.StageRunRepository = (*StageRunRepository)(nil)

func NewStageRunRepository() *StageRunRepository {
	return &StageRunRepository{runs: make(map[string][]*entity.StageRun)}
}

func (r *StageRunRepository) Create(_ context.Context, run *entity.StageRun) error {
	if run.Id == uuid.Nil {
		run.Id = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	c := *run
	r.mu.Lock()
	r.runs[run.SessionId] = append(r.runs[run.SessionId], &c)
	r.mu.Unlock()
	return nil
}

func (r *StageRunRepository) ListBySession(_ context.Context, sessionID string, limit int) ([]*entity.StageRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runs := r.runs[sessionID]
	if limit > 0 && len(runs) > limit {
		runs = runs[len(runs)-limit:]
	}
	out := make([]*entity.StageRun, len(runs))
	for i, run := range runs {
		c := *run
		out[i] = &c
	}
	return out, nil
}

func (r *StageRunRepository) DeleteBySession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	delete(r.runs, sessionID)
	r.mu.Unlock()
	return nil
}
