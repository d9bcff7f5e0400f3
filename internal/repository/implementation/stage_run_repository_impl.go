package implementation

import (
	"context"

	"startup-hunter-be/internal/entity"
	"startup-hunter-be/internal/mapper"
	"startup-hunter-be/internal/model"
	"startup-hunter-be/internal/repository/contract"
	"startup-hunter-be/internal/repository/specification"

	"gorm.io/gorm"
)

type StageRunRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.StageRunMapper
}

func NewStageRunRepository(db *gorm.DB) contract.StageRunRepository {
	return &StageRunRepositoryImpl{
		db:     db,
		mapper: mapper.NewStageRunMapper(),
	}
}

func (r *StageRunRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *StageRunRepositoryImpl) Create(ctx context.Context, run *entity.StageRun) error {
	m := r.mapper.ToModel(run)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*run = *r.mapper.ToEntity(m)
	return nil
}

func (r *StageRunRepositoryImpl) ListBySession(ctx context.Context, sessionID string, limit int) ([]*entity.StageRun, error) {
	specs := []specification.Specification{
		specification.BySessionID{SessionID: sessionID},
		specification.OrderBy{Field: "created_at", Desc: true},
	}
	if limit > 0 {
		specs = append(specs, specification.Pagination{Limit: limit})
	}

	var rows []*model.StageRun
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	// Newest first from the query so the limit keeps the latest runs.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return r.mapper.ToEntities(rows), nil
}

func (r *StageRunRepositoryImpl) DeleteBySession(ctx context.Context, sessionID string) error {
	return r.applySpecifications(r.db.WithContext(ctx), specification.BySessionID{SessionID: sessionID}).
		Delete(&model.StageRun{}).Error
}
