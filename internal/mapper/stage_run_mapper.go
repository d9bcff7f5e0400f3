package mapper

import (
	"encoding/json"

	"startup-hunter-be/internal/entity"
	"startup-hunter-be/internal/model"

	"gorm.io/datatypes"
)

type StageRunMapper struct{}

func NewStageRunMapper() *StageRunMapper {
	return &StageRunMapper{}
}

func (m *StageRunMapper) ToEntity(r *model.StageRun) *entity.StageRun {
	if r == nil {
		return nil
	}
	var summary map[string]interface{}
	if len(r.Summary) > 0 {
		_ = json.Unmarshal(r.Summary, &summary)
	}
	return &entity.StageRun{
		Id:         r.Id,
		SessionId:  r.SessionId,
		UserId:     r.UserId,
		Step:       r.Step,
		Outcome:    r.Outcome,
		Error:      r.Error,
		DurationMs: r.DurationMs,
		Summary:    summary,
		CreatedAt:  r.CreatedAt,
	}
}

func (m *StageRunMapper) ToModel(r *entity.StageRun) *model.StageRun {
	if r == nil {
		return nil
	}
	var summary datatypes.JSON
	if r.Summary != nil {
		if b, err := json.Marshal(r.Summary); err == nil {
			summary = datatypes.JSON(b)
		}
	}
	return &model.StageRun{
		Id:         r.Id,
		SessionId:  r.SessionId,
		UserId:     r.UserId,
		Step:       r.Step,
		Outcome:    r.Outcome,
		Error:      r.Error,
		DurationMs: r.DurationMs,
		Summary:    summary,
		CreatedAt:  r.CreatedAt,
	}
}

func (m *StageRunMapper) ToEntities(rows []*model.StageRun) []*entity.StageRun {
	out := make([]*entity.StageRun, len(rows))
	for i, r := range rows {
		out[i] = m.ToEntity(r)
	}
	return out
}
