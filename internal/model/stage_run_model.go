package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type StageRun struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId  string         `gorm:"type:text;not null;index"`
	UserId     string         `gorm:"type:text;not null;default:'anonymous'"`
	Step       string         `gorm:"type:varchar(32);not null"`
	Outcome    string         `gorm:"type:varchar(16);not null"`
	Error      string         `gorm:"type:text"`
	DurationMs int64          `gorm:"not null;default:0"`
	Summary    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index"`
}

func (StageRun) TableName() string {
	return "stage_runs"
}
