package entity

import (
	"time"

	"github.com/google/uuid"
)

// StageRun records one pipeline step invocation.
type StageRun struct {
	Id         uuid.UUID
	SessionId  string
	UserId     string
	Step       string
	Outcome    string // ok, fallback or error
	Error      string
	DurationMs int64
	Summary    map[string]interface{}
	CreatedAt  time.Time
}
