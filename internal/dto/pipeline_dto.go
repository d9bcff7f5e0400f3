package dto

import (
	"time"

	"github.com/google/uuid"
)

// Chat stages as named by the chat client.
const (
	ChatStageInput    = "input"
	ChatStageTrends   = "trends"
	ChatStageIdeas    = "ideas"
	ChatStageProposal = "proposal"
	ChatStageBuild    = "build"
	ChatStageComplete = "complete"
)

type ChatRequest struct {
	SessionId   string                 `json:"session_id" validate:"omitempty,max=64"`
	Stage       string                 `json:"stage" validate:"required,oneof=input trends ideas proposal build"`
	Message     string                 `json:"message" validate:"max=500"`
	TrendId     string                 `json:"trend_id,omitempty"`
	IdeaId      string                 `json:"idea_id,omitempty"`
	UserContext map[string]interface{} `json:"user_context,omitempty"`
}

type ChatResponse struct {
	SessionId string      `json:"session_id"`
	Message   string      `json:"message"`
	Stage     string      `json:"stage"` // next stage for the client
	EmbedType string      `json:"embed_type"`
	EmbedData interface{} `json:"embed_data"`
	Synthetic bool        `json:"synthetic"`
}

type BuildEmbed struct {
	URL  string      `json:"url"`
	Port int         `json:"port"`
	Logs interface{} `json:"logs"`
}

type StageRunResponse struct {
	Id         uuid.UUID              `json:"id"`
	Step       string                 `json:"step"`
	Outcome    string                 `json:"outcome"`
	Error      string                 `json:"error,omitempty"`
	DurationMs int64                  `json:"duration_ms"`
	Summary    map[string]interface{} `json:"summary,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

type StopServerResponse struct {
	Cleaned bool `json:"cleaned"`
}

type StopAllServersResponse struct {
	Count int `json:"count"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// PipelineEventMessage is the bus envelope of a pipeline event.
type PipelineEventMessage struct {
	Type       string                 `json:"type"`
	SessionId  string                 `json:"session_id"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}
