package events

import "time"

const (
	TypeStageStarted   = "pipeline.stage_started"
	TypeStageCompleted = "pipeline.stage_completed"
	TypeStageFailed    = "pipeline.stage_failed"
	TypeBuildLog       = "pipeline.build_log"
	TypeServerStopped  = "pipeline.server_stopped"
)

func newPipelineEvent(eventType, sessionID string, data map[string]interface{}) BaseEvent {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["session_id"] = sessionID
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

func StageStarted(sessionID, step string) BaseEvent {
	return newPipelineEvent(TypeStageStarted, sessionID, map[string]interface{}{"step": step})
}

func StageCompleted(sessionID, step, stage, outcome string) BaseEvent {
	return newPipelineEvent(TypeStageCompleted, sessionID, map[string]interface{}{
		"step":    step,
		"stage":   stage,
		"outcome": outcome,
	})
}

func StageFailed(sessionID, step, kind, message string) BaseEvent {
	return newPipelineEvent(TypeStageFailed, sessionID, map[string]interface{}{
		"step":    step,
		"kind":    kind,
		"message": message,
	})
}

func BuildLog(sessionID, step, message string) BaseEvent {
	return newPipelineEvent(TypeBuildLog, sessionID, map[string]interface{}{
		"step":    step,
		"message": message,
	})
}

func ServerStopped(sessionID string, cleaned bool) BaseEvent {
	return newPipelineEvent(TypeServerStopped, sessionID, map[string]interface{}{"cleaned": cleaned})
}

// SessionID returns the session the event belongs to, or "" when absent.
func SessionID(e Event) string {
	if id, ok := e.Payload()["session_id"].(string); ok {
		return id
	}
	return ""
}
