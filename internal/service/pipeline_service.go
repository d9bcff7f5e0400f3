package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"startup-hunter-be/internal/dto"
	"startup-hunter-be/internal/entity"
	"startup-hunter-be/internal/pkg/logger"
	"startup-hunter-be/internal/repository/contract"
	"startup-hunter-be/pkg/events"
	"startup-hunter-be/pkg/store"
	"startup-hunter-be/pkg/workflow"
	"startup-hunter-be/pkg/workflow/process"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const pipelineModule = "PipelineService"

// ServerController stops preview servers outside of a pipeline step.
type ServerController interface {
	Stop(sessionID string) bool
	StopAll() ([]process.Entry, int)
}

// MemoryFlusher finalizes a session's external memory.
type MemoryFlusher interface {
	Flush(ctx context.Context, handle string)
}

// StageFailure is returned by Chat when a pipeline step failed. The
// failed state has already been saved.
type StageFailure struct {
	SessionId string
	Err       *store.StepError
}

func (e *StageFailure) Error() string { return e.Err.Error() }
func (e *StageFailure) Unwrap() error { return e.Err }

type IPipelineService interface {
	Chat(ctx context.Context, userID string, req *dto.ChatRequest) (*dto.ChatResponse, error)
	GetSession(ctx context.Context, sessionID string) (*store.Session, error)
	GetHistory(ctx context.Context, sessionID string) ([]*dto.StageRunResponse, error)
	StopServer(ctx context.Context, sessionID string) (*dto.StopServerResponse, error)
	DeleteSession(ctx context.Context, sessionID string) error
	StopAllServers(ctx context.Context) *dto.StopAllServersResponse
}

type pipelineService struct {
	engine    *workflow.Engine
	sessions  contract.SessionRepository
	runs      contract.StageRunRepository
	servers   ServerController
	memory    MemoryFlusher
	publisher events.Publisher
	logger    logger.ILogger

	locksMu sync.Mutex
	locks   map[string]*sessionLock
}

// sessionLock is dropped from the table once no caller holds or waits on it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewPipelineService(
	engine *workflow.Engine,
	sessions contract.SessionRepository,
	runs contract.StageRunRepository,
	servers ServerController,
	memory MemoryFlusher,
	publisher events.Publisher,
	log logger.ILogger,
) IPipelineService {
	return &pipelineService{
		engine:    engine,
		sessions:  sessions,
		runs:      runs,
		servers:   servers,
		memory:    memory,
		publisher: publisher,
		logger:    log,
		locks:     make(map[string]*sessionLock),
	}
}

// lock serializes all work on one session.
func (s *pipelineService) lock(sessionID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.locksMu.Unlock()
	}
}

func (s *pipelineService) Chat(ctx context.Context, userID string, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	if req.Stage == dto.ChatStageInput {
		return s.startPipeline(ctx, userID, req)
	}
	if req.SessionId == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "session_id is required for stage "+req.Stage)
	}

	unlock := s.lock(req.SessionId)
	defer unlock()

	session, err := s.sessions.Get(ctx, req.SessionId)
	if err != nil {
		return nil, err
	}

	switch req.Stage {
	case dto.ChatStageTrends:
		trendID := firstNonEmpty(req.TrendId, req.Message)
		session, err = s.runStep(ctx, session, workflow.StepGenerateIdeas, func(in store.Session) (store.Session, error) {
			return s.engine.GenerateIdeas(ctx, in, trendID)
		})
		if err != nil {
			return nil, err
		}
		return ideasResponse(session), nil

	case dto.ChatStageIdeas:
		ideaID := firstNonEmpty(req.IdeaId, req.Message)
		session, err = s.runStep(ctx, session, workflow.StepGenerateProposal, func(in store.Session) (store.Session, error) {
			return s.engine.GenerateProposal(ctx, in, ideaID)
		})
		if err != nil {
			return nil, err
		}
		return proposalResponse(session), nil

	case dto.ChatStageProposal:
		session, err = s.runStep(ctx, session, workflow.StepBuildMVP, func(in store.Session) (store.Session, error) {
			return s.engine.BuildMVP(ctx, in, func(e store.BuildLogEntry) {
				s.publish(ctx, events.BuildLog(in.ID, e.Step, e.Message))
			})
		})
		if err != nil {
			return nil, err
		}
		return buildResponse(session), nil

	case dto.ChatStageBuild:
		session, err = s.runStep(ctx, session, workflow.StepTestMVP, func(in store.Session) (store.Session, error) {
			return s.engine.TestMVP(ctx, in)
		})
		if err != nil {
			return nil, err
		}
		return testResponse(session), nil
	}

	return nil, fiber.NewError(fiber.StatusBadRequest, "Unknown stage: "+req.Stage)
}

// startPipeline creates the session and chains trend collection with
// clustering so the first reply already carries scored trends.
func (s *pipelineService) startPipeline(ctx context.Context, userID string, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	sessionID := req.SessionId
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	unlock := s.lock(sessionID)
	defer unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	switch {
	case errors.Is(err, contract.ErrSessionNotFound):
		session = s.engine.NewSession(ctx, sessionID, userID, req.Message, req.UserContext)
		if err := s.sessions.Create(ctx, session); err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		s.logger.Info(pipelineModule, "Session created", map[string]interface{}{"session_id": sessionID, "user_id": userID, "domain": session.Domain})
	case err != nil:
		return nil, err
	}

	// A session whose clustering failed keeps its raw items and retries
	// only the clustering step.
	if session.EffectiveStage() != store.StageTrendsCollected {
		session, err = s.runStep(ctx, session, workflow.StepCollectTrends, func(in store.Session) (store.Session, error) {
			return s.engine.CollectTrends(ctx, in)
		})
		if err != nil {
			return nil, err
		}
	}
	session, err = s.runStep(ctx, session, workflow.StepClusterTrends, func(in store.Session) (store.Session, error) {
		return s.engine.ClusterTrends(ctx, in)
	})
	if err != nil {
		return nil, err
	}
	return trendsResponse(session), nil
}

// runStep executes one engine step, then saves the state, records the
// run and publishes its events. The caller holds the session lock.
func (s *pipelineService) runStep(ctx context.Context, in store.Session, step workflow.Step, run func(store.Session) (store.Session, error)) (store.Session, error) {
	s.publish(ctx, events.StageStarted(in.ID, string(step)))

	start := time.Now()
	out, stepErr := run(in)
	elapsed := time.Since(start)

	if err := s.sessions.Update(ctx, out); err != nil {
		return in, fmt.Errorf("save session: %w", err)
	}

	outcome := workflow.Outcome(step, out, stepErr)
	record := &entity.StageRun{
		SessionId:  in.ID,
		UserId:     in.UserID,
		Step:       string(step),
		Outcome:    outcome,
		DurationMs: elapsed.Milliseconds(),
		Summary:    summarize(step, out),
		CreatedAt:  time.Now(),
	}

	var stageErr *store.StepError
	if errors.As(stepErr, &stageErr) {
		record.Error = stageErr.Message
	}
	if err := s.runs.Create(ctx, record); err != nil {
		s.logger.Warn(pipelineModule, "Failed to record stage run", map[string]interface{}{"session_id": in.ID, "step": step, "error": err.Error()})
	}

	if stepErr != nil {
		if stageErr == nil {
			return out, stepErr
		}
		s.publish(ctx, events.StageFailed(in.ID, string(step), string(stageErr.Kind), stageErr.Message))
		return out, &StageFailure{SessionId: in.ID, Err: stageErr}
	}

	s.publish(ctx, events.StageCompleted(in.ID, string(step), string(out.Stage), outcome))
	s.logger.Info(pipelineModule, "Step completed", map[string]interface{}{
		"session_id":  in.ID,
		"step":        step,
		"outcome":     outcome,
		"duration_ms": elapsed.Milliseconds(),
	})
	return out, nil
}

func (s *pipelineService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn(pipelineModule, "Failed to publish event", map[string]interface{}{"type": event.EventType(), "error": err.Error()})
	}
}

func (s *pipelineService) GetSession(ctx context.Context, sessionID string) (*store.Session, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *pipelineService) GetHistory(ctx context.Context, sessionID string) ([]*dto.StageRunResponse, error) {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	runs, err := s.runs.ListBySession(ctx, sessionID, 0)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.StageRunResponse, 0, len(runs))
	for _, r := range runs {
		res = append(res, &dto.StageRunResponse{
			Id:         r.Id,
			Step:       r.Step,
			Outcome:    r.Outcome,
			Error:      r.Error,
			DurationMs: r.DurationMs,
			Summary:    r.Summary,
			CreatedAt:  r.CreatedAt,
		})
	}
	return res, nil
}

func (s *pipelineService) StopServer(ctx context.Context, sessionID string) (*dto.StopServerResponse, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cleaned := s.servers.Stop(sessionID)
	if session.Server != nil {
		next := session.Clone()
		next.Server = nil
		next.UpdatedAt = time.Now()
		if err := s.sessions.Update(ctx, next); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
	}

	s.publish(ctx, events.ServerStopped(sessionID, cleaned))
	return &dto.StopServerResponse{Cleaned: cleaned}, nil
}

func (s *pipelineService) DeleteSession(ctx context.Context, sessionID string) error {
	unlock := s.lock(sessionID)
	defer unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	if s.servers.Stop(sessionID) {
		s.publish(ctx, events.ServerStopped(sessionID, true))
	}
	if s.memory != nil && session.MemoryHandle != "" {
		s.memory.Flush(ctx, session.MemoryHandle)
	}
	if err := s.runs.DeleteBySession(ctx, sessionID); err != nil {
		s.logger.Warn(pipelineModule, "Failed to delete stage runs", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.logger.Info(pipelineModule, "Session deleted", map[string]interface{}{"session_id": sessionID})
	return nil
}

func (s *pipelineService) StopAllServers(ctx context.Context) *dto.StopAllServersResponse {
	stopped, count := s.servers.StopAll()
	for _, e := range stopped {
		s.clearServer(ctx, e.SessionID, e.PID)
	}
	s.logger.Info(pipelineModule, "Stopped all MVP servers", map[string]interface{}{"count": count})
	return &dto.StopAllServersResponse{Count: count}
}

// clearServer drops the session's server handle if it still points at pid.
// A rebuild that registered a newer server in the meantime is left alone.
func (s *pipelineService) clearServer(ctx context.Context, sessionID string, pid int) {
	unlock := s.lock(sessionID)
	defer unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil || session.Server == nil || session.Server.PID != pid {
		return
	}
	next := session.Clone()
	next.Server = nil
	next.UpdatedAt = time.Now()
	if err := s.sessions.Update(ctx, next); err != nil {
		s.logger.Warn(pipelineModule, "Failed to clear server handle", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
