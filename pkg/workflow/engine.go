package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"startup-hunter-be/internal/pkg/logger"
	"startup-hunter-be/pkg/ai/generator"
	"startup-hunter-be/pkg/browser"
	"startup-hunter-be/pkg/memory/acontext"
	"startup-hunter-be/pkg/result"
	"startup-hunter-be/pkg/store"
	"startup-hunter-be/pkg/workflow/process"
)

const module = "WorkflowEngine"

type Scraper interface {
	Collect(ctx context.Context, domain string) result.Result[[]store.RawItem]
}

type Memory interface {
	CreateSession(ctx context.Context, userID string, meta map[string]interface{}) string
	StoreMessage(ctx context.Context, handle, role, content string, meta map[string]interface{})
	GetMessages(ctx context.Context, handle string, limit int) []acontext.Message
}

// ServerManager owns the preview server processes.
type ServerManager interface {
	Build(ctx context.Context, sessionID string, onLog process.LogFunc) (store.ServerHandle, []store.BuildLogEntry, error)
	Register(sessionID string, handle store.ServerHandle)
	Alive(sessionID string) bool
}

type Dependencies struct {
	Scraper   Scraper
	Generator generator.IGenerator
	Memory    Memory
	Servers   ServerManager
	Tester    browser.Tester
	Logger    logger.ILogger
}

// Engine runs pipeline steps. Every step takes the session by value and
// returns a replacement; the input is never mutated. A failed step
// returns the input with only Stage and Error changed, plus the same
// *store.StepError as the error value.
type Engine struct {
	scraper   Scraper
	generator generator.IGenerator
	memory    Memory
	servers   ServerManager
	tester    browser.Tester
	logger    logger.ILogger
	now       func() time.Time
}

func NewEngine(deps Dependencies) *Engine {
	return &Engine{
		scraper:   deps.Scraper,
		generator: deps.Generator,
		memory:    deps.Memory,
		servers:   deps.Servers,
		tester:    deps.Tester,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// NewSession creates the pipeline record and its memory handle.
func (e *Engine) NewSession(ctx context.Context, id, userID, domain string, userContext map[string]interface{}) store.Session {
	s := store.NewSession(id, userID, strings.TrimSpace(domain), userContext, e.now())
	s.MemoryHandle = e.memory.CreateSession(ctx, userID, map[string]interface{}{
		"session_id": id,
		"domain":     s.Domain,
	})
	return s
}

func (e *Engine) CollectTrends(ctx context.Context, s store.Session) (store.Session, error) {
	if err := e.admit(StepCollectTrends, s); err != nil {
		return e.fail(s, err)
	}
	if strings.TrimSpace(s.Domain) == "" {
		return e.fail(s, e.precondition(StepCollectTrends, "Domain is required"))
	}

	res := e.scraper.Collect(ctx, s.Domain)
	if res.IsErr() {
		return e.fail(s, e.infrastructure(StepCollectTrends, "Failed to collect trends: "+res.Reason))
	}

	next := e.advance(s, StepCollectTrends)
	next.RawTrendItems = res.Value
	next.Synthetic.RawItems = res.IsFallback()

	e.remember(ctx, next, fmt.Sprintf("Collected %d trends from web scraping", len(res.Value)),
		map[string]interface{}{"stage": "trends", "count": len(res.Value)})
	return next, nil
}

func (e *Engine) ClusterTrends(ctx context.Context, s store.Session) (store.Session, error) {
	if err := e.admit(StepClusterTrends, s); err != nil {
		return e.fail(s, err)
	}

	res := e.generator.ClusterTrends(ctx, s.RawTrendItems, s.Domain)
	if res.IsErr() {
		return e.fail(s, e.infrastructure(StepClusterTrends, "Failed to cluster trends: "+res.Reason))
	}

	trends := append([]store.Trend(nil), res.Value...)
	generator.SortTrends(trends)

	next := e.advance(s, StepClusterTrends)
	next.Trends = trends
	next.Synthetic.Trends = res.IsFallback()

	e.remember(ctx, next, fmt.Sprintf("Identified %d trending opportunities", len(trends)),
		map[string]interface{}{"stage": "trends", "count": len(trends)})
	return next, nil
}

// GenerateIdeas selects trendID and generates ideas for it.
func (e *Engine) GenerateIdeas(ctx context.Context, s store.Session, trendID string) (store.Session, error) {
	if err := e.admit(StepGenerateIdeas, s); err != nil {
		return e.fail(s, err)
	}
	if len(s.Trends) == 0 {
		return e.fail(s, e.precondition(StepGenerateIdeas, "No trends available"))
	}
	trend, ok := s.FindTrend(trendID)
	if !ok {
		return e.fail(s, e.precondition(StepGenerateIdeas, fmt.Sprintf("Trend not found: %s", trendID)))
	}
	if s.SelectedTrend != nil && s.SelectedTrend.ID != trend.ID {
		return e.fail(s, e.precondition(StepGenerateIdeas, fmt.Sprintf("Trend already selected: %s", s.SelectedTrend.ID)))
	}

	memoryText := FormatMemory(e.memory.GetMessages(ctx, s.MemoryHandle, memoryFetchLimit))

	res := e.generator.GenerateIdeas(ctx, trend, s.UserContext, memoryText)
	if res.IsErr() {
		return e.fail(s, e.infrastructure(StepGenerateIdeas, "Failed to generate ideas: "+res.Reason))
	}

	next := e.advance(s, StepGenerateIdeas)
	next.SelectedTrend = &trend
	next.MemoryText = memoryText
	next.Ideas = append([]store.Idea(nil), res.Value...)
	next.Synthetic.Ideas = res.IsFallback()

	e.remember(ctx, next, fmt.Sprintf("Generated %d startup ideas", len(next.Ideas)),
		map[string]interface{}{"stage": "ideas", "count": len(next.Ideas), "selected_trend": trend.ID})
	return next, nil
}

// GenerateProposal selects ideaID and writes the proposal for it.
func (e *Engine) GenerateProposal(ctx context.Context, s store.Session, ideaID string) (store.Session, error) {
	if err := e.admit(StepGenerateProposal, s); err != nil {
		return e.fail(s, err)
	}
	if s.SelectedTrend == nil {
		return e.fail(s, e.precondition(StepGenerateProposal, "No trend selected"))
	}
	if len(s.Ideas) == 0 {
		return e.fail(s, e.precondition(StepGenerateProposal, "No ideas available"))
	}
	idea, ok := s.FindIdea(ideaID)
	if !ok {
		return e.fail(s, e.precondition(StepGenerateProposal, fmt.Sprintf("Idea not found: %s", ideaID)))
	}
	if s.SelectedIdea != nil && s.SelectedIdea.ID != idea.ID {
		return e.fail(s, e.precondition(StepGenerateProposal, fmt.Sprintf("Idea already selected: %s", s.SelectedIdea.ID)))
	}

	res := e.generator.GenerateProposal(ctx, idea, *s.SelectedTrend)
	if res.IsErr() {
		return e.fail(s, e.infrastructure(StepGenerateProposal, "Failed to generate proposal: "+res.Reason))
	}

	next := e.advance(s, StepGenerateProposal)
	next.SelectedIdea = &idea
	next.Proposal = append([]store.ProposalSection(nil), res.Value...)
	next.Synthetic.Proposal = res.IsFallback()

	e.remember(ctx, next, fmt.Sprintf("Generated %d-section proposal", len(next.Proposal)),
		map[string]interface{}{"stage": "proposal", "count": len(next.Proposal), "idea": idea.ID})
	return next, nil
}

// BuildMVP starts a preview server for the session. On a rebuild the
// previous server keeps running until the new one is up.
func (e *Engine) BuildMVP(ctx context.Context, s store.Session, onLog process.LogFunc) (store.Session, error) {
	if err := e.admit(StepBuildMVP, s); err != nil {
		return e.fail(s, err)
	}
	if len(s.Proposal) == 0 {
		return e.fail(s, e.precondition(StepBuildMVP, "No proposal available"))
	}

	handle, logs, err := e.servers.Build(ctx, s.ID, onLog)
	if err != nil {
		e.logger.Error(module, "MVP build failed", map[string]interface{}{"session_id": s.ID, "error": err.Error()})
		return e.fail(s, e.infrastructure(StepBuildMVP, buildFailureMessage(err)))
	}
	e.servers.Register(s.ID, handle)

	next := e.advance(s, StepBuildMVP)
	next.BuildLog = logs
	next.Server = &handle
	next.TestReport = nil

	e.remember(ctx, next, fmt.Sprintf("Built and started MVP at %s", handle.URL),
		map[string]interface{}{"stage": "build", "url": handle.URL, "pid": handle.PID})
	return next, nil
}

func buildFailureMessage(err error) string {
	for _, sentinel := range []error{
		process.ErrTemplateNotFound,
		process.ErrInstallFailed,
		process.ErrServerExited,
		process.ErrNoFreePort,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "Failed to build MVP: " + err.Error()
}

func (e *Engine) TestMVP(ctx context.Context, s store.Session) (store.Session, error) {
	if err := e.admit(StepTestMVP, s); err != nil {
		return e.fail(s, err)
	}
	if s.SelectedIdea == nil {
		return e.fail(s, e.precondition(StepTestMVP, "No idea selected"))
	}
	if s.Server == nil {
		return e.fail(s, e.precondition(StepTestMVP, "MVP not running"))
	}
	if !e.servers.Alive(s.ID) {
		return e.fail(s, e.infrastructure(StepTestMVP, "MVP server is no longer running"))
	}

	report, err := e.tester.RunFlows(ctx, browser.Run{
		BaseURL:     s.Server.URL,
		Flows:       TestFlows(s.Server.URL),
		ArtifactKey: s.ID,
	})
	if err != nil {
		return e.fail(s, e.infrastructure(StepTestMVP, "Failed to test MVP: "+err.Error()))
	}

	next := e.advance(s, StepTestMVP)
	next.TestReport = &report

	e.remember(ctx, next, fmt.Sprintf("Tested MVP at %s - %s", s.Server.URL, report.Overall),
		map[string]interface{}{"stage": "test", "overall": report.Overall, "count": len(report.Steps)})
	return next, nil
}

func (e *Engine) admit(step Step, s store.Session) *store.StepError {
	from := s.EffectiveStage()
	if CanTransition(from, step.Target()) {
		return nil
	}
	return e.precondition(step, fmt.Sprintf("Cannot run %s from stage %s", step, from))
}

func (e *Engine) advance(s store.Session, step Step) store.Session {
	next := s.Clone()
	next.Stage = step.Target()
	next.Error = nil
	next.UpdatedAt = e.now()
	return next
}

func (e *Engine) fail(s store.Session, se *store.StepError) (store.Session, error) {
	se.PriorStage = s.EffectiveStage()
	next := s.Clone()
	next.Stage = store.StageError
	next.Error = se
	e.logger.Warn(module, "Step failed", map[string]interface{}{
		"session_id": s.ID,
		"step":       se.Step,
		"kind":       string(se.Kind),
		"message":    se.Message,
	})
	return next, se
}

func (e *Engine) precondition(step Step, msg string) *store.StepError {
	return &store.StepError{Step: string(step), Kind: store.ErrorKindPrecondition, Message: msg, OccurredAt: e.now()}
}

func (e *Engine) infrastructure(step Step, msg string) *store.StepError {
	return &store.StepError{Step: string(step), Kind: store.ErrorKindInfrastructure, Message: msg, OccurredAt: e.now()}
}

func (e *Engine) remember(ctx context.Context, s store.Session, content string, meta map[string]interface{}) {
	if s.MemoryHandle == "" {
		return
	}
	e.memory.StoreMessage(ctx, s.MemoryHandle, "assistant", content, meta)
}
