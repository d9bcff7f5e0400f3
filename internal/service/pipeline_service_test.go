package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startup-hunter-be/internal/dto"
	"startup-hunter-be/internal/pkg/logger"
	"startup-hunter-be/internal/repository/contract"
	"startup-hunter-be/internal/repository/memory"
	"startup-hunter-be/pkg/ai/generator"
	"startup-hunter-be/pkg/browser"
	"startup-hunter-be/pkg/events"
	"startup-hunter-be/pkg/memory/acontext"
	"startup-hunter-be/pkg/result"
	"startup-hunter-be/pkg/scraper/brightdata"
	"startup-hunter-be/pkg/store"
	"startup-hunter-be/pkg/workflow"
	"startup-hunter-be/pkg/workflow/process"
)

type fakeServers struct {
	mu         sync.Mutex
	nextPort   int
	registered map[string]store.ServerHandle
}

func (f *fakeServers) Build(_ context.Context, _ string, onLog process.LogFunc) (store.ServerHandle, []store.BuildLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextPort++
	logs := []store.BuildLogEntry{{Step: "init", Message: "Scaffolding"}, {Step: "complete", Message: "Build complete"}}
	for _, l := range logs {
		onLog(l)
	}
	return store.ServerHandle{PID: f.nextPort, Port: f.nextPort, URL: fmt.Sprintf("http://localhost:%d", f.nextPort)}, logs, nil
}

func (f *fakeServers) Register(sessionID string, handle store.ServerHandle) {
	f.mu.Lock()
	f.registered[sessionID] = handle
	f.mu.Unlock()
}

func (f *fakeServers) Alive(sessionID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.registered[sessionID]
	return ok
}

func (f *fakeServers) Stop(sessionID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.registered[sessionID]
	delete(f.registered, sessionID)
	return ok
}

func (f *fakeServers) StopAll() ([]process.Entry, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := make([]process.Entry, 0, len(f.registered))
	for id, h := range f.registered {
		entries = append(entries, process.Entry{SessionID: id, ServerHandle: h})
	}
	f.registered = map[string]store.ServerHandle{}
	return entries, len(entries)
}

// flakyClusterer fails the first clustering calls, then falls through to
// the real generator.
type flakyClusterer struct {
	*generator.Generator
	failures int
}

func (g *flakyClusterer) ClusterTrends(ctx context.Context, raw []store.RawItem, domain string) result.Result[[]store.Trend] {
	if g.failures > 0 {
		g.failures--
		return result.Err[[]store.Trend](context.Canceled)
	}
	return g.Generator.ClusterTrends(ctx, raw, domain)
}

type passingTester struct{}

func (passingTester) RunFlows(_ context.Context, run browser.Run) (store.TestReport, error) {
	report := store.TestReport{Overall: store.TestPassed, FinishedAt: time.Now()}
	for _, f := range run.Flows {
		report.Steps = append(report.Steps, store.TestStep{Name: f.Name, Status: store.TestPassed})
	}
	return report, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type fixture struct {
	svc       IPipelineService
	sessions  *memory.SessionRepository
	servers   *fakeServers
	publisher *recordingPublisher
}

func newFixture() *fixture {
	return newFixtureWith(generator.New(nil, logger.NewNopLogger()))
}

func newFixtureWith(gen generator.IGenerator) *fixture {
	log := logger.NewNopLogger()
	mem := acontext.NewClient(acontext.Config{}, log)
	f := &fixture{
		sessions:  memory.NewSessionRepository(0),
		servers:   &fakeServers{nextPort: 4000, registered: map[string]store.ServerHandle{}},
		publisher: &recordingPublisher{},
	}
	engine := workflow.NewEngine(workflow.Dependencies{
		Scraper:   brightdata.NewClient(brightdata.Config{}, log),
		Generator: gen,
		Memory:    mem,
		Servers:   f.servers,
		Tester:    passingTester{},
		Logger:    log,
	})
	f.svc = NewPipelineService(engine, f.sessions, memory.NewStageRunRepository(), f.servers, mem, f.publisher, log)
	return f
}

func TestChat_FullPipeline(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.Chat(ctx, "u-1", &dto.ChatRequest{Stage: dto.ChatStageInput, Message: "pets"})
	require.NoError(t, err)
	require.NotEmpty(t, res.SessionId)
	assert.Equal(t, dto.ChatStageTrends, res.Stage)
	assert.Equal(t, "trends", res.EmbedType)
	assert.True(t, res.Synthetic)
	trends := res.EmbedData.([]store.Trend)
	require.NotEmpty(t, trends)

	id := res.SessionId
	res, err = f.svc.Chat(ctx, "u-1", &dto.ChatRequest{SessionId: id, Stage: dto.ChatStageTrends, TrendId: trends[0].ID})
	require.NoError(t, err)
	assert.Equal(t, dto.ChatStageIdeas, res.Stage)
	ideas := res.EmbedData.([]store.Idea)
	require.NotEmpty(t, ideas)
	assert.Contains(t, res.Message, "I'm recommending")

	res, err = f.svc.Chat(ctx, "u-1", &dto.ChatRequest{SessionId: id, Stage: dto.ChatStageIdeas, Message: ideas[0].ID})
	require.NoError(t, err)
	assert.Equal(t, "proposal", res.EmbedType)

	res, err = f.svc.Chat(ctx, "u-1", &dto.ChatRequest{SessionId: id, Stage: dto.ChatStageProposal})
	require.NoError(t, err)
	assert.Equal(t, "build", res.EmbedType)
	assert.Equal(t, "http://localhost:4001", res.EmbedData.(dto.BuildEmbed).URL)

	res, err = f.svc.Chat(ctx, "u-1", &dto.ChatRequest{SessionId: id, Stage: dto.ChatStageBuild})
	require.NoError(t, err)
	assert.Equal(t, dto.ChatStageComplete, res.Stage)
	assert.Equal(t, "All tests passed! Your MVP is ready.", res.Message)

	session, err := f.svc.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.StageTestComplete, session.Stage)
	assert.Equal(t, "u-1", session.UserID)

	history, err := f.svc.GetHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 6)
	outcomes := make([]string, len(history))
	for i, h := range history {
		outcomes[i] = h.Outcome
	}
	assert.Equal(t, []string{"fallback", "fallback", "fallback", "fallback", "ok", "ok"}, outcomes)
	assert.Equal(t, "collect_trends", history[0].Step)

	types := f.publisher.types()
	assert.Contains(t, types, events.TypeBuildLog)
	assert.Equal(t, events.TypeStageStarted, types[0])
	assert.Equal(t, events.TypeStageCompleted, types[len(types)-1])
}

func TestChat_UnknownTrendIsSavedAsError(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.Chat(ctx, "u-1", &dto.ChatRequest{Stage: dto.ChatStageInput, Message: "fintech"})
	require.NoError(t, err)

	_, err = f.svc.Chat(ctx, "u-1", &dto.ChatRequest{SessionId: res.SessionId, Stage: dto.ChatStageTrends, TrendId: "trend-404"})

	var failure *StageFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, res.SessionId, failure.SessionId)
	assert.True(t, failure.Err.IsPrecondition())

	var stageErr *store.StepError
	assert.ErrorAs(t, err, &stageErr)

	session, err := f.svc.GetSession(ctx, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, store.StageError, session.Stage)
	assert.Empty(t, session.Ideas)

	history, _ := f.svc.GetHistory(ctx, res.SessionId)
	last := history[len(history)-1]
	assert.Equal(t, "error", last.Outcome)
	assert.Equal(t, "Trend not found: trend-404", last.Error)
	assert.Contains(t, f.publisher.types(), events.TypeStageFailed)
}

func TestChat_RequestErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Chat(ctx, "u-1", &dto.ChatRequest{Stage: dto.ChatStageTrends, TrendId: "trend-1"})
	var fiberErr *fiber.Error
	require.ErrorAs(t, err, &fiberErr)
	assert.Equal(t, fiber.StatusBadRequest, fiberErr.Code)

	_, err = f.svc.Chat(ctx, "u-1", &dto.ChatRequest{SessionId: "missing", Stage: dto.ChatStageBuild})
	assert.ErrorIs(t, err, contract.ErrSessionNotFound)
}

func TestChat_InputTwiceIsRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.Chat(ctx, "u-1", &dto.ChatRequest{SessionId: "fixed-id", Stage: dto.ChatStageInput, Message: "pets"})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", res.SessionId)

	_, err = f.svc.Chat(ctx, "u-1", &dto.ChatRequest{SessionId: "fixed-id", Stage: dto.ChatStageInput, Message: "pets"})
	var failure *StageFailure
	require.ErrorAs(t, err, &failure)
	assert.True(t, failure.Err.IsPrecondition())
}

func TestChat_InputRetriesFailedClustering(t *testing.T) {
	f := newFixtureWith(&flakyClusterer{Generator: generator.New(nil, logger.NewNopLogger()), failures: 1})
	ctx := context.Background()

	_, err := f.svc.Chat(ctx, "u-1", &dto.ChatRequest{SessionId: "s-1", Stage: dto.ChatStageInput, Message: "pets"})
	var failure *StageFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "cluster_trends", failure.Err.Step)
	assert.False(t, failure.Err.IsPrecondition())

	session, err := f.svc.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, store.StageError, session.Stage)
	assert.Equal(t, store.StageTrendsCollected, session.EffectiveStage())
	raw := len(session.RawTrendItems)

	res, err := f.svc.Chat(ctx, "u-1", &dto.ChatRequest{SessionId: "s-1", Stage: dto.ChatStageInput, Message: "pets"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.EmbedData.([]store.Trend))

	session, err = f.svc.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, store.StageTrendsReady, session.Stage)
	assert.Len(t, session.RawTrendItems, raw, "raw items are not collected again")

	history, err := f.svc.GetHistory(ctx, "s-1")
	require.NoError(t, err)
	steps := make([]string, len(history))
	for i, h := range history {
		steps[i] = h.Step
	}
	assert.Equal(t, []string{"collect_trends", "cluster_trends", "cluster_trends"}, steps)
}

func buildSession(t *testing.T, f *fixture) string {
	t.Helper()
	ctx := context.Background()
	res, err := f.svc.Chat(ctx, "u-1", &dto.ChatRequest{Stage: dto.ChatStageInput, Message: "pets"})
	require.NoError(t, err)
	id := res.SessionId
	trends := res.EmbedData.([]store.Trend)
	res, err = f.svc.Chat(ctx, "u-1", &dto.ChatRequest{SessionId: id, Stage: dto.ChatStageTrends, TrendId: trends[0].ID})
	require.NoError(t, err)
	ideas := res.EmbedData.([]store.Idea)
	_, err = f.svc.Chat(ctx, "u-1", &dto.ChatRequest{SessionId: id, Stage: dto.ChatStageIdeas, IdeaId: ideas[0].ID})
	require.NoError(t, err)
	_, err = f.svc.Chat(ctx, "u-1", &dto.ChatRequest{SessionId: id, Stage: dto.ChatStageProposal})
	require.NoError(t, err)
	return id
}

func TestStopServer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := buildSession(t, f)

	res, err := f.svc.StopServer(ctx, id)
	require.NoError(t, err)
	assert.True(t, res.Cleaned)

	res, err = f.svc.StopServer(ctx, id)
	require.NoError(t, err)
	assert.False(t, res.Cleaned)

	session, _ := f.svc.GetSession(ctx, id)
	assert.Nil(t, session.Server)

	_, err = f.svc.Chat(ctx, "u-1", &dto.ChatRequest{SessionId: id, Stage: dto.ChatStageBuild})
	var failure *StageFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "MVP not running", failure.Err.Message)
}

func TestDeleteSessionAndStopAll(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	first := buildSession(t, f)
	second := buildSession(t, f)

	require.NoError(t, f.svc.DeleteSession(ctx, first))
	_, err := f.svc.GetSession(ctx, first)
	assert.ErrorIs(t, err, contract.ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.DeleteSession(ctx, first), contract.ErrSessionNotFound)

	session, err := f.svc.GetSession(ctx, second)
	require.NoError(t, err)
	require.NotNil(t, session.Server)

	assert.Equal(t, 1, f.svc.StopAllServers(ctx).Count)
	assert.Equal(t, 0, f.svc.StopAllServers(ctx).Count)

	session, err = f.svc.GetSession(ctx, second)
	require.NoError(t, err)
	assert.Nil(t, session.Server)
	assert.Equal(t, store.StageBuildReady, session.Stage)

	svc := f.svc.(*pipelineService)
	svc.locksMu.Lock()
	assert.Empty(t, svc.locks)
	svc.locksMu.Unlock()
}

func TestSessionLockSerializes(t *testing.T) {
	svc := newFixture().svc.(*pipelineService)

	var mu sync.Mutex
	inside, maxInside := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := svc.lock("s-1")
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxInside)
}

func TestSessionLock_EntryOutlivesWaiters(t *testing.T) {
	svc := newFixture().svc.(*pipelineService)

	refs := func() int {
		svc.locksMu.Lock()
		defer svc.locksMu.Unlock()
		if l, ok := svc.locks["s-1"]; ok {
			return l.refs
		}
		return 0
	}

	unlock := svc.lock("s-1")
	svc.locksMu.Lock()
	held := svc.locks["s-1"]
	svc.locksMu.Unlock()

	acquired := make(chan func())
	go func() { acquired <- svc.lock("s-1") }()
	require.Eventually(t, func() bool { return refs() == 2 }, time.Second, time.Millisecond)

	unlock()
	waiterUnlock := <-acquired

	svc.locksMu.Lock()
	assert.Same(t, held, svc.locks["s-1"], "a new caller must queue on the waiter's mutex")
	svc.locksMu.Unlock()

	waiterUnlock()
	assert.Zero(t, refs())
	svc.locksMu.Lock()
	assert.Empty(t, svc.locks)
	svc.locksMu.Unlock()
}
