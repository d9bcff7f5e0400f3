package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"startup-hunter-be/internal/pkg/logger"
	"startup-hunter-be/pkg/llm"
	"startup-hunter-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	reply string
	err   error
	calls [][]llm.Message
	opts  llm.Options
}

func (s *stubProvider) Chat(_ context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	s.calls = append(s.calls, history)
	s.opts = llm.Apply(llm.Options{}, options...)
	return s.reply, s.err
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}

func TestClusterTrends_Unconfigured(t *testing.T) {
	g := New(nil, logger.NewNopLogger())
	assert.False(t, g.Configured())

	res := g.ClusterTrends(context.Background(), nil, "pets")

	require.True(t, res.IsFallback())
	require.NotEmpty(t, res.Value)
	for _, tr := range res.Value {
		assert.True(t, strings.Contains(tr.Title, "Pets") || strings.Contains(tr.Title, "pets"), tr.Title)
		assert.NotEmpty(t, tr.ID)
	}
	for i := 1; i < len(res.Value); i++ {
		assert.GreaterOrEqual(t, res.Value[i-1].Score, res.Value[i].Score)
	}
}

func TestClusterTrends_ParsesLiveReply(t *testing.T) {
	p := &stubProvider{reply: `{"trends":[{"title":"Vet telehealth","score":60},{"title":"Pet insurance AI","score":80}]}`}
	g := New(p, logger.NewNopLogger())

	res := g.ClusterTrends(context.Background(), []store.RawItem{{"title": "x"}}, "pets")

	require.True(t, res.IsOk())
	require.Len(t, res.Value, 2)
	assert.Equal(t, "Pet insurance AI", res.Value[0].Title)
	assert.True(t, p.opts.JSON)
	assert.Equal(t, 0.7, p.opts.Temperature)
	require.Len(t, p.calls, 1)
	assert.Equal(t, llm.RoleSystem, p.calls[0][0].Role)
	assert.Contains(t, p.calls[0][1].Content, "Domain focus: pets")
}

func TestClusterTrends_MalformedReplyFallsBack(t *testing.T) {
	g := New(&stubProvider{reply: `{"a":[{"title":"x"}],"b":[{"title":"y"}]}`}, logger.NewNopLogger())
	res := g.ClusterTrends(context.Background(), nil, "fintech")
	require.True(t, res.IsFallback())
	assert.Contains(t, res.Value[0].Title, "Fintech")
}

func TestGenerateIdeas_ProviderErrorFallsBack(t *testing.T) {
	g := New(&stubProvider{err: errors.New("503")}, logger.NewNopLogger())
	res := g.GenerateIdeas(context.Background(), store.Trend{Title: "Pet AI"}, nil, "")
	require.True(t, res.IsFallback())
	require.Len(t, res.Value, 5)
	assert.True(t, res.Value[0].Recommended)
	assert.Contains(t, res.Value[0].Title, "Pet AI")
}

func TestGenerateIdeas_PromptCarriesMemory(t *testing.T) {
	p := &stubProvider{reply: `[{"title":"Pawsome"}]`}
	g := New(p, logger.NewNopLogger())

	res := g.GenerateIdeas(context.Background(), store.Trend{Title: "Pet AI"}, map[string]interface{}{"budget": "low"}, "user: no hardware")

	require.True(t, res.IsOk())
	assert.Equal(t, 0.8, p.opts.Temperature)
	prompt := p.calls[0][1].Content
	assert.Contains(t, prompt, "user: no hardware")
	assert.Contains(t, prompt, `"budget": "low"`)
}

func TestGenerateProposal(t *testing.T) {
	g := New(nil, logger.NewNopLogger())
	res := g.GenerateProposal(context.Background(), store.Idea{Title: "Pawsome", Wedge: "dog walkers"}, store.Trend{})
	require.True(t, res.IsFallback())
	require.Len(t, res.Value, 10)
	assert.Contains(t, res.Value[3].Content, "dog walkers")

	g = New(&stubProvider{reply: `{"sections":[{"title":"Problem Statement","content":"..."}]}`}, logger.NewNopLogger())
	res = g.GenerateProposal(context.Background(), store.Idea{Title: "Pawsome"}, store.Trend{})
	require.True(t, res.IsOk())
	assert.Len(t, res.Value, 1)
}

func TestCancelledContextIsAnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := New(&stubProvider{reply: `[]`}, logger.NewNopLogger())
	res := g.ClusterTrends(ctx, nil, "pets")
	assert.True(t, res.IsErr())
	assert.ErrorIs(t, res.Cause, context.Canceled)
}
