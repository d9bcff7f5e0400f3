package workflow

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"startup-hunter-be/pkg/memory/acontext"
	"startup-hunter-be/pkg/store"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to store.Stage
		want     bool
	}{
		{store.StageInput, store.StageTrendsCollected, true},
		{store.StageTrendsCollected, store.StageTrendsReady, true},
		{store.StageTrendsReady, store.StageIdeasReady, true},
		{store.StageIdeasReady, store.StageProposalReady, true},
		{store.StageProposalReady, store.StageBuildReady, true},
		{store.StageBuildReady, store.StageBuildReady, true},
		{store.StageBuildReady, store.StageTestComplete, true},
		{store.StageTestComplete, store.StageTestComplete, true},
		{store.StageInput, store.StageTrendsReady, false},
		{store.StageTrendsReady, store.StageTrendsCollected, false},
		{store.StageIdeasReady, store.StageIdeasReady, false},
		{store.StageTestComplete, store.StageBuildReady, false},
		{store.StageProposalReady, store.StageTestComplete, false},
		{store.StageInput, store.StageError, true},
		{store.StageTestComplete, store.StageError, true},
		{store.StageError, store.StageTrendsReady, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStepTargets(t *testing.T) {
	assert.Equal(t, store.StageTrendsCollected, StepCollectTrends.Target())
	assert.Equal(t, store.StageTrendsReady, StepClusterTrends.Target())
	assert.Equal(t, store.StageIdeasReady, StepGenerateIdeas.Target())
	assert.Equal(t, store.StageProposalReady, StepGenerateProposal.Target())
	assert.Equal(t, store.StageBuildReady, StepBuildMVP.Target())
	assert.Equal(t, store.StageTestComplete, StepTestMVP.Target())
}

func TestOutcome(t *testing.T) {
	s := store.Session{Synthetic: store.Synthetic{Trends: true}}

	assert.Equal(t, "fallback", Outcome(StepClusterTrends, s, nil))
	assert.Equal(t, "ok", Outcome(StepGenerateIdeas, s, nil))
	assert.Equal(t, "ok", Outcome(StepBuildMVP, s, nil))
	assert.Equal(t, "error", Outcome(StepClusterTrends, s, errors.New("x")))
}

func TestFormatMemory(t *testing.T) {
	assert.Equal(t, "No previous context", FormatMemory(nil))

	var msgs []acontext.Message
	for i := 0; i < 12; i++ {
		msgs = append(msgs, acontext.Message{Role: "assistant", Content: string(rune('a' + i))})
	}
	msgs = append(msgs, acontext.Message{Content: strings.Repeat("x", 300)})

	lines := strings.Split(FormatMemory(msgs), "\n")
	assert.Len(t, lines, 10)
	assert.Equal(t, "assistant: d", lines[0])
	assert.Equal(t, "unknown: "+strings.Repeat("x", 200), lines[9])
}

func TestTestFlows(t *testing.T) {
	flows := TestFlows("http://localhost:4001")

	assert.Len(t, flows, 2)
	assert.Equal(t, "Homepage renders correctly", flows[0].Name)
	assert.Equal(t, "http://localhost:4001", flows[0].Actions[0].URL)
	assert.Equal(t, "button", flows[1].Actions[1].Selector)
}
