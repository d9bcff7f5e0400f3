// Package workflow sequences a session through the startup pipeline.
package workflow

import (
	"startup-hunter-be/pkg/result"
	"startup-hunter-be/pkg/store"
)

// Step is one pipeline operation.
type Step string

const (
	StepCollectTrends    Step = "collect_trends"
	StepClusterTrends    Step = "cluster_trends"
	StepGenerateIdeas    Step = "generate_ideas"
	StepGenerateProposal Step = "generate_proposal"
	StepBuildMVP         Step = "build_mvp"
	StepTestMVP          Step = "test_mvp"
)

var targets = map[Step]store.Stage{
	StepCollectTrends:    store.StageTrendsCollected,
	StepClusterTrends:    store.StageTrendsReady,
	StepGenerateIdeas:    store.StageIdeasReady,
	StepGenerateProposal: store.StageProposalReady,
	StepBuildMVP:         store.StageBuildReady,
	StepTestMVP:          store.StageTestComplete,
}

// Target is the stage a successful run of the step lands in.
func (s Step) Target() store.Stage {
	return targets[s]
}

var transitions = map[store.Stage][]store.Stage{
	store.StageInput:           {store.StageTrendsCollected},
	store.StageTrendsCollected: {store.StageTrendsReady},
	store.StageTrendsReady:     {store.StageIdeasReady},
	store.StageIdeasReady:      {store.StageProposalReady},
	store.StageProposalReady:   {store.StageBuildReady},
	store.StageBuildReady:      {store.StageBuildReady, store.StageTestComplete},
	store.StageTestComplete:    {store.StageTestComplete},
}

// CanTransition reports whether a session in stage from may move to to.
// Every stage may move to error. A session in error is judged by its
// prior stage, see store.Session.EffectiveStage.
func CanTransition(from, to store.Stage) bool {
	if to == store.StageError {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Outcome classifies a finished step for history and events:
// "ok", "fallback" or "error".
func Outcome(step Step, s store.Session, err error) string {
	if err != nil {
		return result.KindErr.String()
	}
	var synthetic bool
	switch step {
	case StepCollectTrends:
		synthetic = s.Synthetic.RawItems
	case StepClusterTrends:
		synthetic = s.Synthetic.Trends
	case StepGenerateIdeas:
		synthetic = s.Synthetic.Ideas
	case StepGenerateProposal:
		synthetic = s.Synthetic.Proposal
	}
	if synthetic {
		return result.KindFallback.String()
	}
	return result.KindOk.String()
}
