package store

import (
	"fmt"
	"time"
)

// Stage is the position of a session in the pipeline.
type Stage string

const (
	StageInput           Stage = "input"
	StageTrendsCollected Stage = "trends_collected"
	StageTrendsReady     Stage = "trends_ready"
	StageIdeasReady      Stage = "ideas_ready"
	StageProposalReady   Stage = "proposal_ready"
	StageBuildReady      Stage = "build_ready"
	StageTestComplete    Stage = "test_complete"
	StageError           Stage = "error"
)

// RawItem is one scraped record. Shape varies by source; title, url,
// snippet and source are the usual keys.
type RawItem map[string]interface{}

type Evidence struct {
	Source  string `json:"source"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type Trend struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Score       int        `json:"score"`
	Momentum    int        `json:"momentum"`
	Pain        int        `json:"pain"`
	Competition int        `json:"competition"`
	Complexity  int        `json:"complexity"`
	PainPoints  []string   `json:"painPoints"`
	Evidence    []Evidence `json:"evidence"`
}

type Idea struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Tagline     string `json:"tagline"`
	Reasoning   string `json:"reasoning"`
	Market      string `json:"market"`
	Wedge       string `json:"wedge"`
	MVPTime     string `json:"mvpTime"`
	Recommended bool   `json:"recommended"`
}

type ProposalSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type BuildLogEntry struct {
	Step      string    `json:"step"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	TestPassed = "passed"
	TestFailed = "failed"
)

type TestStep struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Screenshot string `json:"screenshot,omitempty"`
	Error      string `json:"error,omitempty"`
}

type TestReport struct {
	Overall    string     `json:"overall"`
	Steps      []TestStep `json:"steps"`
	FinishedAt time.Time  `json:"finished_at"`
}

// ServerHandle points at the live preview server of a session.
type ServerHandle struct {
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	URL       string    `json:"url"`
	StartedAt time.Time `json:"started_at"`
}

// Synthetic marks artifacts produced by a fallback generator instead of
// a live adapter.
type Synthetic struct {
	RawItems bool `json:"raw_items"`
	Trends   bool `json:"trends"`
	Ideas    bool `json:"ideas"`
	Proposal bool `json:"proposal"`
}

type ErrorKind string

const (
	ErrorKindPrecondition   ErrorKind = "precondition"
	ErrorKindInfrastructure ErrorKind = "infrastructure"
)

// StepError describes the most recent failed step. PriorStage is the
// stage the session was in before the failure, so the same step can be
// invoked again.
type StepError struct {
	Step       string    `json:"step"`
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	PriorStage Stage     `json:"prior_stage"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, e.Message)
}

func (e *StepError) IsPrecondition() bool {
	return e.Kind == ErrorKindPrecondition
}

// Session is the full pipeline state of one user session.
type Session struct {
	ID          string                 `json:"id"`
	UserID      string                 `json:"user_id"`
	Stage       Stage                  `json:"stage"`
	Domain      string                 `json:"domain"`
	UserContext map[string]interface{} `json:"user_context,omitempty"`

	RawTrendItems []RawItem `json:"raw_trend_items"`
	Trends        []Trend   `json:"trends"`
	SelectedTrend *Trend    `json:"selected_trend"`

	Ideas        []Idea `json:"ideas"`
	SelectedIdea *Idea  `json:"selected_idea"`

	Proposal   []ProposalSection `json:"proposal"`
	BuildLog   []BuildLogEntry   `json:"build_log"`
	TestReport *TestReport       `json:"test_report"`

	MemoryHandle string `json:"memory_handle,omitempty"`
	MemoryText   string `json:"memory_text,omitempty"`

	Synthetic Synthetic     `json:"synthetic"`
	Error     *StepError    `json:"error"`
	Server    *ServerHandle `json:"server"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(id, userID, domain string, userContext map[string]interface{}, now time.Time) Session {
	return Session{
		ID:          id,
		UserID:      userID,
		Stage:       StageInput,
		Domain:      domain,
		UserContext: copyAnyMap(userContext),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// EffectiveStage is the stage the next step is judged against. A failed
// session resumes from the stage it failed in.
func (s Session) EffectiveStage() Stage {
	if s.Stage == StageError && s.Error != nil {
		return s.Error.PriorStage
	}
	return s.Stage
}

// Clone returns a deep copy. Callers mutate the clone, never the original.
func (s Session) Clone() Session {
	c := s
	c.UserContext = copyAnyMap(s.UserContext)

	if s.RawTrendItems != nil {
		c.RawTrendItems = make([]RawItem, len(s.RawTrendItems))
		for i, item := range s.RawTrendItems {
			c.RawTrendItems[i] = RawItem(copyAnyMap(item))
		}
	}
	if s.Trends != nil {
		c.Trends = make([]Trend, len(s.Trends))
		for i, t := range s.Trends {
			c.Trends[i] = t.clone()
		}
	}
	if s.SelectedTrend != nil {
		t := s.SelectedTrend.clone()
		c.SelectedTrend = &t
	}
	if s.Ideas != nil {
		c.Ideas = append([]Idea(nil), s.Ideas...)
	}
	if s.SelectedIdea != nil {
		idea := *s.SelectedIdea
		c.SelectedIdea = &idea
	}
	if s.Proposal != nil {
		c.Proposal = append([]ProposalSection(nil), s.Proposal...)
	}
	if s.BuildLog != nil {
		c.BuildLog = append([]BuildLogEntry(nil), s.BuildLog...)
	}
	if s.TestReport != nil {
		r := *s.TestReport
		r.Steps = append([]TestStep(nil), s.TestReport.Steps...)
		c.TestReport = &r
	}
	if s.Error != nil {
		e := *s.Error
		c.Error = &e
	}
	if s.Server != nil {
		h := *s.Server
		c.Server = &h
	}
	return c
}

// FindTrend returns the trend with the given id from the current list.
func (s Session) FindTrend(id string) (Trend, bool) {
	for _, t := range s.Trends {
		if t.ID == id {
			return t.clone(), true
		}
	}
	return Trend{}, false
}

func (s Session) FindIdea(id string) (Idea, bool) {
	for _, idea := range s.Ideas {
		if idea.ID == id {
			return idea, true
		}
	}
	return Idea{}, false
}

func (t Trend) clone() Trend {
	c := t
	if t.PainPoints != nil {
		c.PainPoints = append([]string(nil), t.PainPoints...)
	}
	if t.Evidence != nil {
		c.Evidence = append([]Evidence(nil), t.Evidence...)
	}
	return c
}

func copyAnyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
