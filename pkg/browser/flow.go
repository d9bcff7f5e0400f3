// Package browser holds the browser-test vocabulary shared by the
// workflow engine and the automation adapters.
package browser

import (
	"context"
	"errors"
	"time"

	"startup-hunter-be/pkg/store"
)

// ErrUnavailable means the automation backend cannot be driven at all.
var ErrUnavailable = errors.New("browser automation unavailable")

type ActionType string

const (
	ActionNavigate ActionType = "navigate"
	ActionClick    ActionType = "click"
	ActionFill     ActionType = "fill"
	ActionWait     ActionType = "wait"
)

type Action struct {
	Type     ActionType    `json:"type"`
	URL      string        `json:"url,omitempty"`
	Selector string        `json:"selector,omitempty"`
	Value    string        `json:"value,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Flow is a named sequence of actions judged as one test step.
type Flow struct {
	Name    string   `json:"name"`
	Actions []Action `json:"actions"`
}

type Run struct {
	BaseURL string
	Flows   []Flow
	// ArtifactKey namespaces screenshots, usually the session id.
	ArtifactKey string
}

type Tester interface {
	RunFlows(ctx context.Context, run Run) (store.TestReport, error)
}
