package workflow

import (
	"time"

	"startup-hunter-be/pkg/browser"
)

// TestFlows are the smoke checks run against a freshly built MVP.
func TestFlows(baseURL string) []browser.Flow {
	return []browser.Flow{
		{
			Name: "Homepage renders correctly",
			Actions: []browser.Action{
				{Type: browser.ActionNavigate, URL: baseURL},
				{Type: browser.ActionWait, Duration: 2 * time.Second},
			},
		},
		{
			Name: "Core feature is accessible",
			Actions: []browser.Action{
				{Type: browser.ActionNavigate, URL: baseURL},
				{Type: browser.ActionClick, Selector: "button"},
				{Type: browser.ActionWait, Duration: time.Second},
			},
		},
	}
}
