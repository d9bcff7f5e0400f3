package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"startup-hunter-be/internal/dto"

	"github.com/fatih/color"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type driver struct {
	baseURL string
	client  *http.Client
}

func (d *driver) send(method, path string, body interface{}) (*envelope, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, d.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("status %s: %s", resp.Status, string(raw))
	}
	if resp.StatusCode != http.StatusOK {
		return &env, fmt.Errorf("status %s: %s", resp.Status, env.Message)
	}
	return &env, nil
}

func (d *driver) chat(req dto.ChatRequest) (*dto.ChatResponse, error) {
	env, err := d.send(http.MethodPost, "/api/chat", req)
	if err != nil {
		return nil, err
	}
	var res dto.ChatResponse
	if err := json.Unmarshal(env.Data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func embedList(res *dto.ChatResponse) []map[string]interface{} {
	b, _ := json.Marshal(res.EmbedData)
	var out []map[string]interface{}
	_ = json.Unmarshal(b, &out)
	return out
}

func main() {
	baseURL := flag.String("url", "http://localhost:8000", "API base URL")
	domain := flag.String("domain", "fintech", "domain to hunt trends in")
	skipBuild := flag.Bool("skip-build", false, "stop after the proposal")
	flag.Parse()

	d := &driver{baseURL: *baseURL, client: &http.Client{Timeout: 5 * time.Minute}}
	color.Cyan("🚀 Startup Hunter end-to-end run against %s (domain: %s)\n", *baseURL, *domain)

	if err := run(d, *domain, *skipBuild); err != nil {
		color.Red("✗ %v", err)
		os.Exit(1)
	}
	color.Cyan("\n✅ Done")
}

func run(d *driver, domain string, skipBuild bool) error {
	// 1. Health (GET / answers without the envelope)
	color.Yellow("\n1. Health check")
	resp, err := d.client.Get(d.baseURL + "/")
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	var health dto.HealthResponse
	err = json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if err != nil || health.Status != "ok" {
		return fmt.Errorf("health: unexpected response (status %q)", health.Status)
	}
	color.Green("✓ %s %s is up", health.Service, health.Version)

	// 2. Trends
	color.Yellow("\n2. Collect and cluster trends")
	res, err := d.chat(dto.ChatRequest{Stage: dto.ChatStageInput, Message: domain})
	if err != nil {
		return fmt.Errorf("trends: %w", err)
	}
	sessionID := res.SessionId
	defer func() {
		color.Yellow("\nCleanup")
		if _, err := d.send(http.MethodDelete, "/api/sessions/"+sessionID, nil); err != nil {
			color.Red("✗ cleanup failed: %v", err)
			return
		}
		color.Green("✓ Session %s deleted", sessionID)
	}()

	trends := embedList(res)
	if len(trends) == 0 {
		return fmt.Errorf("trends: none returned")
	}
	color.Green("✓ Session %s: %d trends (synthetic: %v)", sessionID, len(trends), res.Synthetic)
	for _, t := range trends {
		fmt.Printf("   - %v (score %v)\n", t["title"], t["score"])
	}

	// 3. Ideas
	color.Yellow("\n3. Generate ideas for the top trend")
	trendID, _ := trends[0]["id"].(string)
	res, err = d.chat(dto.ChatRequest{SessionId: sessionID, Stage: dto.ChatStageTrends, TrendId: trendID})
	if err != nil {
		return fmt.Errorf("ideas: %w", err)
	}
	ideas := embedList(res)
	if len(ideas) == 0 {
		return fmt.Errorf("ideas: none returned")
	}
	ideaID, _ := ideas[0]["id"].(string)
	for _, idea := range ideas {
		if rec, _ := idea["recommended"].(bool); rec {
			ideaID, _ = idea["id"].(string)
		}
		fmt.Printf("   - %v\n", idea["title"])
	}
	color.Green("✓ %d ideas, selecting %s", len(ideas), ideaID)

	// 4. Proposal
	color.Yellow("\n4. Generate proposal")
	res, err = d.chat(dto.ChatRequest{SessionId: sessionID, Stage: dto.ChatStageIdeas, IdeaId: ideaID})
	if err != nil {
		return fmt.Errorf("proposal: %w", err)
	}
	color.Green("✓ %d sections", len(embedList(res)))

	if !skipBuild {
		// 5. Build
		color.Yellow("\n5. Build and start the MVP")
		res, err = d.chat(dto.ChatRequest{SessionId: sessionID, Stage: dto.ChatStageProposal})
		if err != nil {
			return fmt.Errorf("build: %w", err)
		}
		color.Green("✓ %s", res.Message)

		// 6. Test
		color.Yellow("\n6. Run browser tests")
		res, err = d.chat(dto.ChatRequest{SessionId: sessionID, Stage: dto.ChatStageBuild})
		if err != nil {
			color.Red("✗ test: %v", err)
		} else {
			color.Green("✓ %s", res.Message)
		}
	}

	// 7. History
	color.Yellow("\n7. Stage history")
	env, err := d.send(http.MethodGet, "/api/sessions/"+sessionID+"/history", nil)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	var runs []dto.StageRunResponse
	if err := json.Unmarshal(env.Data, &runs); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	for _, r := range runs {
		line := fmt.Sprintf("   - %-18s %-8s %5dms", r.Step, r.Outcome, r.DurationMs)
		switch r.Outcome {
		case "ok":
			color.Green("%s", line)
		case "fallback":
			color.Yellow("%s", line)
		default:
			color.Red("%s", line)
		}
	}
	return nil
}
