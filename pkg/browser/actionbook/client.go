package actionbook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"startup-hunter-be/internal/pkg/logger"
	"startup-hunter-be/pkg/browser"
	"startup-hunter-be/pkg/store"
)

const module = "ActionBook"

// CommandRunner executes one "actionbook browser <args>" invocation.
type CommandRunner interface {
	Run(ctx context.Context, args ...string) (string, error)
	Available() bool
}

type execRunner struct {
	binary string
}

func NewExecRunner(binary string) CommandRunner {
	if binary == "" {
		binary = "actionbook"
	}
	return &execRunner{binary: binary}
}

func (r *execRunner) Available() bool {
	_, err := exec.LookPath(r.binary)
	return err == nil
}

func (r *execRunner) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.binary, append([]string{"browser"}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", errors.New(msg)
	}
	return stdout.String(), nil
}

type Config struct {
	ScreenshotDir    string // filesystem directory
	ScreenshotPrefix string // public URL prefix for ScreenshotDir
}

// Client drives the ActionBook CLI. The CLI holds one browser, so runs
// are serialized.
type Client struct {
	runner CommandRunner
	cfg    Config
	logger logger.ILogger
	sleep  func(ctx context.Context, d time.Duration) error
	mu     sync.Mutex
}

var _ browser.Tester = (*Client)(nil)

func NewClient(runner CommandRunner, cfg Config, log logger.ILogger) *Client {
	if cfg.ScreenshotDir == "" {
		cfg.ScreenshotDir = "public/screenshots"
	}
	if cfg.ScreenshotPrefix == "" {
		cfg.ScreenshotPrefix = "/screenshots"
	}
	return &Client{runner: runner, cfg: cfg, logger: log, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) Configured() bool {
	return c.runner != nil && c.runner.Available()
}

// RunFlows opens the browser, runs every flow and screenshots each one.
// A failing action fails only its own flow. The error return is reserved
// for an undrivable CLI or a cancelled context.
func (c *Client) RunFlows(ctx context.Context, run browser.Run) (store.TestReport, error) {
	if !c.Configured() {
		return store.TestReport{}, fmt.Errorf("%w: actionbook CLI not found", browser.ErrUnavailable)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.runner.Run(ctx, "open", "about:blank"); err != nil {
		return store.TestReport{}, fmt.Errorf("%w: open browser: %v", browser.ErrUnavailable, err)
	}
	defer func() {
		if _, err := c.runner.Run(context.WithoutCancel(ctx), "close"); err != nil {
			c.logger.Warn(module, "Failed to close browser", map[string]interface{}{"error": err.Error()})
		}
	}()

	if _, err := c.runner.Run(ctx, "goto", run.BaseURL); err != nil {
		c.logger.Warn(module, "Initial navigation failed", map[string]interface{}{"url": run.BaseURL, "error": err.Error()})
	}

	dir := filepath.Join(c.cfg.ScreenshotDir, run.ArtifactKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.logger.Warn(module, "Cannot create screenshot dir", map[string]interface{}{"dir": dir, "error": err.Error()})
	}

	report := store.TestReport{Overall: store.TestPassed}
	for i, flow := range run.Flows {
		name := flow.Name
		if name == "" {
			name = fmt.Sprintf("Step %d", i+1)
		}
		step := store.TestStep{Name: name, Status: store.TestPassed}

		if err := c.runFlow(ctx, run.BaseURL, flow); err != nil {
			if ctx.Err() != nil {
				return store.TestReport{}, ctx.Err()
			}
			step.Status = store.TestFailed
			step.Error = err.Error()
			report.Overall = store.TestFailed
		}

		file := fmt.Sprintf("step%d.png", i+1)
		if _, err := c.runner.Run(ctx, "screenshot", filepath.Join(dir, file)); err == nil {
			step.Screenshot = path.Join(c.cfg.ScreenshotPrefix, run.ArtifactKey, file)
		} else {
			c.logger.Warn(module, "Screenshot failed", map[string]interface{}{"flow": name, "error": err.Error()})
		}

		report.Steps = append(report.Steps, step)
	}
	if len(report.Steps) == 0 {
		report.Overall = store.TestFailed
	}
	report.FinishedAt = time.Now()

	c.logger.Info(module, "Browser test run finished", map[string]interface{}{"url": run.BaseURL, "overall": report.Overall, "steps": len(report.Steps)})
	return report, nil
}

func (c *Client) runFlow(ctx context.Context, baseURL string, flow browser.Flow) error {
	for _, a := range flow.Actions {
		var err error
		switch a.Type {
		case browser.ActionNavigate:
			target := a.URL
			if target == "" {
				target = baseURL
			}
			_, err = c.runner.Run(ctx, "goto", target)
		case browser.ActionClick:
			_, err = c.runner.Run(ctx, "click", a.Selector)
		case browser.ActionFill:
			_, err = c.runner.Run(ctx, "fill", a.Selector, a.Value)
		case browser.ActionWait:
			d := a.Duration
			if d <= 0 {
				d = time.Second
			}
			err = c.sleep(ctx, d)
		default:
			err = fmt.Errorf("unknown action %q", a.Type)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", a.Type, err)
		}
	}
	return nil
}
