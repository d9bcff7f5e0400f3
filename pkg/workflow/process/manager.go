package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"startup-hunter-be/internal/pkg/logger"
	"startup-hunter-be/pkg/store"
)

const module = "ProcessManager"

var (
	ErrTemplateNotFound = errors.New("MVP template not found")
	ErrInstallFailed    = errors.New("Failed to install MVP dependencies")
	ErrServerExited     = errors.New("MVP server failed to start")
	ErrNoFreePort       = errors.New("no free port for MVP server")
)

type Config struct {
	TemplateDir    string
	InstallCommand string // run with sh -c in TemplateDir when node_modules is missing
	DevCommand     string // {port} is replaced with the allocated port
	Host           string
	PortStart      int
	PortEnd        int
	StartGrace     time.Duration
	StopTimeout    time.Duration
	PollInterval   time.Duration
}

func (c *Config) defaults() {
	if c.InstallCommand == "" {
		c.InstallCommand = "npm install"
	}
	if c.DevCommand == "" {
		c.DevCommand = "npm run dev -- --port {port} --strictPort"
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.PortStart == 0 {
		c.PortStart = 4000
	}
	if c.PortEnd < c.PortStart {
		c.PortEnd = c.PortStart + 99
	}
	if c.StartGrace == 0 {
		c.StartGrace = 3 * time.Second
	}
	if c.StopTimeout == 0 {
		c.StopTimeout = 5 * time.Second
	}
	if c.PollInterval == 0 {
		c.PollInterval = 100 * time.Millisecond
	}
}

// child is a process this manager spawned and is reaping.
type child struct {
	cmd  *exec.Cmd
	done chan struct{}
}

// Manager spawns, tracks and reaps MVP preview servers, one per session.
type Manager struct {
	cfg      Config
	registry Registry
	ports    *PortAllocator
	logger   logger.ILogger

	// The template directory is shared, so installs run one at a time.
	installMu sync.Mutex

	mu       sync.Mutex
	children map[int]*child
}

func NewManager(cfg Config, registry Registry, log logger.ILogger) *Manager {
	cfg.defaults()
	return &Manager{
		cfg:      cfg,
		registry: registry,
		ports:    NewPortAllocator(cfg.PortStart, cfg.PortEnd),
		logger:   log,
		children: make(map[int]*child),
	}
}

// LogFunc receives build log lines as they happen.
type LogFunc func(entry store.BuildLogEntry)

// Build prepares the template and starts a dev server on a fresh port.
// The server is not registered; call Register once the caller has
// accepted the result.
func (m *Manager) Build(ctx context.Context, sessionID string, onLog LogFunc) (store.ServerHandle, []store.BuildLogEntry, error) {
	var logs []store.BuildLogEntry
	emit := func(step, msg string) {
		e := store.BuildLogEntry{Step: step, Message: msg, Timestamp: time.Now()}
		logs = append(logs, e)
		if onLog != nil {
			onLog(e)
		}
	}

	info, err := os.Stat(m.cfg.TemplateDir)
	if err != nil || !info.IsDir() {
		return store.ServerHandle{}, nil, ErrTemplateNotFound
	}
	emit("init", fmt.Sprintf("Scaffolding application from template %s", filepath.Base(m.cfg.TemplateDir)))

	if err := m.install(ctx, emit); err != nil {
		return store.ServerHandle{}, nil, err
	}

	port, err := m.ports.Acquire(sessionID)
	if err != nil {
		return store.ServerHandle{}, nil, err
	}
	emit("start_server", fmt.Sprintf("Starting development server on port %d", port))

	c, err := m.spawn(sessionID, port)
	if err != nil {
		m.ports.Release(port)
		return store.ServerHandle{}, nil, fmt.Errorf("%w: %v", ErrServerExited, err)
	}

	timer := time.NewTimer(m.cfg.StartGrace)
	defer timer.Stop()
	select {
	case <-c.done:
		m.discard(c.cmd.Process.Pid, port)
		return store.ServerHandle{}, nil, ErrServerExited
	case <-ctx.Done():
		m.discard(c.cmd.Process.Pid, port)
		return store.ServerHandle{}, nil, ctx.Err()
	case <-timer.C:
	}

	handle := store.ServerHandle{
		PID:       c.cmd.Process.Pid,
		Port:      port,
		URL:       fmt.Sprintf("http://%s:%d", m.cfg.Host, port),
		StartedAt: time.Now(),
	}
	emit("server_running", fmt.Sprintf("Server running at %s", handle.URL))
	emit("complete", "Build complete")

	m.logger.Info(module, "MVP server started", map[string]interface{}{"session_id": sessionID, "pid": handle.PID, "port": port})
	return handle, logs, nil
}

func (m *Manager) install(ctx context.Context, emit func(step, msg string)) error {
	m.installMu.Lock()
	defer m.installMu.Unlock()

	if _, err := os.Stat(filepath.Join(m.cfg.TemplateDir, "node_modules")); err == nil {
		emit("install_skipped", "Dependencies already installed")
		return nil
	}

	emit("install_start", "Installing dependencies...")
	cmd := exec.CommandContext(ctx, "sh", "-c", m.cfg.InstallCommand)
	cmd.Dir = m.cfg.TemplateDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.logger.Error(module, "Dependency install failed", map[string]interface{}{"error": err.Error(), "stderr": tail(stderr.String(), 2000)})
		return fmt.Errorf("%w: %v", ErrInstallFailed, err)
	}
	emit("install_complete", "Dependencies installed")
	return nil
}

func (m *Manager) spawn(sessionID string, port int) (*child, error) {
	command := strings.ReplaceAll(m.cfg.DevCommand, "{port}", strconv.Itoa(port))

	// Not bound to the request context: the server outlives the build call.
	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = m.cfg.TemplateDir
	cmd.Env = append(os.Environ(), "PORT="+strconv.Itoa(port), "BROWSER=none")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	// Grandchildren may keep the output pipe open after the shell exits.
	cmd.WaitDelay = time.Second
	out := m.outputWriter(sessionID)
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		_ = out.Close()
		return nil, err
	}

	c := &child{cmd: cmd, done: make(chan struct{})}
	m.mu.Lock()
	m.children[cmd.Process.Pid] = c
	m.mu.Unlock()

	go func() {
		_ = cmd.Wait()
		_ = out.Close()
		close(c.done)
	}()
	return c, nil
}

// Register records handle as the session's server. A previous server of
// the same session is stopped first.
func (m *Manager) Register(sessionID string, handle store.ServerHandle) {
	if prev, ok := m.registry.Get(sessionID); ok && prev.PID != handle.PID {
		m.Stop(sessionID)
	}
	m.registry.Put(Entry{SessionID: sessionID, ServerHandle: handle})
}

// discard stops a spawned server that never made it into the registry.
func (m *Manager) discard(pid, port int) {
	if m.alive(pid) {
		m.terminate(pid)
	}
	m.forget(pid)
	m.ports.Release(port)
}

// Stop terminates the session's server: SIGTERM to its process group, a
// bounded wait, then SIGKILL. The registry entry and port are released on
// every path. It reports whether a live process was found and stopped; a
// missing entry or an already-exited process yields false.
func (m *Manager) Stop(sessionID string) bool {
	entry, ok := m.registry.Get(sessionID)
	if !ok {
		return false
	}
	defer func() {
		m.registry.Delete(sessionID)
		m.ports.Release(entry.Port)
		m.forget(entry.PID)
	}()

	if !m.alive(entry.PID) {
		m.logger.Info(module, "MVP server already exited", map[string]interface{}{"session_id": sessionID, "pid": entry.PID})
		return false
	}

	m.terminate(entry.PID)
	m.logger.Info(module, "MVP server stopped", map[string]interface{}{"session_id": sessionID, "pid": entry.PID})
	return true
}

// StopAll stops every registered server. It returns the removed entries
// and how many of them were still live.
func (m *Manager) StopAll() ([]Entry, int) {
	entries := m.registry.List()
	live := 0
	for _, e := range entries {
		if m.Stop(e.SessionID) {
			live++
		}
	}
	return entries, live
}

// Alive reports whether the session's registered server is running.
func (m *Manager) Alive(sessionID string) bool {
	entry, ok := m.registry.Get(sessionID)
	return ok && m.alive(entry.PID)
}

func (m *Manager) terminate(pid int) {
	signalGroup(pid, syscall.SIGTERM)

	deadline := time.Now().Add(m.cfg.StopTimeout)
	for time.Now().Before(deadline) {
		if !m.alive(pid) {
			return
		}
		time.Sleep(m.cfg.PollInterval)
	}

	m.logger.Warn(module, "MVP server ignored SIGTERM, killing", map[string]interface{}{"pid": pid})
	signalGroup(pid, syscall.SIGKILL)

	for i := 0; i < 10 && m.alive(pid); i++ {
		time.Sleep(m.cfg.PollInterval)
	}
}

// signalGroup signals the process group led by pid, falling back to the
// process itself when the group is gone.
func signalGroup(pid int, sig syscall.Signal) {
	if err := syscall.Kill(-pid, sig); err != nil {
		_ = syscall.Kill(pid, sig)
	}
}

// alive prefers the reaper channel for children of this manager, since an
// exited but unreaped child still answers signal 0.
func (m *Manager) alive(pid int) bool {
	m.mu.Lock()
	c, ok := m.children[pid]
	m.mu.Unlock()
	if ok {
		select {
		case <-c.done:
			return false
		default:
			return true
		}
	}
	return IsProcessAlive(pid)
}

func (m *Manager) forget(pid int) {
	m.mu.Lock()
	delete(m.children, pid)
	m.mu.Unlock()
}

// IsProcessAlive probes pid with signal 0. EPERM means the process
// exists under another user.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// outputWriter forwards each output line of the dev server to the logger.
func (m *Manager) outputWriter(sessionID string) *io.PipeWriter {
	pr, pw := io.Pipe()
	go func() {
		sc := bufio.NewScanner(pr)
		for sc.Scan() {
			m.logger.Debug("MVPServer", sc.Text(), map[string]interface{}{"session_id": sessionID})
		}
		_, _ = io.Copy(io.Discard, pr)
		_ = pr.Close()
	}()
	return pw
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
