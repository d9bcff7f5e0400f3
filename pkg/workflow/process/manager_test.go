package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startup-hunter-be/internal/pkg/logger"
	"startup-hunter-be/pkg/store"
)

func templateDir(t *testing.T, withModules bool) string {
	t.Helper()
	dir := t.TempDir()
	if withModules {
		require.NoError(t, os.Mkdir(filepath.Join(dir, "node_modules"), 0o755))
	}
	return dir
}

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.DevCommand == "" {
		cfg.DevCommand = "sleep 30"
	}
	if cfg.PortStart == 0 {
		cfg.PortStart, cfg.PortEnd = 47100, 47199
	}
	cfg.StartGrace = 200 * time.Millisecond
	if cfg.StopTimeout == 0 {
		cfg.StopTimeout = 2 * time.Second
	}
	m := NewManager(cfg, NewMemoryRegistry(), logger.NewNopLogger())
	t.Cleanup(func() { m.StopAll() })
	return m
}

func TestBuild_TemplateMissing(t *testing.T) {
	m := newTestManager(t, Config{TemplateDir: filepath.Join(t.TempDir(), "absent")})

	_, logs, err := m.Build(context.Background(), "s-1", nil)

	require.ErrorIs(t, err, ErrTemplateNotFound)
	assert.Equal(t, "MVP template not found", err.Error())
	assert.Empty(t, logs)
	assert.Empty(t, m.registry.List())
	assert.Zero(t, m.ports.Held())
}

func TestBuild_InstallFailure(t *testing.T) {
	m := newTestManager(t, Config{TemplateDir: templateDir(t, false), InstallCommand: "exit 3"})

	_, _, err := m.Build(context.Background(), "s-1", nil)

	require.ErrorIs(t, err, ErrInstallFailed)
	assert.Zero(t, m.ports.Held())
}

func TestBuild_InstallsWhenModulesMissing(t *testing.T) {
	m := newTestManager(t, Config{TemplateDir: templateDir(t, false), InstallCommand: "mkdir node_modules"})

	var streamed []string
	handle, logs, err := m.Build(context.Background(), "s-1", func(e store.BuildLogEntry) {
		streamed = append(streamed, e.Step)
	})
	require.NoError(t, err)
	m.Register("s-1", handle)

	steps := make([]string, 0, len(logs))
	for _, l := range logs {
		steps = append(steps, l.Step)
	}
	assert.Contains(t, steps, "install_start")
	assert.Contains(t, steps, "install_complete")
	assert.Equal(t, steps, streamed)
	assert.DirExists(t, filepath.Join(m.cfg.TemplateDir, "node_modules"))
}

func TestBuild_ServerExitsEarly(t *testing.T) {
	m := newTestManager(t, Config{TemplateDir: templateDir(t, true), DevCommand: "exit 1"})

	_, _, err := m.Build(context.Background(), "s-1", nil)

	require.ErrorIs(t, err, ErrServerExited)
	assert.Equal(t, "MVP server failed to start", err.Error())
	assert.Zero(t, m.ports.Held())
}

func TestBuildRegisterStop(t *testing.T) {
	m := newTestManager(t, Config{TemplateDir: templateDir(t, true)})

	handle, logs, err := m.Build(context.Background(), "s-1", nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, handle.Port, 47100)
	assert.Equal(t, fmt.Sprintf("http://localhost:%d", handle.Port), handle.URL)
	assert.Equal(t, "complete", logs[len(logs)-1].Step)

	assert.False(t, m.Alive("s-1"), "not registered yet")
	m.Register("s-1", handle)
	assert.True(t, m.Alive("s-1"))

	got, ok := m.registry.Get("s-1")
	require.True(t, ok)
	assert.Equal(t, handle.PID, got.PID)

	assert.True(t, m.Stop("s-1"))
	assert.False(t, m.Alive("s-1"))
	assert.False(t, m.Stop("s-1"), "second stop is a no-op")
	assert.Zero(t, m.ports.Held())
}

func TestStop_EscalatesToKill(t *testing.T) {
	m := newTestManager(t, Config{
		TemplateDir: templateDir(t, true),
		DevCommand:  "trap '' TERM; sleep 30",
		StopTimeout: 300 * time.Millisecond,
	})

	handle, _, err := m.Build(context.Background(), "s-1", nil)
	require.NoError(t, err)
	m.Register("s-1", handle)

	start := time.Now()
	assert.True(t, m.Stop("s-1"))
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
	assert.False(t, IsProcessAlive(handle.PID))
}

func TestStop_ProcessAlreadyGone(t *testing.T) {
	m := newTestManager(t, Config{TemplateDir: templateDir(t, true)})

	cmd := exec.Command("sh", "-c", "exit 0")
	require.NoError(t, cmd.Run())

	m.Register("s-1", store.ServerHandle{PID: cmd.Process.Pid, Port: 47150})

	assert.False(t, m.Stop("s-1"))
	_, ok := m.registry.Get("s-1")
	assert.False(t, ok)
}

func TestStopAll(t *testing.T) {
	m := newTestManager(t, Config{TemplateDir: templateDir(t, true)})

	for _, id := range []string{"s-1", "s-2"} {
		handle, _, err := m.Build(context.Background(), id, nil)
		require.NoError(t, err)
		m.Register(id, handle)
	}

	entries, live := m.StopAll()
	assert.Equal(t, 2, live)
	require.Len(t, entries, 2)
	assert.Equal(t, "s-1", entries[0].SessionID)

	entries, live = m.StopAll()
	assert.Zero(t, live)
	assert.Empty(t, entries)
	assert.Empty(t, m.registry.List())
}

func TestBuild_CancelledDuringStartup(t *testing.T) {
	m := newTestManager(t, Config{TemplateDir: templateDir(t, true)})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := m.Build(ctx, "s-1", nil)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, m.ports.Held())
	assert.Empty(t, m.registry.List())
	m.mu.Lock()
	assert.Empty(t, m.children)
	m.mu.Unlock()
}

func TestBuild_ConcurrentSessionsGetDistinctPorts(t *testing.T) {
	m := newTestManager(t, Config{TemplateDir: templateDir(t, true)})

	var wg sync.WaitGroup
	handles := make([]store.ServerHandle, 2)
	errs := make([]error, 2)
	for i, id := range []string{"s-1", "s-2"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			handles[i], _, errs[i] = m.Build(context.Background(), id, nil)
		}(i, id)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	m.Register("s-1", handles[0])
	m.Register("s-2", handles[1])
	assert.NotEqual(t, handles[0].Port, handles[1].Port)
}

func TestRegister_ReplacesPreviousServer(t *testing.T) {
	m := newTestManager(t, Config{TemplateDir: templateDir(t, true)})

	first, _, err := m.Build(context.Background(), "s-1", nil)
	require.NoError(t, err)
	m.Register("s-1", first)

	second, _, err := m.Build(context.Background(), "s-1", nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.Port, second.Port)

	m.Register("s-1", second)

	assert.False(t, IsProcessAlive(first.PID))
	got, _ := m.registry.Get("s-1")
	assert.Equal(t, second.PID, got.PID)
	assert.True(t, m.Alive("s-1"))
}

func TestPortAllocator(t *testing.T) {
	a := NewPortAllocator(5000, 5002)
	a.probe = func(port int) bool { return port != 5001 }

	p, err := a.Acquire("s-1")
	require.NoError(t, err)
	assert.Equal(t, 5000, p)

	p, err = a.Acquire("s-2")
	require.NoError(t, err)
	assert.Equal(t, 5002, p, "5001 fails the bind probe")

	_, err = a.Acquire("s-3")
	assert.ErrorIs(t, err, ErrNoFreePort)

	a.Release(5000)
	p, err = a.Acquire("s-3")
	require.NoError(t, err)
	assert.Equal(t, 5000, p)
	assert.Equal(t, 2, a.Held())
}

func TestIsProcessAlive(t *testing.T) {
	assert.True(t, IsProcessAlive(os.Getpid()))
	assert.False(t, IsProcessAlive(0))
	assert.False(t, IsProcessAlive(-1))
}
