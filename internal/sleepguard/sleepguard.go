// Package sleepguard keeps the machine awake for the duration of a
// recording by holding a caffeinate subprocess. Display, idle, and system
// sleep are all inhibited; the guard is released on session stop.
package sleepguard

import (
	"os/exec"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/recapd/recap/internal/logging"
)

// stopWait bounds how long Release waits after SIGTERM before killing.
const stopWait = 2 * time.Second

// Guard holds a sleep inhibitor while a recording runs.
type Guard struct {
	logger *logging.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// New creates an unarmed Guard.
func New(logger *logging.Logger) *Guard {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Guard{logger: logger}
}

// Acquire starts the sleep inhibitor. Failure to start is logged, not
// returned: a recording without a sleep guard is degraded, not broken.
func (g *Guard) Acquire() {
	if runtime.GOOS != "darwin" {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cmd != nil {
		return
	}

	cmd := exec.Command("caffeinate", "-dims")
	if err := cmd.Start(); err != nil {
		g.logger.Warn("failed to start sleep inhibitor", "error", err.Error())
		return
	}

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	g.cmd = cmd
	g.done = done
	g.logger.Debug("sleep inhibitor acquired", "pid", cmd.Process.Pid)
}

// Release stops the sleep inhibitor: SIGTERM, short wait, then kill. Safe
// to call when not acquired.
func (g *Guard) Release() {
	g.mu.Lock()
	cmd, done := g.cmd, g.done
	g.cmd, g.done = nil, nil
	g.mu.Unlock()

	if cmd == nil {
		return
	}

	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-done:
	case <-time.After(stopWait):
		_ = cmd.Process.Kill()
		<-done
	}
	g.logger.Debug("sleep inhibitor released")
}
