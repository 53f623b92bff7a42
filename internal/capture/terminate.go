package capture

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/recapd/recap/internal/logging"
)

// Action is one step of the escalating termination protocol.
type Action int

const (
	// ActionQuit requests a voluntary exit, e.g. writing the tool's quit
	// command to its stdin.
	ActionQuit Action = iota
	// ActionTerminate sends SIGTERM.
	ActionTerminate
	// ActionKill sends SIGKILL through the process handle.
	ActionKill
	// ActionPidKill shells out to kill -9 by process identifier, the last
	// resort when the handle itself has gone bad.
	ActionPidKill
)

// String returns the protocol stage name for logging.
func (a Action) String() string {
	switch a {
	case ActionQuit:
		return "quit"
	case ActionTerminate:
		return "terminate"
	case ActionKill:
		return "kill"
	case ActionPidKill:
		return "pid-kill"
	default:
		return "unknown"
	}
}

// Stage pairs an action with how long to wait for the process to exit
// before escalating.
type Stage struct {
	Action Action
	Wait   time.Duration
}

// NextStage is the termination protocol as a pure function: given how many
// stages have already been exhausted, it returns the next stage to apply.
// ok is false once the protocol is out of stages.
func NextStage(exhausted int) (Stage, bool) {
	stages := [...]Stage{
		{ActionQuit, 10 * time.Second},
		{ActionTerminate, 5 * time.Second},
		{ActionKill, 2 * time.Second},
		{ActionPidKill, 0},
	}
	if exhausted < 0 || exhausted >= len(stages) {
		return Stage{}, false
	}
	return stages[exhausted], true
}

// Process abstracts the running external process the terminator acts on.
type Process interface {
	// Quit asks the process to exit voluntarily.
	Quit() error
	// Signal delivers an OS signal.
	Signal(sig os.Signal) error
	// Pid returns the OS process identifier.
	Pid() int
	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}
}

// Terminate drives a process through the escalating protocol. Stage
// failures are logged, never returned: control always comes back to the
// caller within the summed stage timeouts (~17s worst case).
func Terminate(p Process, logger *logging.Logger) {
	terminate(p, NextStage, logger)
}

// terminate runs the protocol against an injectable stage table so tests
// can shrink the waits.
func terminate(p Process, nextStage func(int) (Stage, bool), logger *logging.Logger) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	for exhausted := 0; ; exhausted++ {
		stage, ok := nextStage(exhausted)
		if !ok {
			logger.Error("process survived all termination stages", "pid", p.Pid())
			return
		}

		if err := apply(p, stage.Action); err != nil {
			logger.Warn("termination stage failed",
				"stage", stage.Action.String(), "pid", p.Pid(), "error", err.Error())
		}

		if stage.Wait == 0 {
			// Last-resort stages do not wait for confirmation.
			select {
			case <-p.Done():
			default:
			}
			return
		}

		select {
		case <-p.Done():
			logger.Debug("process exited", "stage", stage.Action.String(), "pid", p.Pid())
			return
		case <-time.After(stage.Wait):
			logger.Warn("process did not exit in time, escalating",
				"stage", stage.Action.String(), "wait", stage.Wait.String(), "pid", p.Pid())
		}
	}
}

func apply(p Process, action Action) error {
	switch action {
	case ActionQuit:
		return p.Quit()
	case ActionTerminate:
		return p.Signal(syscall.SIGTERM)
	case ActionKill:
		return p.Signal(os.Kill)
	case ActionPidKill:
		return exec.Command("kill", "-9", strconv.Itoa(p.Pid())).Run()
	default:
		return fmt.Errorf("unknown termination action %d", action)
	}
}

// procHandle adapts an exec.Cmd to the Process interface. The wait
// goroutine reaps the child exactly once and closes done.
type procHandle struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	quitCmd []byte
	done    chan struct{}
}

// startProcess launches cmd with a stdin pipe and begins reaping it.
// quitCmd is the byte sequence written to stdin on ActionQuit ("q" for
// ffmpeg).
func startProcess(cmd *exec.Cmd, quitCmd []byte) (*procHandle, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}

	h := &procHandle{
		cmd:     cmd,
		stdin:   stdin,
		quitCmd: quitCmd,
		done:    make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		close(h.done)
	}()
	return h, nil
}

func (h *procHandle) Quit() error {
	if _, err := h.stdin.Write(h.quitCmd); err != nil {
		return err
	}
	return h.stdin.Close()
}

func (h *procHandle) Signal(sig os.Signal) error {
	if h.cmd.Process == nil {
		return fmt.Errorf("process not started")
	}
	return h.cmd.Process.Signal(sig)
}

func (h *procHandle) Pid() int {
	if h.cmd.Process == nil {
		return -1
	}
	return h.cmd.Process.Pid
}

func (h *procHandle) Done() <-chan struct{} {
	return h.done
}
