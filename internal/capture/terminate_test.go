package capture

import (
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/recapd/recap/internal/logging"
)

func TestNextStageTable(t *testing.T) {
	tests := []struct {
		exhausted int
		action    Action
		wait      time.Duration
		ok        bool
	}{
		{0, ActionQuit, 10 * time.Second, true},
		{1, ActionTerminate, 5 * time.Second, true},
		{2, ActionKill, 2 * time.Second, true},
		{3, ActionPidKill, 0, true},
		{4, 0, 0, false},
		{-1, 0, 0, false},
	}

	for _, tt := range tests {
		stage, ok := NextStage(tt.exhausted)
		if ok != tt.ok {
			t.Errorf("NextStage(%d) ok = %v, want %v", tt.exhausted, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if stage.Action != tt.action {
			t.Errorf("NextStage(%d).Action = %v, want %v", tt.exhausted, stage.Action, tt.action)
		}
		if stage.Wait != tt.wait {
			t.Errorf("NextStage(%d).Wait = %v, want %v", tt.exhausted, stage.Wait, tt.wait)
		}
	}
}

// fakeProcess exits once a configured action is applied to it.
type fakeProcess struct {
	mu       sync.Mutex
	exitOn   Action
	quits    int
	signals  []os.Signal
	done     chan struct{}
	exited   bool
	failQuit bool
}

func newFakeProcess(exitOn Action) *fakeProcess {
	return &fakeProcess{exitOn: exitOn, done: make(chan struct{})}
}

func (p *fakeProcess) Quit() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quits++
	if p.failQuit {
		return os.ErrClosed
	}
	p.maybeExit(ActionQuit)
	return nil
}

func (p *fakeProcess) Signal(sig os.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signals = append(p.signals, sig)
	if sig == syscall.SIGTERM {
		p.maybeExit(ActionTerminate)
	} else {
		p.maybeExit(ActionKill)
	}
	return nil
}

func (p *fakeProcess) maybeExit(action Action) {
	if action == p.exitOn && !p.exited {
		p.exited = true
		close(p.done)
	}
}

func (p *fakeProcess) Pid() int { return 4242 }

func (p *fakeProcess) Done() <-chan struct{} { return p.done }

// shortStages mirrors the production table with waits small enough for
// tests.
func shortStages(exhausted int) (Stage, bool) {
	stages := []Stage{
		{ActionQuit, 50 * time.Millisecond},
		{ActionTerminate, 50 * time.Millisecond},
		{ActionKill, 50 * time.Millisecond},
	}
	if exhausted < 0 || exhausted >= len(stages) {
		return Stage{}, false
	}
	return stages[exhausted], true
}

func TestTerminateGracefulExit(t *testing.T) {
	p := newFakeProcess(ActionQuit)

	start := time.Now()
	terminate(p, shortStages, logging.NopLogger())

	if p.quits != 1 {
		t.Errorf("quit requests = %d, want 1", p.quits)
	}
	if len(p.signals) != 0 {
		t.Errorf("signals sent despite graceful exit: %v", p.signals)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("graceful exit took %v, expected prompt return", elapsed)
	}
}

func TestTerminateEscalatesToSigterm(t *testing.T) {
	p := newFakeProcess(ActionTerminate)

	terminate(p, shortStages, logging.NopLogger())

	if p.quits != 1 {
		t.Errorf("quit requests = %d, want 1", p.quits)
	}
	if len(p.signals) != 1 || p.signals[0] != syscall.SIGTERM {
		t.Errorf("signals = %v, want [SIGTERM]", p.signals)
	}
}

func TestTerminateQuitFailureStillEscalates(t *testing.T) {
	p := newFakeProcess(ActionKill)
	p.failQuit = true

	terminate(p, shortStages, logging.NopLogger())

	if len(p.signals) != 2 {
		t.Fatalf("signals = %v, want SIGTERM then SIGKILL", p.signals)
	}
	if p.signals[0] != syscall.SIGTERM {
		t.Errorf("first signal = %v, want SIGTERM", p.signals[0])
	}
	if p.signals[1] != os.Kill {
		t.Errorf("second signal = %v, want SIGKILL", p.signals[1])
	}
}

func TestTerminateReturnsWhenAllStagesExhausted(t *testing.T) {
	// Process that never exits: the runner must still return once the
	// table is exhausted.
	p := newFakeProcess(Action(-1))

	done := make(chan struct{})
	go func() {
		terminate(p, shortStages, logging.NopLogger())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("terminate did not return after exhausting all stages")
	}
}
