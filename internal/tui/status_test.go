package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/recapd/recap/internal/capture"
)

type fakeController struct {
	stops int
	err   error
}

func (c *fakeController) Stop() error {
	c.stops++
	return c.err
}

func testModel(controller Controller) Model {
	return NewModel(controller, "/tmp/recording_test",
		[]capture.Kind{capture.KindScreen, capture.KindMic},
		time.Now().Add(-90*time.Second),
		func() int64 { return 2048 })
}

func TestViewShowsSessionDetails(t *testing.T) {
	m := testModel(&fakeController{})
	view := m.View()

	for _, want := range []string{"Recording", "01:30", "2.0 KB", "screen, mic", "/tmp/recording_test", "press q to stop"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestQuitKeyStopsSession(t *testing.T) {
	controller := &fakeController{}
	m := testModel(controller)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	model := updated.(Model)
	if !model.stopping {
		t.Fatal("model not stopping after q")
	}
	if cmd == nil {
		t.Fatal("no stop command issued")
	}

	msg := cmd()
	if _, ok := msg.(stopDoneMsg); !ok {
		t.Fatalf("stop command produced %T, want stopDoneMsg", msg)
	}
	if controller.stops != 1 {
		t.Errorf("Stop called %d times, want 1", controller.stops)
	}
}

func TestSecondQuitKeyIgnoredWhileStopping(t *testing.T) {
	controller := &fakeController{}
	m := testModel(controller)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	model := updated.(Model)
	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd != nil {
		t.Error("second stop request issued a command while already stopping")
	}
}

func TestStopDoneQuitsProgram(t *testing.T) {
	m := testModel(&fakeController{})
	updated, cmd := m.Update(stopDoneMsg{})
	if cmd == nil {
		t.Fatal("stopDoneMsg did not produce a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("stopDoneMsg did not quit the program")
	}
	if updated.(Model).Err() != nil {
		t.Error("unexpected stop error")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "00:45"},
		{150 * time.Second, "02:30"},
		{3*time.Hour + 5*time.Minute + 7*time.Second, "3:05:07"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
