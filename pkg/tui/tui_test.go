package tui_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teslashibe/go-spellcam/pkg/session"
	"github.com/teslashibe/go-spellcam/pkg/tui"
)

type fakeCommander struct {
	snap  session.Snapshot
	names []string
	err   error
}

func (f *fakeCommander) Dispatch(ctx context.Context, name string) error {
	f.names = append(f.names, name)
	return f.err
}

func (f *fakeCommander) Snapshot() session.Snapshot { return f.snap }

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs the resulting command, feeding its message back.
func press(t *testing.T, m tui.Model, s string) tui.Model {
	t.Helper()
	next, cmd := m.Update(key(s))
	m = next.(tui.Model)
	if cmd != nil {
		if msg := cmd(); msg != nil {
			next, _ = m.Update(msg)
			m = next.(tui.Model)
		}
	}
	return m
}

func TestKeysDispatchCommands(t *testing.T) {
	cmd := &fakeCommander{}
	m := tui.NewModel(context.Background(), cmd)

	for _, k := range []string{"c", "f", "b", "s", "a"} {
		m = press(t, m, k)
	}
	want := []string{"clear", "flip", "color", "speak", "activate"}
	if strings.Join(cmd.names, ",") != strings.Join(want, ",") {
		t.Errorf("dispatched %v, want %v", cmd.names, want)
	}
	if m.Status() != "activate" {
		t.Errorf("status = %q", m.Status())
	}
}

func TestCommandFailureShown(t *testing.T) {
	cmd := &fakeCommander{err: errors.New("offline")}
	m := press(t, tui.NewModel(context.Background(), cmd), "c")
	if !strings.Contains(m.Status(), "clear failed") {
		t.Errorf("status = %q", m.Status())
	}
}

func TestCopyText(t *testing.T) {
	var copied string
	cmd := &fakeCommander{}
	m := tui.NewModel(context.Background(), cmd).WithCopier(func(s string) error {
		copied = s
		return nil
	})
	next, _ := m.Update(tui.StateMsg{State: session.Snapshot{Text: "HELLO"}})
	m = press(t, next.(tui.Model), "y")

	if copied != "HELLO" || m.Status() != "copied" {
		t.Errorf("copied = %q, status = %q", copied, m.Status())
	}
	if len(cmd.names) != 0 {
		t.Error("copy must not dispatch a command")
	}
}

func TestViewShowsState(t *testing.T) {
	m := tui.NewModel(context.Background(), &fakeCommander{})
	next, _ := m.Update(tui.StateMsg{State: session.Snapshot{
		Label:      "L",
		Text:       "HELLO",
		Mirrored:   true,
		Background: "#000000",
	}})
	next, _ = next.Update(tui.ErrorMsg{Text: session.CameraUnavailable})
	view := next.View()

	for _, want := range []string{"HELLO", "mirrored", "Webcam not available", "audio off"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestQuit(t *testing.T) {
	m := tui.NewModel(context.Background(), &fakeCommander{})
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected QuitMsg")
	}
}
