// Package tui is a terminal display surface for a spelling session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/teslashibe/go-spellcam/pkg/camera"
	"github.com/teslashibe/go-spellcam/pkg/session"
)

// Commander is the session surface the terminal drives.
type Commander interface {
	Dispatch(ctx context.Context, name string) error
	Snapshot() session.Snapshot
}

// StateMsg carries a new session snapshot.
type StateMsg struct{ State session.Snapshot }

// FrameMsg reports a preview frame. Terminals do not render it.
type FrameMsg struct {
	Width, Height int
	Mirrored      bool
	At            time.Time
}

// ErrorMsg shows a static error.
type ErrorMsg struct{ Text string }

type commandDoneMsg struct {
	name string
	err  error
}

type copiedMsg struct{ err error }

// keymap binds keys to session commands.
var keymap = map[string]string{
	"c":     session.CommandClear,
	"f":     session.CommandFlip,
	"b":     session.CommandColor,
	"s":     session.CommandSpeak,
	"a":     session.CommandActivate,
	" ":     session.CommandActivate,
	"space": session.CommandActivate,
}

// Model is the bubbletea model.
type Model struct {
	ctx       context.Context
	commander Commander
	copy      func(string) error

	state    session.Snapshot
	frame    FrameMsg
	frames   int
	status   string
	errText  string
	width    int
	quitting bool
}

// NewModel creates the model for commander.
func NewModel(ctx context.Context, commander Commander) Model {
	return Model{
		ctx:       ctx,
		commander: commander,
		copy:      clipboard.WriteAll,
		state:     commander.Snapshot(),
	}
}

// WithCopier replaces the clipboard writer.
func (m Model) WithCopier(fn func(string) error) Model {
	m.copy = fn
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "y":
			text := m.state.Text
			copyFn := m.copy
			return m, func() tea.Msg { return copiedMsg{err: copyFn(text)} }
		}
		if name, ok := keymap[key]; ok {
			return m, m.dispatch(name)
		}

	case StateMsg:
		m.state = msg.State
		if msg.State.Error != "" {
			m.errText = msg.State.Error
		}

	case FrameMsg:
		m.frame = msg
		m.frames++

	case ErrorMsg:
		m.errText = msg.Text

	case commandDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.name, msg.err)
		} else {
			m.status = msg.name
		}
		m.state = m.commander.Snapshot()

	case copiedMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
		} else {
			m.status = "copied"
		}
	}
	return m, nil
}

func (m Model) dispatch(name string) tea.Cmd {
	ctx, commander := m.ctx, m.commander
	return func() tea.Msg {
		return commandDoneMsg{name: name, err: commander.Dispatch(ctx, name)}
	}
}

// State returns the snapshot the model renders.
func (m Model) State() session.Snapshot {
	return m.state
}

// Status returns the last command status line.
func (m Model) Status() string {
	return m.status
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	bg := m.state.Background
	if bg == "" {
		bg = session.DefaultColors[0]
	}
	fg := "#000000"
	if bg == "#000000" {
		fg = "#ffffff"
	}
	page := lipgloss.NewStyle().
		Background(lipgloss.Color(bg)).
		Foreground(lipgloss.Color(fg)).
		Padding(1, 2)
	if m.width > 4 {
		page = page.Width(m.width)
	}

	labelStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	textStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	var b strings.Builder
	label := m.state.Label
	if label == "" {
		label = "-"
	}
	b.WriteString(labelStyle.Render(label) + "\n")
	if m.errText != "" {
		b.WriteString(errStyle.Render(m.errText) + "\n")
	}
	b.WriteString("\n" + textStyle.Render(m.state.Text) + "\n\n")

	mirror := "normal"
	if m.state.Mirrored {
		mirror = "mirrored"
	}
	preview := "no frames"
	if m.frames > 0 {
		preview = fmt.Sprintf("%dx%d, %d frames", m.frame.Width, m.frame.Height, m.frames)
	}
	b.WriteString(dim.Render(fmt.Sprintf("preview %s (%s)", preview, mirror)) + "\n")
	b.WriteString(dim.Render(audioLine(m.state)) + "\n")
	if m.status != "" {
		b.WriteString(dim.Render(m.status) + "\n")
	}
	b.WriteString("\n" + dim.Render("c clear  f flip  b background  s speak  a audio  y copy  q quit"))

	return page.Render(b.String())
}

func audioLine(s session.Snapshot) string {
	a := s.Audio
	if !a.Activated {
		return "audio off (press a)"
	}
	speech := "off"
	if a.SpeechReady {
		speech = "on, " + a.Voice
	}
	tone := "off"
	if a.ToneReady {
		tone = "on"
	}
	return fmt.Sprintf("tone %s, speech %s", tone, speech)
}

// UI runs the terminal program and implements session.Display.
type UI struct {
	model   Model
	program *tea.Program
	inbox   chan tea.Msg
	// state holds only the newest snapshot; older ones are superseded.
	state   chan session.Snapshot
	logger  *slog.Logger
}

// New creates a terminal UI for commander.
func New(ctx context.Context, commander Commander, logger *slog.Logger) *UI {
	if logger == nil {
		logger = slog.Default()
	}
	m := NewModel(ctx, commander)
	return &UI{
		model:   m,
		program: tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)),
		inbox:   make(chan tea.Msg, 64),
		state:   make(chan session.Snapshot, 1),
		logger:  logger.With("component", "tui"),
	}
}

// Run blocks until the user quits or ctx is cancelled.
func (u *UI) Run() error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case msg := <-u.inbox:
				u.program.Send(msg)
			case snap := <-u.state:
				u.program.Send(StateMsg{State: snap})
			case <-done:
				return
			}
		}
	}()

	_, err := u.program.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// Quit asks the program to exit.
func (u *UI) Quit() {
	u.program.Quit()
}

// post never blocks; the session lock may be held.
func (u *UI) post(msg tea.Msg) {
	select {
	case u.inbox <- msg:
	default:
		u.logger.Debug("dropping ui message", "type", fmt.Sprintf("%T", msg))
	}
}

// Publish forwards a session snapshot. Register it with Session.OnChange.
// It never blocks; an unsent snapshot is replaced by the newer one.
func (u *UI) Publish(snap session.Snapshot) {
	for {
		select {
		case u.state <- snap:
			return
		default:
		}
		select {
		case <-u.state:
		default:
		}
	}
}

// SetLabel implements session.Display; snapshots carry the label.
func (u *UI) SetLabel(string) {}

// SetText implements session.Display; snapshots carry the text.
func (u *UI) SetText(string) {}

// ShowError implements session.Display.
func (u *UI) ShowError(msg string) {
	u.post(ErrorMsg{Text: msg})
}

// ShowFrame implements session.Display.
func (u *UI) ShowFrame(frame camera.EncodedImage, mirrored bool) {
	u.post(FrameMsg{Width: frame.Width, Height: frame.Height, Mirrored: mirrored, At: frame.CapturedAt})
}

// Verify UI implements session.Display at compile time.
var _ session.Display = (*UI)(nil)
