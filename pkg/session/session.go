// Package session holds the per-user state of a spelling session and the
// commands that mutate it: clear, flip, background color, speak and activate.
//
// Recognition results are applied through Begin/Apply. Begin tags a request
// with the current epoch; Clear bumps the epoch so a response issued before
// the clear is discarded instead of being applied on top of the reset state.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/teslashibe/go-spellcam/pkg/camera"
	"github.com/teslashibe/go-spellcam/pkg/feedback"
	"github.com/teslashibe/go-spellcam/pkg/recognition"
	"github.com/teslashibe/go-spellcam/pkg/transcript"
)

// Command names accepted by Dispatch.
const (
	CommandClear    = "clear"
	CommandFlip     = "flip"
	CommandColor    = "color"
	CommandSpeak    = "speak"
	CommandActivate = "activate"
)

// CameraUnavailable is shown when the camera cannot be opened.
const CameraUnavailable = "Error: Webcam not available."

// DefaultColors is the background palette, cycled in order.
var DefaultColors = []string{"#ffffff", "#000000"}

// ErrUnknownCommand is returned by Dispatch for unrecognized names.
var ErrUnknownCommand = errors.New("session: unknown command")

// Service is the command side of the recognition service.
type Service interface {
	Clear(ctx context.Context) (recognition.Status, error)
	Flip(ctx context.Context, flip bool) error
}

// Audio is the feedback channel pair driven by the session.
type Audio interface {
	Activate(ctx context.Context)
	PlayTone()
	Speak(text string, highPriority bool)
	CancelSpeech()
	State() feedback.State
}

// Config configures a Session.
type Config struct {
	Mirrored bool
	Colors   []string
	Logger   *slog.Logger
}

// Tag identifies a recognition request and the epoch it was issued in.
type Tag struct {
	Epoch uint64
	Seq   uint64
}

// Snapshot is a copy of the visible session state.
type Snapshot struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Text       string         `json:"text"`
	Error      string         `json:"error,omitempty"`
	Mirrored   bool           `json:"mirrored"`
	Background string         `json:"background"`
	Epoch      uint64         `json:"epoch"`
	Audio      feedback.State `json:"audio"`
}

// Session replaces process-wide mutable state with one owned object.
type Session struct {
	id     string
	svc    Service
	audio  Audio
	mirror *camera.Manager
	colors []string
	logger *slog.Logger

	mu        sync.Mutex
	displays  Displays
	listeners []func(Snapshot)
	tracker   *transcript.Tracker
	epoch     uint64
	seq       uint64
	label     string
	text      string
	errMsg    string
	color     int
}

// New creates a session. audio may be nil, which disables feedback.
func New(svc Service, audio Audio, cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	colors := cfg.Colors
	if len(colors) == 0 {
		colors = DefaultColors
	}
	id := uuid.NewString()
	s := &Session{
		id:      id,
		svc:     svc,
		audio:   audio,
		mirror:  camera.NewManager(cfg.Mirrored),
		colors:  colors,
		logger:  cfg.Logger.With("component", "session", "session_id", id),
		tracker: transcript.NewTracker(),
	}
	s.mirror.OnMirrorChange = func(mirrored bool) {
		s.logger.Info("preview mirror changed", "mirrored", mirrored)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// AddDisplay attaches a display surface.
func (s *Session) AddDisplay(d Display) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displays = append(s.displays, d)
}

// OnChange registers a callback invoked with a snapshot after every change.
// Callbacks run with the session lock held and must not call back into the Session.
func (s *Session) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Begin tags a new recognition request with the current epoch.
func (s *Session) Begin() Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return Tag{Epoch: s.epoch, Seq: s.seq}
}

// Apply shows a recognition result and feeds it to the tracker.
// It returns the appended suffix, or applied=false if a clear happened after tag was issued.
func (s *Session) Apply(tag Tag, res *recognition.Result) (suffix string, applied bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tag.Epoch != s.epoch {
		s.logger.Debug("discarding stale result", "seq", tag.Seq, "epoch", tag.Epoch, "current", s.epoch)
		return "", false
	}

	s.label = res.Label
	s.errMsg = ""
	s.displays.SetLabel(res.Label)
	if res.Text != "" {
		s.text = res.Text
		s.displays.SetText(res.Text)
	}

	suffix, _ = s.tracker.Observe(res.Text)
	s.notifyLocked()
	return suffix, true
}

// Clear asks the service to reset the text. On success the displayed text
// and tracker are reset, the epoch advances and queued speech is cancelled.
func (s *Session) Clear(ctx context.Context) error {
	if _, err := s.svc.Clear(ctx); err != nil {
		s.logger.Warn("clear failed", "error", err)
		return err
	}

	s.mu.Lock()
	s.epoch++
	s.tracker.Reset()
	s.text = ""
	s.displays.SetText("")
	s.notifyLocked()
	s.mu.Unlock()

	if s.audio != nil {
		s.audio.CancelSpeech()
	}
	s.logger.Info("text cleared")
	return nil
}

// Flip toggles the preview mirror and reports it to the service.
// A failed report is logged and otherwise ignored.
func (s *Session) Flip(ctx context.Context) bool {
	mirrored := s.mirror.Toggle()
	if err := s.svc.Flip(ctx, mirrored); err != nil {
		s.logger.Debug("flip report failed", "error", err)
	}

	s.mu.Lock()
	s.notifyLocked()
	s.mu.Unlock()
	return mirrored
}

// AnnounceMirror reports the current mirror state to the service.
func (s *Session) AnnounceMirror(ctx context.Context) error {
	err := s.svc.Flip(ctx, s.mirror.Mirrored())
	if err != nil {
		s.logger.Debug("mirror announce failed", "error", err)
	}
	return err
}

// Mirrored returns the preview mirror state.
func (s *Session) Mirrored() bool {
	return s.mirror.Mirrored()
}

// CycleBackground advances to the next background color and returns it.
func (s *Session) CycleBackground() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.color = (s.color + 1) % len(s.colors)
	s.notifyLocked()
	return s.colors[s.color]
}

// SpeakCurrent reads the whole displayed text aloud, preempting queued cues.
func (s *Session) SpeakCurrent() {
	s.mu.Lock()
	text := s.text
	s.mu.Unlock()

	if strings.TrimSpace(text) == "" || s.audio == nil {
		return
	}
	s.audio.Speak(text, true)
}

// Activate enables audio feedback. It stands in for the first user interaction.
func (s *Session) Activate(ctx context.Context) {
	if s.audio != nil {
		s.audio.Activate(ctx)
	}
	s.mu.Lock()
	s.notifyLocked()
	s.mu.Unlock()
}

// Dispatch runs a named command.
func (s *Session) Dispatch(ctx context.Context, name string) error {
	switch name {
	case CommandClear:
		return s.Clear(ctx)
	case CommandFlip:
		s.Flip(ctx)
	case CommandColor:
		s.CycleBackground()
	case CommandSpeak:
		s.SpeakCurrent()
	case CommandActivate:
		s.Activate(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return nil
}

// ShowError shows a static error in place of the live label.
func (s *Session) ShowError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = msg
	s.displays.ShowError(msg)
	s.notifyLocked()
}

// ShowFrame passes a preview frame to the displays with the current mirror state.
func (s *Session) ShowFrame(frame camera.EncodedImage) {
	mirrored := s.mirror.Mirrored()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displays.ShowFrame(frame, mirrored)
}

// Text returns the displayed recognized text.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Snapshot returns a copy of the visible state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// AudioChanged republishes the snapshot after an audio readiness change.
func (s *Session) AudioChanged(feedback.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifyLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:         s.id,
		Label:      s.label,
		Text:       s.text,
		Error:      s.errMsg,
		Mirrored:   s.mirror.Mirrored(),
		Background: s.colors[s.color],
		Epoch:      s.epoch,
	}
	if s.audio != nil {
		snap.Audio = s.audio.State()
	}
	return snap
}

func (s *Session) notifyLocked() {
	if len(s.listeners) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, fn := range s.listeners {
		fn(snap)
	}
}
