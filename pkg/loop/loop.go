// Package loop drives the fixed-cadence recognition cycle:
// capture a frame, submit it, diff the recognized text, cue audio, reschedule.
//
// At most one recognition request is in flight. The next cycle is scheduled
// only after the previous one has completed, so a slow service stretches the
// effective cadence instead of stacking requests.
package loop

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-spellcam/pkg/camera"
	"github.com/teslashibe/go-spellcam/pkg/recognition"
	"github.com/teslashibe/go-spellcam/pkg/session"
	"github.com/teslashibe/go-spellcam/pkg/transcript"
)

// DefaultInterval is the delay between the end of one cycle and the start of the next.
const DefaultInterval = 100 * time.Millisecond

// Recognizer submits one frame to the recognition service.
type Recognizer interface {
	Submit(ctx context.Context, frame camera.EncodedImage) (*recognition.Result, error)
}

// Notifier receives the audio cues for appended text.
type Notifier interface {
	PlayTone()
	Speak(text string, highPriority bool)
}

// State is the loop's position in the cycle.
type State int32

const (
	WaitingForFrame State = iota
	Submitting
	Idle
)

func (s State) String() string {
	switch s {
	case WaitingForFrame:
		return "waiting_for_frame"
	case Submitting:
		return "submitting"
	case Idle:
		return "idle"
	default:
		return "unknown"
	}
}

// Config configures the loop.
type Config struct {
	// Interval is the fixed delay between cycles.
	Interval time.Duration

	// Preview forwards every captured frame to the session displays.
	Preview bool
}

// DefaultConfig returns the default loop configuration.
func DefaultConfig() Config {
	return Config{Interval: DefaultInterval}
}

// Deps are the collaborators of a Loop. Audio may be nil.
type Deps struct {
	Source     camera.FrameSource
	Recognizer Recognizer
	Session    *session.Session
	Audio      Notifier
	Logger     *slog.Logger
}

// Stats counts cycle outcomes.
type Stats struct {
	Cycles    int64 `json:"cycles"`
	NotReady  int64 `json:"not_ready"`
	Submitted int64 `json:"submitted"`
	Failures  int64 `json:"failures"`
	Discarded int64 `json:"discarded"`
	Cues      int64 `json:"cues"`
}

// Loop is the recognition feedback loop.
type Loop struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger

	inFlight atomic.Bool
	state    atomic.Int32

	cycles, notReady, submitted, failures, discarded, cues atomic.Int64
}

// New creates a loop.
func New(deps Deps, cfg Config) (*Loop, error) {
	if deps.Source == nil || deps.Recognizer == nil || deps.Session == nil {
		return nil, errors.New("loop: source, recognizer and session are required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Loop{
		deps:   deps,
		cfg:    cfg,
		logger: deps.Logger.With("component", "loop"),
	}, nil
}

// State returns the current cycle state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Stats returns the outcome counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Cycles:    l.cycles.Load(),
		NotReady:  l.notReady.Load(),
		Submitted: l.submitted.Load(),
		Failures:  l.failures.Load(),
		Discarded: l.discarded.Load(),
		Cues:      l.cues.Load(),
	}
}

// Cycle runs one capture, submit, diff and notify pass and returns the resulting state.
// A call made while another cycle is in flight returns immediately.
func (l *Loop) Cycle(ctx context.Context) State {
	if !l.inFlight.CompareAndSwap(false, true) {
		return l.State()
	}
	defer l.inFlight.Store(false)
	l.cycles.Add(1)

	l.setState(WaitingForFrame)
	if !l.deps.Source.IsReady() {
		l.notReady.Add(1)
		return WaitingForFrame
	}
	frame, err := l.deps.Source.CaptureFrame()
	if err != nil {
		l.logger.Debug("capture failed", "error", err)
		return WaitingForFrame
	}
	if l.cfg.Preview {
		l.deps.Session.ShowFrame(frame)
	}

	l.setState(Submitting)
	tag := l.deps.Session.Begin()
	l.submitted.Add(1)
	res, err := l.deps.Recognizer.Submit(ctx, frame)
	if err != nil {
		// Failures count as "nothing changed".
		l.failures.Add(1)
		l.logger.Debug("recognition dropped", "seq", tag.Seq, "error", err)
		l.setState(Idle)
		return Idle
	}

	suffix, applied := l.deps.Session.Apply(tag, res)
	if !applied {
		l.discarded.Add(1)
	}
	if suffix != "" {
		l.cue(suffix)
	}

	l.setState(Idle)
	return Idle
}

// cue beeps for any growth and speaks only the last appended character.
func (l *Loop) cue(suffix string) {
	l.cues.Add(1)
	if l.deps.Audio == nil {
		return
	}
	l.deps.Audio.PlayTone()
	if ch := transcript.LastRune(suffix); strings.TrimSpace(ch) != "" {
		l.deps.Audio.Speak(ch, false)
	}
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
}

// Handle controls a running loop.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start runs cycles until ctx is cancelled or Stop is called.
// The first cycle runs immediately; each next one is scheduled Interval after the previous completes.
func (l *Loop) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		l.logger.Info("loop started", "interval", l.cfg.Interval)

		timer := time.NewTimer(0)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				l.logger.Info("loop stopped", "cycles", l.cycles.Load())
				return
			case <-timer.C:
				l.Cycle(ctx)
				timer.Reset(l.cfg.Interval)
			}
		}
	}()
	return h
}

// Stop cancels the loop and waits for the current cycle to finish.
func (h *Handle) Stop() {
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed when the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
