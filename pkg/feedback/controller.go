// Package feedback owns the two audio channels that accompany recognition:
// a short tone and spoken cues.
//
// Both channels start silent. Activate, called on the first user
// interaction, opens the tone channel and the speech channel once a voice
// is known. Voice enumeration may complete later; a background poll calling
// VoicesChanged and a lazy retry inside Speak cover that case. Readiness
// never reverts.
package feedback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-spellcam/pkg/audioio"
	"github.com/teslashibe/go-spellcam/pkg/tts"
)

// Config configures a Controller.
type Config struct {
	// Voice is the preferred voice ID or name. The first enumerated
	// voice is used when it is empty or unknown.
	Voice string

	Tone ToneConfig

	// EnumerateTimeout bounds each voice enumeration call.
	EnumerateTimeout time.Duration

	// VoicePoll re-enumerates voices at this period after activation until
	// one is found. Zero disables polling.
	VoicePoll time.Duration

	// OnError receives audio errors other than ErrInterrupted.
	OnError func(error)

	Logger *slog.Logger
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		Tone:             DefaultToneConfig(),
		EnumerateTimeout: 5 * time.Second,
		VoicePoll:        2 * time.Second,
	}
}

// State is a snapshot of channel readiness.
type State struct {
	Activated   bool   `json:"activated"`
	ToneReady   bool   `json:"tone_ready"`
	SpeechReady bool   `json:"speech_ready"`
	Voice       string `json:"voice,omitempty"`
	Pending     int    `json:"pending"`
}

// Controller coordinates the tone and speech channels.
type Controller struct {
	cfg      Config
	provider tts.Provider
	toneSink audioio.Sink
	spSink   audioio.Sink
	tone     *Tone
	speech   *SpeechQueue
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	activated   bool
	toneReady   bool
	speechReady bool
	speechOpen  bool
	voice       *tts.Voice
	listeners   []func(State)
}

// New creates a controller. A nil provider or speech sink disables speech;
// a nil tone sink disables the tone.
func New(provider tts.Provider, toneSink, speechSink audioio.Sink, cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.EnumerateTimeout <= 0 {
		cfg.EnumerateTimeout = DefaultConfig().EnumerateTimeout
	}
	if cfg.Tone.SampleRate == 0 {
		cfg.Tone = DefaultToneConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:      cfg,
		provider: provider,
		toneSink: toneSink,
		logger:   cfg.Logger.With("component", "feedback.controller"),
		ctx:      ctx,
		cancel:   cancel,
	}
	if toneSink != nil {
		if toneSink.Config().SampleRate > 0 {
			c.cfg.Tone.SampleRate = toneSink.Config().SampleRate
		}
		c.tone = NewTone(toneSink, c.cfg.Tone, cfg.Logger)
	}
	if provider != nil && speechSink != nil {
		c.spSink = speechSink
		c.speech = NewSpeechQueue(provider, speechSink, cfg.Logger, c.utteranceFailed)
	}
	return c
}

// Activate opens the audio channels. It is idempotent.
func (c *Controller) Activate(ctx context.Context) {
	c.mu.Lock()
	first := !c.activated
	c.activated = true
	c.mu.Unlock()

	if first {
		c.logger.Info("audio activated")
		if c.tone != nil {
			if err := c.toneSink.Start(ctx); err != nil {
				c.reportError(err)
			} else {
				c.setReady(func() { c.toneReady = true })
			}
		}
		if c.speech != nil {
			if err := c.spSink.Start(ctx); err != nil {
				c.reportError(err)
			} else {
				c.setReady(func() { c.speechOpen = true })
			}
		}
	}
	if c.resolveVoice(ctx) == nil && first && c.speech != nil && c.cfg.VoicePoll > 0 {
		go c.pollVoices()
	}
}

// pollVoices calls VoicesChanged until a voice is pinned or the controller closes.
func (c *Controller) pollVoices() {
	ticker := time.NewTicker(c.cfg.VoicePoll)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.EnumerateTimeout)
		c.VoicesChanged(ctx)
		cancel()

		c.mu.Lock()
		found := c.voice != nil
		c.mu.Unlock()
		if found {
			return
		}
	}
}

// VoicesChanged re-enumerates voices, as when the platform list becomes available.
func (c *Controller) VoicesChanged(ctx context.Context) {
	c.resolveVoice(ctx)
}

// PlayTone fires the beep. It is a no-op until the tone channel is ready.
func (c *Controller) PlayTone() {
	c.mu.Lock()
	ready := c.toneReady
	c.mu.Unlock()
	if !ready {
		return
	}
	c.tone.Play()
}

// Speak queues text for speech with an explicitly chosen voice.
// A high priority call cancels queued and playing speech first.
// It is a no-op before activation or when no voice is available.
func (c *Controller) Speak(text string, highPriority bool) {
	if text == "" {
		return
	}
	c.mu.Lock()
	open, voice := c.speechOpen, c.voice
	c.mu.Unlock()
	if !open {
		return
	}

	if voice == nil {
		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.EnumerateTimeout)
		voice = c.resolveVoice(ctx)
		cancel()
		if voice == nil {
			c.logger.Error("cannot speak", "error", ErrNoVoice)
			return
		}
	}

	if highPriority {
		c.speech.Cancel()
	}
	if err := c.speech.Enqueue(Utterance{Text: text, Voice: *voice}); err != nil {
		c.reportError(err)
	}
}

// CancelSpeech drops queued and playing speech.
func (c *Controller) CancelSpeech() {
	if c.speech != nil {
		c.speech.Cancel()
	}
}

// State returns the current readiness snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// OnChange registers a callback invoked whenever readiness changes.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Close stops speech and releases the sinks' playback.
func (c *Controller) Close() error {
	c.cancel()
	var err error
	if c.speech != nil {
		err = c.speech.Close()
	}
	return err
}

func (c *Controller) stateLocked() State {
	s := State{
		Activated:   c.activated,
		ToneReady:   c.toneReady,
		SpeechReady: c.speechReady,
	}
	if c.voice != nil {
		s.Voice = c.voice.ID
	}
	if c.speech != nil {
		s.Pending = c.speech.Pending()
	}
	return s
}

// resolveVoice enumerates voices if none is pinned yet and returns the pinned voice.
func (c *Controller) resolveVoice(ctx context.Context) *tts.Voice {
	if c.provider == nil {
		return nil
	}
	c.mu.Lock()
	voice := c.voice
	c.mu.Unlock()

	if voice == nil {
		voices, err := c.provider.Voices(ctx)
		if err != nil {
			c.reportError(err)
			return nil
		}
		if len(voices) == 0 {
			c.logger.Debug("no voices yet")
			return nil
		}
		chosen, ok := tts.FindVoice(voices, c.cfg.Voice)
		if !ok {
			chosen = voices[0]
		}
		voice = &chosen
		c.logger.Info("voice selected", "voice", chosen.ID, "available", len(voices))
	}

	c.setReady(func() {
		if c.voice == nil {
			c.voice = voice
		}
		voice = c.voice
		if c.speechOpen {
			c.speechReady = true
		}
	})
	return voice
}

// setReady applies fn under the lock and notifies listeners when the state changed.
func (c *Controller) setReady(fn func()) {
	c.mu.Lock()
	before := c.stateLocked()
	fn()
	after := c.stateLocked()
	listeners := append([]func(State){}, c.listeners...)
	c.mu.Unlock()

	if before == after {
		return
	}
	for _, l := range listeners {
		l(after)
	}
}

func (c *Controller) utteranceFailed(u Utterance, err error) {
	if errors.Is(err, ErrInterrupted) {
		c.logger.Debug("utterance interrupted", "text", u.Text)
		return
	}
	c.reportError(err)
}

func (c *Controller) reportError(err error) {
	c.logger.Error("audio feedback error", "error", err)
	if c.cfg.OnError != nil {
		c.cfg.OnError(err)
	}
}
