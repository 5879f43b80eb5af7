package feedback

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/teslashibe/go-spellcam/pkg/audioio"
)

// ToneConfig describes the feedback beep.
type ToneConfig struct {
	Frequency  float64       // Hz
	Attack     time.Duration // linear ramp from silence to peak
	Duration   time.Duration // total length, decay ends here
	Amplitude  float64       // peak, 0.0-1.0
	SampleRate int
}

// DefaultToneConfig returns a 440 Hz, 100 ms pulse with a 10 ms attack.
func DefaultToneConfig() ToneConfig {
	return ToneConfig{
		Frequency:  440,
		Attack:     10 * time.Millisecond,
		Duration:   100 * time.Millisecond,
		Amplitude:  0.5,
		SampleRate: 24000,
	}
}

// ToneSamples renders a sine pulse with a linear attack and a linear decay to zero.
func ToneSamples(cfg ToneConfig) []int16 {
	total := int(float64(cfg.SampleRate) * cfg.Duration.Seconds())
	attack := int(float64(cfg.SampleRate) * cfg.Attack.Seconds())
	if total <= 0 {
		return nil
	}
	if attack > total {
		attack = total
	}

	out := make([]int16, total)
	peak := cfg.Amplitude * math.MaxInt16
	decay := total - attack
	for i := range out {
		var gain float64
		switch {
		case i < attack:
			gain = float64(i) / float64(attack)
		case decay > 0:
			gain = 1 - float64(i-attack)/float64(decay)
		}
		t := float64(i) / float64(cfg.SampleRate)
		out[i] = int16(peak * gain * math.Sin(2*math.Pi*cfg.Frequency*t))
	}
	return out
}

// Tone plays a precomputed pulse on its own sink.
type Tone struct {
	sink    audioio.Sink
	chunk   audioio.AudioChunk
	timeout time.Duration
	logger  *slog.Logger
}

// NewTone renders the pulse once for sink.
func NewTone(sink audioio.Sink, cfg ToneConfig, logger *slog.Logger) *Tone {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tone{
		sink:    sink,
		chunk:   audioio.NewChunk(ToneSamples(cfg), cfg.SampleRate),
		timeout: cfg.Duration * 5,
		logger:  logger.With("component", "feedback.tone"),
	}
}

// Play writes the pulse without waiting for it.
func (t *Tone) Play() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if err := t.sink.Write(ctx, t.chunk); err != nil {
			t.logger.Error("tone playback failed", "error", err)
		}
	}()
}

// Samples returns the rendered pulse.
func (t *Tone) Samples() []int16 {
	return t.chunk.Samples
}
