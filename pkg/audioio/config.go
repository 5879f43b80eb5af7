// Package audioio provides audio output sinks for the feedback channels.
//
// Backends:
//   - malgo (miniaudio) - real playback on Linux, macOS and Windows
//   - mock - CI/testing without hardware
//
// The backend is selected via configuration; "auto" picks malgo.
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendAuto selects the best available backend.
	BackendAuto Backend = "auto"
	// BackendMalgo plays through miniaudio.
	BackendMalgo Backend = "malgo"
	// BackendMock discards audio but records it for tests.
	BackendMock Backend = "mock"
)

// Config holds audio configuration.
type Config struct {
	// Backend specifies which audio backend to use.
	// Default: "auto"
	Backend Backend `yaml:"backend" json:"backend"`

	// SampleRate is the audio sample rate in Hz.
	// Default: 24000 (the PCM rate of the speech provider)
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// Channels is the number of audio channels.
	// Default: 1 (mono)
	Channels int `yaml:"channels" json:"channels"`

	// BufferDuration is the device period size.
	// Default: 20ms
	BufferDuration time.Duration `yaml:"buffer_duration" json:"buffer_duration"`

	// MaxBuffered bounds queued audio; writes beyond it block until played.
	// Default: 10s
	MaxBuffered time.Duration `yaml:"max_buffered" json:"max_buffered"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendAuto,
		SampleRate:     24000,
		Channels:       1,
		BufferDuration: 20 * time.Millisecond,
		MaxBuffered:    10 * time.Second,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.BufferDuration <= 0 {
		return fmt.Errorf("buffer_duration must be positive, got %v", c.BufferDuration)
	}
	return nil
}

// BufferSize returns the number of frames per device period.
func (c *Config) BufferSize() int {
	return int(float64(c.SampleRate) * c.BufferDuration.Seconds())
}

// MaxBufferedSamples returns the queue bound in interleaved samples.
func (c *Config) MaxBufferedSamples() int {
	d := c.MaxBuffered
	if d <= 0 {
		d = 10 * time.Second
	}
	return int(float64(c.SampleRate)*d.Seconds()) * c.Channels
}
