// Package config provides configuration loading for go-spellcam commands.
//
// Values are resolved in order: defaults, YAML file, environment, flags.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultServer    = "http://localhost:5000"
	DefaultInterval  = 100 * time.Millisecond
	DefaultDashboard = ":8090"
	DefaultVoice     = "alloy"
)

// App holds all configuration for the spellcam client.
type App struct {
	// Server is the base URL of the recognition service.
	Server string `yaml:"server,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel,omitempty"`

	// Interval is the fixed feedback loop cadence.
	Interval time.Duration `yaml:"interval,omitempty"`

	// RequestTimeout bounds each recognition round trip.
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"`

	// Mirrored is the initial preview mirror state.
	Mirrored bool `yaml:"mirrored"`

	Camera    Camera    `yaml:"camera,omitempty"`
	Audio     Audio     `yaml:"audio,omitempty"`
	Speech    Speech    `yaml:"speech,omitempty"`
	Dashboard Dashboard `yaml:"dashboard,omitempty"`

	// TUI enables the terminal display surface.
	TUI bool `yaml:"tui,omitempty"`

	// AutoActivate activates audio at startup instead of waiting for a user interaction.
	AutoActivate bool `yaml:"autoActivate,omitempty"`
}

// Camera selects the capture device.
type Camera struct {
	Device  string `yaml:"device,omitempty"`
	Quality int    `yaml:"quality,omitempty"`
}

// Audio configures the output sinks.
type Audio struct {
	Backend    string `yaml:"backend,omitempty"`
	SampleRate int    `yaml:"sampleRate,omitempty"`
}

// Speech configures the speech synthesis provider.
type Speech struct {
	// Provider is "openai" or "none".
	Provider string `yaml:"provider,omitempty"`
	Voice    string `yaml:"voice,omitempty"`
	Model    string `yaml:"model,omitempty"`
	BaseURL  string `yaml:"baseUrl,omitempty"`
	APIKey   string `yaml:"-"`

	// Format is the synthesis response format, "pcm" or "opus".
	Format string `yaml:"format,omitempty"`

	// FallbackBaseURL adds a second OpenAI-compatible endpoint tried when the first fails.
	FallbackBaseURL string `yaml:"fallbackBaseUrl,omitempty"`
	FallbackAPIKey  string `yaml:"-"`
}

// Dashboard configures the web display surface.
type Dashboard struct {
	Listen   string `yaml:"listen,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// Default returns the default client configuration.
func Default() App {
	return App{
		Server:         DefaultServer,
		LogLevel:       "info",
		Interval:       DefaultInterval,
		RequestTimeout: 5 * time.Second,
		Mirrored:       true,
		Camera:         Camera{Device: "0", Quality: 70},
		Audio:          Audio{Backend: "auto", SampleRate: 24000},
		Speech:         Speech{Provider: "openai", Voice: DefaultVoice, Model: "tts-1", Format: "pcm"},
		Dashboard:      Dashboard{Listen: DefaultDashboard},
	}
}

// DefaultFile returns the default configuration file location.
func DefaultFile() string {
	if fn := os.Getenv("SPELLCAM_CONFIG"); fn != "" {
		return fn
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "spellcam.yaml"
	}
	return filepath.Join(dir, "spellcam", "config.yaml")
}

// LoadFrom decodes YAML onto c. Keys absent from the document keep their current value.
func (c *App) LoadFrom(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// LoadFile loads a YAML configuration file.
func (c *App) LoadFile(fn string, ignoreNotFound bool) error {
	f, err := os.Open(fn)
	if os.IsNotExist(err) && ignoreNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot open configuration file %q: %w", fn, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := c.LoadFrom(f); err != nil {
		return fmt.Errorf("cannot load configuration file %q: %w", fn, err)
	}
	return nil
}

// LoadEnv applies environment variable overrides.
func (c *App) LoadEnv() {
	if s := os.Getenv("SPELLCAM_SERVER"); s != "" {
		c.Server = s
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		c.LogLevel = lvl
	}
	c.Speech.APIKey = os.Getenv("OPENAI_API_KEY")
	c.Speech.FallbackAPIKey = os.Getenv("SPELLCAM_FALLBACK_API_KEY")
	if v := os.Getenv("SPELLCAM_VOICE"); v != "" {
		c.Speech.Voice = v
	}
}

// Overlay merges explicitly set values from flags over c.
// Zero values in flags are ignored.
func (c *App) Overlay(flags App) error {
	if err := mergo.Merge(c, flags, mergo.WithOverride); err != nil {
		return fmt.Errorf("cannot merge flags: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *App) Validate() error {
	if c.Server == "" {
		return &ConfigError{Field: "Server", Message: "recognition server URL is required"}
	}
	if c.Interval <= 0 {
		return &ConfigError{Field: "Interval", Message: fmt.Sprintf("interval must be positive, got %v", c.Interval)}
	}
	if c.Camera.Quality < 1 || c.Camera.Quality > 100 {
		return &ConfigError{Field: "Camera.Quality", Message: "camera quality must be between 1 and 100"}
	}
	switch c.Speech.Provider {
	case "openai", "none":
	default:
		return &ConfigError{Field: "Speech.Provider", Message: fmt.Sprintf("unknown speech provider %q", c.Speech.Provider)}
	}
	switch c.Speech.Format {
	case "pcm", "opus":
	default:
		return &ConfigError{Field: "Speech.Format", Message: fmt.Sprintf("unknown speech format %q", c.Speech.Format)}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
