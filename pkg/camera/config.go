// Package camera defines the frame source contract used by the feedback loop
// and the runtime-toggleable preview mirror state.
package camera

import "fmt"

// Default capture parameters.
const (
	// DefaultQuality is the JPEG quality factor used for recognition payloads.
	// It bounds payload size while keeping hand shapes legible.
	DefaultQuality = 70

	// DefaultDevice is the first video device on the host.
	DefaultDevice = "0"
)

// Config holds capture configuration.
type Config struct {
	// Device is a device index ("0") or a capture URL/path.
	Device string `json:"device" yaml:"device"`

	// Quality is the JPEG quality 1-100.
	Quality int `json:"quality" yaml:"quality"`

	// Mirrored is the initial preview mirror state.
	// It is a display transform only; payloads are never mirrored.
	Mirrored bool `json:"mirrored" yaml:"mirrored"`
}

// DefaultConfig returns the default capture configuration.
func DefaultConfig() Config {
	return Config{
		Device:   DefaultDevice,
		Quality:  DefaultQuality,
		Mirrored: true,
	}
}

// Validate checks that the config values are within valid ranges.
func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("camera: device is required")
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("camera: quality must be between 1 and 100, got %d", c.Quality)
	}
	return nil
}
