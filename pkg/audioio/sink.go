package audioio

import (
	"context"
	"io"
)

// Sink plays audio to a speaker or other output device.
type Sink interface {
	// Start opens the device and begins playback of queued audio.
	Start(ctx context.Context) error

	// Stop halts playback. It is safe to call Stop multiple times.
	Stop() error

	// Write queues an audio chunk. Chunks at another rate or channel count are converted.
	// This may block if the queue is full.
	Write(ctx context.Context, chunk AudioChunk) error

	// Flush waits for all queued audio to be played.
	Flush(ctx context.Context) error

	// Clear discards all queued audio immediately.
	Clear() error

	// Config returns the current audio configuration.
	Config() Config

	// Name returns the backend name (e.g., "malgo", "mock").
	Name() string

	// Close releases all resources.
	// After Close, the sink cannot be restarted.
	io.Closer
}

// SinkStats contains statistics about the audio sink.
type SinkStats struct {
	// ChunksWritten is the total number of chunks written.
	ChunksWritten int64 `json:"chunks_written"`

	// SamplesWritten is the total number of samples written.
	SamplesWritten int64 `json:"samples_written"`

	// Clears is the number of Clear calls that discarded audio.
	Clears int64 `json:"clears"`

	// Running indicates if the sink is currently playing.
	Running bool `json:"running"`

	// Backend is the name of the audio backend.
	Backend string `json:"backend"`

	// BufferedSamples is the number of samples currently buffered.
	BufferedSamples int64 `json:"buffered_samples"`
}

// SinkWithStats extends Sink with statistics.
type SinkWithStats interface {
	Sink
	Stats() SinkStats
}

// conform converts a chunk to the sink's rate and channel count.
func conform(chunk AudioChunk, cfg Config) []int16 {
	samples := chunk.Samples
	channels := chunk.Channels
	if channels <= 0 {
		channels = 1
	}
	if chunk.SampleRate > 0 && chunk.SampleRate != cfg.SampleRate {
		samples = Resample(DownmixToMono(samples, channels), chunk.SampleRate, cfg.SampleRate)
		channels = 1
	}
	if channels != cfg.Channels {
		samples = UpmixFromMono(DownmixToMono(samples, channels), cfg.Channels)
	}
	return samples
}
