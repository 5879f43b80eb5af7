// Package tts synthesizes spoken cues for the recognition feedback loop.
//
// Providers return complete audio buffers for short utterances (usually a
// single letter or the current recognized text). Decode converts a result
// into PCM16 samples at the rate of the playback sink.
//
//	provider, _ := tts.NewOpenAI(
//	    tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    tts.WithVoice(tts.VoiceAlloy),
//	)
//	defer provider.Close()
//
//	voices, _ := provider.Voices(ctx)
//	result, _ := provider.Synthesize(ctx, tts.Request{Text: "A", Voice: voices[0].ID})
//	samples, _ := tts.Decode(result, 24000)
package tts

import (
	"context"
	"fmt"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Voices enumerates the voices the provider can speak with.
	// An empty list is not an error; callers may retry later.
	Voices(ctx context.Context) ([]Voice, error)

	// Synthesize converts text to audio, returning the complete audio buffer.
	// Request.Voice must name one of the voices returned by Voices.
	Synthesize(ctx context.Context, req Request) (*AudioResult, error)

	// Close releases any resources held by the provider.
	Close() error
}

// Voice identifies a concrete voice.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
}

// Request is a single synthesis request.
type Request struct {
	Text  string
	Voice string
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data in the specified format.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// Voice is the voice that produced the audio.
	Voice string

	// CharCount is the number of characters synthesized.
	CharCount int

	// Latency is the round trip time of the synthesis request.
	Latency time.Duration
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
}

// Encoding represents audio encoding types.
type Encoding string

const (
	EncodingPCM24 Encoding = "pcm_24000" // 24kHz mono PCM16 little-endian
	EncodingOpus  Encoding = "opus"      // Ogg/Opus, 48kHz decode
)

// SampleRateFromEncoding returns the native sample rate of an encoding.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingPCM24:
		return 24000
	case EncodingOpus:
		return 48000
	default:
		return 24000
	}
}

// ParseEncoding maps a configured format name to an Encoding.
// An empty name selects PCM.
func ParseEncoding(name string) (Encoding, error) {
	switch name {
	case "", "pcm", string(EncodingPCM24):
		return EncodingPCM24, nil
	case string(EncodingOpus):
		return EncodingOpus, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// FindVoice returns the voice with the given ID or name.
func FindVoice(voices []Voice, want string) (Voice, bool) {
	for _, v := range voices {
		if v.ID == want || v.Name == want {
			return v, true
		}
	}
	return Voice{}, false
}
