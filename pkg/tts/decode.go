package tts

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/teslashibe/go-spellcam/pkg/audioio"
	"gopkg.in/hraban/opus.v2"
)

// opusFrameSamples holds 120ms at 48kHz, the largest Opus frame.
const opusFrameSamples = 5760

// Decode converts a synthesis result to mono PCM16 samples at targetRate.
func Decode(result *AudioResult, targetRate int) ([]int16, error) {
	if result == nil || len(result.Audio) == 0 {
		return nil, nil
	}

	var (
		samples []int16
		rate    int
		err     error
	)

	switch result.Format.Encoding {
	case EncodingPCM24:
		samples = audioio.BytesToSamples(result.Audio)
		rate = result.Format.SampleRate
	case EncodingOpus:
		samples, err = decodeOggOpus(result.Audio)
		rate = 48000
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, result.Format.Encoding)
	}
	if err != nil {
		return nil, err
	}

	if rate == 0 {
		rate = SampleRateFromEncoding(result.Format.Encoding)
	}
	if channels := result.Format.Channels; channels > 1 {
		samples = audioio.DownmixToMono(samples, channels)
	}
	if targetRate > 0 && rate != targetRate {
		samples = audioio.Resample(samples, rate, targetRate)
	}
	return samples, nil
}

// decodeOggOpus decodes a mono Ogg/Opus stream to 48kHz PCM16.
func decodeOggOpus(data []byte) ([]int16, error) {
	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("tts: open opus stream: %w", err)
	}
	defer stream.Close()

	var out []int16
	buf := make([]int16, opusFrameSamples)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("tts: decode opus: %w", err)
		}
	}
}
