package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const providerOpenAI = "openai"

// OpenAI voice options
const (
	VoiceAlloy   = "alloy"   // Neutral voice
	VoiceEcho    = "echo"    // Male voice
	VoiceFable   = "fable"   // British accent
	VoiceOnyx    = "onyx"    // Deep male voice
	VoiceNova    = "nova"    // Female voice
	VoiceShimmer = "shimmer" // Soft female voice
)

// OpenAI model options
const (
	ModelTTS1   = "tts-1"    // Standard quality, faster
	ModelTTS1HD = "tts-1-hd" // Higher quality, slower
)

var openAIVoices = []Voice{
	{ID: VoiceAlloy, Name: "Alloy", Language: "en"},
	{ID: VoiceEcho, Name: "Echo", Language: "en"},
	{ID: VoiceFable, Name: "Fable", Language: "en"},
	{ID: VoiceOnyx, Name: "Onyx", Language: "en"},
	{ID: VoiceNova, Name: "Nova", Language: "en"},
	{ID: VoiceShimmer, Name: "Shimmer", Language: "en"},
}

// OpenAI implements Provider using the OpenAI speech endpoint.
type OpenAI struct {
	config *Config
	client *openai.Client
	http   *http.Client
	logger *slog.Logger
}

// NewOpenAI creates a new OpenAI TTS provider.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = httpClient

	return &OpenAI{
		config: cfg,
		client: openai.NewClientWithConfig(clientCfg),
		http:   httpClient,
		logger: cfg.Logger.With("component", "tts.openai"),
	}, nil
}

// Voices returns the built-in OpenAI voices, preferred voice first.
func (o *OpenAI) Voices(ctx context.Context) ([]Voice, error) {
	voices := make([]Voice, 0, len(openAIVoices))
	if v, ok := FindVoice(openAIVoices, o.config.VoiceID); ok {
		voices = append(voices, v)
	}
	for _, v := range openAIVoices {
		if v.ID != o.config.VoiceID {
			voices = append(voices, v)
		}
	}
	return voices, nil
}

// Synthesize converts text to audio, returning the complete audio buffer.
func (o *OpenAI) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	if req.Text == "" {
		return nil, ErrEmptyText
	}
	if _, ok := FindVoice(openAIVoices, req.Voice); !ok {
		return nil, WrapError(providerOpenAI, fmt.Errorf("%w: %q", ErrNoVoice, req.Voice))
	}

	start := time.Now()
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.config.ModelID),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(req.Voice),
		ResponseFormat: o.responseFormat(),
		Speed:          o.config.Speed,
	})
	if err != nil {
		return nil, o.mapError(err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, WrapError(providerOpenAI, fmt.Errorf("read response: %w", err))
	}
	latency := time.Since(start)

	o.logger.Debug("synthesized audio",
		"chars", len(req.Text),
		"bytes", len(audio),
		"latency_ms", latency.Milliseconds(),
		"voice", req.Voice,
	)

	return &AudioResult{
		Audio: audio,
		Format: AudioFormat{
			Encoding:   o.config.OutputFormat,
			SampleRate: SampleRateFromEncoding(o.config.OutputFormat),
			Channels:   1,
		},
		Voice:     req.Voice,
		CharCount: len(req.Text),
		Latency:   latency,
	}, nil
}

// Close releases resources.
func (o *OpenAI) Close() error {
	o.http.CloseIdleConnections()
	return nil
}

// VoiceID returns the preferred voice.
func (o *OpenAI) VoiceID() string {
	return o.config.VoiceID
}

func (o *OpenAI) responseFormat() openai.SpeechResponseFormat {
	if o.config.OutputFormat == EncodingOpus {
		return openai.SpeechResponseFormatOpus
	}
	return openai.SpeechResponseFormatPcm
}

// mapError converts go-openai errors into APIError values.
func (o *OpenAI) mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if s, ok := apiErr.Code.(string); ok {
			code = s
		}
		return &APIError{
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Code:       code,
			Provider:   providerOpenAI,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := reqErr.HTTPStatus
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &APIError{
			StatusCode: reqErr.HTTPStatusCode,
			Message:    msg,
			Provider:   providerOpenAI,
		}
	}
	return WrapError(providerOpenAI, err)
}

// Verify OpenAI implements Provider at compile time.
var _ Provider = (*OpenAI)(nil)
