package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/teslashibe/go-spellcam/internal/config"
	"github.com/teslashibe/go-spellcam/pkg/audioio"
	"github.com/teslashibe/go-spellcam/pkg/tts"
)

// speechServer answers /v1/audio/speech with body and records request formats.
type speechServer struct {
	*httptest.Server
	mu      sync.Mutex
	formats []string
}

func newSpeechServer(t *testing.T, status int, body []byte) *speechServer {
	t.Helper()
	s := &speechServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		switch {
		case strings.Contains(string(b), `"response_format":"opus"`):
			s.formats = append(s.formats, "opus")
		case strings.Contains(string(b), `"response_format":"pcm"`):
			s.formats = append(s.formats, "pcm")
		}
		s.mu.Unlock()
		w.WriteHeader(status)
		w.Write(body)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *speechServer) requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.formats...)
}

func testApp(speech func(*config.Speech)) *app {
	cfg := config.Default()
	cfg.Speech.APIKey = "sk-test"
	speech(&cfg.Speech)
	return newApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewProviderPCM(t *testing.T) {
	srv := newSpeechServer(t, http.StatusOK, audioio.SamplesToBytes([]int16{10, 20, 30, 40}))
	a := testApp(func(s *config.Speech) { s.BaseURL = srv.URL + "/v1" })

	p := a.newProvider()
	if p == nil {
		t.Fatal("expected a provider")
	}
	res, err := p.Synthesize(context.Background(), tts.Request{Text: "A", Voice: tts.VoiceAlloy})
	if err != nil {
		t.Fatal(err)
	}
	samples, err := tts.Decode(res, 24000)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 4 || samples[3] != 40 {
		t.Errorf("samples = %v", samples)
	}
	if got := srv.requests(); len(got) != 1 || got[0] != "pcm" {
		t.Errorf("formats = %v", got)
	}
}

func TestNewProviderOpus(t *testing.T) {
	srv := newSpeechServer(t, http.StatusOK, []byte("OggS-truncated"))
	a := testApp(func(s *config.Speech) {
		s.BaseURL = srv.URL + "/v1"
		s.Format = "opus"
	})

	p := a.newProvider()
	res, err := p.Synthesize(context.Background(), tts.Request{Text: "B", Voice: tts.VoiceAlloy})
	if err != nil {
		t.Fatal(err)
	}
	if res.Format.Encoding != tts.EncodingOpus {
		t.Errorf("encoding = %s", res.Format.Encoding)
	}
	if got := srv.requests(); len(got) != 1 || got[0] != "opus" {
		t.Errorf("formats = %v", got)
	}
	// The body is not a valid Ogg stream, so the opus decoder must reject it.
	if _, err := tts.Decode(res, 24000); err == nil {
		t.Error("expected opus decode error")
	}
}

func TestNewProviderFallback(t *testing.T) {
	primary := newSpeechServer(t, http.StatusInternalServerError, []byte(`{"error":{"message":"down"}}`))
	fallback := newSpeechServer(t, http.StatusOK, audioio.SamplesToBytes([]int16{1, 2}))
	a := testApp(func(s *config.Speech) {
		s.BaseURL = primary.URL + "/v1"
		s.FallbackBaseURL = fallback.URL + "/v1"
	})

	p := a.newProvider()
	if _, ok := p.(*tts.Chain); !ok {
		t.Fatalf("provider = %T, want *tts.Chain", p)
	}
	res, err := p.Synthesize(context.Background(), tts.Request{Text: "C", Voice: tts.VoiceAlloy})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Audio) != 4 {
		t.Errorf("audio = %v", res.Audio)
	}
	if len(primary.requests()) != 1 || len(fallback.requests()) != 1 {
		t.Errorf("primary = %v, fallback = %v", primary.requests(), fallback.requests())
	}
}

func TestNewProviderDisabled(t *testing.T) {
	tests := []struct {
		name   string
		speech func(*config.Speech)
	}{
		{"none", func(s *config.Speech) { s.Provider = "none" }},
		{"no key", func(s *config.Speech) { s.APIKey = "" }},
		{"bad format", func(s *config.Speech) { s.Format = "mp3" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if p := testApp(tt.speech).newProvider(); p != nil {
				t.Errorf("provider = %T, want nil", p)
			}
		})
	}
}
