package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-spellcam/internal/config"
	"github.com/teslashibe/go-spellcam/internal/log"
	"github.com/teslashibe/go-spellcam/pkg/audioio"
	"github.com/teslashibe/go-spellcam/pkg/camera"
	"github.com/teslashibe/go-spellcam/pkg/camera/capture"
	"github.com/teslashibe/go-spellcam/pkg/feedback"
	"github.com/teslashibe/go-spellcam/pkg/loop"
	"github.com/teslashibe/go-spellcam/pkg/recognition"
	"github.com/teslashibe/go-spellcam/pkg/session"
	"github.com/teslashibe/go-spellcam/pkg/tts"
	"github.com/teslashibe/go-spellcam/pkg/tui"
	"github.com/teslashibe/go-spellcam/pkg/web"
)

// app owns the client's components and their lifetimes.
type app struct {
	cfg    config.App
	logger *slog.Logger

	client   *recognition.Client
	session  *session.Session
	audio    *feedback.Controller
	provider tts.Provider
	sinks    []audioio.Sink
	webcam   *capture.Webcam
	ui       *tui.UI

	dashMu sync.Mutex
	dash   *web.Server
}

func newApp(cfg config.App, logger *slog.Logger) *app {
	return &app{cfg: cfg, logger: log.Component(logger, "spellcam")}
}

// Run wires the components and blocks until ctx is cancelled or the terminal UI quits.
func (a *app) Run(ctx context.Context) error {
	a.client = recognition.NewClient(
		recognition.WithBaseURL(a.cfg.Server),
		recognition.WithTimeout(a.cfg.RequestTimeout),
		recognition.WithLogger(a.logger),
	)

	a.audio = a.newAudio()
	a.session = session.New(a.client, a.audio, session.Config{
		Mirrored: a.cfg.Mirrored,
		Logger:   a.logger,
	})
	a.audio.OnChange(a.session.AudioChanged)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errc := make(chan error, 2)

	if !a.cfg.Dashboard.Disabled {
		dash := web.NewServer(a.session, a.logger)
		a.session.AddDisplay(dash)
		a.session.OnChange(dash.Publish)
		a.dashMu.Lock()
		a.dash = dash
		a.dashMu.Unlock()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := dash.ListenAndServe(ctx, a.cfg.Dashboard.Listen); err != nil {
				errc <- err
			}
		}()
	}

	if a.cfg.TUI {
		a.ui = tui.New(ctx, a.session, a.logger)
		a.session.AddDisplay(a.ui)
		a.session.OnChange(a.ui.Publish)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.ui.Run(); err != nil {
				errc <- err
			}
			cancel()
		}()
	}

	if err := a.session.AnnounceMirror(ctx); err != nil {
		a.logger.Warn("recognition service did not accept mirror state", "error", err)
	}
	if a.cfg.AutoActivate {
		a.session.Activate(ctx)
	}

	webcam, err := capture.Open(camera.Config{
		Device:   a.cfg.Camera.Device,
		Quality:  a.cfg.Camera.Quality,
		Mirrored: a.cfg.Mirrored,
	}, a.logger)
	if err != nil {
		// The displays keep running so the error stays visible.
		a.logger.Error("camera unavailable", "error", err)
		a.session.ShowError(session.CameraUnavailable)
	} else {
		a.webcam = webcam
		if dash := a.dashboard(); dash != nil {
			dash.SetSnapshotter(webcam)
		}
		l, err := loop.New(loop.Deps{
			Source:     webcam,
			Recognizer: a.client,
			Session:    a.session,
			Audio:      a.audio,
			Logger:     a.logger,
		}, loop.Config{
			Interval: a.cfg.Interval,
			Preview:  !a.cfg.Dashboard.Disabled || a.cfg.TUI,
		})
		if err != nil {
			return err
		}
		h := l.Start(ctx)
		defer h.Stop()
	}

	a.logger.Info("spellcam running",
		"session_id", a.session.ID(),
		"server", a.cfg.Server,
		"dashboard", !a.cfg.Dashboard.Disabled,
		"tui", a.cfg.TUI,
	)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
		cancel()
	}
	wg.Wait()
	return runErr
}

// newAudio builds the feedback controller. Missing sinks or provider disable
// the matching channel rather than failing startup.
func (a *app) newAudio() *feedback.Controller {
	sinkCfg := audioio.DefaultConfig()
	sinkCfg.Backend = audioio.Backend(a.cfg.Audio.Backend)
	if a.cfg.Audio.SampleRate > 0 {
		sinkCfg.SampleRate = a.cfg.Audio.SampleRate
	}

	toneSink, err := audioio.NewSink(sinkCfg, a.logger)
	if err != nil {
		a.logger.Warn("tone disabled", "error", err)
		toneSink = nil
	} else {
		a.sinks = append(a.sinks, toneSink)
	}

	var speechSink audioio.Sink
	a.provider = a.newProvider()
	if a.provider != nil {
		speechSink, err = audioio.NewSink(sinkCfg, a.logger)
		if err != nil {
			a.logger.Warn("speech disabled", "error", err)
			speechSink = nil
		} else {
			a.sinks = append(a.sinks, speechSink)
		}
	}

	cfg := feedback.DefaultConfig()
	cfg.Voice = a.cfg.Speech.Voice
	cfg.Logger = a.logger
	cfg.OnError = func(err error) {
		if dash := a.dashboard(); dash != nil {
			dash.AddLog("error", err.Error())
		}
	}
	return feedback.New(a.provider, toneSink, speechSink, cfg)
}

// newProvider builds the speech provider: the primary OpenAI endpoint, and
// a chain onto the fallback endpoint when one is configured.
func (a *app) newProvider() tts.Provider {
	sp := a.cfg.Speech
	if sp.Provider == "none" {
		return nil
	}
	format, err := tts.ParseEncoding(sp.Format)
	if err != nil {
		a.logger.Warn("speech disabled", "error", err)
		return nil
	}

	primary, err := a.openAI(sp.BaseURL, sp.APIKey, format)
	if err != nil {
		if errors.Is(err, tts.ErrNoAPIKey) {
			a.logger.Warn("speech disabled: OPENAI_API_KEY not set")
		} else {
			a.logger.Warn("speech disabled", "error", err)
		}
		return nil
	}
	if sp.FallbackBaseURL == "" {
		return primary
	}

	key := sp.FallbackAPIKey
	if key == "" {
		key = sp.APIKey
	}
	fallback, err := a.openAI(sp.FallbackBaseURL, key, format)
	if err != nil {
		a.logger.Warn("speech fallback disabled", "url", sp.FallbackBaseURL, "error", err)
		return primary
	}
	chain, err := tts.NewChain(a.logger, primary, fallback)
	if err != nil {
		return primary
	}
	a.logger.Info("speech fallback configured", "url", sp.FallbackBaseURL)
	return chain
}

func (a *app) openAI(baseURL, key string, format tts.Encoding) (*tts.OpenAI, error) {
	opts := []tts.Option{
		tts.WithAPIKey(key),
		tts.WithOutputFormat(format),
		tts.WithLogger(a.logger),
	}
	if a.cfg.Speech.Voice != "" {
		opts = append(opts, tts.WithVoice(a.cfg.Speech.Voice))
	}
	if a.cfg.Speech.Model != "" {
		opts = append(opts, tts.WithModel(a.cfg.Speech.Model))
	}
	if baseURL != "" {
		opts = append(opts, tts.WithBaseURL(baseURL))
	}
	return tts.NewOpenAI(opts...)
}

func (a *app) dashboard() *web.Server {
	a.dashMu.Lock()
	defer a.dashMu.Unlock()
	return a.dash
}

// Shutdown releases devices in reverse order of acquisition.
func (a *app) Shutdown() {
	if a.webcam != nil {
		if err := a.webcam.Close(); err != nil {
			a.logger.Warn("close camera", "error", err)
		}
	}
	if a.audio != nil {
		if err := a.audio.Close(); err != nil {
			a.logger.Warn("close audio", "error", err)
		}
	}
	for _, s := range a.sinks {
		if err := s.Close(); err != nil {
			a.logger.Warn("close audio sink", "name", s.Name(), "error", err)
		}
	}
	if a.provider != nil {
		if err := a.provider.Close(); err != nil {
			a.logger.Warn("close speech provider", "error", err)
		}
	}
	a.logger.Info("spellcam stopped")
}
