// Package stub is a development recognition service speaking the same
// protocol as the real one. Labels come from a pluggable Classifier; the
// stub owns the per-session commit rule that turns a stream of live labels
// into the cumulative captured text.
package stub

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-spellcam/pkg/recognition"
)

// DefaultStableFor is how long a label must hold before it is committed.
const DefaultStableFor = 2 * time.Second

// CookieName keys the per-user session.
const CookieName = "spellcam_session"

// Editing labels.
const (
	LabelSpace  = "space"
	LabelDelete = "del"
)

// Predictions reported instead of a label when a frame cannot be processed.
const (
	PredictionError   = "Error"
	PredictionNoModel = "Error: Model files not loaded"
)

// Config configures the stub server.
type Config struct {
	StableFor time.Duration
	Logger    *slog.Logger

	// Now is the clock; tests replace it.
	Now func() time.Time
}

// DefaultConfig returns the default stub configuration.
func DefaultConfig() Config {
	return Config{StableFor: DefaultStableFor, Now: time.Now}
}

// state is one user's recognition progress.
type state struct {
	letterStart time.Time
	stable      string
	text        string
	committed   bool
	flip        bool
}

// Server serves /video_feed, /clear_text and /flip_camera.
type Server struct {
	app        *fiber.App
	classifier Classifier
	cfg        Config
	logger     *slog.Logger

	mu       sync.Mutex
	sessions map[string]*state
}

// New creates a stub server. A nil classifier reports the missing-model error.
func New(classifier Classifier, cfg Config) *Server {
	if cfg.StableFor <= 0 {
		cfg.StableFor = DefaultStableFor
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		classifier: classifier,
		cfg:        cfg,
		logger:     cfg.Logger.With("component", "recognition.stub"),
		sessions:   make(map[string]*state),
	}

	app := fiber.New(fiber.Config{
		AppName:               "spellcam-stub",
		DisableStartupMessage: true,
		BodyLimit:             8 * 1024 * 1024,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
	})
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Post(recognition.PathVideoFeed, s.handleVideoFeed)
	app.Post(recognition.PathClearText, s.handleClearText)
	app.Post(recognition.PathFlipCamera, s.handleFlipCamera)

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- s.app.Listener(ln) }()

	s.logger.Info("recognition stub listening", "addr", ln.Addr().String(), "stable_for", s.cfg.StableFor)
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownErr := s.app.ShutdownWithTimeout(5 * time.Second)
		if err := <-errc; err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return shutdownErr
	}
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// session returns the caller's state, creating it and setting the cookie on first use.
// Callers hold s.mu.
func (s *Server) session(c *fiber.Ctx) *state {
	id := c.Cookies(CookieName)
	if st, ok := s.sessions[id]; ok && id != "" {
		return st
	}
	id = uuid.NewString()
	st := &state{letterStart: s.cfg.Now(), flip: true}
	s.sessions[id] = st
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HTTPOnly: true,
	})
	s.logger.Debug("session created", "session_id", id)
	return st
}

func (s *Server) handleVideoFeed(c *fiber.Ctx) error {
	s.mu.Lock()
	st := s.session(c)
	flip, text := st.flip, st.text
	s.mu.Unlock()

	if s.classifier == nil {
		return c.JSON(recognition.Result{Label: PredictionNoModel, Text: text})
	}

	var req recognition.FrameRequest
	if err := sonic.Unmarshal(c.Body(), &req); err != nil {
		s.logger.Warn("bad frame request", "error", err)
		return c.JSON(recognition.Result{Label: PredictionError, Text: text})
	}
	jpeg, err := decodeDataURL(req.Image)
	if err != nil {
		s.logger.Warn("bad frame image", "error", err)
		return c.JSON(recognition.Result{Label: PredictionError, Text: text})
	}

	label, err := s.classifier.Classify(c.UserContext(), Frame{JPEG: jpeg, Mirror: flip})
	if err != nil {
		s.logger.Warn("classify failed", "error", err)
		return c.JSON(recognition.Result{Label: PredictionError, Text: text})
	}

	s.mu.Lock()
	text = s.observe(st, label)
	s.mu.Unlock()

	return c.JSON(recognition.Result{Label: label, Text: text})
}

// observe applies the stable-label commit rule and returns the captured text.
// A label is committed once after it has held for longer than StableFor;
// it must change before it can commit again.
func (s *Server) observe(st *state, label string) string {
	now := s.cfg.Now()
	if label != st.stable {
		st.stable = label
		st.letterStart = now
		st.committed = false
		return st.text
	}
	if st.committed || now.Sub(st.letterStart) <= s.cfg.StableFor {
		return st.text
	}

	switch strings.ToLower(label) {
	case "":
	case LabelSpace:
		st.text += " "
	case LabelDelete:
		if r := []rune(st.text); len(r) > 0 {
			st.text = string(r[:len(r)-1])
		}
	default:
		st.text += label
	}
	st.committed = true
	s.logger.Debug("label committed", "label", label, "text", st.text)
	return st.text
}

func (s *Server) handleClearText(c *fiber.Ctx) error {
	s.mu.Lock()
	st := s.session(c)
	st.text = ""
	st.committed = false
	st.stable = ""
	st.letterStart = s.cfg.Now()
	s.mu.Unlock()

	return c.JSON(recognition.Status{Status: recognition.StatusSuccess})
}

func (s *Server) handleFlipCamera(c *fiber.Ctx) error {
	var req struct {
		Flip *bool `json:"flip"`
	}
	if len(c.Body()) > 0 {
		if err := sonic.Unmarshal(c.Body(), &req); err != nil {
			req.Flip = nil
		}
	}

	s.mu.Lock()
	st := s.session(c)
	if req.Flip != nil {
		st.flip = *req.Flip
	} else {
		st.flip = !st.flip
	}
	flipped := st.flip
	s.mu.Unlock()

	return c.JSON(fiber.Map{"status": recognition.StatusSuccess, "flipped": flipped})
}

// SessionCount returns the number of known sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

var errNotDataURL = errors.New("stub: image is not a base64 data URL")

func decodeDataURL(s string) ([]byte, error) {
	_, payload, ok := strings.Cut(s, ",")
	if !ok {
		return nil, errNotDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errNotDataURL
	}
	return data, nil
}
