// Package web serves the browser dashboard: live label and text, the camera
// preview, and buttons for the session commands.
package web

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-spellcam/pkg/camera"
	"github.com/teslashibe/go-spellcam/pkg/hub"
	"github.com/teslashibe/go-spellcam/pkg/session"
)

//go:embed index.html
var indexHTML string

const maxLogs = 200

// Commander is the session surface the dashboard drives.
type Commander interface {
	Dispatch(ctx context.Context, name string) error
	Snapshot() session.Snapshot
}

// Snapshotter returns a still of the current camera frame, flipped when mirrored.
type Snapshotter interface {
	Snapshot(mirrored bool) (camera.EncodedImage, error)
}

// LogEntry is one line in the dashboard activity log.
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, command, error
	Message string `json:"message"`
}

// Server is the web dashboard server.
type Server struct {
	app       *fiber.App
	commander Commander
	logger    *slog.Logger

	snapMu  sync.RWMutex
	snapper Snapshotter

	stateMu sync.RWMutex
	state   session.Snapshot

	logsMu sync.RWMutex
	logs   []LogEntry

	stateHub  *hub.Hub
	cameraHub *hub.Hub
	logHub    *hub.Hub
}

// NewServer creates the dashboard for commander.
func NewServer(commander Commander, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		commander: commander,
		logger:    logger.With("component", "web"),
		logs:      make([]LogEntry, 0, maxLogs),
		stateHub:  hub.New("state", hub.WithLogger(logger), hub.WithReplay()),
		cameraHub: hub.New("camera", hub.WithLogger(logger)),
		logHub:    hub.New("logs", hub.WithLogger(logger)),
	}
	if commander != nil {
		s.state = commander.Snapshot()
	}

	app := fiber.New(fiber.Config{
		AppName:               "spellcam",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Post("/commands/:name", s.handleCommand)
	api.Get("/logs", s.handleLogs)
	api.Get("/snapshot", s.handleSnapshot)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(s.handleWS(s.stateHub)))
	app.Get("/ws/camera", websocket.New(s.handleWS(s.cameraHub)))
	app.Get("/ws/logs", websocket.New(s.handleWS(s.logHub)))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve runs the hubs and serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.stateHub.Run(hubCtx)
	go s.cameraHub.Run(hubCtx)
	go s.logHub.Run(hubCtx)

	// Seed the replay slot so the first client sees the current state.
	s.broadcastState()

	errc := make(chan error, 1)
	go func() { errc <- s.app.Listener(ln) }()

	s.logger.Info("dashboard listening", "addr", ln.Addr().String())
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

// SetSnapshotter attaches the camera used by GET /api/snapshot.
func (s *Server) SetSnapshotter(snapper Snapshotter) {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	s.snapper = snapper
}

// Publish replaces the dashboard state and pushes it to clients.
// It is registered as a session change listener.
func (s *Server) Publish(snap session.Snapshot) {
	s.stateMu.Lock()
	s.state = snap
	s.stateMu.Unlock()
	s.broadcastState()
}

// SetLabel implements session.Display. The change reaches clients through Publish.
func (s *Server) SetLabel(label string) {
	s.stateMu.Lock()
	s.state.Label = label
	s.stateMu.Unlock()
}

// SetText implements session.Display.
func (s *Server) SetText(text string) {
	s.stateMu.Lock()
	s.state.Text = text
	s.stateMu.Unlock()
}

// ShowError implements session.Display.
func (s *Server) ShowError(msg string) {
	s.stateMu.Lock()
	s.state.Error = msg
	s.stateMu.Unlock()
	s.AddLog("error", msg)
}

// ShowFrame implements session.Display by pushing the JPEG to camera clients.
// The page applies the mirror transform itself.
func (s *Server) ShowFrame(frame camera.EncodedImage, mirrored bool) {
	if frame.Empty() || s.cameraHub.ClientCount() == 0 {
		return
	}
	s.cameraHub.BroadcastBinary(frame.Data)
}

// AddLog appends an activity entry and pushes it to log clients.
func (s *Server) AddLog(logType, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    logType,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.logHub.BroadcastJSON(entry)
}

// State returns the last published state.
func (s *Server) State() session.Snapshot {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Server) broadcastState() {
	if err := s.stateHub.BroadcastJSON(s.State()); err != nil {
		s.logger.Warn("encode state", "error", err)
	}
}

// Verify Server implements session.Display at compile time.
var _ session.Display = (*Server)(nil)
