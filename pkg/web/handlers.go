package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-spellcam/pkg/camera"
	"github.com/teslashibe/go-spellcam/pkg/hub"
	"github.com/teslashibe/go-spellcam/pkg/session"
)

// handleIndex serves the dashboard page.
func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.SendString(indexHTML)
}

// handleState returns the current session state.
func (s *Server) handleState(c *fiber.Ctx) error {
	if s.commander != nil {
		return c.JSON(s.commander.Snapshot())
	}
	return c.JSON(s.State())
}

// handleCommand runs a session command by name.
func (s *Server) handleCommand(c *fiber.Ctx) error {
	name := c.Params("name")
	if s.commander == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no session",
		})
	}

	err := s.commander.Dispatch(c.UserContext(), name)
	switch {
	case errors.Is(err, session.ErrUnknownCommand):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	case err != nil:
		s.AddLog("error", name+": "+err.Error())
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"command": name,
			"error":   err.Error(),
		})
	}

	s.AddLog("command", name)
	return c.JSON(fiber.Map{
		"command": name,
		"state":   s.commander.Snapshot(),
	})
}

// handleSnapshot returns the current frame as the user sees it in the preview.
func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	s.snapMu.RLock()
	snapper := s.snapper
	s.snapMu.RUnlock()
	if snapper == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no camera",
		})
	}

	mirrored := s.State().Mirrored
	if s.commander != nil {
		mirrored = s.commander.Snapshot().Mirrored
	}
	img, err := snapper.Snapshot(mirrored)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, camera.ErrNotReady) {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set(fiber.HeaderContentType, img.MimeType)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(img.Data)
}

// handleLogs returns recent activity entries.
func (s *Server) handleLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return c.JSON(s.logs)
}

// handleWS attaches a websocket connection to h until it closes.
func (s *Server) handleWS(h *hub.Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		hub.NewClient(h, conn).Run()
	}
}
