// Package control exposes the session controller over HTTP.
package control

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"invisible-cloak/internal/core"
	"invisible-cloak/internal/recording"
	"invisible-cloak/internal/session"
)

// Server is the HTTP control surface.
type Server struct {
	app    *fiber.App
	addr   string
	ctrl   session.Controller
	logger logrus.FieldLogger
}

// NewServer creates a server that will listen on addr once started.
func NewServer(addr string, ctrl session.Controller, logger logrus.FieldLogger) *Server {
	s := &Server{
		addr:   addr,
		ctrl:   ctrl,
		logger: logger,
	}

	app := fiber.New(fiber.Config{
		AppName:               "Invisible Cloak",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(s.logRequests)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/cloak", s.handleSetCloak)
	api.Post("/cloak/toggle", s.handleToggleCloak)
	api.Get("/presets", s.handleListPresets)
	api.Post("/presets/:name", s.handleSelectPreset)
	api.Put("/range", s.handleSetRange)
	api.Post("/pick", s.handlePick)
	api.Post("/recording/start", s.handleStartRecording)
	api.Post("/recording/stop", s.handleStopRecording)
	api.Post("/background/recapture", s.handleRecapture)
	api.Get("/snapshot.jpg", s.handleSnapshotJPEG)
	api.Post("/snapshot", s.handleSaveSnapshot)

	s.app = app
	return s
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.addr).Info("HTTP control server listening")
	return s.app.Listen(s.addr)
}

// StartAsync runs Start in a goroutine and logs its failure.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.WithError(err).Error("HTTP control server stopped")
		}
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, session.ErrUnknownPreset):
		return fiber.StatusNotFound
	case errors.Is(err, session.ErrNoFrame),
		errors.Is(err, recording.ErrAlreadyRecording),
		errors.Is(err, recording.ErrNotRecording):
		return fiber.StatusConflict
	case errors.Is(err, session.ErrRecordingUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, core.ErrInvalidRange),
		errors.Is(err, core.ErrInvalidPoint):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", c.Path()).Error("Request failed")
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = statusFor(err)
	}
	s.logger.WithFields(logrus.Fields{
		"method":  c.Method(),
		"path":    c.Path(),
		"status":  status,
		"latency": time.Since(start),
	}).Debug("HTTP request")
	return err
}
