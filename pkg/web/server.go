// Package web provides an HTTP status and control surface for the
// running pipeline: JSON status endpoints, control event injection, and
// a websocket status stream.
package web

import (
	"log/slog"
	"net"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/depthkit/go-depthview/pkg/hub"
	"github.com/depthkit/go-depthview/pkg/viewer"
)

// Pipeline is the part of the viewer the server talks to.
type Pipeline interface {
	// Status returns the latest pipeline snapshot.
	Status() viewer.Status

	// Enqueue queues a control event for the consumer loop, reporting
	// whether it was accepted.
	Enqueue(e viewer.Event) bool
}

// Server is the pipeline status server.
type Server struct {
	app      *fiber.App
	addr     string
	pipeline Pipeline
	logger   *slog.Logger

	// Hub for websocket status broadcast
	statusHub *hub.Hub

	mu      sync.Mutex
	started bool
}

// NewServer creates a status server for the given pipeline.
func NewServer(addr string, pipeline Pipeline, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:      addr,
		pipeline:  pipeline,
		logger:    logger,
		statusHub: hub.New("status", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "depthview status",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/settings", s.handleSettings)
	api.Get("/events", s.handleListEvents)
	api.Post("/control/:event", s.handleControl)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	s.startHub()
	s.logger.Info("status server listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("status server", "error", err)
		}
	}()
}

// Serve serves on an existing listener. Used by tests to bind port 0.
func (s *Server) Serve(ln net.Listener) error {
	s.startHub()
	return s.app.Listener(ln)
}

func (s *Server) startHub() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.started = true
		go s.statusHub.Run()
	}
}

// PublishStatus broadcasts a status snapshot to websocket clients.
// Hook this to the viewer's status updates.
func (s *Server) PublishStatus(status viewer.Status) {
	s.statusHub.BroadcastJSON(status)
}

// App exposes the fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

// Shutdown gracefully stops the server and the status hub.
func (s *Server) Shutdown() error {
	s.statusHub.Stop()
	return s.app.Shutdown()
}
