package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/depthkit/go-depthview/pkg/hub"
	"github.com/depthkit/go-depthview/pkg/viewer"
)

// controlEvents is the set of events accepted by the control endpoint.
// Save-cloud is included; it fires the same one-off save as the 'p' key.
var controlEvents = []viewer.Event{
	viewer.EventConfidenceUp,
	viewer.EventConfidenceDown,
	viewer.EventWindowUp,
	viewer.EventWindowDown,
	viewer.EventCycleTemporal,
	viewer.EventToggleSmoothing,
	viewer.EventSigmaSpatialUp,
	viewer.EventSigmaSpatialDown,
	viewer.EventSigmaRangeUp,
	viewer.EventSigmaRangeDown,
	viewer.EventToggleRecording,
	viewer.EventSaveCloud,
}

// handleStatus returns the full pipeline snapshot.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.pipeline.Status())
}

// handleSettings returns only the runtime settings.
func (s *Server) handleSettings(c *fiber.Ctx) error {
	return c.JSON(s.pipeline.Status().Settings)
}

// handleListEvents returns the accepted control event names.
func (s *Server) handleListEvents(c *fiber.Ctx) error {
	names := make([]string, len(controlEvents))
	for i, e := range controlEvents {
		names[i] = e.String()
	}
	return c.JSON(names)
}

// handleControl queues a named control event for the consumer loop.
func (s *Server) handleControl(c *fiber.Ctx) error {
	name := c.Params("event")

	e, err := viewer.ParseEvent(name)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if !s.pipeline.Enqueue(e) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "control queue full",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"event": e.String(),
	})
}

// handleStatusWS streams status snapshots over a websocket.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)

	// Send the current snapshot immediately so clients need not wait
	// for the next settings change.
	s.PublishStatus(s.pipeline.Status())

	client.Run() // Blocks until connection closes
}
