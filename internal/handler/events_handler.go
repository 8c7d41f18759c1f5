package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labreport-go-api/internal/middleware"
	"github.com/noah-isme/labreport-go-api/internal/service"
)

const eventsWriteTimeout = 10 * time.Second

// EventsHandler streams report lifecycle events over a websocket so open
// template views refresh without polling.
type EventsHandler struct {
	events service.EventService
	logger zerolog.Logger
}

// NewEventsHandler constructs the handler.
func NewEventsHandler(events service.EventService, logger zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		events: events,
		logger: logger.With().Str("component", "events_handler").Logger(),
	}
}

// Register binds the websocket upgrade route under the provided group.
// Connections are personal to a signed-in user, so the upgrade is gated
// on an authenticated identity.
func (h *EventsHandler) Register(router fiber.Router) {
	router.Use("/ws", middleware.WithAuth(func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, middleware.AuthOptions{RequireUser: true}))
	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *EventsHandler) handleConnection(conn *websocket.Conn) {
	templateID, err := uuid.Parse(strings.TrimSpace(conn.Query("template_id")))
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "template_id required"))
		_ = conn.Close()
		return
	}

	events, cancel := h.events.Subscribe(templateID)
	defer cancel()

	h.logger.Info().Str("template_id", templateID.String()).Msg("events websocket connected")
	defer h.logger.Info().Str("template_id", templateID.String()).Msg("events websocket disconnected")

	// Reads only serve to detect the peer closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
