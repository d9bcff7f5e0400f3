package handler

import (
	"startup-hunter-be/internal/pkg/logger"
	"startup-hunter-be/internal/service"
	internalWS "startup-hunter-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ProgressHandler streams pipeline events of one session over websocket.
type ProgressHandler struct {
	service service.IPipelineService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewProgressHandler(service service.IPipelineService, hub *internalWS.Hub, log logger.ILogger) *ProgressHandler {
	return &ProgressHandler{
		service: service,
		hub:     hub,
		logger:  log,
	}
}

func (h *ProgressHandler) ServeWs(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if _, err := h.service.GetSession(c.UserContext(), sessionID); err != nil {
		return err
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("ProgressHandler", "Starting WebSocket session", map[string]interface{}{"session_id": sessionID})
			internalWS.ServeWs(h.hub, conn, sessionID)
			h.logger.Info("ProgressHandler", "WebSocket session ended", map[string]interface{}{"session_id": sessionID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *ProgressHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/sessions/:id", h.ServeWs)
}
