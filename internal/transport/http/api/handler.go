// Package api provides the HTTP handlers of the page service.
package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/xiaot623/pagesmith/internal/bridge"
	"github.com/xiaot623/pagesmith/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	channel  *bridge.Channel
	hub      *bridge.Hub
	logger   *zap.Logger
	version  string
	upgrader websocket.Upgrader
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, channel *bridge.Channel, hub *bridge.Hub, logger *zap.Logger, version string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service: svc,
		channel: channel,
		hub:     hub,
		logger:  logger.Named("api"),
		version: version,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Subscribers are local tools such as the watch command.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")

	// Conversation turns
	api.POST("/enhance-prompt", h.EnhancePrompt)
	api.POST("/generate", h.Generate)
	api.POST("/modify", h.Modify)
	api.GET("/history/:session_id", h.History)

	// Page delivery
	api.POST("/export-html", h.ExportHTML)
	api.POST("/deploy", h.Deploy)

	// Preview bridge
	api.POST("/preview", h.Preview)
	api.POST("/bridge/events", h.BridgeEvents)
	api.GET("/bridge/ws", h.BridgeSocket)
	e.GET("/preview/:frame_id", h.ServePreview)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": h.version,
	})
}
