package api

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/xiaot623/pagesmith/internal/bridge"
	"github.com/xiaot623/pagesmith/internal/domain"
	"github.com/xiaot623/pagesmith/internal/htmldoc"
	"github.com/xiaot623/pagesmith/internal/logging"
)

// previewPolicy keeps the frame in an opaque origin so page scripts cannot
// reach the host.
const previewPolicy = "sandbox allow-scripts allow-forms allow-modals allow-popups"

// Preview opens a new frame for a document.
// POST /api/preview
func (h *Handler) Preview(c echo.Context) error {
	var req domain.PreviewRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}

	if !htmldoc.IsValid(req.HTMLContent) {
		return h.respondError(c, &domain.ValidationError{Field: "htmlContent", Reason: "not an HTML document"})
	}
	frame, err := h.channel.Open(req.SessionID, domain.Document(req.HTMLContent), req.HighlightPrompt)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, domain.PreviewResponse{
		FrameID: frame.ID,
		Token:   frame.Token,
		URL:     "/preview/" + frame.ID,
	})
}

// ServePreview serves an instrumented frame document.
// GET /preview/:frame_id
func (h *Handler) ServePreview(c echo.Context) error {
	frame, err := h.channel.Frame(c.Param("frame_id"))
	if err != nil {
		return h.respondError(c, err)
	}
	header := c.Response().Header()
	header.Set("Content-Security-Policy", previewPolicy)
	header.Set(echo.HeaderXContentTypeOptions, "nosniff")
	header.Set("Cache-Control", "no-store")
	return c.HTML(http.StatusOK, frame.Document.String())
}

// BridgeEvents accepts a message posted by a preview frame. Frames post with
// no-cors, so the body arrives as text/plain and is decoded here.
// POST /api/bridge/events
func (h *Handler) BridgeEvents(c echo.Context) error {
	var msg domain.BridgeMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&msg); err != nil {
		return h.respondError(c, &domain.ValidationError{Field: "body", Reason: "invalid bridge message"})
	}

	event, err := h.channel.Accept(c.Request().Header.Get(echo.HeaderOrigin), msg)
	if err != nil {
		if bridge.IsDropped(err) {
			return c.NoContent(http.StatusNoContent)
		}
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusAccepted, event)
}

// BridgeSocket streams a session's bridge events over a websocket.
// GET /api/bridge/ws?session_id=
func (h *Handler) BridgeSocket(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return h.respondError(c, domain.NewValidationError("session_id"))
	}

	ctx := c.Request().Context()
	sub, err := h.hub.Subscribe(ctx, sessionID)
	if err != nil {
		return h.respondError(c, err)
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.hub.Unsubscribe(sub)
		h.logger.Warn("websocket upgrade failed", logging.Session(sessionID), zap.Error(err))
		return nil
	}

	h.hub.Serve(ctx, ws, sub)
	return nil
}
