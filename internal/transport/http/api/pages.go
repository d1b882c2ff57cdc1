package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/pagesmith/internal/domain"
	"github.com/xiaot623/pagesmith/internal/service"
)

// bind decodes and validates the request body into req.
func (h *Handler) bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return &domain.ValidationError{Field: "body", Reason: "invalid request body"}
	}
	return c.Validate(req)
}

// EnhancePrompt expands a brief request.
// POST /api/enhance-prompt
func (h *Handler) EnhancePrompt(c echo.Context) error {
	var req domain.EnhanceRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}

	resp, err := h.service.EnhancePrompt(c.Request().Context(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Generate produces a page from the conversation.
// POST /api/generate
func (h *Handler) Generate(c echo.Context) error {
	var req domain.GenerateRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}

	resp, err := h.service.Generate(c.Request().Context(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Modify applies a change request to the current page.
// POST /api/modify
func (h *Handler) Modify(c echo.Context) error {
	var req domain.ModifyRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}

	resp, err := h.service.Modify(c.Request().Context(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// History returns a session's conversation.
// GET /api/history/:session_id
func (h *Handler) History(c echo.Context) error {
	history, err := h.service.History(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, domain.HistoryResponse{ChatHistory: history})
}

// ExportHTML returns the page as a download.
// POST /api/export-html
func (h *Handler) ExportHTML(c echo.Context) error {
	var req domain.ExportRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}

	body, err := h.service.Export(c.Request().Context(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+service.ExportFilename)
	return c.Blob(http.StatusOK, echo.MIMETextHTML, body)
}

// Deploy simulates publishing the page.
// POST /api/deploy
func (h *Handler) Deploy(c echo.Context) error {
	var req domain.DeployRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}

	resp, err := h.service.Deploy(c.Request().Context(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
