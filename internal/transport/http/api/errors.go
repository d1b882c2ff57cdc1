package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/pagesmith/internal/domain"
)

// respondError maps the error taxonomy onto status codes. Upstream model
// messages are passed through unchanged.
func (h *Handler) respondError(c echo.Context, err error) error {
	var ve *domain.ValidationError
	var me *domain.ModelError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: ve.Error()})
	case errors.Is(err, domain.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, domain.ErrorResponse{Error: "Chat history not found"})
	case errors.Is(err, domain.ErrFrameNotFound):
		return c.JSON(http.StatusNotFound, domain.ErrorResponse{Error: err.Error()})
	case errors.As(err, &me):
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: me.Message})
	default:
		h.logger.Sugar().Errorw("request failed", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: err.Error()})
	}
}
