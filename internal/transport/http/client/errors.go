package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/xiaot623/pagesmith/internal/domain"
)

// decodeError maps an error response back onto the domain error taxonomy so
// callers handle remote and in-process failures alike.
func decodeError(status int, body []byte) error {
	var resp domain.ErrorResponse
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		message = resp.Error
	}

	switch status {
	case http.StatusBadRequest:
		return validationError(message)
	case http.StatusNotFound:
		if strings.Contains(message, "preview frame") {
			return domain.ErrFrameNotFound
		}
		return domain.ErrSessionNotFound
	case http.StatusInternalServerError:
		return &domain.ModelError{Message: message}
	default:
		return fmt.Errorf("page service error [%d]: %s", status, message)
	}
}

// validationError recovers the field from "field is required" or
// "field: reason".
func validationError(message string) *domain.ValidationError {
	if field, ok := strings.CutSuffix(message, " is required"); ok {
		return domain.NewValidationError(field)
	}
	if field, reason, ok := strings.Cut(message, ": "); ok {
		return &domain.ValidationError{Field: field, Reason: reason}
	}
	return &domain.ValidationError{Field: "request", Reason: message}
}
