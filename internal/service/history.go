package service

import (
	"context"

	"github.com/xiaot623/pagesmith/internal/domain"
)

// History returns the full conversation of a session, system seed included.
func (s *Service) History(ctx context.Context, sessionID string) ([]domain.Message, error) {
	if blank(sessionID) {
		return nil, domain.NewValidationError("session_id")
	}
	return s.store.History(ctx, sessionID)
}
