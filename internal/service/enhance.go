package service

import (
	"context"
	"strings"

	"github.com/xiaot623/pagesmith/internal/domain"
)

// EnhancePrompt expands a terse request into a detailed specification.
// The exchange is out of band: nothing is appended to the conversation, but
// the prompt is recorded as the session's original prompt so a following
// generate can frame both levels of intent.
func (s *Service) EnhancePrompt(ctx context.Context, req domain.EnhanceRequest) (*domain.EnhanceResponse, error) {
	if blank(req.Prompt) {
		return nil, domain.NewValidationError("prompt")
	}
	if blank(req.SessionID) {
		return nil, domain.NewValidationError("session_id")
	}
	if err := s.admit(ctx, opEnhance, req.Prompt, ""); err != nil {
		return nil, err
	}

	unlock, err := s.locks.acquire(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := s.getOrCreate(ctx, req.SessionID, generationSeed()); err != nil {
		return nil, err
	}
	if err := s.store.SetOriginalPrompt(ctx, req.SessionID, req.Prompt); err != nil {
		return nil, err
	}

	enhanced, err := s.complete(ctx, opEnhance, s.enhanceRequest(req.Prompt))
	if err != nil {
		return nil, err
	}

	return &domain.EnhanceResponse{
		OriginalPrompt: req.Prompt,
		EnhancedPrompt: strings.TrimSpace(enhanced),
	}, nil
}
