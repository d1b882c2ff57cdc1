package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiaot623/pagesmith/internal/domain"
	"github.com/xiaot623/pagesmith/internal/logging"
)

// Generate produces a complete page from the session's conversation plus
// the new prompt. Unusable model output is wrapped into a skeleton page
// rather than reported as an error.
func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.CodeResponse, error) {
	if blank(req.Prompt) {
		return nil, domain.NewValidationError("prompt")
	}
	if blank(req.SessionID) {
		return nil, domain.NewValidationError("session_id")
	}
	if err := s.admit(ctx, opGenerate, req.Prompt, ""); err != nil {
		return nil, err
	}

	unlock, err := s.locks.acquire(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.getOrCreate(ctx, req.SessionID, generationSeed())
	if err != nil {
		return nil, err
	}

	content := req.Prompt
	if req.UsedEnhanced && session.HasOriginalPrompt() {
		content = combinedPrompt(session.OriginalPrompt, req.Prompt)
	}
	userMsg := domain.Message{Role: domain.RoleUser, Content: content}

	conversation := append(session.Messages, userMsg)
	raw, err := s.complete(ctx, opGenerate, s.generateRequest(conversation))
	if err != nil {
		return nil, err
	}

	result := s.normalizer.Normalize(raw, "")
	s.recordNormalization(opGenerate, req.SessionID, result)

	assistantMsg := domain.Message{Role: domain.RoleAssistant, Content: result.Document.String()}
	if err := s.store.Append(ctx, req.SessionID, userMsg, assistantMsg); err != nil {
		return nil, err
	}
	if err := s.store.ClearOriginalPrompt(ctx, req.SessionID); err != nil {
		s.logger.Warn("failed to clear original prompt", logging.Session(req.SessionID), zap.Error(err))
	}

	return s.codeResponse(ctx, req.SessionID, result.Document)
}

func (s *Service) codeResponse(ctx context.Context, sessionID string, doc domain.Document) (*domain.CodeResponse, error) {
	history, err := s.store.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &domain.CodeResponse{Code: doc.String(), ChatHistory: history}, nil
}
