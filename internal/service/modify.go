package service

import (
	"context"

	"github.com/xiaot623/pagesmith/internal/domain"
)

// Modify applies a change request to the current page. The model sees the
// conversation, the current page as the latest assistant turn and a
// targeted-change instruction. A response without a complete document
// leaves the page unchanged.
func (s *Service) Modify(ctx context.Context, req domain.ModifyRequest) (*domain.CodeResponse, error) {
	if blank(req.Prompt) {
		return nil, domain.NewValidationError("prompt")
	}
	if blank(req.CurrentCode) {
		return nil, domain.NewValidationError("currentCode")
	}
	if blank(req.SessionID) {
		return nil, domain.NewValidationError("session_id")
	}
	if err := s.admit(ctx, opModify, req.Prompt, req.CurrentCode); err != nil {
		return nil, err
	}

	unlock, err := s.locks.acquire(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.getOrCreate(ctx, req.SessionID, modificationSeed())
	if err != nil {
		return nil, err
	}

	current := domain.Document(req.CurrentCode)

	// The client's copy is ground truth. It only needs restating when it
	// differs from what the conversation already ends with, e.g. after an
	// import or on a fresh session.
	var turn []domain.Message
	if !endsWith(session.Messages, current) {
		turn = append(turn, domain.Message{Role: domain.RoleAssistant, Content: current.String()})
	}
	turn = append(turn, domain.Message{Role: domain.RoleUser, Content: domain.ModifyInstruction(req.Prompt)})

	conversation := append(session.Messages, turn...)
	raw, err := s.complete(ctx, opModify, s.modifyRequest(conversation))
	if err != nil {
		return nil, err
	}

	result := s.normalizer.Normalize(raw, current)
	s.recordNormalization(opModify, req.SessionID, result)

	turn = append(turn, domain.Message{Role: domain.RoleAssistant, Content: result.Document.String()})
	if err := s.store.Append(ctx, req.SessionID, turn...); err != nil {
		return nil, err
	}

	return s.codeResponse(ctx, req.SessionID, result.Document)
}

// endsWith reports whether the last assistant message is doc.
func endsWith(msgs []domain.Message, doc domain.Document) bool {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == domain.RoleAssistant {
			return msgs[i].Content == doc.String()
		}
	}
	return false
}
