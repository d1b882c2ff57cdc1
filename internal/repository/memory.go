package repository

import (
	"context"
	"sync"
	"time"

	"github.com/xiaot623/pagesmith/internal/domain"
)

// MemoryStore keeps sessions in process memory. Sessions live until the
// process exits.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
}

type memorySession struct {
	mu      sync.Mutex
	session domain.Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*memorySession)}
}

var _ Store = (*MemoryStore)(nil)

// GetOrCreate gets an existing session or creates a seeded one.
func (s *MemoryStore) GetOrCreate(ctx context.Context, sessionID string, seed domain.Message) (*domain.Session, bool, error) {
	s.mu.RLock()
	ms, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return ms.snapshot(), false, nil
	}

	s.mu.Lock()
	ms, ok = s.sessions[sessionID]
	if !ok {
		ms = &memorySession{session: domain.Session{
			SessionID: sessionID,
			Messages:  []domain.Message{{Role: domain.RoleSystem, Content: seed.Content}},
			CreatedAt: time.Now(),
		}}
		s.sessions[sessionID] = ms
	}
	s.mu.Unlock()
	return ms.snapshot(), !ok, nil
}

// Get returns a snapshot of a session.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	ms, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return ms.snapshot(), nil
}

// Append adds messages under the session's lock.
func (s *MemoryStore) Append(ctx context.Context, sessionID string, msgs ...domain.Message) error {
	if err := validateMessages(msgs); err != nil {
		return err
	}
	ms, err := s.lookup(sessionID)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	ms.session.Messages = append(ms.session.Messages, msgs...)
	ms.mu.Unlock()
	return nil
}

// SetOriginalPrompt overwrites the stored original prompt.
func (s *MemoryStore) SetOriginalPrompt(ctx context.Context, sessionID, prompt string) error {
	ms, err := s.lookup(sessionID)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	ms.session.OriginalPrompt = prompt
	ms.mu.Unlock()
	return nil
}

// ClearOriginalPrompt removes the stored original prompt.
func (s *MemoryStore) ClearOriginalPrompt(ctx context.Context, sessionID string) error {
	return s.SetOriginalPrompt(ctx, sessionID, "")
}

// History returns a copy of the conversation.
func (s *MemoryStore) History(ctx context.Context, sessionID string) ([]domain.Message, error) {
	ms, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return ms.snapshot().Messages, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) lookup(sessionID string) (*memorySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ms, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return ms, nil
}

func (ms *memorySession) snapshot() *domain.Session {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.session.Clone()
}
