// Package repository defines the conversation store and its backings.
package repository

import (
	"context"
	"fmt"

	"github.com/xiaot623/pagesmith/internal/domain"
)

// Store holds one append-only conversation per session.
//
// Implementations keep at most one session per id, never reset an existing
// session, and apply the messages of a single Append atomically and in order.
// Appends to different sessions may interleave freely.
type Store interface {
	// GetOrCreate returns the session for id, creating it seeded with the
	// given system message if it does not exist. created reports which.
	GetOrCreate(ctx context.Context, sessionID string, seed domain.Message) (session *domain.Session, created bool, err error)

	// Get returns a snapshot of the session or domain.ErrSessionNotFound.
	Get(ctx context.Context, sessionID string) (*domain.Session, error)

	// Append adds messages to the end of the conversation.
	Append(ctx context.Context, sessionID string, msgs ...domain.Message) error

	// SetOriginalPrompt records the prompt of the latest enhancement cycle.
	SetOriginalPrompt(ctx context.Context, sessionID, prompt string) error

	// ClearOriginalPrompt marks the enhancement cycle as consumed.
	ClearOriginalPrompt(ctx context.Context, sessionID string) error

	// History returns the ordered conversation or domain.ErrSessionNotFound.
	History(ctx context.Context, sessionID string) ([]domain.Message, error)

	// Close releases the backing resources.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Open returns the store selected by driver.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return NewSQLiteStore(dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func validateMessages(msgs []domain.Message) error {
	for _, m := range msgs {
		if !m.Role.Valid() {
			return fmt.Errorf("invalid message role %q", m.Role)
		}
	}
	return nil
}
