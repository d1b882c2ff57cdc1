package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/pagesmith/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// A single connection also serializes writers, which SQLite needs anyway.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			original_prompt TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetOrCreate gets an existing session or creates a seeded one in a single transaction.
func (s *SQLiteStore) GetOrCreate(ctx context.Context, sessionID string, seed domain.Message) (*domain.Session, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (session_id, created_at) VALUES (?, ?)`,
		sessionID, time.Now())
	if err != nil {
		return nil, false, fmt.Errorf("failed to create session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	created := n == 1
	if created {
		if err := insertMessages(ctx, tx, sessionID, []domain.Message{{Role: domain.RoleSystem, Content: seed.Content}}); err != nil {
			return nil, false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit session: %w", err)
	}

	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	return session, created, nil
}

// Get retrieves a session and its messages.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, original_prompt, created_at FROM sessions WHERE session_id = ?`,
		sessionID).Scan(&session.SessionID, &session.OriginalPrompt, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	messages, err := s.messages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Messages = messages
	return &session, nil
}

// Append inserts messages in one transaction, preserving call order.
func (s *SQLiteStore) Append(ctx context.Context, sessionID string, msgs ...domain.Message) error {
	if err := validateMessages(msgs); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := sessionExists(ctx, tx, sessionID); err != nil {
		return err
	}
	if err := insertMessages(ctx, tx, sessionID, msgs); err != nil {
		return err
	}
	return tx.Commit()
}

// SetOriginalPrompt updates the stored original prompt.
func (s *SQLiteStore) SetOriginalPrompt(ctx context.Context, sessionID, prompt string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET original_prompt = ? WHERE session_id = ?`,
		prompt, sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// ClearOriginalPrompt resets the stored original prompt.
func (s *SQLiteStore) ClearOriginalPrompt(ctx context.Context, sessionID string) error {
	return s.SetOriginalPrompt(ctx, sessionID, "")
}

// History retrieves the ordered messages of a session.
func (s *SQLiteStore) History(ctx context.Context, sessionID string) ([]domain.Message, error) {
	if err := sessionExists(ctx, s.db, sessionID); err != nil {
		return nil, err
	}
	return s.messages(ctx, sessionID)
}

func (s *SQLiteStore) messages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM messages WHERE session_id = ? ORDER BY seq ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func sessionExists(ctx context.Context, q queryer, sessionID string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE session_id = ?`, sessionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrSessionNotFound
	}
	return err
}

func insertMessages(ctx context.Context, tx *sql.Tx, sessionID string, msgs []domain.Message) error {
	now := time.Now()
	for _, m := range msgs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (message_id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			"msg_"+uuid.New().String(), sessionID, string(m.Role), m.Content, now)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}
	return nil
}
