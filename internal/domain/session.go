package domain

import (
	"strings"
	"time"
)

// Message is a single role-tagged entry of a conversation.
// Messages are immutable once appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is a conversation context identified by an opaque client id.
type Session struct {
	SessionID      string    `json:"session_id"`
	Messages       []Message `json:"messages"`
	OriginalPrompt string    `json:"original_prompt,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// HasOriginalPrompt reports whether an enhancement cycle is pending.
func (s *Session) HasOriginalPrompt() bool {
	return s.OriginalPrompt != ""
}

// Clone returns a deep copy so callers never alias store-owned slices.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	return &c
}

// Document is a full HTML page. The zero value is the empty artifact.
type Document string

// Empty reports whether d holds no content.
func (d Document) Empty() bool {
	return strings.TrimSpace(string(d)) == ""
}

// String returns the document text.
func (d Document) String() string {
	return string(d)
}
