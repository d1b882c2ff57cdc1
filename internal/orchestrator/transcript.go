package orchestrator

import (
	"strings"

	"github.com/xiaot623/pagesmith/internal/domain"
)

// Status lines shown while a call is outstanding or after a local action.
const (
	modifyingStatus = "Making targeted changes to your web page..."
	deployStatus    = "This is a UI demo - no actual deployment occurred. In a production version, the site would be deployed to:"
)

// Entry is one transcript line. Local entries exist only on the client and
// are not part of the server conversation.
type Entry struct {
	Role    domain.Role
	Content string
	Local   bool
}

// DisplayState classifies a transcript line for rendering.
type DisplayState string

const (
	DisplayPrompt     DisplayState = "prompt"
	DisplayReady      DisplayState = "ready"
	DisplayError      DisplayState = "error"
	DisplayGenerating DisplayState = "generating"
	DisplayStatus     DisplayState = "status"
)

// Line is a transcript entry prepared for display.
type Line struct {
	Role  domain.Role
	Text  string
	State DisplayState
}

func fromHistory(history []domain.Message) []Entry {
	entries := make([]Entry, len(history))
	for i, m := range history {
		entries[i] = Entry{Role: m.Role, Content: m.Content}
	}
	return entries
}

// Display hides the conversation's system messages and replaces page
// bodies with a short label.
func Display(entries []Entry) []Line {
	lines := make([]Line, 0, len(entries))
	for _, e := range entries {
		switch e.Role {
		case domain.RoleSystem:
			if !e.Local {
				continue
			}
			lines = append(lines, Line{Role: e.Role, Text: e.Content, State: DisplayStatus})
		case domain.RoleAssistant:
			lines = append(lines, classify(e))
		default:
			text := e.Content
			if change, ok := domain.RequestedChange(text); ok {
				text = change
			}
			lines = append(lines, Line{Role: e.Role, Text: text, State: DisplayPrompt})
		}
	}
	return lines
}

func classify(e Entry) Line {
	lower := strings.ToLower(e.Content)
	switch {
	case strings.HasPrefix(strings.TrimSpace(lower), "<!doctype html"):
		return Line{Role: e.Role, Text: "ready", State: DisplayReady}
	case strings.Contains(lower, "error") || strings.Contains(lower, "sorry"):
		return Line{Role: e.Role, Text: "error: " + e.Content, State: DisplayError}
	default:
		return Line{Role: e.Role, Text: e.Content, State: DisplayGenerating}
	}
}
