package llm

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
)

// MockClient is a deterministic LLMClient for local runs and tests. It
// answers enhancement, generation and modification requests with plausible
// content so the full flow can be exercised without an upstream model.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	responseContent := m.generateMockResponse(req)

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index: 0,
				Message: &ChatMessage{
					Role:    "assistant",
					Content: responseContent,
				},
				FinishReason: "stop",
			},
		},
		Usage: &Usage{
			PromptTokens:     m.estimateTokens(req),
			CompletionTokens: len(responseContent) / 4,
			TotalTokens:      m.estimateTokens(req) + len(responseContent)/4,
		},
		SystemFingerprint: "mock-fp",
	}, nil
}

// ListModels returns a list of mock models.
func (m *MockClient) ListModels(ctx context.Context) ([]Model, error) {
	return []Model{
		{ID: "mock-gpt-4o", Object: "model", Created: time.Now().Unix(), OwnedBy: "mock"},
		{ID: "mock-o3-mini", Object: "model", Created: time.Now().Unix(), OwnedBy: "mock"},
	}, nil
}

// generateMockResponse picks a response shape from the last user message.
func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	lastUser := lastMessage(req.Messages, "user")

	switch {
	case strings.HasPrefix(lastUser, "Enhance this brief web page request"):
		return fmt.Sprintf("[MOCK] A single-page site for %s with a sticky header, a hero banner, three content sections and a footer.\n\n"+
			"Use a warm palette, CSS Grid for the sections, fade-in animations and a responsive menu toggle.", truncate(lastUser, 100))
	case strings.Contains(lastUser, "Requested change:"):
		current := lastMessage(req.Messages, "assistant")
		change := lastUser[strings.Index(lastUser, "Requested change:")+len("Requested change:"):]
		if i := strings.Index(change, "\n"); i >= 0 {
			change = change[:i]
		}
		marker := "<!-- [MOCK] applied: " + html.EscapeString(strings.TrimSpace(change)) + " -->\n"
		if i := strings.LastIndex(strings.ToLower(current), "</body>"); i >= 0 {
			return current[:i] + marker + current[i:]
		}
		return current
	default:
		title := html.EscapeString(truncate(lastUser, 60))
		return "```html\n<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"UTF-8\">\n<title>" + title +
			"</title>\n</head>\n<body>\n<header><h1>" + title + "</h1></header>\n<main><p>[MOCK] generated page</p></main>\n</body>\n</html>\n```"
	}
}

// estimateTokens provides a rough token count estimate.
func (m *MockClient) estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}

func lastMessage(msgs []ChatMessage, role string) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == role {
			return msgs[i].Content
		}
	}
	return ""
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
