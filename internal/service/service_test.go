package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/pagesmith/internal/adapter/llm"
	"github.com/xiaot623/pagesmith/internal/config"
	"github.com/xiaot623/pagesmith/internal/domain"
	"github.com/xiaot623/pagesmith/internal/htmldoc"
	"github.com/xiaot623/pagesmith/internal/observability"
	"github.com/xiaot623/pagesmith/internal/policy"
	"github.com/xiaot623/pagesmith/internal/repository"
)

const page = "<!DOCTYPE html>\n<html>\n<head><title>Cats</title></head>\n<body><header>Cats</header></body>\n</html>"

// fakeLLM records every request and answers through respond.
type fakeLLM struct {
	mu       sync.Mutex
	requests []*llm.ChatCompletionRequest
	respond  func(ctx context.Context, req *llm.ChatCompletionRequest) (string, error)
}

func (f *fakeLLM) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	content, err := f.respond(ctx, req)
	if err != nil {
		return nil, err
	}
	return &llm.ChatCompletionResponse{
		Model:   req.Model,
		Choices: []llm.Choice{{Message: &llm.ChatMessage{Role: "assistant", Content: content}}},
	}, nil
}

func (f *fakeLLM) ListModels(ctx context.Context) ([]llm.Model, error) {
	return nil, nil
}

func (f *fakeLLM) last() *llm.ChatCompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// scripted answers with replies in order; an error reply fails that call.
func scripted(replies ...interface{}) *fakeLLM {
	var mu sync.Mutex
	return &fakeLLM{respond: func(ctx context.Context, req *llm.ChatCompletionRequest) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(replies) == 0 {
			return "", errors.New("no scripted reply left")
		}
		r := replies[0]
		replies = replies[1:]
		if err, ok := r.(error); ok {
			return "", err
		}
		return r.(string), nil
	}}
}

func newTestService(t *testing.T, client llm.LLMClient) (*Service, repository.Store) {
	t.Helper()
	cfg := config.Default()
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy, policy.Limits{
		MaxPromptChars: 200,
		MaxHTMLBytes:   4096,
	})
	require.NoError(t, err)
	store := repository.NewMemoryStore()
	return New(store, client, cfg, engine, observability.NewCollector("test"), nil), store
}

func TestEnhancePrompt(t *testing.T) {
	fake := scripted("  A cat blog with a warm palette.\n")
	svc, store := newTestService(t, fake)
	ctx := context.Background()

	resp, err := svc.EnhancePrompt(ctx, domain.EnhanceRequest{Prompt: "blog about cats", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "blog about cats", resp.OriginalPrompt)
	assert.Equal(t, "A cat blog with a warm palette.", resp.EnhancedPrompt)

	// Out of band: the enhancer context is its own two messages.
	req := fake.last()
	assert.Equal(t, "gpt-4o", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, enhancerSystemPrompt, req.Messages[0].Content)
	assert.Equal(t, `Enhance this brief web page request into a detailed specification: "blog about cats"`, req.Messages[1].Content)
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 2000, *req.MaxTokens)

	session, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, session.Messages, 1)
	assert.Equal(t, domain.RoleSystem, session.Messages[0].Role)
	assert.Equal(t, "blog about cats", session.OriginalPrompt)
}

func TestEnhancePromptFailure(t *testing.T) {
	svc, store := newTestService(t, scripted(errors.New("rate limited")))
	ctx := context.Background()

	_, err := svc.EnhancePrompt(ctx, domain.EnhanceRequest{Prompt: "blog about cats", SessionID: "s1"})
	require.Error(t, err)
	assert.True(t, domain.IsModel(err))
	assert.Equal(t, "rate limited", err.Error())

	session, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, session.Messages, 1)
	assert.Equal(t, "blog about cats", session.OriginalPrompt)
}

func TestGenerateCombinesOriginalAndEnhanced(t *testing.T) {
	fake := scripted("detailed cat blog", page)
	svc, store := newTestService(t, fake)
	ctx := context.Background()

	_, err := svc.EnhancePrompt(ctx, domain.EnhanceRequest{Prompt: "blog about cats", SessionID: "s1"})
	require.NoError(t, err)

	resp, err := svc.Generate(ctx, domain.GenerateRequest{Prompt: "detailed cat blog, edited", SessionID: "s1", UsedEnhanced: true})
	require.NoError(t, err)
	assert.Equal(t, page, resp.Code)

	req := fake.last()
	assert.Equal(t, "o3-mini", req.Model)
	assert.Equal(t, "medium", req.ReasoningEffort)
	require.NotNil(t, req.MaxCompletionTokens)
	assert.Equal(t, 40000, *req.MaxCompletionTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "Original request: blog about cats\n\nDetailed specification: detailed cat blog, edited", req.Messages[1].Content)

	require.Len(t, resp.ChatHistory, 3)
	assert.Equal(t, generationSystemPrompt, resp.ChatHistory[0].Content)
	assert.Equal(t, req.Messages[1].Content, resp.ChatHistory[1].Content)
	assert.Equal(t, domain.RoleAssistant, resp.ChatHistory[2].Role)

	// The enhancement cycle is consumed.
	session, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, session.HasOriginalPrompt())
}

func TestGenerateWithoutEnhancement(t *testing.T) {
	tests := []struct {
		name         string
		usedEnhanced bool
	}{
		{"not enhanced", false},
		{"enhanced flag without original", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := scripted(page)
			svc, _ := newTestService(t, fake)

			_, err := svc.Generate(context.Background(), domain.GenerateRequest{Prompt: "a landing page", SessionID: "s1", UsedEnhanced: tt.usedEnhanced})
			require.NoError(t, err)
			assert.Equal(t, "a landing page", fake.last().Messages[1].Content)
		})
	}
}

func TestGenerateAfterFailedEnhanceDropsOriginal(t *testing.T) {
	fake := scripted(errors.New("upstream down"), page)
	svc, store := newTestService(t, fake)
	ctx := context.Background()

	_, err := svc.EnhancePrompt(ctx, domain.EnhanceRequest{Prompt: "blog about cats", SessionID: "s1"})
	require.Error(t, err)

	_, err = svc.Generate(ctx, domain.GenerateRequest{Prompt: "blog about cats", SessionID: "s1"})
	require.NoError(t, err)

	session, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, session.HasOriginalPrompt())
}

func TestGenerateNormalizesOutput(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		check func(t *testing.T, code string)
	}{
		{
			name:  "fenced document",
			reply: "```html\n" + page + "\n```",
			check: func(t *testing.T, code string) {
				assert.Equal(t, page, code)
			},
		},
		{
			name:  "prose around document",
			reply: "Here you go:\n" + page + "\nEnjoy!",
			check: func(t *testing.T, code string) {
				assert.Equal(t, page, code)
			},
		},
		{
			name:  "no structure",
			reply: "<h1>Cats</h1>",
			check: func(t *testing.T, code string) {
				assert.True(t, htmldoc.IsValid(code))
				assert.Contains(t, code, "<h1>Cats</h1>")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, scripted(tt.reply))
			resp, err := svc.Generate(context.Background(), domain.GenerateRequest{Prompt: "cats", SessionID: "s1"})
			require.NoError(t, err)
			assert.NotContains(t, resp.Code, "```")
			tt.check(t, resp.Code)
			assert.Equal(t, resp.Code, resp.ChatHistory[len(resp.ChatHistory)-1].Content)
		})
	}
}

func TestGenerateModelErrorLeavesConversationUntouched(t *testing.T) {
	tests := []struct {
		name    string
		reply   interface{}
		message string
	}{
		{"upstream error", errors.New("invalid api key"), "invalid api key"},
		{"empty content", "   ", "model returned no content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t, scripted(tt.reply))
			ctx := context.Background()

			_, err := svc.Generate(ctx, domain.GenerateRequest{Prompt: "cats", SessionID: "s1"})
			require.Error(t, err)
			assert.True(t, domain.IsModel(err))
			assert.Equal(t, tt.message, err.Error())

			history, err := store.History(ctx, "s1")
			require.NoError(t, err)
			assert.Len(t, history, 1)
		})
	}
}

func TestModelTimeout(t *testing.T) {
	fake := &fakeLLM{respond: func(ctx context.Context, req *llm.ChatCompletionRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	svc, _ := newTestService(t, fake)
	svc.config.ModelTimeout = 20 * time.Millisecond

	_, err := svc.Generate(context.Background(), domain.GenerateRequest{Prompt: "cats", SessionID: "s1"})
	require.Error(t, err)
	assert.True(t, domain.IsModel(err))
	assert.Contains(t, err.Error(), "timed out")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestModifyFallsBackOnTruncatedOutput(t *testing.T) {
	truncated := "<!DOCTYPE html>\n<html>\n<body><header style=\"color: blue\">Ca"
	svc, _ := newTestService(t, scripted(page, truncated))
	ctx := context.Background()

	gen, err := svc.Generate(ctx, domain.GenerateRequest{Prompt: "blog about cats", SessionID: "s1"})
	require.NoError(t, err)

	mod, err := svc.Modify(ctx, domain.ModifyRequest{Prompt: "make header blue", CurrentCode: gen.Code, SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, gen.Code, mod.Code)
	assert.Len(t, mod.ChatHistory, 5)
}

func TestModifyContext(t *testing.T) {
	modified := strings.Replace(page, "<header>", "<header style=\"color: blue\">", 1)
	fake := scripted(page, modified)
	svc, _ := newTestService(t, fake)
	ctx := context.Background()

	gen, err := svc.Generate(ctx, domain.GenerateRequest{Prompt: "blog about cats", SessionID: "s1"})
	require.NoError(t, err)

	mod, err := svc.Modify(ctx, domain.ModifyRequest{Prompt: "make header blue", CurrentCode: gen.Code, SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, modified, mod.Code)

	req := fake.last()
	assert.Equal(t, "low", req.ReasoningEffort)
	require.NotNil(t, req.MaxCompletionTokens)
	assert.Equal(t, 30000, *req.MaxCompletionTokens)
	// system, user, assistant(page), instruction
	require.Len(t, req.Messages, 4)
	assert.Equal(t, page, req.Messages[2].Content)
	assert.Contains(t, req.Messages[3].Content, "Requested change: make header blue")
}

func TestModifyRestatesDivergentDocument(t *testing.T) {
	imported := strings.Replace(page, "Cats", "Dogs", -1)
	fake := scripted(page, imported)
	svc, _ := newTestService(t, fake)
	ctx := context.Background()

	_, err := svc.Generate(ctx, domain.GenerateRequest{Prompt: "blog about cats", SessionID: "s1"})
	require.NoError(t, err)

	mod, err := svc.Modify(ctx, domain.ModifyRequest{Prompt: "keep it", CurrentCode: imported, SessionID: "s1"})
	require.NoError(t, err)

	require.Len(t, mod.ChatHistory, 6)
	assert.Equal(t, domain.Message{Role: domain.RoleAssistant, Content: imported}, mod.ChatHistory[3])
	assert.Equal(t, domain.RoleUser, mod.ChatHistory[4].Role)
	assert.Equal(t, domain.RoleAssistant, mod.ChatHistory[5].Role)
}

func TestModifyOnNewSessionUsesModificationSeed(t *testing.T) {
	svc, _ := newTestService(t, scripted(page))

	mod, err := svc.Modify(context.Background(), domain.ModifyRequest{Prompt: "tweak", CurrentCode: page, SessionID: "fresh"})
	require.NoError(t, err)
	require.Len(t, mod.ChatHistory, 4)
	assert.Equal(t, modificationSystemPrompt, mod.ChatHistory[0].Content)
}

func TestAppendOnlyOrdering(t *testing.T) {
	replies := []interface{}{page}
	doc := page
	for i := 0; i < 3; i++ {
		doc = strings.Replace(doc, "</body>", fmt.Sprintf("<p>%d</p></body>", i), 1)
		replies = append(replies, doc)
	}
	svc, _ := newTestService(t, scripted(replies...))
	ctx := context.Background()

	resp, err := svc.Generate(ctx, domain.GenerateRequest{Prompt: "cats", SessionID: "s1"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		resp, err = svc.Modify(ctx, domain.ModifyRequest{Prompt: fmt.Sprintf("add %d", i), CurrentCode: resp.Code, SessionID: "s1"})
		require.NoError(t, err)
	}

	history, err := svc.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 1+2*4)
	for i, m := range history[1:] {
		if i%2 == 0 {
			assert.Equal(t, domain.RoleUser, m.Role)
		} else {
			assert.Equal(t, domain.RoleAssistant, m.Role)
		}
	}
	assert.Equal(t, doc, history[len(history)-1].Content)
}

func TestConcurrentTurnsAreSerialized(t *testing.T) {
	fake := &fakeLLM{respond: func(ctx context.Context, req *llm.ChatCompletionRequest) (string, error) {
		prompt := req.Messages[len(req.Messages)-1].Content
		time.Sleep(time.Millisecond)
		return "<!DOCTYPE html><html><body>" + prompt + "</body></html>", nil
	}}
	svc, _ := newTestService(t, fake)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Generate(ctx, domain.GenerateRequest{Prompt: fmt.Sprintf("page %d", i), SessionID: "s1"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	history, err := svc.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 1+2*n)
	for i := 1; i < len(history); i += 2 {
		assert.Equal(t, domain.RoleUser, history[i].Role)
		assert.Contains(t, history[i+1].Content, "<body>"+history[i].Content+"</body>")
	}
	assert.Equal(t, 0, svc.locks.len())
}

func TestValidation(t *testing.T) {
	svc, _ := newTestService(t, scripted())
	ctx := context.Background()

	tests := []struct {
		name  string
		call  func() error
		field string
	}{
		{"enhance prompt", func() error {
			_, err := svc.EnhancePrompt(ctx, domain.EnhanceRequest{SessionID: "s1"})
			return err
		}, "prompt"},
		{"generate blank prompt", func() error {
			_, err := svc.Generate(ctx, domain.GenerateRequest{Prompt: "  ", SessionID: "s1"})
			return err
		}, "prompt"},
		{"generate session", func() error {
			_, err := svc.Generate(ctx, domain.GenerateRequest{Prompt: "cats"})
			return err
		}, "session_id"},
		{"modify code", func() error {
			_, err := svc.Modify(ctx, domain.ModifyRequest{Prompt: "blue", SessionID: "s1"})
			return err
		}, "currentCode"},
		{"export content", func() error {
			_, err := svc.Export(ctx, domain.ExportRequest{})
			return err
		}, "htmlContent"},
		{"prompt over limit", func() error {
			_, err := svc.Generate(ctx, domain.GenerateRequest{Prompt: strings.Repeat("x", 201), SessionID: "s1"})
			return err
		}, "prompt"},
		{"document over limit", func() error {
			_, err := svc.Modify(ctx, domain.ModifyRequest{Prompt: "blue", CurrentCode: strings.Repeat("x", 4097), SessionID: "s1"})
			return err
		}, "htmlContent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	// Rejected requests never reach the store.
	_, err := svc.History(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestHistoryNotFound(t *testing.T) {
	svc, _ := newTestService(t, scripted())
	_, err := svc.History(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestExport(t *testing.T) {
	svc, _ := newTestService(t, scripted())
	out, err := svc.Export(context.Background(), domain.ExportRequest{HTMLContent: page})
	require.NoError(t, err)
	assert.Equal(t, page, string(out))
}

func TestDeploy(t *testing.T) {
	svc, _ := newTestService(t, scripted())
	ctx := context.Background()

	resp, err := svc.Deploy(ctx, domain.DeployRequest{HTMLContent: page, SiteName: " My Cat_Blog! "})
	require.NoError(t, err)
	assert.Equal(t, "https://my-cat-blog.netlify.app", resp.URL)
	assert.True(t, resp.Simulated)

	resp, err = svc.Deploy(ctx, domain.DeployRequest{HTMLContent: page})
	require.NoError(t, err)
	assert.Regexp(t, `^https://nl2page-demo-\d{4}\.netlify\.app$`, resp.URL)
}
