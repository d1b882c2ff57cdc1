package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xiaot623/pagesmith/internal/adapter/llm"
	"github.com/xiaot623/pagesmith/internal/domain"
)

var errNoContent = errors.New("model returned no content")

// complete sends one chat completion and returns its text. Every failure,
// including an empty answer or an expired deadline, is a ModelError.
func (s *Service) complete(ctx context.Context, op string, req *llm.ChatCompletionRequest) (string, error) {
	timeout := s.config.ModelTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ctx, span := s.tracer.Start(ctx, "model."+op, trace.WithAttributes(
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.messages", len(req.Messages)),
	))
	defer span.End()

	startTime := time.Now()
	resp, err := s.llmClient.CreateChatCompletion(ctx, req)
	if err == nil && !resp.HasContent() {
		err = errNoContent
	}
	if s.metrics != nil {
		s.metrics.ObserveModelCall(op, startTime, err)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		modelErr := domain.NewModelError(op, err)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			modelErr.Message = fmt.Sprintf("model call timed out after %s", timeout)
		}
		s.logger.Error("model call failed",
			zap.String("operation", op),
			zap.String("model", req.Model),
			zap.Duration("latency", time.Since(startTime)),
			zap.Error(err))
		return "", modelErr
	}

	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("model", resp.Model),
		zap.Duration("latency", time.Since(startTime)),
	}
	if resp.Usage != nil {
		fields = append(fields, zap.Int("total_tokens", resp.Usage.TotalTokens))
		span.SetAttributes(attribute.Int("llm.total_tokens", resp.Usage.TotalTokens))
	}
	s.logger.Debug("model call done", fields...)

	return resp.Content(), nil
}

func (s *Service) enhanceRequest(prompt string) *llm.ChatCompletionRequest {
	return &llm.ChatCompletionRequest{
		Model: s.config.EnhanceModel,
		Messages: []llm.ChatMessage{
			{Role: string(domain.RoleSystem), Content: enhancerSystemPrompt},
			{Role: string(domain.RoleUser), Content: enhanceInstruction(prompt)},
		},
		MaxTokens: positive(s.config.EnhanceMaxTokens),
	}
}

func (s *Service) generateRequest(msgs []domain.Message) *llm.ChatCompletionRequest {
	return &llm.ChatCompletionRequest{
		Model:               s.config.GenerateModel,
		Messages:            toChatMessages(msgs),
		MaxCompletionTokens: positive(s.config.GenerateMaxTokens),
		ReasoningEffort:     s.config.GenerateReasoningEffort,
	}
}

func (s *Service) modifyRequest(msgs []domain.Message) *llm.ChatCompletionRequest {
	return &llm.ChatCompletionRequest{
		Model:               s.config.ModifyModel,
		Messages:            toChatMessages(msgs),
		MaxCompletionTokens: positive(s.config.ModifyMaxTokens),
		ReasoningEffort:     s.config.ModifyReasoningEffort,
	}
}

func toChatMessages(msgs []domain.Message) []llm.ChatMessage {
	out := make([]llm.ChatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = llm.ChatMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

func positive(n int) *int {
	if n <= 0 {
		return nil
	}
	return llm.IntPtr(n)
}
