// Package service implements prompt enhancement, page generation and
// targeted modification over per-session conversations.
package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xiaot623/pagesmith/internal/adapter/llm"
	"github.com/xiaot623/pagesmith/internal/config"
	"github.com/xiaot623/pagesmith/internal/domain"
	"github.com/xiaot623/pagesmith/internal/htmldoc"
	"github.com/xiaot623/pagesmith/internal/logging"
	"github.com/xiaot623/pagesmith/internal/observability"
	"github.com/xiaot623/pagesmith/internal/policy"
	"github.com/xiaot623/pagesmith/internal/repository"
)

// Operation names used in logs, metrics and policy input.
const (
	opEnhance  = "enhance"
	opGenerate = "generate"
	opModify   = "modify"
	opExport   = "export"
	opDeploy   = "deploy"
)

type Service struct {
	store        repository.Store
	llmClient    llm.LLMClient
	normalizer   *htmldoc.Normalizer
	config       *config.Config
	policyEngine *policy.Engine
	metrics      *observability.Collector
	logger       *zap.Logger
	tracer       trace.Tracer
	locks        *sessionLocks
}

// New creates a Service. policyEngine and metrics may be nil.
func New(store repository.Store, llmClient llm.LLMClient, cfg *config.Config, policyEngine *policy.Engine, metrics *observability.Collector, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:        store,
		llmClient:    llmClient,
		normalizer:   htmldoc.New(),
		config:       cfg,
		policyEngine: policyEngine,
		metrics:      metrics,
		logger:       logger.Named("service"),
		tracer:       otel.Tracer("github.com/xiaot623/pagesmith/internal/service"),
		locks:        newSessionLocks(),
	}
}

// admit runs the request policy. A blocked request becomes a ValidationError.
func (s *Service) admit(ctx context.Context, op string, prompt, html string) error {
	if s.policyEngine == nil {
		return nil
	}
	decision, err := s.policyEngine.Evaluate(ctx, policy.Input{
		Operation:    op,
		PromptLength: len([]rune(prompt)),
		HTMLLength:   len(html),
	})
	if err != nil {
		return err
	}
	if !decision.Allow {
		s.logger.Info("request blocked by policy",
			zap.String("operation", op),
			zap.String("reason", decision.Reason))
		field := decision.Field
		if field == "" {
			field = "request"
		}
		return &domain.ValidationError{Field: field, Reason: decision.Reason}
	}
	return nil
}

// getOrCreate returns the session, seeding it on first use.
func (s *Service) getOrCreate(ctx context.Context, sessionID string, seed domain.Message) (*domain.Session, error) {
	session, created, err := s.store.GetOrCreate(ctx, sessionID, seed)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("session created", logging.Session(sessionID))
		if s.metrics != nil {
			s.metrics.SessionsCreated.Inc()
		}
	}
	return session, nil
}

func (s *Service) recordNormalization(op, sessionID string, result htmldoc.Result) {
	if s.metrics != nil {
		s.metrics.Normalizations.WithLabelValues(op, string(result.Outcome)).Inc()
	}
	if result.Degraded() {
		s.logger.Warn("model output did not contain a complete document",
			zap.String("operation", op),
			logging.Session(sessionID),
			zap.String("outcome", string(result.Outcome)))
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
