package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/pagesmith/internal/adapter/llm"
	"github.com/xiaot623/pagesmith/internal/bridge"
	"github.com/xiaot623/pagesmith/internal/config"
	"github.com/xiaot623/pagesmith/internal/logging"
	"github.com/xiaot623/pagesmith/internal/observability"
	"github.com/xiaot623/pagesmith/internal/policy"
	"github.com/xiaot623/pagesmith/internal/repository"
	"github.com/xiaot623/pagesmith/internal/service"
	transport "github.com/xiaot623/pagesmith/internal/transport/http"
)

// bridgeEndpoint is where instrumented frames post their messages.
const bridgeEndpoint = "/api/bridge/events"

const (
	shutdownTimeout   = 10 * time.Second
	modelCheckTimeout = 5 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the page service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().Int("port", 0, "HTTP port (default http_port)")
	_ = a.v.BindPFlag("http_port", cmd.Flags().Lookup("port"))
	return cmd
}

// checkModels warns about configured models the upstream does not list.
// The service starts regardless.
func checkModels(ctx context.Context, svc *service.Service, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()
	missing, err := svc.MissingModels(ctx)
	if err != nil {
		logger.Warn("could not verify configured models", zap.Error(err))
		return
	}
	if len(missing) > 0 {
		logger.Warn("configured models not offered upstream", zap.Strings("models", missing))
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting page service",
		zap.String("version", Version),
		zap.Int("port", cfg.HTTPPort),
		zap.String("store", cfg.StoreDriver),
		zap.String("llm_base_url", cfg.LLMBaseURL))

	// Initialize store
	store, err := repository.Open(cfg.StoreDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer store.Close()

	// Initialize LLM client
	breakerCfg := llm.DefaultBreakerConfig("model")
	breakerCfg.FailureThreshold = cfg.BreakerFailureRatio
	breakerCfg.MinRequests = cfg.BreakerMinRequests
	breakerCfg.Timeout = cfg.BreakerOpenTimeout
	llmClient := llm.NewBreakerClient(
		llm.NewLLMClient(cfg.Mode, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.ModelTimeout, logger),
		breakerCfg, logger)

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy, policy.Limits{
		MaxPromptChars: cfg.MaxPromptChars,
		MaxHTMLBytes:   cfg.MaxHTMLBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	metrics := observability.NewCollector("pagesmith")
	svc := service.New(store, llmClient, cfg, policyEngine, metrics, logger)
	checkModels(ctx, svc, logger)

	// Preview bridge
	hub := bridge.NewHub(logger)
	channel := bridge.NewChannel(cfg.BridgeAllowedOrigin, &bridge.Instrumenter{
		Endpoint:          bridgeEndpoint,
		Highlighter:       &bridge.KeywordHighlighter{MinTokenLen: cfg.HighlightMinTokenLen},
		HighlightDuration: cfg.HighlightDuration,
	}, hub, metrics, logger)

	e := transport.NewServer(transport.Deps{
		Service:   svc,
		Channel:   channel,
		Hub:       hub,
		Metrics:   metrics,
		Logger:    logger,
		BodyLimit: cfg.BodyLimit,
		Version:   Version,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		logger.Info("HTTP API started", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down page service")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
