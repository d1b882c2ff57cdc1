package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig holds configuration for the model circuit breaker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns a default configuration for the breaker.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// BreakerClient guards an LLMClient with a circuit breaker. While the
// breaker is open calls fail fast with gobreaker.ErrOpenState.
type BreakerClient struct {
	next LLMClient
	cb   *gobreaker.CircuitBreaker
}

var _ LLMClient = (*BreakerClient)(nil)

// NewBreakerClient wraps next.
func NewBreakerClient(next LLMClient, config BreakerConfig, logger *zap.Logger) *BreakerClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not an upstream failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &BreakerClient{next: next, cb: cb}
}

// CreateChatCompletion runs the call through the breaker.
func (b *BreakerClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.CreateChatCompletion(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return out.(*ChatCompletionResponse), nil
}

// ListModels is not guarded; it only backs the startup model check.
func (b *BreakerClient) ListModels(ctx context.Context) ([]Model, error) {
	return b.next.ListModels(ctx)
}

// State returns the breaker state name.
func (b *BreakerClient) State() string {
	return b.cb.State().String()
}
