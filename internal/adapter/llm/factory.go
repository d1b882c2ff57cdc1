package llm

import (
	"os"
	"time"

	"go.uber.org/zap"
)

const (
	// EnvGogoMode is the environment variable name for mode selection.
	EnvGogoMode = "GOGO_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewLLMClient creates an LLM client based on mode, falling back to the
// GOGO_MODE environment variable when mode is empty.
// If the mode is MOCK, returns a MockClient; otherwise returns a real Client.
func NewLLMClient(mode, baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) LLMClient {
	if mode == "" {
		mode = os.Getenv(EnvGogoMode)
	}

	if mode == ModeMock {
		logger.Info("mock mode detected, using mock LLM client")
		return NewMockClient()
	}

	return NewClient(baseURL, apiKey, timeout)
}
