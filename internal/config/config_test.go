package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 5000, cfg.HTTPPort)
	assert.Equal(t, "gpt-4o", cfg.EnhanceModel)
	assert.Equal(t, "o3-mini", cfg.GenerateModel)
	assert.Equal(t, 40000, cfg.GenerateMaxTokens)
	assert.Equal(t, "low", cfg.ModifyReasoningEffort)
	assert.Equal(t, 4, cfg.HighlightMinTokenLen)
	assert.Equal(t, 2*time.Second, cfg.HighlightDuration)
	assert.Equal(t, "null", cfg.BridgeAllowedOrigin)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("MODEL_TIMEOUT_MS", "1500")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STORE_DRIVER", "sqlite")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 1500*time.Millisecond, cfg.ModelTimeout)
	assert.Equal(t, "sk-test", cfg.LLMAPIKey)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagesmith.yaml")
	content := "generate_model: gpt-4.1\nhighlight_min_token_len: 6\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", cfg.GenerateModel)
	assert.Equal(t, 6, cfg.HighlightMinTokenLen)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("STORE_DRIVER", "redis")
	_, err := Load(viper.New(), "")
	assert.Error(t, err)

	_, err = Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
