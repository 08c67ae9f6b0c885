package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, 1536, cfg.Dimensions)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig_Options(t *testing.T) {
	cfg := NewConfig(
		WithEmbeddingHost("https://api.openai.com"),
		WithEmbeddingModel("text-embedding-3-large"),
		WithEmbeddingAPIKey("sk-test"),
		WithDimensions(3072),
		WithParserHost("https://parse.example.com/"),
		WithParserAPIKey("pk-test"),
	)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://api.openai.com/v1", cfg.EmbeddingHost, "Normalize adds /v1")
	assert.Equal(t, "https://parse.example.com", cfg.ParserHost, "Normalize strips trailing slash")
	assert.Equal(t, "text-embedding-3-large", cfg.EmbeddingModel)
	assert.Equal(t, 3072, cfg.Dimensions)
}

func TestConfig_ValidateRejectsIncomplete(t *testing.T) {
	cfg := NewConfig(WithEmbeddingModel(""))
	assert.Error(t, cfg.Validate())

	cfg = NewConfig(WithDimensions(0))
	assert.Error(t, cfg.Validate())
}

func TestConfig_NormalizeDefaultsAPIKey(t *testing.T) {
	cfg := NewConfig()
	cfg.EmbeddingAPIKey = ""
	cfg.Normalize()
	assert.Equal(t, "none", cfg.EmbeddingAPIKey)
}
