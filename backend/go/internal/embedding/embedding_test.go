package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmdModel_UnsupportedProvider(t *testing.T) {
	_, err := NewEmdModel(context.Background(), "huggingface", "m", "k", "")
	assert.ErrorContains(t, err, "unsupported provider")
}

func TestNewEmdModel_MissingKeys(t *testing.T) {
	_, err := NewEmdModel(context.Background(), "gemini", "", "", "")
	assert.Error(t, err)

	_, err = NewEmdModel(context.Background(), "openai", "text-embedding-3-small", "", "")
	assert.Error(t, err)
}

func TestNewEmdModel_Ollama(t *testing.T) {
	m, err := NewEmdModel(context.Background(), "ollama", "nomic-embed-text", "", "")
	require.NoError(t, err)
	assert.IsType(t, &OllamaModel{}, m)
	assert.NoError(t, m.Close())

	_, err = NewOllamaModel("nomic-embed-text", "://bad")
	assert.Error(t, err)
}
