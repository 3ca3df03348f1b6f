package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/folio/internal/config"
	"github.com/custodia-labs/folio/internal/core/domain"
)

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.EmbeddingConfig
		wantModel   string
		wantDim     int
		errContains string
	}{
		{
			name:      "ollama provider creates service",
			cfg:       config.EmbeddingConfig{Provider: config.EmbeddingOllama, Model: "nomic-embed-text", Dimension: 768},
			wantModel: "nomic-embed-text",
			wantDim:   768,
		},
		{
			name:      "openai provider creates service",
			cfg:       config.EmbeddingConfig{Provider: config.EmbeddingOpenAI, APIKey: "test-key", Model: "text-embedding-3-small", Dimension: 512},
			wantModel: "text-embedding-3-small",
			wantDim:   512,
		},
		{
			name:        "openai without key returns error",
			cfg:         config.EmbeddingConfig{Provider: config.EmbeddingOpenAI},
			errContains: "API key is required",
		},
		{
			name:        "unknown provider returns error",
			cfg:         config.EmbeddingConfig{Provider: "anthropic"},
			errContains: "unsupported embedding provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.cfg)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			defer svc.Close()
			assert.Equal(t, tt.wantModel, svc.ModelName())
			assert.Equal(t, tt.wantDim, svc.Dimensions())
		})
	}
}

func ollamaServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateAndValidateEmbeddingService(t *testing.T) {
	ctx := context.Background()

	t.Run("reachable provider", func(t *testing.T) {
		srv := ollamaServer(t, http.StatusOK)
		cfg := config.EmbeddingConfig{Provider: config.EmbeddingOllama, BaseURL: srv.URL, Dimension: 768}

		svc, err := CreateAndValidateEmbeddingService(ctx, cfg)

		require.NoError(t, err)
		require.NotNil(t, svc)
		assert.NoError(t, svc.Close())
	})

	t.Run("unreachable provider is transient", func(t *testing.T) {
		srv := ollamaServer(t, http.StatusServiceUnavailable)
		cfg := config.EmbeddingConfig{Provider: config.EmbeddingOllama, BaseURL: srv.URL, Dimension: 768}

		svc, err := CreateAndValidateEmbeddingService(ctx, cfg)

		assert.Nil(t, svc)
		assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
		assert.True(t, domain.IsTransient(err))
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := CreateAndValidateEmbeddingService(ctx, config.EmbeddingConfig{Provider: "nope"})
		assert.Error(t, err)
	})
}

func TestValidateEmbeddingService_DimensionMismatch(t *testing.T) {
	srv := ollamaServer(t, http.StatusOK)
	svc, err := CreateEmbeddingService(config.EmbeddingConfig{Provider: config.EmbeddingOllama, BaseURL: srv.URL, Dimension: 768})
	require.NoError(t, err)
	defer svc.Close()

	err = ValidateEmbeddingService(context.Background(), svc, 1536)

	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Contains(t, err.Error(), "768")

	assert.NoError(t, ValidateEmbeddingService(context.Background(), svc, 0))
}
