// Package ai builds embedding service adapters from configuration.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/folio/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/folio/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/folio/internal/config"
	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateEmbeddingService creates the embedding service named by cfg.Provider.
func CreateEmbeddingService(cfg config.EmbeddingConfig) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case config.EmbeddingOllama:
		return createOllamaEmbedding(cfg), nil

	case config.EmbeddingOpenAI:
		return createOpenAIEmbedding(cfg)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// CreateAndValidateEmbeddingService creates an embedding service and checks
// that it is reachable and produces vectors of the configured width.
func CreateAndValidateEmbeddingService(ctx context.Context, cfg config.EmbeddingConfig) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(cfg)
	if err != nil {
		return nil, err
	}
	if err := ValidateEmbeddingService(ctx, svc, cfg.Dimension); err != nil {
		svc.Close()
		return nil, err
	}
	return svc, nil
}

// ValidateEmbeddingService pings svc and compares its width with dimension.
// A zero dimension skips the width check.
func ValidateEmbeddingService(ctx context.Context, svc driven.EmbeddingService, dimension int) error {
	if dimension > 0 && svc.Dimensions() != dimension {
		return fmt.Errorf("%w: %s produces %d-dimensional vectors, configured %d",
			domain.ErrDimensionMismatch, svc.ModelName(), svc.Dimensions(), dimension)
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s unreachable: %w", domain.ErrProviderUnavailable, svc.ModelName(), err)
	}
	return nil
}

func timeout(cfg config.EmbeddingConfig) time.Duration {
	return time.Duration(cfg.TimeoutSeconds) * time.Second
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(cfg config.EmbeddingConfig) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Timeout:    timeout(cfg),
		Dimensions: cfg.Dimension,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(cfg config.EmbeddingConfig) (driven.EmbeddingService, error) {
	svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Timeout:    timeout(cfg),
		Dimensions: cfg.Dimension,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
