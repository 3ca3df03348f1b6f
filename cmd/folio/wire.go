package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/folio/internal/adapters/driven/ai"
	"github.com/custodia-labs/folio/internal/adapters/driven/ocr/tesseract"
	"github.com/custodia-labs/folio/internal/adapters/driven/ocr/vision"
	"github.com/custodia-labs/folio/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/folio/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/folio/internal/adapters/driving/cli"
	"github.com/custodia-labs/folio/internal/config"
	"github.com/custodia-labs/folio/internal/connectors/filesystem"
	"github.com/custodia-labs/folio/internal/connectors/google"
	"github.com/custodia-labs/folio/internal/connectors/google/drive"
	"github.com/custodia-labs/folio/internal/connectors/publicshare"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
	"github.com/custodia-labs/folio/internal/core/services"
	"github.com/custodia-labs/folio/internal/extractors/pdf"
	"github.com/custodia-labs/folio/internal/extractors/pptx"
	"github.com/custodia-labs/folio/internal/logger"
)

// indexStore is what the composition root needs from a storage driver.
type indexStore interface {
	driven.IndexStore
	driven.SchemaProvisioner
}

// closers releases resources in reverse order of acquisition.
type closers []func() error

func (c *closers) add(fn func() error) {
	*c = append(*c, fn)
}

func (c closers) close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// bootstrap resolves configuration and builds every service.
func bootstrap(ctx context.Context, opts cli.BootstrapOptions) (*cli.Services, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Workers > 0 {
		cfg.Ingest.Workers = opts.Workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return build(ctx, cfg, opts.ValidateProviders)
}

// build wires adapters into services for a validated configuration.
// Everything acquired so far is released if a later step fails.
func build(ctx context.Context, cfg config.Config, validate bool) (svcs *cli.Services, err error) {
	var cl closers
	defer func() {
		if err != nil {
			_ = cl.close()
		}
	}()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cl.add(store.Close)

	var embedding driven.EmbeddingService
	if validate {
		embedding, err = ai.CreateAndValidateEmbeddingService(ctx, cfg.Embedding)
	} else {
		embedding, err = ai.CreateEmbeddingService(cfg.Embedding)
	}
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	cl.add(embedding.Close)

	ocr, err := newOCREngine(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if ocr != nil {
		cl.add(ocr.Close)
	}

	source, err := newFileSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cl.add(source.Close)

	if err := pdf.CheckAvailable(); err != nil {
		logger.Warn("PDF tools unavailable, PDFs will fail: %v\n%s", err, pdf.InstallInstructions())
	}

	extractor := services.NewExtractor(
		[]driven.DocumentOpener{
			pdf.New(pdf.WithDPI(cfg.Extract.RenderDPI)),
			pptx.New(),
		},
		ocr,
		services.ExtractorConfig{
			MinChars:       cfg.Extract.MinChars,
			MinImageWidth:  cfg.OCR.MinImageWidth,
			MinImageHeight: cfg.OCR.MinImageHeight,
			PageWorkers:    cfg.Extract.PageWorkers,
		},
	)

	embedder := services.NewEmbedder(embedding, services.EmbedderConfig{
		Dimension:         cfg.Embedding.Dimension,
		BatchSize:         cfg.Embedding.BatchSize,
		MaxAttempts:       cfg.Embedding.MaxAttempts,
		RequestsPerSecond: cfg.Embedding.RequestsPerSec,
		MaxConcurrent:     cfg.Embedding.MaxConcurrent,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
	})

	ingestor := services.NewIngestor(source, store, extractor, services.NewChunker(), embedder, services.IngestorConfig{
		FolderID:  cfg.Source.FolderID,
		Dimension: cfg.Embedding.Dimension,
		Workers:   cfg.Ingest.Workers,
	})

	logger.Debug("Wired source=%s store=%s embedding=%s/%s ocr=%s",
		source.Type(), cfg.StoreDriver(), cfg.Embedding.Provider, embedding.ModelName(), cfg.OCR.Engine)

	return &cli.Services{
		Ingestor:  ingestor,
		Catalog:   services.NewCatalogService(store),
		Schema:    services.NewSchemaService(store),
		SinceDays: cfg.Ingest.SinceDays,
		Dimension: cfg.Embedding.Dimension,
		Close:     cl.close,
	}, nil
}

// ==================== Adapters ====================

func newStore(ctx context.Context, cfg config.Config) (indexStore, error) {
	switch cfg.StoreDriver() {
	case config.StorePostgres:
		store, err := postgres.NewStore(ctx, postgres.Config{
			DatabaseURL: cfg.Store.DatabaseURL,
			MaxConns:    cfg.Store.MaxConns,
			Lists:       cfg.Store.IVFFlatLists,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return store, nil
	case config.StoreSQLite:
		store, err := sqlite.NewStore(cfg.Store.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// newOCREngine returns nil when OCR is disabled.
func newOCREngine(ctx context.Context, cfg config.Config) (driven.OCREngine, error) {
	switch cfg.OCR.Engine {
	case config.OCRNone, "":
		return nil, nil
	case config.OCRTesseract:
		if err := tesseract.CheckAvailable(); err != nil {
			logger.Warn("OCR disabled: %v\n%s", err, tesseract.InstallInstructions())
			return nil, nil
		}
		return tesseract.New(tesseract.WithLanguage(cfg.OCR.Language)), nil
	case config.OCRVision:
		engine, err := vision.New(ctx, vision.Config{CredentialsFile: cfg.OCR.CredentialsFile})
		if err != nil {
			return nil, fmt.Errorf("creating vision client: %w", err)
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("unknown OCR engine %q", cfg.OCR.Engine)
	}
}

func newFileSource(ctx context.Context, cfg config.Config) (driven.FileSource, error) {
	switch cfg.Source.Kind {
	case config.SourceDrive:
		d := cfg.Source.Drive
		src, err := drive.New(ctx,
			google.AuthConfig{Mode: d.Auth, APIKey: d.APIKey, CredentialsFile: d.CredentialsFile},
			drive.Config{
				PageSize:  d.PageSize,
				RateLimit: google.RateLimitConfig{RequestsPerSecond: d.RequestsPerSec, BurstSize: d.Burst},
			},
		)
		if err != nil {
			return nil, fmt.Errorf("creating drive source: %w", err)
		}
		return src, nil
	case config.SourcePublic:
		return publicshare.New(publicshare.Config{
			RateLimit: google.RateLimitConfig{
				RequestsPerSecond: cfg.Source.Drive.RequestsPerSec,
				BurstSize:         cfg.Source.Drive.Burst,
			},
		}), nil
	case config.SourceFilesystem:
		return filesystem.New(0), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}
