// Package config holds folio's runtime configuration.
//
// Values are resolved in order: built-in defaults, the TOML config file,
// environment variables, then command-line flags. The resolved Config is
// passed explicitly to every component that needs it.
package config

import (
	"errors"
	"fmt"
)

// Source kinds.
const (
	SourceDrive      = "drive"
	SourcePublic     = "public"
	SourceFilesystem = "filesystem"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Embedding providers.
const (
	EmbeddingOpenAI = "openai"
	EmbeddingOllama = "ollama"
)

// OCR engines.
const (
	OCRTesseract = "tesseract"
	OCRVision    = "vision"
	OCRNone      = "none"
)

// Drive authentication modes.
const (
	DriveAuthAPIKey          = "api_key"
	DriveAuthADC             = "adc"
	DriveAuthCredentialsFile = "credentials_file"
)

// Config is the full runtime configuration.
type Config struct {
	Source    SourceConfig    `toml:"source"`
	Store     StoreConfig     `toml:"store"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Extract   ExtractConfig   `toml:"extract"`
	OCR       OCRConfig       `toml:"ocr"`
	Ingest    IngestConfig    `toml:"ingest"`
}

// SourceConfig selects and configures the file source.
type SourceConfig struct {
	// Kind is one of "drive", "public" or "filesystem".
	Kind string `toml:"kind"`

	// FolderID is the root folder to ingest. For the filesystem source it
	// is a directory path.
	FolderID string `toml:"folder_id"`

	Drive DriveConfig `toml:"drive"`
}

// DriveConfig configures the Google Drive API source.
type DriveConfig struct {
	// Auth is one of "api_key", "adc" or "credentials_file".
	Auth            string  `toml:"auth"`
	APIKey          string  `toml:"api_key"`
	CredentialsFile string  `toml:"credentials_file"`
	PageSize        int64   `toml:"page_size"`
	RequestsPerSec  float64 `toml:"requests_per_second"`
	Burst           int     `toml:"burst"`
}

// StoreConfig selects and configures the index store.
type StoreConfig struct {
	// Driver is "postgres" or "sqlite". Empty selects postgres when a
	// database URL is set and sqlite otherwise.
	Driver      string `toml:"driver"`
	DatabaseURL string `toml:"database_url"`

	// DataDir holds the sqlite database. Defaults to ~/.folio/data.
	DataDir string `toml:"data_dir"`

	MaxConns int32 `toml:"max_conns"`

	// IVFFlatLists is the list count of the postgres ANN index.
	IVFFlatLists int `toml:"ivfflat_lists"`
}

// EmbeddingConfig configures the embedding provider and the batching,
// retry and rate limits applied around it.
type EmbeddingConfig struct {
	Provider       string  `toml:"provider"`
	Model          string  `toml:"model"`
	Dimension      int     `toml:"dimension"`
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	BatchSize      int     `toml:"batch_size"`
	MaxAttempts    int     `toml:"max_attempts"`
	RequestsPerSec float64 `toml:"requests_per_second"`
	MaxConcurrent  int     `toml:"max_concurrent"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// ExtractConfig configures per-page text extraction.
type ExtractConfig struct {
	// MinChars is the native text length below which a page is OCRed.
	MinChars int `toml:"min_chars"`

	// PageWorkers bounds concurrent page extraction within one document.
	PageWorkers int `toml:"page_workers"`

	// RenderDPI is the resolution PDF pages are rendered at for OCR.
	RenderDPI int `toml:"render_dpi"`
}

// OCRConfig selects the OCR engine and the minimum candidate image size.
type OCRConfig struct {
	Engine          string `toml:"engine"`
	Language        string `toml:"language"`
	MinImageWidth   int    `toml:"min_image_width"`
	MinImageHeight  int    `toml:"min_image_height"`
	CredentialsFile string `toml:"credentials_file"`
}

// IngestConfig configures run-level behaviour.
type IngestConfig struct {
	// SinceDays re-selects files modified in the last N days.
	SinceDays int `toml:"since_days"`

	// Workers bounds how many documents are processed concurrently.
	Workers int `toml:"workers"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Source: SourceConfig{
			Kind: SourcePublic,
			Drive: DriveConfig{
				Auth:           DriveAuthAPIKey,
				PageSize:       100,
				RequestsPerSec: 8,
				Burst:          10,
			},
		},
		Store: StoreConfig{
			MaxConns:     4,
			IVFFlatLists: 100,
		},
		Embedding: EmbeddingConfig{
			Provider:       EmbeddingOpenAI,
			Model:          "text-embedding-3-small",
			Dimension:      1536,
			BatchSize:      64,
			MaxAttempts:    5,
			RequestsPerSec: 5,
			MaxConcurrent:  2,
			TimeoutSeconds: 60,
		},
		Extract: ExtractConfig{
			MinChars:    80,
			PageWorkers: 2,
			RenderDPI:   150,
		},
		OCR: OCRConfig{
			Engine:         OCRTesseract,
			Language:       "eng",
			MinImageWidth:  500,
			MinImageHeight: 300,
		},
		Ingest: IngestConfig{
			SinceDays: 8,
			Workers:   1,
		},
	}
}

// StoreDriver resolves the effective store driver.
func (c *Config) StoreDriver() string {
	if c.Store.Driver != "" {
		return c.Store.Driver
	}
	if c.Store.DatabaseURL != "" {
		return StorePostgres
	}
	return StoreSQLite
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Source.Kind {
	case SourceDrive:
		switch c.Source.Drive.Auth {
		case DriveAuthAPIKey:
			if c.Source.Drive.APIKey == "" {
				errs = append(errs, errors.New("source.drive.api_key is required for api_key auth"))
			}
		case DriveAuthCredentialsFile:
			if c.Source.Drive.CredentialsFile == "" {
				errs = append(errs, errors.New("source.drive.credentials_file is required for credentials_file auth"))
			}
		case DriveAuthADC:
		default:
			errs = append(errs, fmt.Errorf("unknown source.drive.auth %q", c.Source.Drive.Auth))
		}
	case SourcePublic, SourceFilesystem:
	default:
		errs = append(errs, fmt.Errorf("unknown source.kind %q", c.Source.Kind))
	}
	if c.Source.FolderID == "" {
		errs = append(errs, errors.New("source.folder_id is required"))
	}

	switch c.StoreDriver() {
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("store.database_url is required for postgres"))
		}
	case StoreSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}

	switch c.Embedding.Provider {
	case EmbeddingOpenAI:
		if c.Embedding.APIKey == "" {
			errs = append(errs, errors.New("embedding.api_key is required for openai"))
		}
	case EmbeddingOllama:
	default:
		errs = append(errs, fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, errors.New("embedding.dimension must be positive"))
	}
	if c.Embedding.BatchSize <= 0 {
		errs = append(errs, errors.New("embedding.batch_size must be positive"))
	}
	if c.Embedding.MaxAttempts <= 0 {
		errs = append(errs, errors.New("embedding.max_attempts must be positive"))
	}

	switch c.OCR.Engine {
	case OCRTesseract, OCRVision, OCRNone:
	default:
		errs = append(errs, fmt.Errorf("unknown ocr.engine %q", c.OCR.Engine))
	}

	if c.Extract.MinChars < 0 {
		errs = append(errs, errors.New("extract.min_chars must not be negative"))
	}
	if c.Extract.PageWorkers <= 0 {
		errs = append(errs, errors.New("extract.page_workers must be positive"))
	}
	if c.Ingest.Workers <= 0 {
		errs = append(errs, errors.New("ingest.workers must be positive"))
	}

	return errors.Join(errs...)
}
