package drive

import "github.com/custodia-labs/folio/internal/connectors/google"

// DefaultPageSize is the files.list page size.
const DefaultPageSize = 100

// Config holds Google Drive source configuration.
type Config struct {
	// PageSize is the page size for files.list requests.
	PageSize int64

	// RateLimit throttles every Drive request made by the source.
	RateLimit google.RateLimitConfig

	// MaxFileSize bounds a single download. Zero uses MaxDownloadSize.
	MaxFileSize int64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:    DefaultPageSize,
		RateLimit:   google.DefaultDriveRateLimit,
		MaxFileSize: MaxDownloadSize,
	}
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = MaxDownloadSize
	}
	return c
}
