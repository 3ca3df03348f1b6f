// Package cli provides the folio command-line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/folio/internal/core/ports/driving"
	"github.com/custodia-labs/folio/internal/logger"
)

// version is set by SetVersion from build flags.
var version = "dev"

// Global flags.
var (
	configPath string
	verbose    bool
)

// Services set by bootstrap or directly by tests.
var (
	ingestor       driving.Ingestor
	catalogService driving.CatalogService
	schemaService  driving.SchemaService

	// defaultSinceDays is the configured look-back window.
	defaultSinceDays int

	// defaultDimension is the configured embedding width.
	defaultDimension int

	closeServices func() error
)

// Services are the application services a command runs against.
type Services struct {
	Ingestor  driving.Ingestor
	Catalog   driving.CatalogService
	Schema    driving.SchemaService
	SinceDays int
	Dimension int

	// Close releases the store, source and providers. May be nil.
	Close func() error
}

// BootstrapOptions carry flag values that affect how services are built.
type BootstrapOptions struct {
	// ConfigPath overrides the default config file location.
	ConfigPath string

	// Workers overrides ingest.workers when positive.
	Workers int

	// ValidateProviders asks bootstrap to check that the embedding
	// provider is reachable before the command runs.
	ValidateProviders bool
}

// BootstrapFunc builds services once flags are parsed.
type BootstrapFunc func(ctx context.Context, opts BootstrapOptions) (*Services, error)

var bootstrap BootstrapFunc

// Command annotations read by setup.
const (
	// skipBootstrap marks commands that run without services.
	skipBootstrap = "skip-bootstrap"

	// validateProviders marks commands that call the embedding provider.
	validateProviders = "validate-providers"
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Incremental document ingestion into a vector index",
	Long: `folio keeps a vector index in step with a shared folder of PDFs and
slide decks. Each run lists the folder, selects new, changed and previously
failed files, extracts text per page or slide (with OCR where the native
text is too thin), embeds it and replaces the document's chunks.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.folio/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by `folio version`.
func SetVersion(v string) {
	version = v
}

// SetBootstrap registers the function that builds services.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices installs services directly.
func SetServices(s *Services) {
	if s == nil {
		ingestor, catalogService, schemaService = nil, nil, nil
		defaultSinceDays, defaultDimension = 0, 0
		closeServices = nil
		return
	}
	ingestor = s.Ingestor
	catalogService = s.Catalog
	schemaService = s.Schema
	defaultSinceDays = s.SinceDays
	defaultDimension = s.Dimension
	closeServices = s.Close
}

// Execute runs the root command. Services are closed even when the
// command fails.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	teardown(rootCmd, nil)
	return err
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if bootstrap == nil || cmd.Annotations[skipBootstrap] == "true" {
		return nil
	}

	svcs, err := bootstrap(cmd.Context(), BootstrapOptions{
		ConfigPath:        configPath,
		Workers:           ingestWorkers,
		ValidateProviders: cmd.Annotations[validateProviders] == "true",
	})
	if err != nil {
		return err
	}
	SetServices(svcs)
	return nil
}

func teardown(_ *cobra.Command, _ []string) {
	if closeServices == nil {
		return
	}
	if err := closeServices(); err != nil {
		logger.Warn("Closing services: %v", err)
	}
	closeServices = nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
