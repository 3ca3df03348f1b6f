package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var schemaDimension int

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the index schema",
}

var schemaInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the index tables for a vector width",
	Long: `Creates the documents and chunks tables and their indexes. Run once
before the first ingest. Running it again with the same width is a no-op;
a different width is rejected.`,
	Args: cobra.NoArgs,
	RunE: runSchemaInit,
}

func init() {
	schemaInitCmd.Flags().IntVar(&schemaDimension, "dim", 0, "embedding dimension (default from config)")
	schemaCmd.AddCommand(schemaInitCmd)
	rootCmd.AddCommand(schemaCmd)
}

func runSchemaInit(cmd *cobra.Command, _ []string) error {
	if schemaService == nil {
		return errors.New("schema service not configured")
	}

	dim := defaultDimension
	if cmd.Flags().Changed("dim") {
		dim = schemaDimension
	}
	if dim <= 0 {
		return fmt.Errorf("invalid dimension %d", dim)
	}

	if err := schemaService.Init(commandContext(cmd), dim); err != nil {
		return fmt.Errorf("schema init failed: %w", err)
	}

	cmd.Printf("Schema ready (dimension %d).\n", dim)
	return nil
}
