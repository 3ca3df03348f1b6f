package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index counts and the last ingestion time",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	overview, err := catalogService.Overview(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}

	newPrinter(cmd.OutOrStdout()).overview(overview)
	return nil
}
