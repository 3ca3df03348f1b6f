package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// documentStatus filters `documents` by status.
var documentStatus string

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"document", "docs"},
	Short:   "List tracked documents",
	Long:    `Lists every tracked document with its status and last error.`,
	Args:    cobra.NoArgs,
	RunE:    runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

func init() {
	documentsCmd.Flags().StringVarP(&documentStatus, "status", "s", "",
		"only show documents with this status (indexed, partial, failed)")
	documentsCmd.AddCommand(documentGetCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	status := domain.DocumentStatus(documentStatus)
	if status != "" && !status.Valid() {
		return fmt.Errorf("unknown status %q", documentStatus)
	}

	docs, err := catalogService.ListDocuments(commandContext(cmd), status)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	newPrinter(cmd.OutOrStdout()).documents(docs)
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	doc, chunks, err := catalogService.GetDocument(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	newPrinter(cmd.OutOrStdout()).document(doc, chunks)
	return nil
}
