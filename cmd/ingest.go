package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	ingestCatalogPath  string
	ingestDocumentPath string
	ingestSourceTag    string
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load catalog or documentation into the knowledge store",
		Long:  "Embeds and indexes knowledge for retrieval. --catalog replaces the product catalog from a JSON file; --document appends a chunked text document.",
		RunE:  runIngest,
	}
	cmd.Flags().StringVar(&ingestCatalogPath, "catalog", "", "JSON file with the product catalog array")
	cmd.Flags().StringVar(&ingestDocumentPath, "document", "", "text file with support documentation")
	cmd.Flags().StringVar(&ingestSourceTag, "tag", "", "source tag stored with document chunks")
	return cmd
}

func runIngest(cmd *cobra.Command, _ []string) error {
	setupLogging()

	if ingestCatalogPath == "" && ingestDocumentPath == "" {
		return fmt.Errorf("nothing to ingest: pass --catalog and/or --document")
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()

	if ingestCatalogPath != "" {
		n, err := a.retriever.IngestCatalogFile(ctx, ingestCatalogPath)
		if err != nil {
			return fmt.Errorf("ingest catalog: %w", err)
		}
		fmt.Printf("catalog: %d chunks indexed\n", n)
	}

	if ingestDocumentPath != "" {
		n, err := a.retriever.IngestDocumentFile(ctx, ingestDocumentPath, ingestSourceTag)
		if err != nil {
			return fmt.Errorf("ingest document: %w", err)
		}
		fmt.Printf("document: %d chunks indexed\n", n)
	}

	return nil
}
