package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/ksef-sync/internal/export"
)

var (
	exportEntityID   int64
	exportInvoiceIDs []int64
	exportFormat     string
	exportOutputDir  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export invoices to a Symfonia FK file",
	Long: `Render the entity's invoices into the Symfonia FK flat-file format,
write the file, and record the export as a batch. Exported invoices are
flagged and excluded from later default exports.

Without --ids every not-yet-exported invoice of the entity is included.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().Int64Var(&exportEntityID, "entity-id", 0, "Entity to export (required)")
	exportCmd.Flags().Int64SliceVar(&exportInvoiceIDs, "ids", nil, "Specific invoice ids to export")
	exportCmd.Flags().StringVar(&exportFormat, "format", export.FormatFK, "Export format")
	exportCmd.Flags().StringVar(&exportOutputDir, "output-dir", "", "Output directory (default: EXPORT_DIR)")
	_ = exportCmd.MarkFlagRequired("entity-id")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, log, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	outputDir := exportOutputDir
	if outputDir == "" {
		outputDir = cfg.ExportDir
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	service := export.NewService(db, db, db, log)
	result, err := service.Export(context.Background(), export.Params{
		EntityID:   exportEntityID,
		InvoiceIDs: exportInvoiceIDs,
		Format:     exportFormat,
		OutputDir:  outputDir,
	})
	if err != nil {
		if result != nil && result.FilePath != "" {
			fmt.Fprintf(os.Stderr, "export file written to %s but batch commit failed\n", result.FilePath)
		}
		return err
	}

	fmt.Fprintf(os.Stdout, "Exported %d invoices to %s (batch %d)\n",
		result.InvoiceCount, result.FilePath, result.BatchID)
	return nil
}
