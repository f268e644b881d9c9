package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/ksef-sync/internal/export"
)

var (
	batchesEntityID int64
	batchesPage     int
	batchesPerPage  int
	batchDetailID   int64
)

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "Show export batch history",
	Long: `List the entity's export batches, newest first. With --id, show one
batch with the invoices it contained.`,
	RunE: runBatches,
}

func init() {
	rootCmd.AddCommand(batchesCmd)

	batchesCmd.Flags().Int64Var(&batchesEntityID, "entity-id", 0, "Entity to inspect (required)")
	batchesCmd.Flags().IntVar(&batchesPage, "page", 1, "Page number")
	batchesCmd.Flags().IntVar(&batchesPerPage, "per-page", 20, "Batches per page")
	batchesCmd.Flags().Int64Var(&batchDetailID, "id", 0, "Show one batch in detail")
	_ = batchesCmd.MarkFlagRequired("entity-id")
}

func runBatches(cmd *cobra.Command, args []string) error {
	_, log, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	service := export.NewService(db, db, db, log)
	ctx := context.Background()

	if batchDetailID > 0 {
		batch, err := service.BatchDetails(ctx, batchDetailID, batchesEntityID)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Batch %d: %s (%s, %d invoices, %s)\n",
			batch.ID, batch.Filename, batch.Format, batch.InvoiceCount,
			batch.ExportDate.Format("2006-01-02 15:04:05"))

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNUMBER\tISSUE DATE\tSELLER\tGROSS\tCURRENCY")
		for _, inv := range batch.Invoices {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				inv.ID, inv.InvoiceNumber, inv.IssueDate.Format("2006-01-02"),
				inv.SellerName, inv.TotalGross.StringFixed(2), inv.Currency)
		}
		return w.Flush()
	}

	batches, total, err := service.Batches(ctx, batchesEntityID, batchesPage, batchesPerPage)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tFILENAME\tINVOICES\tFORMAT\tSTATUS")
	for _, b := range batches {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n",
			b.ID, b.ExportDate.Format("2006-01-02 15:04:05"), b.Filename,
			b.InvoiceCount, b.Format, b.Status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%d of %d batches\n", len(batches), total)
	return nil
}
