package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/rezonia/ksef-sync/internal/model"
	"github.com/rezonia/ksef-sync/internal/store"
)

// Params select what to export for one entity. An empty InvoiceIDs slice
// exports every not-yet-exported invoice.
type Params struct {
	EntityID   int64
	UserID     *int64
	InvoiceIDs []int64
	Format     string
	OutputDir  string
}

// Result reports both phases of an export. FilePath is set as soon as the
// file is durable; BatchID only after the ledger commit. A Result with a
// FilePath but zero BatchID means the ledger commit failed and the file
// needs manual reconciliation.
type Result struct {
	BatchID      int64  `json:"batch_id"`
	FilePath     string `json:"file_path"`
	Filename     string `json:"filename"`
	InvoiceCount int    `json:"invoice_count"`
}

// Service encodes invoices into export files and records batches
type Service struct {
	entities store.EntityStore
	invoices store.InvoiceStore
	batches  store.BatchStore
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates an export service
func NewService(entities store.EntityStore, invoices store.InvoiceStore, batches store.BatchStore, logger zerolog.Logger) *Service {
	return &Service{
		entities: entities,
		invoices: invoices,
		batches:  batches,
		logger:   logger,
		now:      time.Now,
	}
}

// Filename builds the export filename for a tax id and timestamp
func Filename(taxID string, at time.Time) string {
	return fmt.Sprintf("symfonia_export_%s_%s.txt", taxID, at.Format("20060102_150405"))
}

// Export runs the two-phase export. Phase one encodes the selected invoices
// and writes the file; phase two commits the batch to the ledger and flips
// the invoices' exported flags. The file path is logged before phase two so
// an operator can reconcile if the process dies in between; a phase-two
// failure still returns the written path alongside the error.
func (s *Service) Export(ctx context.Context, params Params) (*Result, error) {
	if params.Format == "" {
		params.Format = FormatFK
	}

	entity, err := s.entities.GetByID(ctx, params.EntityID)
	if err != nil {
		return nil, err
	}

	invoices, err := s.invoices.ListForExport(ctx, params.EntityID, params.InvoiceIDs)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, model.ErrNoInvoices
	}

	content, err := Encode(invoices, params.Format)
	if err != nil {
		return nil, err
	}

	now := s.now()
	filename := Filename(entity.TaxID, now)
	filePath := filepath.Join(params.OutputDir, filename)

	if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write export file: %w", err)
	}

	result := &Result{
		FilePath:     filePath,
		Filename:     filename,
		InvoiceCount: len(invoices),
	}

	s.logger.Info().
		Int64("entity_id", entity.ID).
		Str("file", filePath).
		Int("invoices", len(invoices)).
		Msg("export file written, committing batch")

	invoiceIDs := make([]int64, len(invoices))
	for i := range invoices {
		invoiceIDs[i] = invoices[i].ID
	}

	batch := &model.ExportBatch{
		EntityID:     params.EntityID,
		UserID:       params.UserID,
		ExportDate:   now,
		Filename:     filename,
		InvoiceCount: len(invoices),
		Status:       model.BatchStatusCompleted,
		Format:       params.Format,
	}
	batchID, err := s.batches.Create(ctx, batch, invoiceIDs)
	if err != nil {
		// The file is already durable; surface the path for reconciliation
		return result, fmt.Errorf("commit export batch (file %s already written): %w", filePath, err)
	}
	result.BatchID = batchID

	return result, nil
}

// Batches returns one page of the entity's export history plus the total count
func (s *Service) Batches(ctx context.Context, entityID int64, page, perPage int) ([]model.ExportBatch, int, error) {
	batches, err := s.batches.ListBatchesByEntity(ctx, entityID, page, perPage)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.batches.CountBatchesByEntity(ctx, entityID)
	if err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

// BatchDetails returns one batch with its linked invoices, items included
func (s *Service) BatchDetails(ctx context.Context, batchID, entityID int64) (*model.ExportBatch, error) {
	return s.batches.GetDetails(ctx, batchID, entityID)
}
