// Package store persists entities, invoices and export batches. The
// PostgreSQL implementations use parameterized sqlx queries; in-memory
// implementations back the service tests.
package store

import (
	"context"
	"time"

	"github.com/rezonia/ksef-sync/internal/model"
)

// EntityStore reads owning entities and persists their KSeF session state
type EntityStore interface {
	GetByID(ctx context.Context, id int64) (*model.Entity, error)

	// UpdateToken overwrites the entity's session token and expiry after a
	// successful authentication.
	UpdateToken(ctx context.Context, id int64, token string, expiry time.Time) error
}

// InvoiceStore persists canonical invoices and their line items
type InvoiceStore interface {
	GetByReference(ctx context.Context, referenceNumber string) (*model.Invoice, error)
	ExistsByReference(ctx context.Context, referenceNumber string) (bool, error)

	// CreateWithItems inserts the invoice and all of its line items as one
	// atomic unit; any item failure rolls back the whole unit. The invoice's
	// ID and the items' invoice IDs are filled in on success.
	CreateWithItems(ctx context.Context, inv *model.Invoice) error

	// ListForExport returns the entity's invoices selected for export, items
	// loaded, ordered by issue date then id. An empty ids slice selects all
	// not-yet-exported invoices.
	ListForExport(ctx context.Context, entityID int64, ids []int64) ([]model.Invoice, error)

	ListByEntity(ctx context.Context, entityID int64, f model.InvoiceFilter, page, perPage int) ([]model.Invoice, error)
	CountByEntity(ctx context.Context, entityID int64, f model.InvoiceFilter) (int, error)

	Archive(ctx context.Context, id int64, at time.Time) error
}

// BatchStore records completed exports and serves batch history
type BatchStore interface {
	// Create inserts the batch row, one link row per invoice, and flips each
	// invoice's exported flag, all in one transaction. Returns the batch id.
	Create(ctx context.Context, batch *model.ExportBatch, invoiceIDs []int64) (int64, error)

	ListBatchesByEntity(ctx context.Context, entityID int64, page, perPage int) ([]model.ExportBatch, error)
	CountBatchesByEntity(ctx context.Context, entityID int64) (int, error)

	// GetDetails returns the batch plus its linked invoices with items
	GetDetails(ctx context.Context, batchID, entityID int64) (*model.ExportBatch, error)
}
