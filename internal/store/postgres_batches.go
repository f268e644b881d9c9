package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rezonia/ksef-sync/internal/model"
)

const batchColumns = `id, entity_id, user_id, export_date, filename, invoice_count, status, symfonia_format`

func (p *Postgres) Create(ctx context.Context, batch *model.ExportBatch, invoiceIDs []int64) (int64, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin batch insert: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx,
		`INSERT INTO export_batches (entity_id, user_id, export_date, filename, invoice_count, status, symfonia_format)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		batch.EntityID, batch.UserID, batch.ExportDate, batch.Filename,
		batch.InvoiceCount, batch.Status, batch.Format,
	).Scan(&batch.ID)
	if err != nil {
		return 0, fmt.Errorf("insert export batch: %w", err)
	}

	for _, invoiceID := range invoiceIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO export_batch_invoices (batch_id, invoice_id) VALUES ($1, $2)`,
			batch.ID, invoiceID)
		if err != nil {
			return 0, fmt.Errorf("link invoice %d to batch: %w", invoiceID, err)
		}
	}

	if err := markExported(ctx, tx, invoiceIDs, batch.ExportDate); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch insert: %w", err)
	}
	return batch.ID, nil
}

func (p *Postgres) ListBatchesByEntity(ctx context.Context, entityID int64, page, perPage int) ([]model.ExportBatch, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	var batches []model.ExportBatch
	err := p.db.SelectContext(ctx, &batches,
		`SELECT `+batchColumns+` FROM export_batches WHERE entity_id = $1
		 ORDER BY export_date DESC LIMIT $2 OFFSET $3`,
		entityID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("list export batches: %w", err)
	}
	return batches, nil
}

func (p *Postgres) CountBatchesByEntity(ctx context.Context, entityID int64) (int, error) {
	var count int
	err := p.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM export_batches WHERE entity_id = $1`, entityID)
	if err != nil {
		return 0, fmt.Errorf("count export batches: %w", err)
	}
	return count, nil
}

func (p *Postgres) GetDetails(ctx context.Context, batchID, entityID int64) (*model.ExportBatch, error) {
	var batch model.ExportBatch
	err := p.db.GetContext(ctx, &batch,
		`SELECT `+batchColumns+` FROM export_batches WHERE id = $1 AND entity_id = $2`,
		batchID, entityID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("batch %d: %w", batchID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get export batch: %w", err)
	}

	err = p.db.SelectContext(ctx, &batch.Invoices,
		`SELECT `+prefixColumns("i", invoiceColumns)+`
		 FROM invoices i
		 JOIN export_batch_invoices ebi ON i.id = ebi.invoice_id
		 WHERE ebi.batch_id = $1
		 ORDER BY i.issue_date, i.id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("load batch invoices: %w", err)
	}
	for i := range batch.Invoices {
		if err := p.loadItems(ctx, &batch.Invoices[i]); err != nil {
			return nil, err
		}
	}
	return &batch, nil
}
