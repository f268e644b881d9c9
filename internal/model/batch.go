package model

import "time"

// BatchStatus is recorded once the export file is on disk; no in-progress
// state is modeled.
type BatchStatus string

const BatchStatusCompleted BatchStatus = "completed"

// ExportBatch records one completed export: the generated file plus the set
// of invoices it contained. Immutable after creation.
type ExportBatch struct {
	ID           int64       `db:"id" json:"id"`
	EntityID     int64       `db:"entity_id" json:"entity_id"`
	UserID       *int64      `db:"user_id" json:"user_id,omitempty"`
	ExportDate   time.Time   `db:"export_date" json:"export_date"`
	Filename     string      `db:"filename" json:"filename"`
	InvoiceCount int         `db:"invoice_count" json:"invoice_count"`
	Status       BatchStatus `db:"status" json:"status"`
	Format       string      `db:"symfonia_format" json:"format"`

	Invoices []Invoice `db:"-" json:"invoices,omitempty"`
}
