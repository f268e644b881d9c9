// Package ksefsync provides a public API for normalizing KSeF invoices and
// rendering accounting exports without the database-backed pipeline.
//
// Example usage:
//
//	invoice, err := ksefsync.ParseInvoice(rawXML)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(invoice.InvoiceNumber)
package ksefsync

import (
	"time"

	"github.com/rezonia/ksef-sync/internal/export"
	"github.com/rezonia/ksef-sync/internal/model"
	"github.com/rezonia/ksef-sync/internal/parser/fa"
)

// Re-export core types for public API
type (
	Invoice     = model.Invoice
	LineItem    = model.LineItem
	Entity      = model.Entity
	ExportBatch = model.ExportBatch
	Environment = model.Environment
	InvoiceType = model.InvoiceType
)

// Re-export KSeF environments
const (
	EnvProd = model.EnvProd
	EnvTest = model.EnvTest
	EnvDemo = model.EnvDemo
)

// Re-export invoice types
const (
	InvoiceTypeVAT        = model.InvoiceTypeVAT
	InvoiceTypeCorrection = model.InvoiceTypeCorrection
	InvoiceTypeAdvance    = model.InvoiceTypeAdvance
)

// Re-export error types
type (
	ParseError = model.ParseError
	APIError   = model.APIError
	AuthError  = model.AuthError
)

// FormatFK is the Symfonia FK export format
const FormatFK = export.FormatFK

// ParseInvoice normalizes one FA(2) XML document into an Invoice
func ParseInvoice(rawXML []byte) (*Invoice, error) {
	return fa.NewParser().Parse(rawXML)
}

// EncodeSymfonia renders invoices into Symfonia FK import text
func EncodeSymfonia(invoices []Invoice) (string, error) {
	return export.Encode(invoices, export.FormatFK)
}

// ExportFilename builds the canonical export file name for a tax id at the
// given time
func ExportFilename(taxID string, at time.Time) string {
	return export.Filename(taxID, at)
}
