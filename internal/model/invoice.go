package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceType classifies the fiscal document type
type InvoiceType string

const (
	InvoiceTypeVAT        InvoiceType = "VAT"
	InvoiceTypeCorrection InvoiceType = "CORRECTION"
	InvoiceTypeAdvance    InvoiceType = "ADVANCE"
)

// DefaultCurrency is used when the source document carries no currency node
const DefaultCurrency = "PLN"

// Invoice is the canonical record of one document pulled from KSeF.
// ReferenceNumber is assigned by KSeF, globally unique, and used as the
// deduplication key during sync.
type Invoice struct {
	ID              int64           `db:"id" json:"id"`
	ReferenceNumber string          `db:"ksef_reference_number" json:"ksef_reference_number"`
	EntityID        int64           `db:"entity_id" json:"entity_id"`
	InvoiceNumber   string          `db:"invoice_number" json:"invoice_number"`
	IssueDate       time.Time       `db:"issue_date" json:"issue_date"`
	SellerName      string          `db:"seller_name" json:"seller_name"`
	SellerTaxID     string          `db:"seller_tax_id" json:"seller_tax_id"`
	BuyerName       string          `db:"buyer_name" json:"buyer_name"`
	BuyerTaxID      string          `db:"buyer_tax_id" json:"buyer_tax_id"`
	TotalNet        decimal.Decimal `db:"total_net" json:"total_net"`
	TotalGross      decimal.Decimal `db:"total_gross" json:"total_gross"`
	Currency        string          `db:"currency" json:"currency"`
	Type            InvoiceType     `db:"invoice_type" json:"invoice_type"`
	XMLContent      []byte          `db:"xml_content" json:"-"`
	IsExported      bool            `db:"is_exported" json:"is_exported"`
	IsArchived      bool            `db:"is_archived" json:"is_archived"`
	ExportedAt      *time.Time      `db:"exported_at" json:"exported_at,omitempty"`
	ArchivedAt      *time.Time      `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`

	Items []LineItem `db:"-" json:"items,omitempty"`
}

// TotalVAT derives the VAT amount from the stored totals
func (i *Invoice) TotalVAT() decimal.Decimal {
	return i.TotalGross.Sub(i.TotalNet)
}

// LineItem is one invoice line in document order. Items are owned by their
// invoice and never exist standalone.
type LineItem struct {
	ID           int64           `db:"id" json:"id"`
	InvoiceID    int64           `db:"invoice_id" json:"invoice_id"`
	Name         string          `db:"name" json:"name"`
	Quantity     decimal.Decimal `db:"quantity" json:"quantity"`
	Unit         string          `db:"unit" json:"unit"`
	UnitPriceNet decimal.Decimal `db:"unit_price_net" json:"unit_price_net"`
	NetValue     decimal.Decimal `db:"net_value" json:"net_value"`
	VATRate      string          `db:"vat_rate" json:"vat_rate"`
	VATValue     decimal.Decimal `db:"vat_value" json:"vat_value"`
	GrossValue   decimal.Decimal `db:"gross_value" json:"gross_value"`
}

// InvoiceFilter narrows entity-scoped invoice listings
type InvoiceFilter struct {
	DateFrom      *time.Time
	DateTo        *time.Time
	InvoiceNumber string
	SellerTaxID   string
	BuyerTaxID    string
}
