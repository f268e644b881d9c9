// Package fa normalizes KSeF FA(2) XML documents into canonical invoices.
// Field resolution is bound to the single fixed FA(2) namespace; a missing
// node yields an empty value, never a parse failure. Only an unparsable
// document is a hard error.
package fa

import (
	"encoding/xml"
	"time"

	"github.com/rezonia/ksef-sync/internal/decimal"
	"github.com/rezonia/ksef-sync/internal/model"
)

// Namespace is the FA(2) schema namespace every field is resolved against
const Namespace = "http://crd.gov.pl/wzor/2023/06/29/12648/"

const dateLayout = "2006-01-02"

type faDocument struct {
	XMLName          xml.Name
	ReferenceNumber  string   `xml:"http://crd.gov.pl/wzor/2023/06/29/12648/ ReferenceNumber"`
	InvoiceNumber    string   `xml:"http://crd.gov.pl/wzor/2023/06/29/12648/ InvoiceNumber"`
	IssueDate        string   `xml:"http://crd.gov.pl/wzor/2023/06/29/12648/ IssueDate"`
	Seller           faParty  `xml:"http://crd.gov.pl/wzor/2023/06/29/12648/ Seller"`
	Buyer            faParty  `xml:"http://crd.gov.pl/wzor/2023/06/29/12648/ Buyer"`
	TotalNetAmount   string   `xml:"http://crd.gov.pl/wzor/2023/06/29/12648/ TotalNetAmount"`
	TotalGrossAmount string   `xml:"http://crd.gov.pl/wzor/2023/06/29/12648/ TotalGrossAmount"`
	Currency         string   `xml:"http://crd.gov.pl/wzor/2023/06/29/12648/ Currency"`
	Lines            []faLine `xml:"http://crd.gov.pl/wzor/2023/06/29/12648/ InvoiceLine"`
}

type faParty struct {
	FullName string `xml:"http://crd.gov.pl/wzor/2023/06/29/12648/ FullName"`
	TaxID    string `xml:"http://crd.gov.pl/wzor/2023/06/29/12648/ TaxId"`
}

type faLine struct {
	Description   string `xml:"http://crd.gov.pl/wzor/2023/06/29/12648/ Description"`
	Quantity      string `xml:"http://crd.gov.pl/wzor/2023/06/29/12648/ Quantity"`
	UnitOfMeasure string `xml:"http://crd.gov.pl/wzor/2023/06/29/12648/ UnitOfMeasure"`
	UnitNetPrice  string `xml:"http://crd.gov.pl/wzor/2023/06/29/12648/ UnitNetPrice"`
	NetAmount     string `xml:"http://crd.gov.pl/wzor/2023/06/29/12648/ NetAmount"`
	VATRate       string `xml:"http://crd.gov.pl/wzor/2023/06/29/12648/ VATRate"`
	VATAmount     string `xml:"http://crd.gov.pl/wzor/2023/06/29/12648/ VATAmount"`
	GrossAmount   string `xml:"http://crd.gov.pl/wzor/2023/06/29/12648/ GrossAmount"`
}

// Parser normalizes raw FA(2) XML into model.Invoice records
type Parser struct{}

// NewParser creates a parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse converts one raw XML document into an invoice with its line items.
// The raw bytes are retained verbatim on the invoice for later export and
// preview. The invoice type is always VAT: the FA(2) variant consumed here
// does not disambiguate correction or advance documents.
func (p *Parser) Parse(rawXML []byte) (*model.Invoice, error) {
	var doc faDocument
	if err := xml.Unmarshal(rawXML, &doc); err != nil {
		return nil, model.NewParseError("xml", "failed to parse XML document", err)
	}

	inv := &model.Invoice{
		ReferenceNumber: doc.ReferenceNumber,
		InvoiceNumber:   doc.InvoiceNumber,
		SellerName:      doc.Seller.FullName,
		SellerTaxID:     doc.Seller.TaxID,
		BuyerName:       doc.Buyer.FullName,
		BuyerTaxID:      doc.Buyer.TaxID,
		Currency:        doc.Currency,
		Type:            model.InvoiceTypeVAT,
		XMLContent:      rawXML,
	}

	if inv.Currency == "" {
		inv.Currency = model.DefaultCurrency
	}

	if date, err := time.Parse(dateLayout, doc.IssueDate); err == nil {
		inv.IssueDate = date
	}

	var err error
	if inv.TotalNet, err = decimal.ParseAmount(doc.TotalNetAmount); err != nil {
		return nil, model.NewParseError("TotalNetAmount", "invalid amount", err)
	}
	if inv.TotalGross, err = decimal.ParseAmount(doc.TotalGrossAmount); err != nil {
		return nil, model.NewParseError("TotalGrossAmount", "invalid amount", err)
	}

	for _, line := range doc.Lines {
		item, err := convertLine(line)
		if err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, *item)
	}

	return inv, nil
}

func convertLine(line faLine) (*model.LineItem, error) {
	item := &model.LineItem{
		Name:    line.Description,
		Unit:    line.UnitOfMeasure,
		VATRate: line.VATRate,
	}

	var err error
	if item.Quantity, err = decimal.ParseAmount(line.Quantity); err != nil {
		return nil, model.NewParseError("Quantity", "invalid quantity", err)
	}
	if item.UnitPriceNet, err = decimal.ParseAmount(line.UnitNetPrice); err != nil {
		return nil, model.NewParseError("UnitNetPrice", "invalid amount", err)
	}
	if item.NetValue, err = decimal.ParseAmount(line.NetAmount); err != nil {
		return nil, model.NewParseError("NetAmount", "invalid amount", err)
	}
	if item.VATValue, err = decimal.ParseAmount(line.VATAmount); err != nil {
		return nil, model.NewParseError("VATAmount", "invalid amount", err)
	}
	if item.GrossValue, err = decimal.ParseAmount(line.GrossAmount); err != nil {
		return nil, model.NewParseError("GrossAmount", "invalid amount", err)
	}
	return item, nil
}
