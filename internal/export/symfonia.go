// Package export renders canonical invoices into the Symfonia FK flat-file
// grammar and records completed exports as batches. The file grammar is
// consumed byte-for-byte by a downstream accounting tool; do not change a
// line format without checking against that tool.
package export

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	dec "github.com/rezonia/ksef-sync/internal/decimal"
	"github.com/rezonia/ksef-sync/internal/model"
)

// FormatFK is the only supported export format
const FormatFK = "FK"

const (
	formatVersion  = "3.00"
	documentType   = "FV"
	paymentMethod  = "PRZELEW"
	paymentDueDays = 14
	defaultVATRate = "23"
	separator      = "---"
	dateLayout     = "2006-01-02"
)

// Encode renders the invoices, in input order, into the FK grammar. Any
// format other than FormatFK is rejected before a single line is produced.
func Encode(invoices []model.Invoice, format string) (string, error) {
	if format != FormatFK {
		return "", fmt.Errorf("%q: %w", format, model.ErrUnsupportedFormat)
	}

	lines := []string{
		"Format;FK;",
		"Wersja;" + formatVersion + ";",
	}

	for i := range invoices {
		lines = append(lines, encodeInvoice(&invoices[i])...)
	}

	return strings.Join(lines, "\n"), nil
}

func encodeInvoice(inv *model.Invoice) []string {
	issueDate := inv.IssueDate.Format(dateLayout)
	dueDate := inv.IssueDate.AddDate(0, 0, paymentDueDays).Format(dateLayout)

	netAmount := dec.FormatAmount(inv.TotalNet)
	vatAmount := dec.FormatAmount(inv.TotalVAT())
	grossAmount := dec.FormatAmount(inv.TotalGross)

	lines := []string{
		fmt.Sprintf("Nagdok;%s;%s;%s;%s;%s;%s;",
			documentType, inv.InvoiceNumber, issueDate, inv.SellerName, inv.SellerTaxID, inv.Currency),
		fmt.Sprintf("Opisdok;Faktura %s z KSeF;", inv.InvoiceNumber),
		fmt.Sprintf("Wart;%s;%s;%s;", netAmount, vatAmount, grossAmount),
		fmt.Sprintf("Podmiot;%s;%s;", inv.BuyerName, inv.BuyerTaxID),
		fmt.Sprintf("Platnosc;%s;%s;%s;", paymentMethod, dueDate, grossAmount),
	}

	lines = append(lines, vatSummaryLines(inv, netAmount, vatAmount)...)
	lines = append(lines,
		fmt.Sprintf("DaneKsef;%s;", inv.ReferenceNumber),
		separator,
	)
	return lines
}

type vatGroup struct {
	label string
	net   decimal.Decimal
	vat   decimal.Decimal
}

// vatSummaryLines groups line items by VAT rate. The grouping key strips a
// "%" suffix from the raw rate token; exemption tokens "zw" and "np" keep
// their letters but are upper-cased in the output. Group order follows first
// appearance; sums are exact, rounded only when formatted.
func vatSummaryLines(inv *model.Invoice, netAmount, vatAmount string) []string {
	if len(inv.Items) == 0 {
		// No line detail: one fallback line from the invoice-level totals
		return []string{fmt.Sprintf("Vat;%s;%s;%s;", defaultVATRate, netAmount, vatAmount)}
	}

	var groups []*vatGroup
	index := make(map[string]*vatGroup)
	for _, item := range inv.Items {
		rate := item.VATRate
		if rate == "" {
			rate = defaultVATRate + "%"
		}
		key := strings.ReplaceAll(rate, "%", "")
		group, ok := index[key]
		if !ok {
			group = &vatGroup{label: vatRateLabel(key)}
			index[key] = group
			groups = append(groups, group)
		}
		group.net = group.net.Add(item.NetValue)
		group.vat = group.vat.Add(item.VATValue)
	}

	lines := make([]string, 0, len(groups))
	for _, group := range groups {
		lines = append(lines, fmt.Sprintf("Vat;%s;%s;%s;",
			group.label, dec.FormatAmount(group.net), dec.FormatAmount(group.vat)))
	}
	return lines
}

func vatRateLabel(key string) string {
	switch key {
	case "zw", "np":
		return strings.ToUpper(key)
	default:
		return key
	}
}
