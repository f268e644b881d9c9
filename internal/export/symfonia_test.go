package export_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dec "github.com/rezonia/ksef-sync/internal/decimal"
	"github.com/rezonia/ksef-sync/internal/export"
	"github.com/rezonia/ksef-sync/internal/model"
)

func sampleInvoice() model.Invoice {
	return model.Invoice{
		ID:              1,
		ReferenceNumber: "KSEF-2024-0001-XYZ",
		InvoiceNumber:   "FV/1/2024",
		IssueDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		SellerName:      "Alfa Sp. z o.o.",
		SellerTaxID:     "1111111111",
		BuyerName:       "Beta S.A.",
		BuyerTaxID:      "2222222222",
		TotalNet:        dec.MustParseAmount("900,00"),
		TotalGross:      dec.MustParseAmount("1092,00"),
		Currency:        "PLN",
		Type:            model.InvoiceTypeVAT,
		Items: []model.LineItem{
			{
				Name:     "Item A",
				VATRate:  "23%",
				NetValue: dec.MustParseAmount("800,00"),
				VATValue: dec.MustParseAmount("184,00"),
			},
			{
				Name:     "Item B",
				VATRate:  "8%",
				NetValue: dec.MustParseAmount("100,00"),
				VATValue: dec.MustParseAmount("8,00"),
			},
		},
	}
}

func TestEncode_UnsupportedFormat(t *testing.T) {
	_, err := export.Encode([]model.Invoice{sampleInvoice()}, "CSV")
	require.ErrorIs(t, err, model.ErrUnsupportedFormat)
}

func TestEncode_HeaderLines(t *testing.T) {
	out, err := export.Encode(nil, export.FormatFK)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Format;FK;", lines[0])
	assert.Equal(t, "Wersja;3.00;", lines[1])
}

func TestEncode_SingleInvoice(t *testing.T) {
	out, err := export.Encode([]model.Invoice{sampleInvoice()}, export.FormatFK)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	expected := []string{
		"Format;FK;",
		"Wersja;3.00;",
		"Nagdok;FV;FV/1/2024;2024-01-01;Alfa Sp. z o.o.;1111111111;PLN;",
		"Opisdok;Faktura FV/1/2024 z KSeF;",
		"Wart;900.00;192.00;1092.00;",
		"Podmiot;Beta S.A.;2222222222;",
		"Platnosc;PRZELEW;2024-01-15;1092.00;",
		"Vat;23;800.00;184.00;",
		"Vat;8;100.00;8.00;",
		"DaneKsef;KSEF-2024-0001-XYZ;",
		"---",
	}
	assert.Equal(t, expected, lines)
}

func TestEncode_PaymentDueDate(t *testing.T) {
	inv := sampleInvoice()
	inv.IssueDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	out, err := export.Encode([]model.Invoice{inv}, export.FormatFK)
	require.NoError(t, err)

	// Due date is issue date + 14 calendar days
	assert.Contains(t, out, "Platnosc;PRZELEW;2024-01-15;")
}

func TestEncode_VATGroupingByRate(t *testing.T) {
	inv := sampleInvoice()
	// Two more items on already-seen rates, in shuffled order
	inv.Items = append(inv.Items,
		model.LineItem{
			VATRate:  "8%",
			NetValue: dec.MustParseAmount("50,00"),
			VATValue: dec.MustParseAmount("4,00"),
		},
		model.LineItem{
			VATRate:  "23%",
			NetValue: dec.MustParseAmount("200,00"),
			VATValue: dec.MustParseAmount("46,00"),
		},
	)

	out, err := export.Encode([]model.Invoice{inv}, export.FormatFK)
	require.NoError(t, err)

	var vatLines []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Vat;") {
			vatLines = append(vatLines, line)
		}
	}

	// One line per distinct rate, sums exact per group
	require.Len(t, vatLines, 2)
	assert.Equal(t, "Vat;23;1000.00;230.00;", vatLines[0])
	assert.Equal(t, "Vat;8;150.00;12.00;", vatLines[1])
}

func TestEncode_ExemptionRatesUppercased(t *testing.T) {
	inv := sampleInvoice()
	inv.Items = []model.LineItem{
		{VATRate: "zw", NetValue: dec.MustParseAmount("100,00"), VATValue: dec.Zero},
		{VATRate: "np", NetValue: dec.MustParseAmount("50,00"), VATValue: dec.Zero},
	}

	out, err := export.Encode([]model.Invoice{inv}, export.FormatFK)
	require.NoError(t, err)

	assert.Contains(t, out, "Vat;ZW;100.00;0.00;")
	assert.Contains(t, out, "Vat;NP;50.00;0.00;")
}

func TestEncode_NoItemsFallbackLine(t *testing.T) {
	inv := sampleInvoice()
	inv.Items = nil
	inv.TotalNet = dec.MustParseAmount("100,00")
	inv.TotalGross = dec.MustParseAmount("123,00")

	out, err := export.Encode([]model.Invoice{inv}, export.FormatFK)
	require.NoError(t, err)

	var vatLines []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Vat;") {
			vatLines = append(vatLines, line)
		}
	}
	require.Len(t, vatLines, 1)
	assert.Equal(t, "Vat;23;100.00;23.00;", vatLines[0])
}

func TestEncode_MultipleInvoicesInInputOrder(t *testing.T) {
	first := sampleInvoice()
	second := sampleInvoice()
	second.InvoiceNumber = "FV/2/2024"
	second.ReferenceNumber = "KSEF-2024-0002-ABC"

	out, err := export.Encode([]model.Invoice{first, second}, export.FormatFK)
	require.NoError(t, err)

	firstIdx := strings.Index(out, "FV/1/2024")
	secondIdx := strings.Index(out, "FV/2/2024")
	assert.Greater(t, secondIdx, firstIdx)

	assert.Equal(t, 2, strings.Count(out, "\n---"), "one separator per invoice")
}

func TestEncode_EveryRecordLineTerminated(t *testing.T) {
	out, err := export.Encode([]model.Invoice{sampleInvoice()}, export.FormatFK)
	require.NoError(t, err)

	for _, line := range strings.Split(out, "\n") {
		if line == "---" {
			continue
		}
		assert.True(t, strings.HasSuffix(line, ";"), "line %q must end with ;", line)
	}
}

func TestFilename(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 30, 9, 0, time.UTC)
	assert.Equal(t, "symfonia_export_1111111111_20240305_143009.txt",
		export.Filename("1111111111", at))
}
