package ksef

import "time"

// Session is an authenticated KSeF session token and its expiry
type Session struct {
	Token  string
	Expiry time.Time
}

// ListQuery selects one page of the entity's invoice list
type ListQuery struct {
	DateFrom   string // YYYY-MM-DD
	DateTo     string // YYYY-MM-DD
	PageSize   int    // clamped to MaxPageSize
	PageNumber int    // 1-based
}

// InvoiceHeader is one entry of the list response. Only the reference number
// is required downstream; the rest is what the list endpoint happens to echo.
type InvoiceHeader struct {
	ReferenceNumber string `json:"ksefReferenceNumber"`
	InvoiceNumber   string `json:"invoiceNumber"`
	IssueDate       string `json:"issueDate"`
	SellerName      string `json:"sellerName"`
	SellerTaxID     string `json:"sellerTaxId"`
}

// ListResult is one page of invoice headers plus pagination state
type ListResult struct {
	Items        []InvoiceHeader
	TotalCount   int
	HasMorePages bool
}

type authTokenRequest struct {
	Identifier string `json:"identifier"`
	Token      string `json:"token"`
}

type authLoginRequest struct {
	NIP      string `json:"nip"`
	Password string `json:"password"`
}

type authResponse struct {
	Token  string `json:"token"`
	Expiry string `json:"expiry"`
	Error  string `json:"error"`
}

type statusResponse struct {
	Active bool `json:"active"`
}

type listResponse struct {
	Invoices     []InvoiceHeader `json:"invoices"`
	TotalCount   int             `json:"totalCount"`
	HasMorePages bool            `json:"hasMorePages"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
