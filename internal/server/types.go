package server

// SyncRequest triggers one sync run for an entity. Credentials are only
// needed when the entity's stored session token is missing or expired.
type SyncRequest struct {
	DateFrom     string `json:"date_from"`
	DateTo       string `json:"date_to"`
	PageSize     int    `json:"page_size"`
	PageNumber   int    `json:"page"`
	KsefPassword string `json:"ksef_password,omitempty"`
	KsefToken    string `json:"ksef_token,omitempty"`
}

// ExportRequest triggers one export. Empty InvoiceIDs exports everything
// not yet exported for the entity.
type ExportRequest struct {
	InvoiceIDs []int64 `json:"invoice_ids"`
	Format     string  `json:"format"`
	UserID     *int64  `json:"user_id,omitempty"`
}

// ErrorResponse carries a single error message
type ErrorResponse struct {
	Error string `json:"error"`
}
