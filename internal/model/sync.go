package model

// SyncSummary aggregates the outcome of one sync run over one remote page.
// Messages is keyed by KSeF reference number so callers can report which
// documents failed without aborting the run.
type SyncSummary struct {
	RunID        string            `json:"run_id"`
	Processed    int               `json:"total_processed"`
	New          int               `json:"new_invoices"`
	Errors       int               `json:"error_count"`
	Messages     map[string]string `json:"errors,omitempty"`
	TotalCount   int               `json:"total_available"`
	HasMorePages bool              `json:"has_more"`
}
