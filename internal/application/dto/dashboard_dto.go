package dto

// DashboardResponse conteos agregados para la consola.
type DashboardResponse struct {
	TotalInvoices   int            `json:"total_invoices"`
	ByStatus        map[string]int `json:"by_status"`
	ByEngine        map[string]int `json:"by_engine"`
	PendingReview   int            `json:"pending_review"`   // COMPLETED sin aprobar
	ProcessingCount int            `json:"processing_count"` // PROCESSING en vuelo
	ErrorCount      int            `json:"error_count"`
}
