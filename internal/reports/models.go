package reports

import (
	"time"

	"github.com/google/uuid"
)

// Report formats
const (
	FormatPDF = "pdf"
	FormatCSV = "csv"
)

// Report statuses
const (
	StatusReady  = "ready"
	StatusFailed = "failed"
)

// Report is a generated nutrition/activity export.
type Report struct {
	ID          uuid.UUID `json:"id"`
	OwnerUserID string    `json:"-"`
	Format      string    `json:"format"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	SizeBytes   int64     `json:"size_bytes"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateReportRequest is the payload for POST /v1/reports
type CreateReportRequest struct {
	From   string `json:"from"`   // YYYY-MM-DD
	To     string `json:"to"`     // YYYY-MM-DD
	Format string `json:"format"` // pdf | csv
}

// ReportDTO is the API representation of a report.
type ReportDTO struct {
	ID          uuid.UUID `json:"id"`
	Format      string    `json:"format"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	DownloadURL string    `json:"download_url"`
	SizeBytes   int64     `json:"size_bytes"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReportsResponse is the list envelope for GET /v1/reports
type ReportsResponse struct {
	Reports []ReportDTO `json:"reports"`
	Total   int         `json:"total"`
}
