package report

import (
	"context"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
)

// ReportService defines the read side over recorded sessions
type ReportService interface {
	// ListSessions returns filtered sessions, newest first, with derived facts
	ListSessions(ctx context.Context, req attendance.SessionFilterRequest) ([]attendance.SessionResponse, error)

	// MonthlySummary totals hours per employee per calendar month
	MonthlySummary(ctx context.Context, req attendance.SessionFilterRequest) (MonthlySummaryResponse, error)

	// Export renders filtered sessions as CSV, PDF or XLSX
	Export(ctx context.Context, req ExportRequest) (ExportFile, error)

	// Dashboard summarizes a single day
	Dashboard(ctx context.Context, req DashboardRequest) (DashboardResponse, error)
}
