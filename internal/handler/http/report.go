package http

import (
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/report"
	"github.com/cmlabs-hris/qr-attendance-go/internal/handler/http/response"
)

type ReportHandler interface {
	ListSessions(w http.ResponseWriter, r *http.Request)
	MonthlySummary(w http.ResponseWriter, r *http.Request)
	Export(w http.ResponseWriter, r *http.Request)
}

type reportHandlerImpl struct {
	reportService report.ReportService
}

func NewReportHandler(reportService report.ReportService) ReportHandler {
	return &reportHandlerImpl{
		reportService: reportService,
	}
}

func optionalQuery(r *http.Request, key string) *string {
	if v := r.URL.Query().Get(key); v != "" {
		return &v
	}
	return nil
}

// sessionFilter reads employee_id, start_date, end_date and open_only from the query string.
func sessionFilter(r *http.Request) attendance.SessionFilterRequest {
	openOnly, _ := strconv.ParseBool(r.URL.Query().Get("open_only"))
	return attendance.SessionFilterRequest{
		EmployeeID: optionalQuery(r, "employee_id"),
		StartDate:  optionalQuery(r, "start_date"),
		EndDate:    optionalQuery(r, "end_date"),
		OpenOnly:   openOnly,
	}
}

// ListSessions implements ReportHandler.
func (h *reportHandlerImpl) ListSessions(w http.ResponseWriter, r *http.Request) {
	result, err := h.reportService.ListSessions(r.Context(), sessionFilter(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, &response.Meta{TotalItems: int64(len(result))})
}

// MonthlySummary implements ReportHandler.
func (h *reportHandlerImpl) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	result, err := h.reportService.MonthlySummary(r.Context(), sessionFilter(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Export implements ReportHandler.
func (h *reportHandlerImpl) Export(w http.ResponseWriter, r *http.Request) {
	req := report.ExportRequest{
		Format:               r.URL.Query().Get("format"),
		SessionFilterRequest: sessionFilter(r),
	}

	file, err := h.reportService.Export(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.File(w, file.Filename, file.ContentType, file.Content)
}
