package http

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type ScanHandler interface {
	Scan(w http.ResponseWriter, r *http.Request)
	ScanImage(w http.ResponseWriter, r *http.Request)
	IssueToken(w http.ResponseWriter, r *http.Request)
}

type scanHandlerImpl struct {
	scanService attendance.ScanService
}

func NewScanHandler(scanService attendance.ScanService) ScanHandler {
	return &scanHandlerImpl{
		scanService: scanService,
	}
}

// clientIP returns the caller address without its port. RealIP has already
// replaced RemoteAddr when a proxy header is present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Scan implements ScanHandler.
func (h *scanHandlerImpl) Scan(w http.ResponseWriter, r *http.Request) {
	var req attendance.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode scan request", "error", err)
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ClientIP = clientIP(r)

	result, err := h.scanService.Scan(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, result.Message, result)
}

// ScanImage implements ScanHandler.
func (h *scanHandlerImpl) ScanImage(w http.ResponseWriter, r *http.Request) {
	// Parse multipart form (max 10MB)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		slog.Error("Failed to parse multipart form", "error", err)
		response.BadRequest(w, "Failed to parse form data", nil)
		return
	}

	file, fileHeader, err := r.FormFile("photo")
	if err != nil {
		if err == http.ErrMissingFile {
			response.BadRequest(w, "QR image is required", nil)
			return
		}
		slog.Error("Failed to get file from form", "error", err)
		response.BadRequest(w, "Invalid file upload", nil)
		return
	}
	defer file.Close()

	req := attendance.ScanImageRequest{
		File:       file,
		FileHeader: fileHeader,
		ClientIP:   clientIP(r),
	}

	result, err := h.scanService.ScanImage(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, result.Message, result)
}

// IssueToken implements ScanHandler.
func (h *scanHandlerImpl) IssueToken(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	result, err := h.scanService.IssueToken(r.Context(), employeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Token issued", result)
}
