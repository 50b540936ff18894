package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/report"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/setting"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/qrcode"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Scan path errors
	case errors.Is(err, attendance.ErrInvalidPayload):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrDecodeFailure):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrExpiredOrUnknownToken):
		Unauthorized(w, "Invalid or expired QR token")
	case errors.Is(err, attendance.ErrUnknownEmployee):
		NotFound(w, "Unknown employee")
	case errors.Is(err, attendance.ErrOutOfOrderScan):
		Conflict(w, "Scan is earlier than the latest recorded event")
	case errors.Is(err, attendance.ErrSessionNotFound):
		NotFound(w, "Attendance session not found")

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrEmployeeIDExists):
		Conflict(w, "Employee ID already exists")

	// Setting domain errors
	case errors.Is(err, setting.ErrParseFailure),
		errors.Is(err, setting.ErrOfficeEndBeforeStart),
		errors.Is(err, setting.ErrInvalidRequiredHours):
		UnprocessableEntity(w, err.Error())

	// Report and rendering errors
	case errors.Is(err, report.ErrUnsupportedFormat),
		errors.Is(err, report.ErrInvalidDateRange),
		errors.Is(err, qrcode.ErrInvalidSize):
		UnprocessableEntity(w, err.Error())

	// Storage
	case errors.Is(err, attendance.ErrStoreUnavailable):
		slog.Error("store unavailable", "error", err)
		ServiceUnavailable(w, "Attendance store is unavailable, try again later")

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
