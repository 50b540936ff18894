package attendance

import (
	"mime/multipart"
	"strings"
	"time"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/setting"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/validator"
)

// ========================================
// SCAN DTOs
// ========================================

type ScanRequest struct {
	Payload   string  `json:"payload"`
	ScannedAt *string `json:"scanned_at,omitempty"` // RFC3339; server time when omitted
	ClientIP  string  `json:"-"`
}

func (r *ScanRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Payload) {
		errs = append(errs, validator.ValidationError{
			Field:   "payload",
			Message: "payload is required",
		})
	}

	if r.ScannedAt != nil && *r.ScannedAt != "" {
		if _, valid := validator.IsValidDateTime(*r.ScannedAt); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "scanned_at",
				Message: "scanned_at must be an RFC3339 timestamp",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ScanImageRequest struct {
	File       multipart.File        `json:"-"`
	FileHeader *multipart.FileHeader `json:"-"`
	ClientIP   string                `json:"-"`
}

func (r *ScanImageRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.FileHeader == nil || r.File == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "photo",
			Message: "QR image is required",
		})
		return errs
	}

	filename := r.FileHeader.Filename
	ext := ""
	if idx := strings.LastIndex(filename, "."); idx >= 0 {
		ext = strings.ToLower(filename[idx:])
	}
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
		errs = append(errs, validator.ValidationError{
			Field:   "photo",
			Message: "invalid file type: only jpg, jpeg, png allowed",
		})
	} else if r.FileHeader.Size > 10<<20 { // 10MB
		errs = append(errs, validator.ValidationError{
			Field:   "photo",
			Message: "QR image size must not exceed 10MB",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ScanResponse struct {
	Action  SessionAction   `json:"action"`
	Message string          `json:"message"`
	Session SessionResponse `json:"session"`
}

type TokenResponse struct {
	Token      string `json:"token"`
	EmployeeID string `json:"employee_id"`
	ExpiresAt  string `json:"expires_at"`
	QRCodePNG  string `json:"qr_code_png"` // base64
}

// ========================================
// SESSION DTOs
// ========================================

type SessionResponse struct {
	ID               string    `json:"id"`
	EmployeeID       string    `json:"employee_id"`
	EmployeeName     *string   `json:"employee_name,omitempty"`
	Date             string    `json:"date"`
	CheckIn          string    `json:"check_in"`
	CheckOut         *string   `json:"check_out,omitempty"`
	CheckInLocation  *Location `json:"check_in_location,omitempty"`
	CheckOutLocation *Location `json:"check_out_location,omitempty"`
	HoursWorked      float64   `json:"hours_worked"`
	IsLate           bool      `json:"is_late"`
	IsEarlyExit      bool      `json:"is_early_exit"`
	IsOvertime       bool      `json:"is_overtime"`
	Alerts           []string  `json:"alerts"`
}

// timePtrToString safely converts a *time.Time to a string.
func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	format := t.Format("2006-01-02 15:04:05")
	return &format
}

// NewSessionResponse maps a session and its derived facts.
func NewSessionResponse(s Session, cfg setting.Configuration) SessionResponse {
	return SessionResponse{
		ID:               s.ID,
		EmployeeID:       s.EmployeeID,
		EmployeeName:     s.EmployeeName,
		Date:             s.Date.Format("2006-01-02"),
		CheckIn:          s.CheckIn.Format("2006-01-02 15:04:05"),
		CheckOut:         timePtrToString(s.CheckOut),
		CheckInLocation:  s.CheckInLocation,
		CheckOutLocation: s.CheckOutLocation,
		HoursWorked:      HoursWorked(s),
		IsLate:           IsLate(s, cfg),
		IsEarlyExit:      IsEarlyExit(s, cfg),
		IsOvertime:       IsOvertime(s, cfg),
		Alerts:           Alerts(s, cfg),
	}
}

type SessionFilterRequest struct {
	EmployeeID *string `json:"employee_id,omitempty"`
	StartDate  *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate    *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	OpenOnly   bool    `json:"open_only,omitempty"`
}

func (f *SessionFilterRequest) Validate() error {
	var errs validator.ValidationErrors

	var start, end time.Time
	var hasStart, hasEnd bool
	if f.StartDate != nil && *f.StartDate != "" {
		if start, hasStart = validator.IsValidDate(*f.StartDate); !hasStart {
			errs = append(errs, validator.ValidationError{
				Field:   "start_date",
				Message: "start_date must be in YYYY-MM-DD format",
			})
		}
	}

	if f.EndDate != nil && *f.EndDate != "" {
		if end, hasEnd = validator.IsValidDate(*f.EndDate); !hasEnd {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must be in YYYY-MM-DD format",
			})
		}
	}

	if hasStart && hasEnd && end.Before(start) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ToFilter converts a validated request into a repository filter.
func (f SessionFilterRequest) ToFilter() SessionFilter {
	filter := SessionFilter{OpenOnly: f.OpenOnly}
	if f.EmployeeID != nil && *f.EmployeeID != "" {
		id := *f.EmployeeID
		filter.EmployeeID = &id
	}
	if f.StartDate != nil {
		if d, ok := validator.IsValidDate(*f.StartDate); ok {
			filter.StartDate = &d
		}
	}
	if f.EndDate != nil {
		if d, ok := validator.IsValidDate(*f.EndDate); ok {
			filter.EndDate = &d
		}
	}
	return filter
}
