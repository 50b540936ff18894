package report

import (
	"strings"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/validator"
)

// ========================================
// MONTHLY SUMMARY
// ========================================

type MonthlySummaryResponse struct {
	GeneratedAt string              `json:"generated_at"`
	Rows        []MonthlyHoursEntry `json:"rows"`
}

type MonthlyHoursEntry struct {
	EmployeeID   string  `json:"employee_id"`
	EmployeeName string  `json:"employee_name"`
	Month        string  `json:"month"`
	HoursWorked  float64 `json:"hours_worked"`
	Sessions     int     `json:"sessions"`
}

func NewMonthlyHoursEntries(rows []attendance.MonthlyHours) []MonthlyHoursEntry {
	entries := make([]MonthlyHoursEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, MonthlyHoursEntry{
			EmployeeID:   r.EmployeeID,
			EmployeeName: r.EmployeeName,
			Month:        r.Month,
			HoursWorked:  r.Hours,
			Sessions:     r.Sessions,
		})
	}
	return entries
}

// ========================================
// EXPORT
// ========================================

const (
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

type ExportRequest struct {
	Format string `json:"format"`
	attendance.SessionFilterRequest
}

func (r *ExportRequest) Validate() error {
	var errs validator.ValidationErrors

	r.Format = strings.ToLower(strings.TrimSpace(r.Format))
	if r.Format == "" {
		r.Format = FormatCSV
	}
	if !validator.IsInSlice(r.Format, []string{FormatCSV, FormatPDF, FormatXLSX}) {
		errs = append(errs, validator.ValidationError{
			Field:   "format",
			Message: ErrUnsupportedFormat.Error(),
		})
	}

	if err := r.SessionFilterRequest.Validate(); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok {
			errs = append(errs, ve...)
		} else {
			return err
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ExportFile is a rendered report ready to be streamed as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ========================================
// DASHBOARD
// ========================================

type DashboardRequest struct {
	Date *string `json:"date,omitempty"` // YYYY-MM-DD, today when omitted
}

func (r *DashboardRequest) Validate() error {
	if r.Date != nil && *r.Date != "" {
		if _, ok := validator.IsValidDate(*r.Date); !ok {
			return validator.ValidationErrors{{
				Field:   "date",
				Message: "date must be in YYYY-MM-DD format",
			}}
		}
	}
	return nil
}

type DashboardResponse struct {
	Date              string                 `json:"date"`
	TotalEmployees    int64                  `json:"total_employees"`
	PresentToday      int                    `json:"present_today"`
	LateComers        int                    `json:"late_comers"`
	AverageHours      float64                `json:"average_hours"`
	ClockedIn         []EmployeeRef          `json:"clocked_in"`
	MissingCheckIn    []EmployeeRef          `json:"missing_check_in"`
	UpcomingBirthdays []BirthdayEntry        `json:"upcoming_birthdays"`
	Attendance        []DailyAttendanceEntry `json:"attendance"`
	GeneratedAt       string                 `json:"generated_at"`
}

type EmployeeRef struct {
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
}

type BirthdayEntry struct {
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	DOB          string `json:"dob"`
	Day          int    `json:"day"`
}

type DailyAttendanceEntry struct {
	EmployeeID   string  `json:"employee_id"`
	EmployeeName string  `json:"employee_name"`
	FirstCheckIn string  `json:"first_check_in"`
	LastCheckOut *string `json:"last_check_out,omitempty"`
	HoursWorked  float64 `json:"hours_worked"`
	Sessions     int     `json:"sessions"`
	IsLate       bool    `json:"is_late"`
	IsOpen       bool    `json:"is_open"`
}

func NewDailyAttendanceEntry(d attendance.DailyAttendance) DailyAttendanceEntry {
	entry := DailyAttendanceEntry{
		EmployeeID:   d.EmployeeID,
		EmployeeName: d.EmployeeName,
		FirstCheckIn: d.FirstCheckIn.Format("15:04:05"),
		HoursWorked:  d.Hours,
		Sessions:     d.Sessions,
		IsLate:       d.IsLate,
		IsOpen:       d.IsOpen,
	}
	if d.LastCheckOut != nil {
		out := d.LastCheckOut.Format("15:04:05")
		entry.LastCheckOut = &out
	}
	return entry
}
