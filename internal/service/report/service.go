package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/report"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/setting"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/export"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type ReportServiceImpl struct {
	sessionRepo    attendance.SessionRepository
	employeeRepo   employee.EmployeeRepository
	settingService setting.SettingService
	loc            *time.Location
	now            func() time.Time
}

func NewReportService(
	sessionRepo attendance.SessionRepository,
	employeeRepo employee.EmployeeRepository,
	settingService setting.SettingService,
	loc *time.Location,
) report.ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &ReportServiceImpl{
		sessionRepo:    sessionRepo,
		employeeRepo:   employeeRepo,
		settingService: settingService,
		loc:            loc,
		now:            time.Now,
	}
}

// sessions runs the filter and converts every session to office time.
func (s *ReportServiceImpl) sessions(ctx context.Context, filter attendance.SessionFilter) ([]attendance.Session, error) {
	sessions, err := s.sessionRepo.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	for i := range sessions {
		sessions[i] = sessions[i].In(s.loc)
	}
	return sessions, nil
}

// ListSessions implements report.ReportService.
func (s *ReportServiceImpl) ListSessions(ctx context.Context, req attendance.SessionFilterRequest) ([]attendance.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cfg, err := s.settingService.Get(ctx)
	if err != nil {
		return nil, err
	}

	sessions, err := s.sessions(ctx, req.ToFilter())
	if err != nil {
		return nil, err
	}

	responses := make([]attendance.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, attendance.NewSessionResponse(session, cfg))
	}
	return responses, nil
}

// MonthlySummary implements report.ReportService.
func (s *ReportServiceImpl) MonthlySummary(ctx context.Context, req attendance.SessionFilterRequest) (report.MonthlySummaryResponse, error) {
	if err := req.Validate(); err != nil {
		return report.MonthlySummaryResponse{}, err
	}

	sessions, err := s.sessions(ctx, req.ToFilter())
	if err != nil {
		return report.MonthlySummaryResponse{}, err
	}

	return report.MonthlySummaryResponse{
		GeneratedAt: s.now().In(s.loc).Format(time.RFC3339),
		Rows:        report.NewMonthlyHoursEntries(attendance.MonthlySummary(sessions)),
	}, nil
}

// Export implements report.ReportService.
func (s *ReportServiceImpl) Export(ctx context.Context, req report.ExportRequest) (report.ExportFile, error) {
	if err := req.Validate(); err != nil {
		return report.ExportFile{}, err
	}

	cfg, err := s.settingService.Get(ctx)
	if err != nil {
		return report.ExportFile{}, err
	}

	sessions, err := s.sessions(ctx, req.ToFilter())
	if err != nil {
		return report.ExportFile{}, err
	}

	// Oldest first reads naturally in a spreadsheet.
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CheckIn.Before(sessions[j].CheckIn)
	})

	rows := make([]export.Row, 0, len(sessions))
	for _, session := range sessions {
		rows = append(rows, exportRow(session, cfg))
	}

	now := s.now().In(s.loc)
	base := "attendance_" + now.Format("20060102_150405")

	var file report.ExportFile
	switch req.Format {
	case report.FormatPDF:
		file.Content, err = export.PDF("Attendance Report", rows, now)
		file.Filename = base + ".pdf"
		file.ContentType = "application/pdf"
	case report.FormatXLSX:
		file.Content, err = export.XLSX(rows)
		file.Filename = base + ".xlsx"
		file.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		file.Content, err = export.CSV(rows)
		file.Filename = base + ".csv"
		file.ContentType = "text/csv"
	}
	if err != nil {
		return report.ExportFile{}, fmt.Errorf("%w: %w", report.ErrExportFailed, err)
	}
	return file, nil
}

func exportRow(session attendance.Session, cfg setting.Configuration) export.Row {
	row := export.Row{
		EmployeeID:  session.EmployeeID,
		Date:        session.Date.Format("2006-01-02"),
		CheckIn:     session.CheckIn.Format("15:04:05"),
		HoursWorked: attendance.HoursWorked(session),
		Late:        attendance.IsLate(session, cfg),
		EarlyExit:   attendance.IsEarlyExit(session, cfg),
		Overtime:    attendance.IsOvertime(session, cfg),
	}
	if session.EmployeeName != nil {
		row.EmployeeName = *session.EmployeeName
	}
	if session.CheckOut != nil {
		row.CheckOut = session.CheckOut.Format("15:04:05")
	}
	return row
}

// Dashboard implements report.ReportService.
func (s *ReportServiceImpl) Dashboard(ctx context.Context, req report.DashboardRequest) (report.DashboardResponse, error) {
	if err := req.Validate(); err != nil {
		return report.DashboardResponse{}, err
	}

	now := s.now().In(s.loc)
	day := attendance.DateOf(now, s.loc)
	if req.Date != nil && *req.Date != "" {
		day, _ = validator.IsValidDate(*req.Date)
	}

	cfg, err := s.settingService.Get(ctx)
	if err != nil {
		return report.DashboardResponse{}, err
	}

	total, err := s.employeeRepo.Count(ctx)
	if err != nil {
		return report.DashboardResponse{}, fmt.Errorf("failed to count employees: %w", err)
	}

	employees, err := s.employeeRepo.List(ctx)
	if err != nil {
		return report.DashboardResponse{}, fmt.Errorf("failed to list employees: %w", err)
	}

	sessions, err := s.sessions(ctx, attendance.SessionFilter{StartDate: &day, EndDate: &day})
	if err != nil {
		return report.DashboardResponse{}, err
	}

	resp := report.DashboardResponse{
		Date:              day.Format("2006-01-02"),
		TotalEmployees:    total,
		ClockedIn:         []report.EmployeeRef{},
		MissingCheckIn:    []report.EmployeeRef{},
		UpcomingBirthdays: []report.BirthdayEntry{},
		Attendance:        []report.DailyAttendanceEntry{},
		GeneratedAt:       now.Format(time.RFC3339),
	}

	present := make(map[string]bool)
	for _, d := range attendance.DailySummary(sessions, cfg) {
		present[d.EmployeeID] = true
		resp.Attendance = append(resp.Attendance, report.NewDailyAttendanceEntry(d))
		if d.IsLate {
			resp.LateComers++
		}
		if d.IsOpen {
			resp.ClockedIn = append(resp.ClockedIn, report.EmployeeRef{EmployeeID: d.EmployeeID, EmployeeName: d.EmployeeName})
		}
	}
	resp.PresentToday = len(present)

	hours := decimal.Zero
	closed := 0
	for _, session := range sessions {
		if session.IsOpen() {
			continue
		}
		hours = hours.Add(decimal.NewFromFloat(attendance.HoursWorked(session)))
		closed++
	}
	if closed > 0 {
		resp.AverageHours = hours.Div(decimal.NewFromInt(int64(closed))).Round(1).InexactFloat64()
	}

	for _, emp := range employees {
		if !present[emp.ID] {
			resp.MissingCheckIn = append(resp.MissingCheckIn, report.EmployeeRef{EmployeeID: emp.ID, EmployeeName: emp.Name})
		}
		if emp.DOB.Month() == day.Month() && emp.DOB.Day() >= day.Day() {
			resp.UpcomingBirthdays = append(resp.UpcomingBirthdays, report.BirthdayEntry{
				EmployeeID:   emp.ID,
				EmployeeName: emp.Name,
				DOB:          emp.DOB.Format("2006-01-02"),
				Day:          emp.DOB.Day(),
			})
		}
	}
	sort.SliceStable(resp.UpcomingBirthdays, func(i, j int) bool {
		return resp.UpcomingBirthdays[i].Day < resp.UpcomingBirthdays[j].Day
	})

	return resp, nil
}
