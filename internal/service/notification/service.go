package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/setting"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/email"
)

type service struct {
	mailer    email.EmailService
	recipient string
}

// NewNotificationService returns a notifier that emails recipient. With an
// empty recipient every alert is dropped.
func NewNotificationService(mailer email.EmailService, recipient string) attendance.Notifier {
	return &service{mailer: mailer, recipient: recipient}
}

// NotifyScanAlert implements attendance.Notifier.
func (s *service) NotifyScanAlert(ctx context.Context, action attendance.SessionAction, session attendance.Session, alerts []string, cfg setting.Configuration) error {
	if s.recipient == "" || len(alerts) == 0 {
		return nil
	}

	name := session.EmployeeID
	if session.EmployeeName != nil {
		name = *session.EmployeeName
	}

	data := email.AttendanceAlertData{
		EmployeeID:   session.EmployeeID,
		EmployeeName: name,
		Alerts:       alerts,
		OfficeStart:  cfg.OfficeStart.String(),
		OfficeEnd:    cfg.OfficeEnd.String(),
	}

	loc := session.CheckInLocation
	switch action {
	case attendance.CheckedOut:
		data.Action = "checked out"
		if session.CheckOut != nil {
			data.ScannedAt = session.CheckOut.Format("2006-01-02 15:04:05")
		}
		loc = session.CheckOutLocation
	default:
		data.Action = "checked in"
		data.ScannedAt = session.CheckIn.Format("2006-01-02 15:04:05")
	}
	data.Location = describe(loc)

	if err := s.mailer.SendAttendanceAlert(s.recipient, data); err != nil {
		return fmt.Errorf("%w: %v", attendance.ErrDeliveryFailure, err)
	}

	slog.InfoContext(ctx, "attendance alert sent",
		"employee_id", session.EmployeeID,
		"action", string(action),
		"alerts", alerts,
	)
	return nil
}

func describe(loc *attendance.Location) string {
	if loc == nil {
		return ""
	}
	parts := []string{}
	for _, p := range []string{loc.City, loc.Region, loc.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return loc.IP
	}
	return strings.Join(parts, ", ")
}
