package attendance

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/setting"
	"github.com/shopspring/decimal"
)

var hourNanos = decimal.NewFromInt(int64(time.Hour))

func hoursWorked(s Session) decimal.Decimal {
	if s.CheckOut == nil {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(s.CheckOut.Sub(s.CheckIn))).Div(hourNanos).Round(2)
}

// HoursWorked is (check-out - check-in) in hours, rounded to 2 decimals; 0 for an open session.
func HoursWorked(s Session) float64 {
	return hoursWorked(s).InexactFloat64()
}

// IsLate reports whether check-in time-of-day is strictly after the office start.
func IsLate(s Session, cfg setting.Configuration) bool {
	return setting.TimeOfDayOf(s.CheckIn) > cfg.OfficeStart
}

// IsEarlyExit reports whether check-out time-of-day is strictly before the office end.
// Open sessions are never early exits.
func IsEarlyExit(s Session, cfg setting.Configuration) bool {
	if s.CheckOut == nil {
		return false
	}
	return setting.TimeOfDayOf(*s.CheckOut) < cfg.OfficeEnd
}

// IsOvertime reports whether HoursWorked exceeds the required daily hours.
func IsOvertime(s Session, cfg setting.Configuration) bool {
	return hoursWorked(s).GreaterThan(decimal.NewFromFloat(cfg.RequiredDailyHours))
}

// Alerts lists the attendance anomalies of a session.
func Alerts(s Session, cfg setting.Configuration) []string {
	alerts := []string{}
	if s.CheckOut == nil {
		alerts = append(alerts, AlertMissingCheckOut)
	}
	if IsLate(s, cfg) {
		alerts = append(alerts, AlertLateArrival)
	}
	if IsEarlyExit(s, cfg) {
		alerts = append(alerts, AlertEarlyExit)
	}
	return alerts
}

const (
	AlertMissingCheckOut = "missing check-out"
	AlertLateArrival     = "late arrival"
	AlertEarlyExit       = "early exit"
)

// MonthlyHours is the total hours of one employee in one calendar month.
type MonthlyHours struct {
	EmployeeID   string
	EmployeeName string
	Month        string // YYYY-MM
	Hours        float64
	Sessions     int
}

// MonthlySummary groups sessions by (employee, month of Date) and sums HoursWorked.
// The result does not depend on input order and is sorted by employee then month.
func MonthlySummary(sessions []Session) []MonthlyHours {
	type key struct{ employeeID, month string }
	type acc struct {
		name     string
		hours    decimal.Decimal
		sessions int
	}

	groups := make(map[key]*acc)
	for _, s := range sessions {
		k := key{employeeID: s.EmployeeID, month: s.Date.Format("2006-01")}
		a, ok := groups[k]
		if !ok {
			a = &acc{hours: decimal.Zero}
			groups[k] = a
		}
		if s.EmployeeName != nil && a.name == "" {
			a.name = *s.EmployeeName
		}
		a.hours = a.hours.Add(hoursWorked(s))
		a.sessions++
	}

	result := make([]MonthlyHours, 0, len(groups))
	for k, a := range groups {
		result = append(result, MonthlyHours{
			EmployeeID:   k.employeeID,
			EmployeeName: a.name,
			Month:        k.month,
			Hours:        a.hours.Round(2).InexactFloat64(),
			Sessions:     a.sessions,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].EmployeeID != result[j].EmployeeID {
			return result[i].EmployeeID < result[j].EmployeeID
		}
		return result[i].Month < result[j].Month
	})
	return result
}

// DailyAttendance is one employee's day: first check-in, last check-out and total hours.
type DailyAttendance struct {
	EmployeeID   string
	EmployeeName string
	Date         time.Time
	FirstCheckIn time.Time
	LastCheckOut *time.Time
	Hours        float64
	Sessions     int
	IsLate       bool
	IsOpen       bool
}

// DailySummary groups sessions by (employee, Date). Lateness is judged on the first check-in.
func DailySummary(sessions []Session, cfg setting.Configuration) []DailyAttendance {
	type key struct {
		employeeID string
		date       time.Time
	}
	type acc struct {
		day   DailyAttendance
		hours decimal.Decimal
		first Session
	}

	groups := make(map[key]*acc)
	for _, s := range sessions {
		k := key{employeeID: s.EmployeeID, date: s.Date}
		a, ok := groups[k]
		if !ok {
			a = &acc{
				day:   DailyAttendance{EmployeeID: s.EmployeeID, Date: s.Date, FirstCheckIn: s.CheckIn},
				hours: decimal.Zero,
				first: s,
			}
			groups[k] = a
		}
		if s.EmployeeName != nil && a.day.EmployeeName == "" {
			a.day.EmployeeName = *s.EmployeeName
		}
		if s.CheckIn.Before(a.first.CheckIn) {
			a.first = s
			a.day.FirstCheckIn = s.CheckIn
		}
		if s.CheckOut != nil && (a.day.LastCheckOut == nil || s.CheckOut.After(*a.day.LastCheckOut)) {
			out := *s.CheckOut
			a.day.LastCheckOut = &out
		}
		if s.IsOpen() {
			a.day.IsOpen = true
		}
		a.hours = a.hours.Add(hoursWorked(s))
		a.day.Sessions++
	}

	result := make([]DailyAttendance, 0, len(groups))
	for _, a := range groups {
		a.day.Hours = a.hours.Round(2).InexactFloat64()
		a.day.IsLate = IsLate(a.first, cfg)
		result = append(result, a.day)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].EmployeeID < result[j].EmployeeID
	})
	return result
}
