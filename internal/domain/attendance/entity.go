package attendance

import (
	"time"
)

// SessionAction is the outcome of a recorded scan.
type SessionAction string

const (
	CheckedIn  SessionAction = "checked_in"
	CheckedOut SessionAction = "checked_out"
)

// ScanEvent is a validated scan produced by the ingestor. It is immutable once created.
type ScanEvent struct {
	EmployeeID string
	At         time.Time
	Raw        string
	Kind       PayloadKind
	Location   *Location
}

// Location is the best-effort geo tag of a scan. Any field may be empty.
type Location struct {
	IP        string   `json:"ip,omitempty"`
	City      string   `json:"city,omitempty"`
	Region    string   `json:"region,omitempty"`
	Country   string   `json:"country,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	// DistanceMeters is set when both the scan and the office have coordinates.
	DistanceMeters *float64 `json:"distance_from_office_m,omitempty"`
}

// Session is one check-in/check-out pair. Date is the calendar day of CheckIn,
// stored as midnight UTC of that local date.
type Session struct {
	ID               string
	EmployeeID       string
	Date             time.Time
	CheckIn          time.Time
	CheckOut         *time.Time
	CheckInLocation  *Location
	CheckOutLocation *Location
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// DTO
	EmployeeName *string
}

// IsOpen reports whether the session has no check-out yet.
func (s Session) IsOpen() bool {
	return s.CheckOut == nil
}

// LastEventAt returns the check-out time of a closed session or the check-in time of an open one.
func (s Session) LastEventAt() time.Time {
	if s.CheckOut != nil {
		return *s.CheckOut
	}
	return s.CheckIn
}

// In returns a copy with timestamps converted to loc.
func (s Session) In(loc *time.Location) Session {
	s.CheckIn = s.CheckIn.In(loc)
	if s.CheckOut != nil {
		out := s.CheckOut.In(loc)
		s.CheckOut = &out
	}
	return s
}

// DateOf returns the calendar date of ts in loc as midnight UTC.
func DateOf(ts time.Time, loc *time.Location) time.Time {
	y, m, d := ts.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Token is a one-time credential binding a QR scan to an employee.
type Token struct {
	Value      string
	EmployeeID string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// IsExpired reports whether the token can no longer be consumed at now.
func (t Token) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
