package attendance

import (
	"context"
	"time"
)

// SessionRepository stores attendance sessions. Implementations must make
// LockEmployee hold until the surrounding transaction ends so that two scans for
// the same employee cannot both observe a missing open session.
type SessionRepository interface {
	// LockEmployee serializes session mutations for one employee.
	LockEmployee(ctx context.Context, employeeID string) error

	// FindLatestForDay returns the session with the greatest check-in on date, or nil.
	FindLatestForDay(ctx context.Context, employeeID string, date time.Time) (*Session, error)

	// FindOpenSession returns the day's most recent session when it is still open, or nil.
	FindOpenSession(ctx context.Context, employeeID string, date time.Time) (*Session, error)

	Create(ctx context.Context, session Session) (Session, error)

	// Update persists the check-out side of a session. Returns ErrSessionNotFound for an unknown ID.
	Update(ctx context.Context, session Session) (Session, error)

	// Query lists sessions matching filter, newest check-in first.
	Query(ctx context.Context, filter SessionFilter) ([]Session, error)

	DeleteByEmployee(ctx context.Context, employeeID string) error
}

// SessionFilter narrows Query. Dates are inclusive calendar days.
type SessionFilter struct {
	EmployeeID *string
	StartDate  *time.Time
	EndDate    *time.Time
	OpenOnly   bool
}

// TokenRepository holds the pending set of one-time tokens.
type TokenRepository interface {
	Save(ctx context.Context, token Token) error

	// Consume atomically removes a pending, unexpired token and returns it.
	// Unknown, already consumed and expired tokens fail with ErrExpiredOrUnknownToken.
	Consume(ctx context.Context, value string, now time.Time) (Token, error)

	// PurgeExpired drops tokens that can no longer be consumed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
