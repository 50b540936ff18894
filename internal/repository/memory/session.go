package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
	"github.com/google/uuid"
)

type sessionRepository struct {
	store *Store
}

func NewSessionRepository(store *Store) attendance.SessionRepository {
	return &sessionRepository{store: store}
}

func copyLocation(loc *attendance.Location) *attendance.Location {
	if loc == nil {
		return nil
	}
	c := *loc
	if loc.Latitude != nil {
		v := *loc.Latitude
		c.Latitude = &v
	}
	if loc.Longitude != nil {
		v := *loc.Longitude
		c.Longitude = &v
	}
	if loc.DistanceMeters != nil {
		v := *loc.DistanceMeters
		c.DistanceMeters = &v
	}
	return &c
}

func copySession(s attendance.Session) attendance.Session {
	if s.CheckOut != nil {
		out := *s.CheckOut
		s.CheckOut = &out
	}
	s.CheckInLocation = copyLocation(s.CheckInLocation)
	s.CheckOutLocation = copyLocation(s.CheckOutLocation)
	s.EmployeeName = nil
	return s
}

// withName copies a stored session for a caller. Callers hold s.mu.
func (r *sessionRepository) withName(s attendance.Session) attendance.Session {
	out := copySession(s)
	if emp, ok := r.store.employees[s.EmployeeID]; ok {
		name := emp.Name
		out.EmployeeName = &name
	}
	return out
}

func newerFirst(a, b attendance.Session) bool {
	if !a.CheckIn.Equal(b.CheckIn) {
		return a.CheckIn.After(b.CheckIn)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// LockEmployee implements attendance.SessionRepository.
func (r *sessionRepository) LockEmployee(ctx context.Context, employeeID string) error {
	return r.store.lockEmployee(ctx, employeeID)
}

// FindLatestForDay implements attendance.SessionRepository.
func (r *sessionRepository) FindLatestForDay(_ context.Context, employeeID string, date time.Time) (*attendance.Session, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var latest *attendance.Session
	for _, s := range r.store.sessions {
		if s.EmployeeID != employeeID || !s.Date.Equal(date) {
			continue
		}
		if latest == nil || newerFirst(s, *latest) {
			candidate := s
			latest = &candidate
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := r.withName(*latest)
	return &out, nil
}

// FindOpenSession implements attendance.SessionRepository.
func (r *sessionRepository) FindOpenSession(ctx context.Context, employeeID string, date time.Time) (*attendance.Session, error) {
	latest, err := r.FindLatestForDay(ctx, employeeID, date)
	if err != nil || latest == nil || !latest.IsOpen() {
		return nil, err
	}
	return latest, nil
}

// Create implements attendance.SessionRepository.
func (r *sessionRepository) Create(ctx context.Context, session attendance.Session) (attendance.Session, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.employees[session.EmployeeID]; !ok {
		return attendance.Session{}, fmt.Errorf("%w: %s", attendance.ErrUnknownEmployee, session.EmployeeID)
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	r.store.sessions[session.ID] = copySession(session)

	id := session.ID
	r.store.record(ctx, func() { delete(r.store.sessions, id) })
	return session, nil
}

// Update implements attendance.SessionRepository.
func (r *sessionRepository) Update(ctx context.Context, session attendance.Session) (attendance.Session, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	prev, ok := r.store.sessions[session.ID]
	if !ok {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}

	next := prev
	next.CheckOut = session.CheckOut
	next.CheckOutLocation = session.CheckOutLocation
	next.UpdatedAt = time.Now().UTC()
	r.store.sessions[session.ID] = copySession(next)

	r.store.record(ctx, func() { r.store.sessions[prev.ID] = prev })

	session.CreatedAt = next.CreatedAt
	session.UpdatedAt = next.UpdatedAt
	return session, nil
}

// Query implements attendance.SessionRepository.
func (r *sessionRepository) Query(_ context.Context, filter attendance.SessionFilter) ([]attendance.Session, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	sessions := []attendance.Session{}
	for _, s := range r.store.sessions {
		if filter.EmployeeID != nil && s.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.StartDate != nil && s.Date.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && s.Date.After(*filter.EndDate) {
			continue
		}
		if filter.OpenOnly && !s.IsOpen() {
			continue
		}
		sessions = append(sessions, r.withName(s))
	}

	sort.Slice(sessions, func(i, j int) bool { return newerFirst(sessions[i], sessions[j]) })
	return sessions, nil
}

// DeleteByEmployee implements attendance.SessionRepository.
func (r *sessionRepository) DeleteByEmployee(ctx context.Context, employeeID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.deleteSessionsLocked(ctx, employeeID)
	return nil
}

// deleteSessionsLocked removes every session of an employee. Callers hold s.mu.
func (s *Store) deleteSessionsLocked(ctx context.Context, employeeID string) {
	for id, session := range s.sessions {
		if session.EmployeeID != employeeID {
			continue
		}
		delete(s.sessions, id)
		saved := session
		s.record(ctx, func() { s.sessions[saved.ID] = saved })
	}
}
