package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const foreignKeyViolation = "23503"

type sessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) attendance.SessionRepository {
	return &sessionRepository{db: db}
}

const sessionColumns = `
	s.id, s.employee_id, s.date, s.check_in, s.check_out,
	s.check_in_location, s.check_out_location, s.created_at, s.updated_at, e.name`

func scanSession(row pgx.Row) (attendance.Session, error) {
	var s attendance.Session
	err := row.Scan(
		&s.ID, &s.EmployeeID, &s.Date, &s.CheckIn, &s.CheckOut,
		&s.CheckInLocation, &s.CheckOutLocation, &s.CreatedAt, &s.UpdatedAt, &s.EmployeeName,
	)
	return s, err
}

// LockEmployee implements attendance.SessionRepository.
// The advisory lock is released when the surrounding transaction ends.
func (r *sessionRepository) LockEmployee(ctx context.Context, employeeID string) error {
	tx, ok := ctx.Value("tx").(pgx.Tx)
	if !ok {
		return fmt.Errorf("lock employee %s: no transaction in context", employeeID)
	}

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, employeeID); err != nil {
		return storeErr(fmt.Errorf("failed to lock employee %s: %w", employeeID, err))
	}
	return nil
}

// FindLatestForDay implements attendance.SessionRepository.
func (r *sessionRepository) FindLatestForDay(ctx context.Context, employeeID string, date time.Time) (*attendance.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + sessionColumns + `
		FROM attendance_sessions s
		JOIN employees e ON e.id = s.employee_id
		WHERE s.employee_id = $1 AND s.date = $2
		ORDER BY s.check_in DESC, s.created_at DESC
		LIMIT 1
	`

	s, err := scanSession(q.QueryRow(ctx, query, employeeID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr(fmt.Errorf("failed to get latest session: %w", err))
	}

	return &s, nil
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
	q := GetQuerier(ctx, r.db)

	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	query := `
		INSERT INTO attendance_sessions (
			id, employee_id, date, check_in, check_out, check_in_location, check_out_location
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		session.ID,
		session.EmployeeID,
		session.Date,
		session.CheckIn,
		session.CheckOut,
		session.CheckInLocation,
		session.CheckOutLocation,
	).Scan(&session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return attendance.Session{}, fmt.Errorf("%w: %s", attendance.ErrUnknownEmployee, session.EmployeeID)
		}
		return attendance.Session{}, storeErr(fmt.Errorf("failed to create session: %w", err))
	}

	return session, nil
}

// Update implements attendance.SessionRepository.
func (r *sessionRepository) Update(ctx context.Context, session attendance.Session) (attendance.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendance_sessions
		SET check_out = $1, check_out_location = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query, session.CheckOut, session.CheckOutLocation, session.ID).
		Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Session{}, attendance.ErrSessionNotFound
		}
		return attendance.Session{}, storeErr(fmt.Errorf("failed to update session %s: %w", session.ID, err))
	}

	return session, nil
}

// Query implements attendance.SessionRepository.
func (r *sessionRepository) Query(ctx context.Context, filter attendance.SessionFilter) ([]attendance.Session, error) {
	q := GetQuerier(ctx, r.db)

	baseWhere := "WHERE 1 = 1"
	args := []interface{}{}
	argIdx := 1

	if filter.EmployeeID != nil {
		baseWhere += fmt.Sprintf(" AND s.employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.StartDate != nil {
		baseWhere += fmt.Sprintf(" AND s.date >= $%d", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil {
		baseWhere += fmt.Sprintf(" AND s.date <= $%d", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}
	if filter.OpenOnly {
		baseWhere += " AND s.check_out IS NULL"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM attendance_sessions s
		JOIN employees e ON e.id = s.employee_id
		%s
		ORDER BY s.check_in DESC, s.created_at DESC
	`, sessionColumns, baseWhere)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr(fmt.Errorf("failed to query sessions: %w", err))
	}
	defer rows.Close()

	sessions := []attendance.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr(fmt.Errorf("error iterating sessions: %w", err))
	}

	return sessions, nil
}

// DeleteByEmployee implements attendance.SessionRepository.
func (r *sessionRepository) DeleteByEmployee(ctx context.Context, employeeID string) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `DELETE FROM attendance_sessions WHERE employee_id = $1`, employeeID); err != nil {
		return storeErr(fmt.Errorf("failed to delete sessions of employee %s: %w", employeeID, err))
	}
	return nil
}
