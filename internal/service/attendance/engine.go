package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/transaction"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/keylock"
)

type EngineImpl struct {
	transaction.Transactor
	attendance.SessionRepository
	employee.EmployeeRepository
	policy attendance.ScanPolicy
	loc    *time.Location
	locks  *keylock.KeyLock
	now    func() time.Time
}

// NewEngine builds the attendance engine. loc defines the calendar day a scan belongs to.
func NewEngine(
	tx transaction.Transactor,
	sessionRepo attendance.SessionRepository,
	employeeRepo employee.EmployeeRepository,
	policy attendance.ScanPolicy,
	loc *time.Location,
) attendance.Engine {
	if policy == nil {
		policy = attendance.PermissivePolicy{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &EngineImpl{
		Transactor:         tx,
		SessionRepository:  sessionRepo,
		EmployeeRepository: employeeRepo,
		policy:             policy,
		loc:                loc,
		locks:              keylock.New(),
		now:                time.Now,
	}
}

// RecordScan implements attendance.Engine.
func (e *EngineImpl) RecordScan(ctx context.Context, event attendance.ScanEvent) (attendance.SessionAction, attendance.Session, error) {
	if event.EmployeeID == "" {
		return "", attendance.Session{}, fmt.Errorf("%w: missing employee id", attendance.ErrInvalidPayload)
	}
	if event.At.IsZero() {
		event.At = e.now()
	}

	unlock := e.locks.Lock(event.EmployeeID)
	defer unlock()

	var action attendance.SessionAction
	var result attendance.Session
	err := e.WithinTransaction(ctx, func(ctx context.Context) error {
		// Held until commit; DeleteEmployee takes the same lock.
		if err := e.SessionRepository.LockEmployee(ctx, event.EmployeeID); err != nil {
			return err
		}

		emp, err := e.EmployeeRepository.GetByID(ctx, event.EmployeeID)
		if err != nil {
			if errors.Is(err, employee.ErrEmployeeNotFound) {
				return fmt.Errorf("%w: %s: %w", attendance.ErrUnknownEmployee, event.EmployeeID, err)
			}
			return fmt.Errorf("failed to look up employee: %w", err)
		}

		date := attendance.DateOf(event.At, e.loc)
		latest, err := e.SessionRepository.FindLatestForDay(ctx, event.EmployeeID, date)
		if err != nil {
			return fmt.Errorf("failed to get latest session: %w", err)
		}

		if err := e.policy.Check(ctx, latest, event); err != nil {
			return err
		}

		at := event.At.UTC()
		if latest != nil && latest.IsOpen() {
			latest.CheckOut = &at
			latest.CheckOutLocation = event.Location
			updated, err := e.SessionRepository.Update(ctx, *latest)
			if err != nil {
				return fmt.Errorf("failed to record check-out: %w", err)
			}
			action, result = attendance.CheckedOut, updated
		} else {
			created, err := e.SessionRepository.Create(ctx, attendance.Session{
				EmployeeID:      event.EmployeeID,
				Date:            date,
				CheckIn:         at,
				CheckInLocation: event.Location,
			})
			if err != nil {
				return fmt.Errorf("failed to record check-in: %w", err)
			}
			action, result = attendance.CheckedIn, created
		}

		name := emp.Name
		result.EmployeeName = &name
		return nil
	})
	if err != nil {
		return "", attendance.Session{}, err
	}

	return action, result, nil
}
