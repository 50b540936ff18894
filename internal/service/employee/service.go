package employee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/transaction"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/qrcode"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/validator"
	"github.com/google/uuid"
)

type EmployeeServiceImpl struct {
	transaction.Transactor
	employeeRepo employee.EmployeeRepository
	sessionRepo  attendance.SessionRepository
}

func NewEmployeeService(
	tx transaction.Transactor,
	employeeRepo employee.EmployeeRepository,
	sessionRepo attendance.SessionRepository,
) employee.EmployeeService {
	return &EmployeeServiceImpl{
		Transactor:   tx,
		employeeRepo: employeeRepo,
		sessionRepo:  sessionRepo,
	}
}

// newEmployeeID returns "emp" followed by 12 random hex characters.
func newEmployeeID() string {
	return "emp" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*email)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// GetEmployee implements employee.EmployeeService.
func (s *EmployeeServiceImpl) GetEmployee(ctx context.Context, id string) (employee.EmployeeResponse, error) {
	emp, err := s.employeeRepo.GetByID(ctx, id)
	if err != nil {
		return employee.EmployeeResponse{}, err
	}
	return employee.NewEmployeeResponse(emp), nil
}

// ListEmployees implements employee.EmployeeService.
func (s *EmployeeServiceImpl) ListEmployees(ctx context.Context) ([]employee.EmployeeResponse, error) {
	employees, err := s.employeeRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	responses := make([]employee.EmployeeResponse, 0, len(employees))
	for _, emp := range employees {
		responses = append(responses, employee.NewEmployeeResponse(emp))
	}
	return responses, nil
}

// CreateEmployee implements employee.EmployeeService.
func (s *EmployeeServiceImpl) CreateEmployee(ctx context.Context, req employee.CreateEmployeeRequest) (employee.EmployeeResponse, error) {
	req.ID = strings.TrimSpace(req.ID)
	if err := req.Validate(); err != nil {
		return employee.EmployeeResponse{}, err
	}

	dob, _ := validator.IsValidDate(req.DOB)
	newEmployee := employee.Employee{
		ID:         req.ID,
		Name:       strings.TrimSpace(req.Name),
		Position:   strings.TrimSpace(req.Position),
		Department: strings.TrimSpace(req.Department),
		DOB:        dob,
		Email:      normalizeEmail(req.Email),
	}
	if newEmployee.ID == "" {
		newEmployee.ID = newEmployeeID()
	}

	created, err := s.employeeRepo.Create(ctx, newEmployee)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeIDExists) {
			return employee.EmployeeResponse{}, err
		}
		return employee.EmployeeResponse{}, fmt.Errorf("failed to create employee: %w", err)
	}

	slog.InfoContext(ctx, "employee created", "employee_id", created.ID)
	return employee.NewEmployeeResponse(created), nil
}

// UpdateEmployee implements employee.EmployeeService.
func (s *EmployeeServiceImpl) UpdateEmployee(ctx context.Context, req employee.UpdateEmployeeRequest) (employee.EmployeeResponse, error) {
	if err := req.Validate(); err != nil {
		return employee.EmployeeResponse{}, err
	}

	dob, _ := validator.IsValidDate(req.DOB)
	updated, err := s.employeeRepo.Update(ctx, employee.Employee{
		ID:         req.ID,
		Name:       strings.TrimSpace(req.Name),
		Position:   strings.TrimSpace(req.Position),
		Department: strings.TrimSpace(req.Department),
		DOB:        dob,
		Email:      normalizeEmail(req.Email),
	})
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return employee.EmployeeResponse{}, err
		}
		return employee.EmployeeResponse{}, fmt.Errorf("failed to update employee: %w", err)
	}

	return employee.NewEmployeeResponse(updated), nil
}

// DeleteEmployee implements employee.EmployeeService.
func (s *EmployeeServiceImpl) DeleteEmployee(ctx context.Context, id string) error {
	err := s.WithinTransaction(ctx, func(ctx context.Context) error {
		// Waits for an in-flight scan of this employee to commit.
		if err := s.sessionRepo.LockEmployee(ctx, id); err != nil {
			return err
		}
		if err := s.sessionRepo.DeleteByEmployee(ctx, id); err != nil {
			return fmt.Errorf("failed to delete sessions: %w", err)
		}
		return s.employeeRepo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "employee deleted", "employee_id", id)
	return nil
}

// GetQRCode implements employee.EmployeeService.
func (s *EmployeeServiceImpl) GetQRCode(ctx context.Context, id string, size int) ([]byte, error) {
	emp, err := s.employeeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(attendance.EncodeEmployeePayload(emp.ID), size)
}
