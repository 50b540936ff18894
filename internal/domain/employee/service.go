package employee

import (
	"context"
)

// EmployeeService defines business logic for employee administration
type EmployeeService interface {
	// GetEmployee retrieves a single employee by ID
	GetEmployee(ctx context.Context, id string) (EmployeeResponse, error)

	// ListEmployees lists every employee ordered by name
	ListEmployees(ctx context.Context) ([]EmployeeResponse, error)

	// CreateEmployee creates a new employee, generating an ID when none is given
	CreateEmployee(ctx context.Context, req CreateEmployeeRequest) (EmployeeResponse, error)

	// UpdateEmployee replaces the mutable fields of an existing employee
	UpdateEmployee(ctx context.Context, req UpdateEmployeeRequest) (EmployeeResponse, error)

	// DeleteEmployee removes the employee and all of their attendance sessions
	DeleteEmployee(ctx context.Context, id string) error

	// GetQRCode renders the employee's static QR code as PNG
	GetQRCode(ctx context.Context, id string, size int) ([]byte, error)
}
