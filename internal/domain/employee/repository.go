package employee

import "context"

// EmployeeRepository is the employee directory store.
type EmployeeRepository interface {
	// GetByID returns ErrEmployeeNotFound when no employee has the id.
	GetByID(ctx context.Context, id string) (Employee, error)
	// List returns every employee ordered by name.
	List(ctx context.Context) ([]Employee, error)
	Create(ctx context.Context, newEmployee Employee) (Employee, error)
	Update(ctx context.Context, emp Employee) (Employee, error)
	// Delete returns ErrEmployeeNotFound when no employee has the id.
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}
