package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/employee"
)

type employeeRepository struct {
	store *Store
}

func NewEmployeeRepository(store *Store) employee.EmployeeRepository {
	return &employeeRepository{store: store}
}

func copyEmployee(emp employee.Employee) employee.Employee {
	if emp.Email != nil {
		email := *emp.Email
		emp.Email = &email
	}
	return emp
}

// GetByID implements employee.EmployeeRepository.
func (r *employeeRepository) GetByID(_ context.Context, id string) (employee.Employee, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	emp, ok := r.store.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return copyEmployee(emp), nil
}

// List implements employee.EmployeeRepository.
func (r *employeeRepository) List(_ context.Context) ([]employee.Employee, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	employees := make([]employee.Employee, 0, len(r.store.employees))
	for _, emp := range r.store.employees {
		employees = append(employees, copyEmployee(emp))
	}
	sort.Slice(employees, func(i, j int) bool {
		if employees[i].Name != employees[j].Name {
			return employees[i].Name < employees[j].Name
		}
		return employees[i].ID < employees[j].ID
	})
	return employees, nil
}

// Create implements employee.EmployeeRepository.
func (r *employeeRepository) Create(ctx context.Context, newEmployee employee.Employee) (employee.Employee, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.employees[newEmployee.ID]; exists {
		return employee.Employee{}, employee.ErrEmployeeIDExists
	}

	now := time.Now().UTC()
	newEmployee.CreatedAt = now
	newEmployee.UpdatedAt = now
	r.store.employees[newEmployee.ID] = copyEmployee(newEmployee)

	id := newEmployee.ID
	r.store.record(ctx, func() { delete(r.store.employees, id) })
	return newEmployee, nil
}

// Update implements employee.EmployeeRepository.
func (r *employeeRepository) Update(ctx context.Context, emp employee.Employee) (employee.Employee, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	prev, ok := r.store.employees[emp.ID]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}

	emp.CreatedAt = prev.CreatedAt
	emp.UpdatedAt = time.Now().UTC()
	r.store.employees[emp.ID] = copyEmployee(emp)

	r.store.record(ctx, func() { r.store.employees[prev.ID] = prev })
	return emp, nil
}

// Delete implements employee.EmployeeRepository. Sessions and pending tokens
// of the employee are removed with it.
func (r *employeeRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	prev, ok := r.store.employees[id]
	if !ok {
		return employee.ErrEmployeeNotFound
	}
	delete(r.store.employees, id)
	r.store.record(ctx, func() { r.store.employees[id] = prev })

	r.store.deleteSessionsLocked(ctx, id)
	for value, tok := range r.store.tokens {
		if tok.EmployeeID == id {
			delete(r.store.tokens, value)
			saved := tok
			r.store.record(ctx, func() { r.store.tokens[saved.Value] = saved })
		}
	}
	return nil
}

// Count implements employee.EmployeeRepository.
func (r *employeeRepository) Count(_ context.Context) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return int64(len(r.store.employees)), nil
}
