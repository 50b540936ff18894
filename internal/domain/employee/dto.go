package employee

import (
	"time"

	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/validator"
)

type CreateEmployeeRequest struct {
	ID         string  `json:"id" validate:"omitempty,employee_id"`
	Name       string  `json:"name" validate:"required,max=255"`
	Position   string  `json:"position" validate:"required,max=255"`
	Department string  `json:"department" validate:"required,max=255"`
	DOB        string  `json:"dob" validate:"required,datetime=2006-01-02"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
}

func (r *CreateEmployeeRequest) Validate() error {
	return validateProfile(r, r.DOB)
}

type UpdateEmployeeRequest struct {
	ID         string  `json:"-"`
	Name       string  `json:"name" validate:"required,max=255"`
	Position   string  `json:"position" validate:"required,max=255"`
	Department string  `json:"department" validate:"required,max=255"`
	DOB        string  `json:"dob" validate:"required,datetime=2006-01-02"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
}

func (r *UpdateEmployeeRequest) Validate() error {
	return validateProfile(r, r.DOB)
}

func validateProfile(req interface{}, dob string) error {
	if err := validator.Struct(req); err != nil {
		return err
	}

	date, _ := validator.IsValidDate(dob)
	if date.After(time.Now()) {
		return validator.ValidationErrors{{
			Field:   "dob",
			Message: ErrFutureDateNotAllowed.Error(),
		}}
	}
	return nil
}

type EmployeeResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Position   string  `json:"position"`
	Department string  `json:"department"`
	DOB        string  `json:"dob"`
	Email      *string `json:"email,omitempty"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

func NewEmployeeResponse(emp Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:         emp.ID,
		Name:       emp.Name,
		Position:   emp.Position,
		Department: emp.Department,
		DOB:        emp.DOB.Format("2006-01-02"),
		Email:      emp.Email,
		CreatedAt:  emp.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  emp.UpdatedAt.Format(time.RFC3339),
	}
}
