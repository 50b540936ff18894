package employee

import "errors"

var (
	ErrEmployeeNotFound     = errors.New("employee not found")
	ErrEmployeeIDExists     = errors.New("employee id already exists")
	ErrFutureDateNotAllowed = errors.New("date cannot be in the future")
)
