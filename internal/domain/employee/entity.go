package employee

import (
	"time"
)

// Employee is a directory entry whose ID is the value encoded in its QR code.
type Employee struct {
	ID         string
	Name       string
	Position   string
	Department string
	DOB        time.Time
	Email      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
