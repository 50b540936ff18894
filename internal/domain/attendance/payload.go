package attendance

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/validator"
)

type PayloadKind string

const (
	PayloadPlain      PayloadKind = "plain"
	PayloadStructured PayloadKind = "structured"
	PayloadToken      PayloadKind = "token"
)

// Payload is the decoded QR content: PlainPayload, StructuredPayload or TokenPayload.
type Payload interface {
	Kind() PayloadKind
}

// PlainPayload is a bare employee identifier.
type PlainPayload struct {
	EmployeeID string
}

// StructuredPayload is a JSON record such as {"employeeId": "emp1"}.
type StructuredPayload struct {
	EmployeeID string
}

// TokenPayload is a one-time token, bare or as {"token": "..."}.
type TokenPayload struct {
	Token string
}

func (PlainPayload) Kind() PayloadKind      { return PayloadPlain }
func (StructuredPayload) Kind() PayloadKind { return PayloadStructured }
func (TokenPayload) Kind() PayloadKind      { return PayloadToken }

type structuredFields struct {
	EmployeeID *string `json:"employeeId"`
	Token      *string `json:"token"`
}

// ParsePayload resolves raw QR text into a Payload. Every other shape fails with ErrInvalidPayload.
// A bare 64-char lowercase hex string is read as a token.
func ParsePayload(raw string) (Payload, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}

	if strings.HasPrefix(text, "{") {
		var fields structuredFields
		if err := json.Unmarshal([]byte(text), &fields); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		if fields.Token != nil {
			token := strings.TrimSpace(*fields.Token)
			if !validator.IsTokenFormat(token) {
				return nil, fmt.Errorf("%w: malformed token", ErrInvalidPayload)
			}
			return TokenPayload{Token: token}, nil
		}
		if fields.EmployeeID == nil {
			return nil, fmt.Errorf("%w: missing employeeId", ErrInvalidPayload)
		}
		id := strings.TrimSpace(*fields.EmployeeID)
		if !validator.IsValidEmployeeID(id) {
			return nil, fmt.Errorf("%w: malformed employeeId", ErrInvalidPayload)
		}
		return StructuredPayload{EmployeeID: id}, nil
	}

	if validator.IsTokenFormat(text) {
		return TokenPayload{Token: text}, nil
	}
	if validator.IsValidEmployeeID(text) {
		return PlainPayload{EmployeeID: text}, nil
	}
	return nil, fmt.Errorf("%w: unrecognised payload", ErrInvalidPayload)
}

// EncodeEmployeePayload is the structured payload printed on an employee's QR code.
func EncodeEmployeePayload(employeeID string) string {
	b, _ := json.Marshal(map[string]string{"employeeId": employeeID})
	return string(b)
}
