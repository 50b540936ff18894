package setting

import "errors"

var (
	ErrParseFailure         = errors.New("malformed time of day")
	ErrOfficeEndBeforeStart = errors.New("office end must be later than office start")
	ErrInvalidRequiredHours = errors.New("required daily hours must be greater than 0 and at most 24")
)
