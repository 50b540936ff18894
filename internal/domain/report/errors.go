package report

import "errors"

var (
	ErrUnsupportedFormat = errors.New("export format must be one of csv, pdf, xlsx")
	ErrInvalidDateRange  = errors.New("end date must not be before start date")
	ErrExportFailed      = errors.New("failed to render export")
)
