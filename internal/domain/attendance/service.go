package attendance

import (
	"context"
	"io"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/setting"
)

// Engine applies the check-in/check-out toggle to validated scan events.
type Engine interface {
	// RecordScan opens a session when the employee has none open today and closes it otherwise.
	RecordScan(ctx context.Context, event ScanEvent) (SessionAction, Session, error)
}

// ScanService is the scan path: ingest a QR payload, then record it.
type ScanService interface {
	// Scan ingests a decoded payload and records the resulting event
	Scan(ctx context.Context, req ScanRequest) (ScanResponse, error)

	// ScanImage decodes a QR code from an uploaded image, then behaves like Scan
	ScanImage(ctx context.Context, req ScanImageRequest) (ScanResponse, error)

	// IssueToken mints a one-time token for an employee
	IssueToken(ctx context.Context, employeeID string) (TokenResponse, error)
}

// Decoder extracts the QR payload from an image.
type Decoder interface {
	Decode(r io.Reader) (string, error)
}

// Notifier delivers alerts about a recorded scan. Implementations return an
// error wrapping ErrDeliveryFailure; the scan path logs it and carries on.
type Notifier interface {
	NotifyScanAlert(ctx context.Context, action SessionAction, session Session, alerts []string, cfg setting.Configuration) error
}
