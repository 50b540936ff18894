package attendance

import "errors"

// Attendance domain errors
var (
	// Scan path errors
	ErrInvalidPayload        = errors.New("invalid QR payload")
	ErrExpiredOrUnknownToken = errors.New("invalid or expired QR token")
	ErrUnknownEmployee       = errors.New("unknown employee")
	ErrDecodeFailure         = errors.New("no QR code found in image")
	ErrOutOfOrderScan        = errors.New("scan is earlier than the latest recorded event")

	// Boundary errors
	ErrStoreUnavailable = errors.New("attendance store unavailable")
	ErrDeliveryFailure  = errors.New("notification delivery failed")

	// General errors
	ErrSessionNotFound = errors.New("attendance session not found")
)
