package attendance

import (
	"context"
	"fmt"
)

// ScanPolicy is consulted by the engine before any mutation. latest is the
// employee's most recent session for the event's day, or nil.
type ScanPolicy interface {
	Check(ctx context.Context, latest *Session, event ScanEvent) error
}

// PermissivePolicy accepts every scan, including backdated ones.
type PermissivePolicy struct{}

func (PermissivePolicy) Check(context.Context, *Session, ScanEvent) error {
	return nil
}

// StrictChronologyPolicy rejects a scan that is not later than the latest recorded
// event of that employee's day, so a check-out is always strictly after its check-in.
type StrictChronologyPolicy struct{}

func (StrictChronologyPolicy) Check(_ context.Context, latest *Session, event ScanEvent) error {
	if latest == nil {
		return nil
	}
	if last := latest.LastEventAt(); !event.At.After(last) {
		return fmt.Errorf("%w: %s is not after %s", ErrOutOfOrderScan,
			event.At.Format("2006-01-02 15:04:05"), last.Format("2006-01-02 15:04:05"))
	}
	return nil
}
