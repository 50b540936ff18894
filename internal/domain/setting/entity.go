package setting

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time expressed as seconds since local midnight.
type TimeOfDay int

const secondsPerDay = 24 * 60 * 60

// ParseTimeOfDay parses "HH:MM:SS" or "HH:MM". Any other shape fails with ErrParseFailure.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q is not HH:MM:SS", ErrParseFailure, s)
	}

	limits := []int{23, 59, 59}
	values := make([]int, 3)
	for i, part := range parts {
		if len(part) != 2 {
			return 0, fmt.Errorf("%w: %q is not HH:MM:SS", ErrParseFailure, s)
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("%w: %q is not HH:MM:SS", ErrParseFailure, s)
		}
		values[i] = n
	}

	return TimeOfDay(values[0]*3600 + values[1]*60 + values[2]), nil
}

// MustTimeOfDay is ParseTimeOfDay for constants; it panics on malformed input.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// TimeOfDayOf returns the time-of-day of ts in its own location, truncated to the second.
func TimeOfDayOf(ts time.Time) TimeOfDay {
	return TimeOfDay(ts.Hour()*3600 + ts.Minute()*60 + ts.Second())
}

func (t TimeOfDay) String() string {
	s := int(t) % secondsPerDay
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// Configuration holds the office rules read by the derived-fact computations.
type Configuration struct {
	OfficeStart        TimeOfDay
	OfficeEnd          TimeOfDay
	RequiredDailyHours float64
	UpdatedAt          *time.Time
}

// Default returns the documented office rules: 09:00-17:00, 8 hours.
func Default() Configuration {
	return Configuration{
		OfficeStart:        MustTimeOfDay("09:00:00"),
		OfficeEnd:          MustTimeOfDay("17:00:00"),
		RequiredDailyHours: 8,
	}
}

// Validate checks the invariants every stored configuration must satisfy.
func (c Configuration) Validate() error {
	if c.OfficeEnd <= c.OfficeStart {
		return ErrOfficeEndBeforeStart
	}
	if c.RequiredDailyHours <= 0 || c.RequiredDailyHours > 24 {
		return ErrInvalidRequiredHours
	}
	return nil
}
