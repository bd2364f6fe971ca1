package imu

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// datePrefixLen is the length of the fixed "dd:mm:" prefix
const datePrefixLen = 6

// Timestamp is the sensor clock reading in the log's own
// "dd:mm:HH:MM:SS:fff" format. It is carried as an opaque string.
type Timestamp string

// IsZero reports whether the timestamp is absent
func (t Timestamp) IsZero() bool {
	return t == ""
}

// Clock returns the time-of-day part with the day and month prefix removed.
// The log format is fixed width, so clocks compare lexicographically.
func (t Timestamp) Clock() string {
	if len(t) <= datePrefixLen {
		return string(t)
	}
	return string(t[datePrefixLen:])
}

// Before reports whether t is earlier than u within the same day
func (t Timestamp) Before(u Timestamp) bool {
	return t.Clock() < u.Clock()
}

// TimeOfDay parses the clock part into a duration since midnight. The last
// field is a decimal fraction of a second, so "123" is 123ms and "5" is 500ms.
func (t Timestamp) TimeOfDay() (time.Duration, error) {
	fields := strings.Split(t.Clock(), ":")
	if len(fields) != 4 {
		return 0, WrapError(KindTimestamp, fmt.Sprintf("parsing timestamp '%s'", t), fmt.Errorf("expected 4 clock fields, got %d", len(fields)))
	}

	limits := []int{24, 60, 60}
	units := []time.Duration{time.Hour, time.Minute, time.Second}

	var d time.Duration
	for i, limit := range limits {
		v, err := strconv.Atoi(fields[i])
		if err != nil || v < 0 || v >= limit {
			return 0, WrapError(KindTimestamp, fmt.Sprintf("parsing timestamp '%s'", t), fmt.Errorf("invalid clock field '%s'", fields[i]))
		}
		d += time.Duration(v) * units[i]
	}

	frac := fields[3]
	if len(frac) == 0 || len(frac) > 6 {
		return 0, WrapError(KindTimestamp, fmt.Sprintf("parsing timestamp '%s'", t), fmt.Errorf("invalid fraction '%s'", frac))
	}
	us, err := strconv.Atoi(frac + strings.Repeat("0", 6-len(frac)))
	if err != nil || us < 0 {
		return 0, WrapError(KindTimestamp, fmt.Sprintf("parsing timestamp '%s'", t), fmt.Errorf("invalid fraction '%s'", frac))
	}

	return d + time.Duration(us)*time.Microsecond, nil
}

// ParseClock parses a user supplied "HH:MM:SS" or "HH:MM:SS:fff" time of day
func ParseClock(s string) (time.Duration, error) {
	if strings.Count(s, ":") == 2 {
		s += ":0"
	}
	return Timestamp("00:00:" + s).TimeOfDay()
}

// FormatClock renders a duration since midnight as "HH:MM:SS:fff"
func FormatClock(d time.Duration) string {
	d %= 24 * time.Hour
	if d < 0 {
		d += 24 * time.Hour
	}
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	ms := (d % time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d:%03d", h, m, s, ms)
}
