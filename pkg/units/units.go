package units

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultPrecision is the number of decimals used for scaled byte values
const DefaultPrecision = 1

// snapshotTimeSuffixLen is the length of the fractional seconds and zone suffix (".000Z")
// trimmed from cluster timestamps before parsing
const snapshotTimeSuffixLen = 5

const (
	snapshotTimeLayout = "2006-01-02T15:04:05"
	displayTimeLayout  = "2006-01-02 15:04"
)

var byteSuffixes = []string{"B", "KB", "MB", "GB", "TB"}

// ParseError is returned when a timestamp does not match the expected layout
type ParseError struct {
	Value  string
	Layout string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse timestamp %q (expected %s): %v", e.Value, e.Layout, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ScaleBytes converts a byte count to a human readable string like "1.5KB".
// Byte counts up to 1024 are shown unscaled; above that the value is divided by 1024
// until it drops below 1024, up to TB.
func ScaleBytes(size float64, precision int) string {
	suffixIndex := 0
	for suffixIndex < len(byteSuffixes)-1 && (size > 1024 || (suffixIndex > 0 && size >= 1024)) {
		suffixIndex++
		size = size / 1024.0
	}
	return strconv.FormatFloat(size, 'f', precision, 64) + byteSuffixes[suffixIndex]
}

// FormatLocalTime converts a cluster UTC timestamp such as "2023-05-01T12:34:56.000Z"
// into "2023-05-01 12:34" in the given location
func FormatLocalTime(timestamp string, loc *time.Location) (string, error) {
	if len(timestamp) <= snapshotTimeSuffixLen {
		return "", &ParseError{Value: timestamp, Layout: snapshotTimeLayout, Err: fmt.Errorf("timestamp too short")}
	}

	trimmed := timestamp[:len(timestamp)-snapshotTimeSuffixLen]
	t, err := time.ParseInLocation(snapshotTimeLayout, trimmed, time.UTC)
	if err != nil {
		return "", &ParseError{Value: timestamp, Layout: snapshotTimeLayout, Err: err}
	}

	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(displayTimeLayout), nil
}

// TrimDuration drops the trailing millisecond component of a duration string,
// e.g. "5 minutes 30 seconds 0 ms" becomes "5 minutes 30 seconds"
func TrimDuration(duration string) string {
	parts := strings.Split(duration, " ")
	if parts[len(parts)-1] == "ms" {
		parts = parts[:max(len(parts)-2, 0)]
	}
	return strings.Join(parts, " ")
}
