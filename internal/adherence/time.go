package adherence

import (
	"time"
)

// dateOnlyLayout accepts calendar dates without a time of day.
// They parse to midnight UTC.
const dateOnlyLayout = "2006-01-02"

// ParseTime parses a timestamp from external input (CSV cells, suite
// files, CLI flags). Accepts RFC 3339 or a bare date (2006-01-02, taken
// as midnight UTC). Returns a ValidationError on anything else.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(dateOnlyLayout, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, NewFieldError("timestamp", "must be RFC 3339 or YYYY-MM-DD, got "+s)
}
