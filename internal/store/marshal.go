package store

import (
	"database/sql"
	"fmt"
	"time"
)

// timeLayout is the storage encoding for all timestamps: RFC 3339 UTC at
// second precision. Fixed width, so TEXT column ordering equals
// chronological ordering - the read paths rely on this for
// ORDER BY scheduled_at.
const timeLayout = "2006-01-02T15:04:05Z"

// marshalTime converts a timestamp to its storage TEXT form.
// Always UTC, always second precision, regardless of the input zone.
func marshalTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(timeLayout)
}

// marshalNullTime converts a nullable timestamp to its storage form.
// nil maps to SQL NULL (a missed dose).
func marshalNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return marshalTime(*t)
}

// unmarshalTime parses a storage TEXT timestamp back to UTC time.
func unmarshalTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unmarshal time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// unmarshalNullTime parses a nullable storage timestamp.
// SQL NULL and the empty string both map to nil.
func unmarshalNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := unmarshalTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
