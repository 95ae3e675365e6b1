package bolt

import (
	"fmt"
	"time"
)

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseRecordDate accepts the two date shapes usage feeds carry: an ISO date
// or datetime, or a six-digit YYYYMM call month, which maps to the first of
// that month.
func ParseRecordDate(s string) (time.Time, error) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if len(s) == 6 {
		if t, err := time.Parse("200601", s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q is neither an ISO date nor a YYYYMM call month", s)
}

// NormalizeToFirstOfMonth truncates a timestamp to midnight on the first of
// its month.
func NormalizeToFirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
