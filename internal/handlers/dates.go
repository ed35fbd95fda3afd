package handlers

import (
	"errors"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

const dateOnly = "2006-01-02"

// parseDate accepts ISO-8601 timestamps and plain dates. Values without a
// zone are UTC. A plain date used as an upper bound covers the whole day.
func parseDate(s string, upper bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		if upper {
			return t.Add(24*time.Hour - time.Millisecond), nil
		}
		return t, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("unrecognized date format")
}
