package htmlutil

import (
	"errors"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrEmptyDate is returned by NormalizeDate for blank input.
var ErrEmptyDate = errors.New("empty date")

// NormalizeDate parses a publisher date in any common layout (RFC 3339 with
// or without fractional seconds, RFC 1123, "January 2, 2006", bare dates)
// and returns it in UTC. Values without a zone are read as UTC.
func NormalizeDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyDate
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// firstDate returns the first candidate that normalizes successfully.
func firstDate(candidates ...string) (time.Time, bool) {
	for _, c := range candidates {
		if t, err := NormalizeDate(c); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
