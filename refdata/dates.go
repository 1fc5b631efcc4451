package refdata

import (
	"strings"
	"time"
)

// dateLayouts are the arrival date formats tolerated in source rows, tried
// in order; the first match wins. Day-first layouts come before month-first
// so ambiguous dates resolve day-first.
var dateLayouts = []string{
	"02.01.2006",
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02.01.2006 15:04",
	"2006-01-02 15:04:05",
	"02.01.2006 15:04:05",
}

// ParseDate parses an arrival date against the tolerated layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
