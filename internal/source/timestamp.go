package source

import (
	"errors"
	"strings"
	"time"
)

var errEmptyTimestamp = errors.New("empty timestamp")

// Zone-less values are read in local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
}

// ParseTimestamp converts an ISO-8601 or RFC-822 style date to unix seconds.
func ParseTimestamp(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errEmptyTimestamp
	}

	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, raw, time.Local)
		if err == nil {
			return t.Unix(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return 0, firstErr
}
