package core

import (
	"strings"
	"time"
)

// NowFunc is the clock used by services that are not given one explicitly.
var NowFunc = time.Now // mockable

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// UTCMillis truncates `t` to milliseconds in UTC, the resolution timestamps are stored and compared at.
func UTCMillis(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// FromUnixMillis converts a client supplied epoch-milliseconds timestamp.
func FromUnixMillis(ms int64) time.Time {
	return time.Unix(0, ms*int64(time.Millisecond)).UTC()
}
