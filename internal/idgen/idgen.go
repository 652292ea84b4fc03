// Package idgen generates the opaque, lexicographically time-sortable
// identifiers used for events and sessions.
package idgen

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewEventID returns a time-sortable event identifier: a nanosecond
// timestamp followed by a random tail, zero-padded so that lexical order
// matches chronological order for the lifetime of an int64 nanosecond
// clock.
func NewEventID() string {
	return build("evt", time.Now())
}

// NewSessionID returns a time-sortable session identifier in the same
// format as NewEventID, with a distinct prefix for readability in logs.
func NewSessionID() string {
	return build("session", time.Now())
}

// NewSessionIDAt is NewSessionID with an injected clock, for tests that
// need deterministic, ordered session identifiers.
func NewSessionIDAt(t time.Time) string {
	return build("session", t)
}

func build(prefix string, t time.Time) string {
	tail := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("%s_%020d_%s", prefix, t.UnixNano(), tail[:16])
}

// Timestamp extracts the embedded nanosecond timestamp from an identifier
// produced by this package. It returns the zero time if id is not in the
// expected format.
func Timestamp(id string) time.Time {
	parts := strings.SplitN(id, "_", 3)
	if len(parts) != 3 {
		return time.Time{}
	}
	nanos, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, nanos).UTC()
}
