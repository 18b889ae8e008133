// This package contains all the types for the flight log: position updates, flight records,
// airports, and the rules that decide when a flight gets archived. No storage imports.
package flightlog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// This is the 'quantization' value, used to index a flight based on which timeslots it
	// overlaps. Never change this value once you've started populating a database, unless
	// you're going to regenerate the indices.
	TimeslotDuration = 30 * time.Minute

	// All timestamps on the wire and in storage look like this. Always UTC, always with a Z.
	TimestampFormat = "2006-01-02T15:04:05.000000Z"

	Unknown         = "Unknown"
	UnknownTail     = "N/A"
	UnknownReceiver = "UNKNOWN"
)

var ErrMalformedTimestamp = errors.New("malformed timestamp")

func FormatTimestamp(t time.Time) string { return t.UTC().Format(TimestampFormat) }

// ParseTimestamp accepts RFC3339 timestamps (with or without fractional seconds), and also
// bare timestamps with no zone, which are taken to be UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
}
