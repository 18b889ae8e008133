package flightlog

import (
	"fmt"
	"time"
)

// Reason says which rule decided a flight should be archived.
type Reason int

const (
	ReasonNone      Reason = iota // Keep
	ReasonCompleted               // sender said the flight was completed
	ReasonTouchdown               // low and slow, near the destination airport
	ReasonStale                   // nothing heard for too long
)

func (r Reason) String() string {
	switch r {
	case ReasonCompleted:
		return "completed"
	case ReasonTouchdown:
		return "touchdown"
	case ReasonStale:
		return "stale"
	default:
		return "none"
	}
}

type Decision struct {
	Archive bool
	Reason  Reason
	Detail  string
}

func (d Decision) String() string {
	if !d.Archive {
		return "keep (" + d.Detail + ")"
	}
	return fmt.Sprintf("archive[%s] (%s)", d.Reason, d.Detail)
}

// Policy holds the thresholds for deciding when a flight is over.
type Policy struct {
	TouchdownAltitudeM float64       // last update must be below this ...
	TouchdownSpeedKts  float64       // ... and slower than this ...
	NearAirportKM      float64       // ... and at most this far from the destination
	StaleAfter         time.Duration // archive if nothing heard for longer than this
}

func DefaultPolicy() Policy {
	return Policy{
		TouchdownAltitudeM: 100,
		TouchdownSpeedKts:  50,
		NearAirportKM:      50,
		StaleAfter:         2 * time.Hour,
	}
}

// WantsDestination says whether Decide would look at the destination airport; i.e. the
// flight isn't already completed, has a destination, and its last update is low and slow.
// Callers use this to avoid airport lookups that can't change the outcome.
func (p Policy) WantsDestination(f *Flight) bool {
	if f.IsCompleted() || f.DestinationAirport == "" {
		return false
	}
	last, ok := f.Updates.Last()
	return ok && p.lowAndSlow(last)
}

func (p Policy) lowAndSlow(u PositionUpdate) bool {
	return u.AltitudeM < p.TouchdownAltitudeM && u.SpeedKts < p.TouchdownSpeedKts
}

// IsStale reports whether the flight's last_seen is older than StaleAfter. A last_seen that
// can't be parsed yields ErrMalformedTimestamp: the rule does not apply, nothing more.
func (p Policy) IsStale(f *Flight, now time.Time) (bool, error) {
	t, err := ParseTimestamp(f.LastSeen)
	if err != nil {
		return false, err
	}
	return now.Sub(t) > p.StaleAfter, nil
}

// {{{ p.Decide

// Decide applies the archival rules in order; the first one that fires wins. dest is the
// destination airport as found in the directory, or nil if it wasn't found (or wasn't
// looked up). Decide has no side effects.
func (p Policy) Decide(f *Flight, dest *Airport, now time.Time) Decision {
	if f.IsCompleted() {
		return Decision{true, ReasonCompleted, "status is completed"}
	}

	if last, ok := f.Updates.Last(); ok && p.lowAndSlow(last) && f.DestinationAirport != "" {
		if dest != nil {
			if dist := DistLatlongKM(last.Latlong(), dest.Latlong()); dist <= p.NearAirportKM {
				return Decision{true, ReasonTouchdown,
					fmt.Sprintf("%.0fm %.0fkts, %.1fKM from %s", last.AltitudeM, last.SpeedKts, dist, dest.Code)}
			}
		}
	}

	detail := "still flying"
	if f.LastSeen != "" {
		stale, err := p.IsStale(f, now)
		if err != nil {
			detail = "last_seen unparseable, staleness not checked"
		} else if stale {
			return Decision{true, ReasonStale, fmt.Sprintf("last seen %s, more than %s ago", f.LastSeen, p.StaleAfter)}
		}
	}

	return Decision{false, ReasonNone, detail}
}

// }}}
