package flightlog

import (
	"fmt"
	"strings"
)

// ValidationError carries every problem found with an inbound report, not just the first.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// RequiredFields must all be present in an inbound payload.
var RequiredFields = []string{"flight_id", "callsign", "lat", "lon", "altitude_m", "spd_kts", "heading"}

const (
	kMaxAltitudeM = 20000.0
	kMaxSpeedKts  = 1000.0
)

const (
	msgBadCoords   = "Invalid coordinates (lat: -90 to 90, lon: -180 to 180)"
	msgBadAltitude = "Invalid altitude (must be 0-20000 meters)"
	msgNaNAltitude = "Altitude must be a number"
	msgBadSpeed    = "Invalid speed (must be 0-1000 knots)"
	msgNaNSpeed    = "Speed must be a number"
	msgBadHeading  = "Invalid heading (must be 0-360 degrees, excluding 360)"
	msgNaNHeading  = "Heading must be a number"
	msgBadStatus   = "Invalid status (must be active or completed)"
)

type problems []string

func (p *problems) add(format string, args ...any) { *p = append(*p, fmt.Sprintf(format, args...)) }

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Problems: p}
}

func (p *problems) checkRanges(u PositionUpdate) {
	if !IsValidCoordinate(u.Lat, u.Lon) {
		p.add(msgBadCoords)
	}
	p.checkAltitude(u.AltitudeM)
	p.checkSpeed(u.SpeedKts)
	p.checkHeading(u.Heading)
}

func (p *problems) checkAltitude(v float64) {
	if v < 0 || v > kMaxAltitudeM {
		p.add(msgBadAltitude)
	}
}
func (p *problems) checkSpeed(v float64) {
	if v < 0 || v > kMaxSpeedKts {
		p.add(msgBadSpeed)
	}
}
func (p *problems) checkHeading(v float64) {
	if v < 0 || v >= 360 {
		p.add(msgBadHeading)
	}
}

// Validate checks a report that was built in code (e.g. from ADS-B) rather than parsed.
func (r Report) Validate() error {
	var p problems
	if r.FlightID == "" {
		p.add("Missing required field: flight_id")
	}
	if r.Callsign == "" {
		p.add("Missing required field: callsign")
	}
	p.checkRanges(r.Update)
	if r.Status != "" && !r.Status.Valid() {
		p.add(msgBadStatus)
	}
	return p.err()
}

// {{{ ParseReport

// ParseReport validates a decoded JSON payload and turns it into a Report. All missing
// fields and all range violations among the fields that are present are reported
// together, in a *ValidationError.
func ParseReport(payload map[string]any) (Report, error) {
	var p problems
	r := Report{}

	has := func(k string) bool { v, ok := payload[k]; return ok && v != nil }

	for _, field := range RequiredFields {
		if !has(field) {
			p.add("Missing required field: %s", field)
		}
	}

	r.FlightID = p.stringField(payload, "flight_id", true)
	r.Callsign = p.stringField(payload, "callsign", true)

	// Coordinates are judged together, as long as at least one of them showed up
	if has("lat") || has("lon") {
		lat, latOK := toFloat(payload["lat"])
		lon, lonOK := toFloat(payload["lon"])
		if (has("lat") && (!latOK || !IsValidCoordinate(lat, 0))) ||
			(has("lon") && (!lonOK || !IsValidCoordinate(0, lon))) {
			p.add(msgBadCoords)
		}
		r.Update.Lat, r.Update.Lon = lat, lon
	}

	if has("altitude_m") {
		if v, ok := toFloat(payload["altitude_m"]); !ok {
			p.add(msgNaNAltitude)
		} else {
			p.checkAltitude(v)
			r.Update.AltitudeM = v
		}
	}
	if has("spd_kts") {
		if v, ok := toFloat(payload["spd_kts"]); !ok {
			p.add(msgNaNSpeed)
		} else {
			p.checkSpeed(v)
			r.Update.SpeedKts = v
		}
	}
	if has("heading") {
		if v, ok := toFloat(payload["heading"]); !ok {
			p.add(msgNaNHeading)
		} else {
			p.checkHeading(v)
			r.Update.Heading = v
		}
	}

	// Vertical rate is passed through as-is; anything non-numeric is recorded as zero
	if v, ok := toFloat(payload["vertical_rate"]); ok {
		r.Update.VerticalRate = v
	}
	r.Update.ReceiverID = orDefault(p.stringField(payload, "receiver_id", false), UnknownReceiver)

	if s := p.stringField(payload, "status", false); s != "" {
		if st := Status(s); !st.Valid() {
			p.add(msgBadStatus)
		} else {
			r.Status = st
		}
	}
	r.Source = p.stringField(payload, "source", false)
	r.Destination = p.stringField(payload, "destination", false)
	r.AircraftType = p.stringField(payload, "aircraft_type", false)
	r.TailNumber = p.stringField(payload, "tail_number", false)

	return r, p.err()
}

// }}}

// stringField fetches a string value. Missing required fields are reported elsewhere; here
// we only complain about values of the wrong type.
func (p *problems) stringField(payload map[string]any, k string, required bool) string {
	v, ok := payload[k]
	if !ok || v == nil {
		return ""
	}
	s, isString := v.(string)
	if !isString {
		p.add("Field %s must be a string", k)
		return ""
	}
	s = strings.TrimSpace(s)
	if required && s == "" {
		p.add("Field %s must not be empty", k)
	}
	return s
}
