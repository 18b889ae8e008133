package flightlog

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool { return s == StatusActive || s == StatusCompleted }

// Flight is the record we keep per flight ID. While the flight is airborne it lives in the
// active set and collects updates; archiving it stamps the derived fields and moves it to
// the archived set, for good. The json names are the storage format.
type Flight struct {
	FlightID           string   `json:"flight_id"`
	Callsign           string   `json:"callsign"`
	AircraftType       string   `json:"aircraft_type"`
	TailNumber         string   `json:"tail_number"`
	FirstSeen          string   `json:"first_seen"`
	LastSeen           string   `json:"last_seen"`
	Status             Status   `json:"status"`
	SourceAirport      string   `json:"source_airport"`
	DestinationAirport string   `json:"destination_airport"`
	Updates            Track    `json:"updates"`
	TotalDistanceKM    *float64 `json:"total_distance_km,omitempty"`
	CompletedAt        string   `json:"completed_at,omitempty"`
}

// Overrides are the route/status fields a sender may restate on any update. Empty means
// "not supplied"; the existing value is kept.
type Overrides struct {
	Status      Status
	Source      string
	Destination string
}

// Report is a validated inbound position report: which flight, some static metadata, and
// the update itself. The update's timestamp is filled in on arrival.
type Report struct {
	FlightID     string
	Callsign     string
	AircraftType string
	TailNumber   string
	Overrides
	Update PositionUpdate
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// NewFlight builds the record for a flight ID we have never seen, from its first report.
func NewFlight(r Report) *Flight {
	f := Flight{
		FlightID:           r.FlightID,
		Callsign:           r.Callsign,
		AircraftType:       orDefault(r.AircraftType, Unknown),
		TailNumber:         orDefault(r.TailNumber, UnknownTail),
		FirstSeen:          r.Update.Timestamp,
		LastSeen:           r.Update.Timestamp,
		Status:             StatusActive,
		SourceAirport:      orDefault(r.Source, Unknown),
		DestinationAirport: orDefault(r.Destination, Unknown),
		Updates:            Track{r.Update},
	}
	if r.Status != "" {
		f.Status = r.Status
	}
	return &f
}

func (f Flight) String() string {
	return fmt.Sprintf("%s [%s] %s %s->%s (%s) %s", f.FlightID, f.Callsign, f.Status,
		f.SourceAirport, f.DestinationAirport, f.AircraftType, f.Updates)
}

func (f *Flight) IsCompleted() bool { return f.Status == StatusCompleted }

// Append adds an update to the end of the track, bumps last_seen, and applies whichever
// overrides were supplied.
func (f *Flight) Append(u PositionUpdate, o Overrides) {
	f.Updates = append(f.Updates, u)
	f.LastSeen = u.Timestamp
	if o.Status != "" {
		f.Status = o.Status
	}
	if o.Source != "" {
		f.SourceAirport = o.Source
	}
	if o.Destination != "" {
		f.DestinationAirport = o.Destination
	}
}

// OverlayAirframe fills in the aircraft type from registry data, if we don't have one.
func (f *Flight) OverlayAirframe(af Airframe) {
	if (f.AircraftType == "" || f.AircraftType == Unknown) && af.AircraftType != "" {
		f.AircraftType = af.AircraftType
	}
}

// Finalize stamps the derived fields that an archived record carries.
func (f *Flight) Finalize(now time.Time) {
	km := RoundKM(f.Updates.TotalDistanceKM())
	f.TotalDistanceKM = &km
	f.Status = StatusCompleted
	f.CompletedAt = FormatTimestamp(now)
}

// Times returns first_seen and last_seen as times; an error if either is malformed.
func (f *Flight) Times() (s, e time.Time, err error) {
	if s, err = ParseTimestamp(f.FirstSeen); err != nil {
		return
	}
	e, err = ParseTimestamp(f.LastSeen)
	return
}

func (f *Flight) DistanceKM() float64 {
	if f.TotalDistanceKM == nil {
		return 0
	}
	return *f.TotalDistanceKM
}
