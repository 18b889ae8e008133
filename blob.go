package flightlog

import (
	"encoding/json"
	"time"

	"github.com/skypies/util/date"
)

// An indexed flight blob is the thing we persist into datastore. The document is the
// source of truth; the other fields are derived from it, so that queries have something to
// filter on.
type IndexedFlightBlob struct {
	Blob []byte `datastore:",noindex"`

	FlightID    string
	Callsign    string
	Status      string
	Destination string
	LastSeen    time.Time // zero if the flight's last_seen doesn't parse
	CompletedAt time.Time
	Timeslots   []time.Time
	LastUpdate  time.Time // when this blob was written
}

func (f *Flight) ToBlob(d time.Duration) (*IndexedFlightBlob, error) {
	doc, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}

	blob := IndexedFlightBlob{
		Blob:        doc,
		FlightID:    f.FlightID,
		Callsign:    NormalizeCallsign(f.Callsign),
		Status:      string(f.Status),
		Destination: f.DestinationAirport,
		Timeslots:   []time.Time{},
		LastUpdate:  time.Now().UTC(),
	}

	if t, err := ParseTimestamp(f.LastSeen); err == nil {
		blob.LastSeen = t
	}
	if t, err := ParseTimestamp(f.CompletedAt); err == nil {
		blob.CompletedAt = t
	}
	if s, e, err := f.Times(); err == nil && !e.Before(s) {
		blob.Timeslots = date.Timeslots(s, e, d)
	}

	return &blob, nil
}

func (blob *IndexedFlightBlob) ToFlight() (*Flight, error) {
	f := Flight{}
	if err := json.Unmarshal(blob.Blob, &f); err != nil {
		return nil, err
	}
	if f.Updates == nil {
		f.Updates = Track{}
	}
	return &f, nil
}
