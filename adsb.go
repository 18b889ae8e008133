package flightlog

import (
	"sort"

	"github.com/skypies/adsb"
)

const kMetersPerFoot = 0.3048

// ReportFromADSB turns a decoded ADS-B message into a report that can be ingested like any
// other. The normalized callsign doubles as the flight ID; if it's missing or junk, we fall
// back to the Mode-S identifier. Aircraft that fly under their registration get it recorded
// as the tail number.
//
// If the airframe behind the transponder is known (af may be nil), it supplies the carrier
// for a bare flight number, and the tail number.
func ReportFromADSB(m *adsb.CompositeMsg, af *Airframe) Report {
	cs := NewCallsign(m.Callsign)
	tail := cs.Registration
	if af != nil {
		cs.MaybeAddPrefix(af.AirlineCode)
		if tail == "" {
			tail = af.TailNumber
		}
	}

	id := cs.String()
	if cs.CallsignType == JunkCallsign {
		id = string(m.Icao24)
	}

	receiver := m.ReceiverName
	if receiver == "" {
		receiver = UnknownReceiver
	}

	return Report{
		FlightID:   id,
		Callsign:   id,
		TailNumber: tail,
		Update: PositionUpdate{
			Lat:          m.Position.Lat,
			Lon:          m.Position.Long,
			AltitudeM:    float64(m.Altitude) * kMetersPerFoot,
			SpeedKts:     float64(m.GroundSpeed),
			Heading:      float64(m.Track),
			VerticalRate: float64(m.VerticalRate),
			ReceiverID:   receiver,
		},
	}
}

// ReportsFromADSB converts a batch of messages, oldest first. Messages without a position
// (0,0 is what an unset position looks like) are dropped, since they can't extend a track.
// The lookup, if given, finds the airframe for a transponder address.
func ReportsFromADSB(msgs []*adsb.CompositeMsg, lookup func(icao24 string) *Airframe) []Report {
	sort.Sort(adsb.CompositeMsgPtrByTimeAsc(msgs))

	reports := []Report{}
	for _, m := range msgs {
		if m.Position.Lat == 0 && m.Position.Long == 0 {
			continue
		}
		var af *Airframe
		if lookup != nil {
			af = lookup(string(m.Icao24))
		}
		reports = append(reports, ReportFromADSB(m, af))
	}
	return reports
}

func trimCallsign(s string) string {
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '_') {
		s = s[:len(s)-1]
	}
	return s
}
