package flightlog

import (
	"fmt"
	"time"

	"github.com/skypies/geo"
)

// PositionUpdate is one timestamped report of where a flight is, and how it's moving. Once
// appended to a flight's track it is never changed. The json names are the storage format.
type PositionUpdate struct {
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	AltitudeM    float64 `json:"altitude_m"`    // meters
	SpeedKts     float64 `json:"spd_kts"`       // ground speed, knots
	Heading      float64 `json:"heading"`       // [0.0, 360.0) degrees
	VerticalRate float64 `json:"vertical_rate"` // whatever the sender uses, per minute; not validated
	Timestamp    string  `json:"ts"`            // arrival time, see TimestampFormat
	ReceiverID   string  `json:"receiver_id"`
}

func (u PositionUpdate) String() string {
	return fmt.Sprintf("[%s] (%.4f,%.4f) %.0fm, %.0fkts, %.0fdeg", u.Timestamp, u.Lat, u.Lon,
		u.AltitudeM, u.SpeedKts, u.Heading)
}

func (u PositionUpdate) Latlong() geo.Latlong { return geo.Latlong{Lat: u.Lat, Long: u.Lon} }

func (u PositionUpdate) Time() (time.Time, error) { return ParseTimestamp(u.Timestamp) }

func (u PositionUpdate) DistKM(to PositionUpdate) float64 {
	return DistKM(u.Lat, u.Lon, to.Lat, to.Lon)
}
