package flightlog

import (
	"fmt"
	"time"
)

// FlightForBigQuery is a representation of an archived Flight that is slightly denormalized,
// with a track summary instead of a track. It is designed for import into BigQuery, for
// analysis.
type FlightForBigQuery struct {
	FlightID     string `json:"flight_id" bigquery:"flight_id"`
	Callsign     string `json:"callsign" bigquery:"callsign"`
	AircraftType string `json:"aircraft_type" bigquery:"aircraft_type"`
	TailNumber   string `json:"tail_number" bigquery:"tail_number"`
	Orig         string `json:"source_airport" bigquery:"source_airport"`
	Dest         string `json:"destination_airport" bigquery:"destination_airport"`

	FirstSeen   time.Time `json:"first_seen" bigquery:"first_seen"`
	LastSeen    time.Time `json:"last_seen" bigquery:"last_seen"`
	CompletedAt time.Time `json:"completed_at" bigquery:"completed_at"`
	Date        string    `json:"date" bigquery:"date"` // YYYY-MM-DD of completed_at, same format as BQ's DATE()

	NumUpdates      int      `json:"num_updates" bigquery:"num_updates"`
	TotalDistanceKM float64  `json:"total_distance_km" bigquery:"total_distance_km"`
	DurationHours   float64  `json:"duration_hours" bigquery:"duration_hours"`
	Receivers       []string `json:"receivers" bigquery:"receivers"`
}

func (fbq FlightForBigQuery) String() string {
	return fmt.Sprintf("%s %s %s->%s %.2fKM %.2fh", fbq.FlightID, fbq.Date, fbq.Orig, fbq.Dest,
		fbq.TotalDistanceKM, fbq.DurationHours)
}

// ForBigQuery summarizes an archived flight. Timestamps that don't parse are left as zero
// times (and the duration as zero).
func (f *Flight) ForBigQuery() *FlightForBigQuery {
	fbq := FlightForBigQuery{
		FlightID:        f.FlightID,
		Callsign:        f.Callsign,
		AircraftType:    f.AircraftType,
		TailNumber:      f.TailNumber,
		Orig:            f.SourceAirport,
		Dest:            f.DestinationAirport,
		NumUpdates:      len(f.Updates),
		TotalDistanceKM: f.DistanceKM(),
		Receivers:       []string{},
	}

	if s, e, err := f.Times(); err == nil {
		fbq.FirstSeen, fbq.LastSeen = s, e
		fbq.DurationHours = RoundKM(e.Sub(s).Hours())
	}
	if t, err := ParseTimestamp(f.CompletedAt); err == nil {
		fbq.CompletedAt = t
		fbq.Date = t.Format("2006-01-02")
	}

	seen := map[string]bool{}
	for _, u := range f.Updates {
		if !seen[u.ReceiverID] {
			seen[u.ReceiverID] = true
			fbq.Receivers = append(fbq.Receivers, u.ReceiverID)
		}
	}

	return &fbq
}
