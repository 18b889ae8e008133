package flightlog

import "fmt"

// Statistics summarize both sets. Averages are over archived flights only.
type Statistics struct {
	ActiveFlights    int     `json:"active_flights"`
	CompletedFlights int     `json:"completed_flights"`
	TotalFlights     int     `json:"total_flights"`
	AvgDurationHours float64 `json:"avg_flight_duration_hours"`
	AvgDistanceKM    float64 `json:"avg_flight_distance_km"`
}

func (s Statistics) String() string {
	return fmt.Sprintf("active=%d completed=%d total=%d avg=%.2fh/%.2fKM", s.ActiveFlights,
		s.CompletedFlights, s.TotalFlights, s.AvgDurationHours, s.AvgDistanceKM)
}

// ComputeStatistics works out the averages over the archived flights. A flight whose
// first_seen or last_seen doesn't parse is left out of the duration average, but still
// counts towards the distance average.
func ComputeStatistics(nActive int, archived []*Flight) Statistics {
	s := Statistics{
		ActiveFlights:    nActive,
		CompletedFlights: len(archived),
		TotalFlights:     nActive + len(archived),
	}

	hours, nTimed := 0.0, 0
	km := 0.0
	for _, f := range archived {
		km += f.DistanceKM()
		if start, end, err := f.Times(); err == nil {
			hours += end.Sub(start).Hours()
			nTimed++
		}
	}

	if nTimed > 0 {
		s.AvgDurationHours = RoundKM(hours / float64(nTimed))
	}
	if len(archived) > 0 {
		s.AvgDistanceKM = RoundKM(km / float64(len(archived)))
	}
	return s
}
