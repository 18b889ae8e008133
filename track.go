package flightlog

import (
	"fmt"
	"math"
	"time"
)

// A Track is a slice of PositionUpdates, in the order they arrived. It is only ever
// appended to.
type Track []PositionUpdate

func (t Track) Last() (PositionUpdate, bool) {
	if len(t) == 0 {
		return PositionUpdate{}, false
	}
	return t[len(t)-1], true
}

func (t Track) String() string {
	if len(t) == 0 {
		return "Track: 0 points"
	}
	str := fmt.Sprintf("Track: %d points, start=%s", len(t), t[0].Timestamp)
	if len(t) > 1 {
		s, e := t[0], t[len(t)-1]
		str += fmt.Sprintf(", %.1fKM (%.0f deg), path %.1fKM", s.DistKM(e),
			BearingDeg(s.Lat, s.Lon, e.Lat, e.Lon), t.TotalDistanceKM())
	}
	return str
}

// TotalDistanceKM sums the great-circle legs between consecutive updates. It accumulates
// at full precision; round the result (with RoundKM) only when storing it.
func (t Track) TotalDistanceKM() float64 {
	total := 0.0
	for i := 1; i < len(t); i++ {
		total += t[i-1].DistKM(t[i])
	}
	return total
}

// RoundKM rounds to two decimal places, which is how distances are stored.
func RoundKM(km float64) float64 { return math.Round(km*100) / 100 }

// NearestTo returns the update whose timestamp is closest to tm. Updates with unparseable
// timestamps are skipped; if none parse, ok is false and the caller should fall back to
// Last().
func (t Track) NearestTo(tm time.Time) (u PositionUpdate, ok bool) {
	var best time.Duration
	for _, cand := range t {
		ts, err := cand.Time()
		if err != nil {
			continue
		}
		d := ts.Sub(tm)
		if d < 0 {
			d = -d
		}
		if !ok || d < best {
			u, best, ok = cand, d, true
		}
	}
	return
}
