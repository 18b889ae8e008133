package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/skypies/geo"

	fdb "github.com/skypies/flightlog"
	"github.com/skypies/flightlog/db"
)

type LookupResult struct {
	Flight   *fdb.Flight
	Set      db.Set
	Location fdb.PositionUpdate // last update, or the one nearest the requested time
}

func (lr LookupResult) String() string {
	return fmt.Sprintf("[%s] %s\n  at %s", lr.Set, lr.Flight, lr.Location)
}

// Lookup finds a flight in the active set, else the archived set. If at is non-nil, the
// location is the update nearest that time; updates with unparseable timestamps are passed
// over, and if none parse, the last update is used.
func (e *Engine) Lookup(ctx context.Context, id string, at *time.Time) (*LookupResult, error) {
	res := LookupResult{Set: db.ActiveSet}
	f, err := e.findActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		if f, err = e.findArchived(ctx, id); err != nil {
			return nil, err
		} else if f == nil {
			return nil, &NotFoundError{What: "flight", ID: id}
		}
		res.Set = db.ArchivedSet
	}
	res.Flight = f

	res.Location, _ = f.Updates.Last()
	if at != nil {
		if u, ok := f.Updates.NearestTo(*at); ok {
			res.Location = u
		}
	}
	return &res, nil
}

type NearbyFlight struct {
	FlightID     string             `json:"flight_id"`
	Callsign     string             `json:"callsign"`
	AircraftType string             `json:"aircraft_type"`
	Position     fdb.PositionUpdate `json:"position"`
	DistanceKM   float64            `json:"distance_km"`
}

func (nf NearbyFlight) String() string {
	return fmt.Sprintf("%6.2fKM %-8.8s %-4.4s %s", nf.DistanceKM, nf.FlightID, nf.AircraftType, nf.Position)
}

// Nearby lists active flights whose last update is within radiusKM of the point, nearest
// first.
func (e *Engine) Nearby(ctx context.Context, lat, lon, radiusKM float64) ([]NearbyFlight, error) {
	if !fdb.IsValidCoordinate(lat, lon) {
		return nil, &fdb.ValidationError{Problems: []string{"Invalid coordinates (lat: -90 to 90, lon: -180 to 180)"}}
	} else if radiusKM < 0 {
		return nil, &fdb.ValidationError{Problems: []string{"Radius must not be negative"}}
	}

	flights, err := e.query(ctx, db.NewQuery(db.ActiveSet))
	if err != nil {
		return nil, err
	}

	center := geo.Latlong{Lat: lat, Long: lon}
	nearby := []NearbyFlight{}
	for _, f := range flights {
		last, ok := f.Updates.Last()
		if !ok {
			continue
		}
		if dist := fdb.DistLatlongKM(center, last.Latlong()); dist <= radiusKM {
			nearby = append(nearby, NearbyFlight{
				FlightID:     f.FlightID,
				Callsign:     f.Callsign,
				AircraftType: f.AircraftType,
				Position:     last,
				DistanceKM:   fdb.RoundKM(dist),
			})
		}
	}

	sort.SliceStable(nearby, func(i, j int) bool { return nearby[i].DistanceKM < nearby[j].DistanceKM })
	return nearby, nil
}

// {{{ e.List

// DefaultListLimit applies when a listing doesn't say how many flights it wants.
const DefaultListLimit = 100

// ListFilter narrows a listing. Zero values don't filter.
type ListFilter struct {
	Destination string
	Callsign    string    // matched after normalization, so PIA0301 finds PIA301
	At          time.Time // airborne at this time; ignored if From/To are set
	From, To    time.Time // airborne at some point in [From,To]; a missing end is taken from the other
	Limit       int
	Offset      int
}

func (lf ListFilter) query(s db.Set) (*db.Query, error) {
	if lf.Limit < 0 || lf.Offset < 0 {
		return nil, &fdb.ValidationError{Problems: []string{"Limit and offset must not be negative"}}
	}

	q := db.NewQuery(s)
	if lf.Destination != "" {
		q.ByDestination(strings.ToUpper(strings.TrimSpace(lf.Destination)))
	}
	if lf.Callsign != "" {
		q.ByCallsign(lf.Callsign)
	}

	from, to := lf.From, lf.To
	if from.IsZero() {
		from = to
	} else if to.IsZero() {
		to = from
	}
	if !from.IsZero() {
		if to.Before(from) {
			return nil, &fdb.ValidationError{Problems: []string{"Time range ends before it starts"}}
		}
		q.ByTimeRange(from, to)
	} else if !lf.At.IsZero() {
		q.ByTime(lf.At)
	}

	limit := lf.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}
	return q.Order("-LastSeen").Offset(lf.Offset).Limit(limit), nil
}

// List returns flights from one set, most recently seen first.
func (e *Engine) List(ctx context.Context, s db.Set, lf ListFilter) ([]*fdb.Flight, error) {
	q, err := lf.query(s)
	if err != nil {
		return nil, err
	}
	e.Log.Debugf("list %s", q)
	return e.query(ctx, q)
}

// ListAll lists the active flights, then the archived ones. The filter, including limit and
// offset, applies to each set separately.
func (e *Engine) ListAll(ctx context.Context, lf ListFilter) ([]*fdb.Flight, error) {
	active, err := e.List(ctx, db.ActiveSet, lf)
	if err != nil {
		return nil, err
	}
	archived, err := e.List(ctx, db.ArchivedSet, lf)
	if err != nil {
		return nil, err
	}
	return append(active, archived...), nil
}

// }}}

// Statistics counts both sets, and averages over the archived one.
func (e *Engine) Statistics(ctx context.Context) (*fdb.Statistics, error) {
	nActive, err := e.count(ctx, db.ActiveSet)
	if err != nil {
		return nil, err
	}
	archived, err := e.query(ctx, db.NewQuery(db.ArchivedSet))
	if err != nil {
		return nil, err
	}
	stats := fdb.ComputeStatistics(nActive, archived)
	return &stats, nil
}
