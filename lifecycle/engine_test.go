package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skypies/adsb"
	"github.com/skypies/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	fdb "github.com/skypies/flightlog"
	"github.com/skypies/flightlog/db"
	"github.com/skypies/flightlog/ref"
)

// {{{ test fixtures

type testClock struct {
	sync.Mutex
	t time.Time
}

func (c *testClock) Now() time.Time {
	c.Lock()
	defer c.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.Lock()
	defer c.Unlock()
	c.t = c.t.Add(d)
}

func newTestEngine() (*Engine, *db.MemStore, *testClock) {
	ms := db.NewMemStore()
	clock := &testClock{t: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)}
	e := New(ms, ref.NewStaticAirports(ref.DefaultAirports()))
	e.Airframes = ref.NewAirframeCache(ref.DefaultAirframes())
	e.Now = clock.Now
	return e, ms, clock
}

func payload(t *testing.T, fields map[string]any) []byte {
	raw, err := json.Marshal(fields)
	require.NoError(t, err)
	return raw
}

func cruising(id string) map[string]any {
	return map[string]any{
		"flight_id": id, "callsign": id,
		"lat": 31.55, "lon": 74.40, "altitude_m": 15000, "spd_kts": 480, "heading": 270,
	}
}

func with(base map[string]any, kv ...any) map[string]any {
	m := map[string]any{}
	for k, v := range base {
		m[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

type recordingSink struct {
	sync.Mutex
	ids []string
	err error
}

func (rs *recordingSink) Archived(ctx context.Context, f *fdb.Flight) error {
	rs.Lock()
	defer rs.Unlock()
	rs.ids = append(rs.ids, f.FlightID)
	return rs.err
}

// }}}

func TestPK301Touchdown(t *testing.T) {
	ctx := context.Background()
	e, ms, clock := newTestEngine()

	res, err := e.Ingest(ctx, payload(t, cruising("PK301")))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.False(t, res.Archived)
	assert.Equal(t, MsgNewFlight, res.Message)
	assert.Equal(t, "2024-01-15T10:00:00.000000Z", res.Timestamp)

	f, _ := ms.FindActive(ctx, "PK301")
	require.NotNil(t, f)
	assert.Equal(t, fdb.StatusActive, f.Status)
	assert.Equal(t, fdb.Unknown, f.DestinationAirport)

	clock.Advance(20 * time.Minute)
	res, err = e.Ingest(ctx, payload(t, with(cruising("PK301"),
		"lat", 31.52, "lon", 74.41, "altitude_m", 30, "spd_kts", 10, "destination", "LHE")))
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, MsgFlightUpdated, res.Message)
	assert.True(t, res.Archived)

	active, _ := ms.FindActive(ctx, "PK301")
	assert.Nil(t, active)
	archived, _ := ms.FindArchived(ctx, "PK301")
	require.NotNil(t, archived)
	assert.Equal(t, fdb.StatusCompleted, archived.Status)
	assert.Equal(t, "2024-01-15T10:20:00.000000Z", archived.CompletedAt)
	assert.Equal(t, "LHE", archived.DestinationAirport)
	require.NotNil(t, archived.TotalDistanceKM)
	assert.InDelta(t, fdb.DistKM(31.55, 74.40, 31.52, 74.41), *archived.TotalDistanceKM, 0.01)
	assert.Len(t, archived.Updates, 2)

	// Already archived; nothing more to do
	again, err := e.EvaluateAndArchive(ctx, "PK301")
	require.NoError(t, err)
	assert.False(t, again)
}

func TestEvaluateTwice(t *testing.T) {
	ctx := context.Background()
	e, ms, _ := newTestEngine()

	f := fdb.NewFlight(fdb.Report{FlightID: "EK601", Callsign: "UAE601",
		Overrides: fdb.Overrides{Status: fdb.StatusCompleted},
		Update:    fdb.PositionUpdate{Lat: 25, Lon: 55, AltitudeM: 11000, SpeedKts: 500, Timestamp: "2024-01-15T09:59:00.000000Z"},
	})
	require.NoError(t, ms.CreateActive(ctx, f))

	first, err := e.EvaluateAndArchive(ctx, "EK601")
	require.NoError(t, err)
	second, err := e.EvaluateAndArchive(ctx, "EK601")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, []bool{first, second})

	none, err := e.EvaluateAndArchive(ctx, "nope")
	assert.NoError(t, err)
	assert.False(t, none)
}

func TestCompletedWins(t *testing.T) {
	ctx := context.Background()
	e, ms, _ := newTestEngine()

	res, err := e.Ingest(ctx, payload(t, with(cruising("PK302"), "status", "completed")))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.True(t, res.Archived)

	archived, _ := ms.FindArchived(ctx, "PK302")
	require.NotNil(t, archived)
	assert.Equal(t, 0.0, archived.DistanceKM())
}

func TestStale(t *testing.T) {
	ctx := context.Background()
	e, ms, clock := newTestEngine()

	_, err := e.Ingest(ctx, payload(t, with(cruising("PK303"), "destination", "ISB")))
	require.NoError(t, err)

	clock.Advance(time.Hour)
	kept, err := e.EvaluateAndArchive(ctx, "PK303")
	require.NoError(t, err)
	assert.False(t, kept)

	clock.Advance(2 * time.Hour)
	archived, err := e.EvaluateAndArchive(ctx, "PK303")
	require.NoError(t, err)
	assert.True(t, archived)

	f, _ := ms.FindArchived(ctx, "PK303")
	require.NotNil(t, f)
	assert.Equal(t, "2024-01-15T13:00:00.000000Z", f.CompletedAt)
}

func TestTouchdownNeedsKnownAirport(t *testing.T) {
	ctx := context.Background()
	e, ms, _ := newTestEngine()

	for _, dest := range []string{"XYZ", "KHI"} {
		id := "PK-" + dest
		res, err := e.Ingest(ctx, payload(t, with(cruising(id),
			"altitude_m", 30, "spd_kts", 10, "destination", dest)))
		require.NoError(t, err)
		assert.False(t, res.Archived, dest)
		f, _ := ms.FindActive(ctx, id)
		assert.NotNil(t, f, dest)
	}
}

func TestValidationRejects(t *testing.T) {
	ctx := context.Background()
	e, ms, _ := newTestEngine()

	noHeading := cruising("PK304")
	delete(noHeading, "heading")
	_, err := e.Ingest(ctx, payload(t, noHeading))
	var verr *fdb.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"Missing required field: heading"}, verr.Problems)

	_, err = e.Ingest(ctx, payload(t, with(cruising("PK304"), "lat", 95)))
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"Invalid coordinates (lat: -90 to 90, lon: -180 to 180)"}, verr.Problems)

	_, err = e.Ingest(ctx, []byte(`{}`))
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, len(fdb.RequiredFields))
	assert.Contains(t, verr.Problems, "Missing required field: flight_id")
	assert.Contains(t, verr.Problems, "Missing required field: heading")

	_, err = e.Ingest(ctx, []byte("  \n"))
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"No data provided"}, verr.Problems)

	_, err = e.Ingest(ctx, []byte(`{"flight_id":`))
	require.True(t, errors.As(err, &verr))

	n, _ := ms.Count(ctx, db.ActiveSet)
	assert.Equal(t, 0, n)
}

func TestOverrides(t *testing.T) {
	ctx := context.Background()
	e, ms, _ := newTestEngine()

	_, err := e.Ingest(ctx, payload(t, with(cruising("PK305"), "source", "LHE", "destination", "KHI",
		"tail_number", "AP-BLD", "receiver_id", "RX-LHE", "vertical_rate", -500)))
	require.NoError(t, err)
	_, err = e.Ingest(ctx, payload(t, with(cruising("PK305"), "destination", "ISB")))
	require.NoError(t, err)

	f, _ := ms.FindActive(ctx, "PK305")
	require.NotNil(t, f)
	assert.Equal(t, "LHE", f.SourceAirport)
	assert.Equal(t, "ISB", f.DestinationAirport)
	assert.Equal(t, "B737", f.AircraftType)
	assert.Equal(t, "AP-BLD", f.TailNumber)
	assert.Equal(t, "RX-LHE", f.Updates[0].ReceiverID)
	assert.Equal(t, -500.0, f.Updates[0].VerticalRate)
	assert.Equal(t, fdb.UnknownReceiver, f.Updates[1].ReceiverID)
}

func TestIngestADSB(t *testing.T) {
	ctx := context.Background()
	e, ms, clock := newTestEngine()

	msg := func(callsign string, secs int, pos geo.Latlong) *adsb.CompositeMsg {
		return &adsb.CompositeMsg{
			Msg: adsb.Msg{
				Icao24:                adsb.IcaoId("760A01"),
				GeneratedTimestampUTC: clock.Now().Add(time.Duration(secs) * time.Second),
				Callsign:              callsign,
				Altitude:              12000,
				GroundSpeed:           320,
				Track:                 200,
				Position:              pos,
			},
			ReceiverName: "RX-LHE",
		}
	}

	results, err := e.IngestADSB(ctx, []*adsb.CompositeMsg{
		msg("AP-BLD", 2, geo.Latlong{Lat: 31.40, Long: 74.30}),
		msg("AP-BLD", 1, geo.Latlong{Lat: 31.45, Long: 74.35}),
		msg("AP-BLD", 3, geo.Latlong{}), // no position yet
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Created)
	assert.False(t, results[1].Created)

	f, _ := ms.FindActive(ctx, "AP-BLD")
	require.NotNil(t, f)
	assert.Equal(t, "AP-BLD", f.TailNumber)
	assert.Equal(t, "B737", f.AircraftType)
	require.Len(t, f.Updates, 2)
	assert.Equal(t, 31.45, f.Updates[0].Lat)
	assert.InDelta(t, 12000*0.3048, f.Updates[0].AltitudeM, 1e-9)
	assert.Equal(t, "RX-LHE", f.Updates[1].ReceiverID)

	// Same transponder flying as a bare flight number; the airframe supplies the carrier
	results, err = e.IngestADSB(ctx, []*adsb.CompositeMsg{
		msg("301", 10, geo.Latlong{Lat: 31.50, Long: 74.40}),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "PIA301", results[0].FlightID)

	f, _ = ms.FindActive(ctx, "PIA301")
	require.NotNil(t, f)
	assert.Equal(t, "PIA301", f.Callsign)
	assert.Equal(t, "AP-BLD", f.TailNumber)
	assert.Equal(t, "B737", f.AircraftType)
}

func TestReingestArchived(t *testing.T) {
	ctx := context.Background()
	e, ms, _ := newTestEngine()

	_, err := e.Ingest(ctx, payload(t, with(cruising("PK306"), "status", "completed")))
	require.NoError(t, err)

	_, err = e.Ingest(ctx, payload(t, cruising("PK306")))
	assert.True(t, errors.Is(err, ErrFlightArchived))

	active, _ := ms.FindActive(ctx, "PK306")
	assert.Nil(t, active)
}

// archivingStore archives the flight right after the engine has looked in the archived set
// and found nothing, once.
type archivingStore struct {
	*db.MemStore
	t    *testing.T
	once sync.Once
}

func (as *archivingStore) FindArchived(ctx context.Context, id string) (*fdb.Flight, error) {
	f, err := as.MemStore.FindArchived(ctx, id)
	as.once.Do(func() {
		active, _ := as.MemStore.FindActive(ctx, id)
		require.NotNil(as.t, active)
		require.NoError(as.t, as.MemStore.MoveToArchived(ctx, active, len(active.Updates)))
	})
	return f, err
}

func TestArchivedDuringIngest(t *testing.T) {
	ctx := context.Background()
	e, ms, _ := newTestEngine()

	_, err := e.Ingest(ctx, payload(t, cruising("PK777")))
	require.NoError(t, err)

	e.Store = &archivingStore{MemStore: ms, t: t}
	res, err := e.Ingest(ctx, payload(t, with(cruising("PK777"), "lat", 31.6)))
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrFlightArchived), fmt.Sprintf("%v", err))

	active, _ := ms.FindActive(ctx, "PK777")
	assert.Nil(t, active)
	archived, _ := ms.FindArchived(ctx, "PK777")
	require.NotNil(t, archived)
	assert.Len(t, archived.Updates, 1)
}

func TestCrashBetweenPhases(t *testing.T) {
	ctx := context.Background()
	e, ms, _ := newTestEngine()

	ms.BetweenPhases = func(string) error { return errors.New("crash") }
	res, err := e.Ingest(ctx, payload(t, with(cruising("PK307"), "status", "completed")))
	require.Error(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Created)
	assert.False(t, res.Archived)

	active, _ := ms.FindActive(ctx, "PK307")
	archived, _ := ms.FindArchived(ctx, "PK307")
	require.NotNil(t, active)
	require.NotNil(t, archived)

	ms.BetweenPhases = nil
	moved, err := e.EvaluateAndArchive(ctx, "PK307")
	require.NoError(t, err)
	assert.False(t, moved)

	active, _ = ms.FindActive(ctx, "PK307")
	assert.Nil(t, active)
	archived, _ = ms.FindArchived(ctx, "PK307")
	assert.NotNil(t, archived)
}

func TestCrashReconciledByIngest(t *testing.T) {
	ctx := context.Background()
	e, ms, _ := newTestEngine()

	ms.BetweenPhases = func(string) error { return errors.New("crash") }
	_, err := e.Ingest(ctx, payload(t, with(cruising("PK308"), "status", "completed")))
	require.Error(t, err)
	ms.BetweenPhases = nil

	_, err = e.Ingest(ctx, payload(t, cruising("PK308")))
	assert.True(t, errors.Is(err, ErrFlightArchived))
	active, _ := ms.FindActive(ctx, "PK308")
	assert.Nil(t, active)
}

func TestConcurrentFirstIngest(t *testing.T) {
	ctx := context.Background()
	e, ms, _ := newTestEngine()

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.Ingest(ctx, payload(t, cruising("PK309")))
			if assert.NoError(t, err) && res.Created {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	f, _ := ms.FindActive(ctx, "PK309")
	require.NotNil(t, f)
	assert.Len(t, f.Updates, 20)
}

func TestConcurrentArchival(t *testing.T) {
	ctx := context.Background()
	e, ms, _ := newTestEngine()

	f := fdb.NewFlight(fdb.Report{FlightID: "BA260", Callsign: "BAW260",
		Overrides: fdb.Overrides{Status: fdb.StatusCompleted},
		Update:    fdb.PositionUpdate{Lat: 51.47, Lon: -0.45, Timestamp: "2024-01-15T09:00:00.000000Z"},
	})
	require.NoError(t, ms.CreateActive(ctx, f))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			archived, err := e.EvaluateAndArchive(ctx, "BA260")
			if assert.NoError(t, err) && archived {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	e, ms, clock := newTestEngine()

	for _, id := range []string{"OLD1", "OLD2"} {
		_, err := e.Ingest(ctx, payload(t, cruising(id)))
		require.NoError(t, err)
	}
	clock.Advance(150 * time.Minute)
	_, err := e.Ingest(ctx, payload(t, cruising("FRESH")))
	require.NoError(t, err)

	res, err := e.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Examined)
	assert.ElementsMatch(t, []string{"OLD1", "OLD2"}, res.Archived)

	n, _ := ms.Count(ctx, db.ActiveSet)
	assert.Equal(t, 1, n)
	n, _ = ms.Count(ctx, db.ArchivedSet)
	assert.Equal(t, 2, n)
}

func TestBatchIngest(t *testing.T) {
	ctx := context.Background()
	e, ms, _ := newTestEngine()

	updates := []map[string]any{}
	for i := 0; i < 5; i++ {
		updates = append(updates, with(cruising("A"), "lat", 30.0+float64(i)))
		if i == 2 {
			updates = append(updates, cruising("B"))
			updates = append(updates, with(cruising("C"), "spd_kts", 5000))
		}
	}
	raw, err := json.Marshal(map[string]any{"updates": updates})
	require.NoError(t, err)

	br, err := e.BatchIngest(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, 6, br.Successful)
	assert.Equal(t, 1, br.Failed)
	require.Len(t, br.Items, 7)

	bad := br.Items[4]
	assert.Equal(t, "C", bad.FlightID)
	assert.Equal(t, []string{"Invalid speed (must be 0-1000 knots)"}, bad.Errors)
	assert.True(t, br.Items[0].Result.Created)
	assert.False(t, br.Items[1].Result.Created)

	a, _ := ms.FindActive(ctx, "A")
	require.NotNil(t, a)
	require.Len(t, a.Updates, 5)
	for i, u := range a.Updates {
		assert.Equal(t, 30.0+float64(i), u.Lat)
	}

	_, err = e.BatchIngest(ctx, []byte(`{"flights":[]}`))
	var verr *fdb.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = e.BatchIngest(ctx, []byte(`{"updates":[]}`))
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"No updates provided"}, verr.Problems)
}

func flightIDs(flights []*fdb.Flight) []string {
	ids := []string{}
	for _, f := range flights {
		ids = append(ids, f.FlightID)
	}
	return ids
}

func TestList(t *testing.T) {
	ctx := context.Background()
	e, _, clock := newTestEngine()
	start := clock.Now()

	ingest := func(fields map[string]any) {
		_, err := e.Ingest(ctx, payload(t, fields))
		require.NoError(t, err)
	}
	ingest(with(cruising("PK401"), "callsign", "PIA301", "destination", "ISB"))
	clock.Advance(10 * time.Minute)
	ingest(with(cruising("PK402"), "callsign", "PIA302", "destination", "KHI"))
	clock.Advance(2 * time.Hour)
	ingest(with(cruising("PK403"), "callsign", "UAE601", "destination", "ISB"))
	ingest(with(cruising("PK404"), "status", "completed"))

	tests := []struct {
		name string
		set  db.Set
		lf   ListFilter
		want []string
	}{
		{"everything active", db.ActiveSet, ListFilter{}, []string{"PK403", "PK402", "PK401"}},
		{"destination", db.ActiveSet, ListFilter{Destination: " isb"}, []string{"PK403", "PK401"}},
		{"callsign", db.ActiveSet, ListFilter{Callsign: "pia0301"}, []string{"PK401"}},
		{"time range", db.ActiveSet, ListFilter{From: start, To: start.Add(20 * time.Minute)}, []string{"PK402", "PK401"}},
		{"open ended range", db.ActiveSet, ListFilter{From: start.Add(2 * time.Hour)}, []string{"PK403"}},
		{"at", db.ActiveSet, ListFilter{At: start.Add(2*time.Hour + 15*time.Minute)}, []string{"PK403"}},
		{"paged", db.ActiveSet, ListFilter{Limit: 1, Offset: 1}, []string{"PK402"}},
		{"past the end", db.ActiveSet, ListFilter{Offset: 5}, []string{}},
		{"archived", db.ArchivedSet, ListFilter{}, []string{"PK404"}},
		{"archived by destination", db.ArchivedSet, ListFilter{Destination: "ISB"}, []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			flights, err := e.List(ctx, tc.set, tc.lf)
			require.NoError(t, err)
			assert.Equal(t, tc.want, flightIDs(flights))
		})
	}

	all, err := e.ListAll(ctx, ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"PK403", "PK402", "PK404"}, flightIDs(all))

	var verr *fdb.ValidationError
	_, err = e.List(ctx, db.ActiveSet, ListFilter{Limit: -1})
	assert.True(t, errors.As(err, &verr))
	_, err = e.List(ctx, db.ActiveSet, ListFilter{From: start, To: start.Add(-time.Hour)})
	assert.True(t, errors.As(err, &verr))
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	e, _, clock := newTestEngine()

	start := clock.Now()
	for i := 0; i < 4; i++ {
		_, err := e.Ingest(ctx, payload(t, with(cruising("PK310"), "lat", 30.0+float64(i))))
		require.NoError(t, err)
		clock.Advance(10 * time.Minute)
	}

	lr, err := e.Lookup(ctx, "PK310", nil)
	require.NoError(t, err)
	assert.Equal(t, db.ActiveSet, lr.Set)
	assert.Equal(t, 33.0, lr.Location.Lat)

	at := start.Add(12 * time.Minute)
	lr, err = e.Lookup(ctx, "PK310", &at)
	require.NoError(t, err)
	assert.Equal(t, 31.0, lr.Location.Lat)

	_, err = e.Ingest(ctx, payload(t, with(cruising("PK310"), "status", "completed")))
	require.NoError(t, err)
	lr, err = e.Lookup(ctx, "PK310", nil)
	require.NoError(t, err)
	assert.Equal(t, db.ArchivedSet, lr.Set)

	_, err = e.Lookup(ctx, "nope", nil)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "flight nope not found", nf.Error())
}

func TestNearby(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine()

	for id, lat := range map[string]float64{"NEAR": 31.60, "NEARER": 31.53, "FAR": 33.62} {
		_, err := e.Ingest(ctx, payload(t, with(cruising(id), "lat", lat, "lon", 74.40)))
		require.NoError(t, err)
	}

	nearby, err := e.Nearby(ctx, 31.5216, 74.4036, 50)
	require.NoError(t, err)
	require.Len(t, nearby, 2)
	assert.Equal(t, "NEARER", nearby[0].FlightID)
	assert.Equal(t, "NEAR", nearby[1].FlightID)
	assert.Equal(t, fdb.RoundKM(nearby[0].DistanceKM), nearby[0].DistanceKM)

	_, err = e.Nearby(ctx, 95, 0, 10)
	assert.Error(t, err)
	_, err = e.Nearby(ctx, 0, 0, -1)
	assert.Error(t, err)
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	e, _, clock := newTestEngine()

	_, err := e.Ingest(ctx, payload(t, cruising("LIVE")))
	require.NoError(t, err)

	_, err = e.Ingest(ctx, payload(t, with(cruising("DONE"), "lat", 31.0)))
	require.NoError(t, err)
	clock.Advance(90 * time.Minute)
	_, err = e.Ingest(ctx, payload(t, with(cruising("DONE"), "lat", 32.0, "status", "completed")))
	require.NoError(t, err)

	stats, err := e.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActiveFlights)
	assert.Equal(t, 1, stats.CompletedFlights)
	assert.Equal(t, 2, stats.TotalFlights)
	assert.Equal(t, 1.5, stats.AvgDurationHours)
	assert.InDelta(t, 111.19, stats.AvgDistanceKM, 0.01)
}

func TestSink(t *testing.T) {
	ctx := context.Background()
	e, ms, _ := newTestEngine()
	sink := &recordingSink{err: errors.New("bigquery down")}
	e.Sink = sink

	res, err := e.Ingest(ctx, payload(t, with(cruising("PK311"), "status", "completed")))
	require.NoError(t, err)
	assert.True(t, res.Archived)
	assert.Equal(t, []string{"PK311"}, sink.ids)

	archived, _ := ms.FindArchived(ctx, "PK311")
	assert.NotNil(t, archived)
}

// failingStore fails every call, the way an unreachable datastore would.
type failingStore struct {
	db.TrackStore
	err error
}

func (fs failingStore) FindArchived(ctx context.Context, id string) (*fdb.Flight, error) {
	return nil, db.Wrap("findarchived", id, fs.err)
}

func TestStoreFailure(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine()
	e.Store = failingStore{err: status.Error(codes.Unavailable, "no backend")}

	_, err := e.Ingest(ctx, payload(t, cruising("PK312")))
	var se *db.StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, codes.Unavailable, se.Code)
	assert.False(t, se.Timeout())
}

type slowStore struct {
	*db.MemStore
}

func (ss slowStore) FindArchived(ctx context.Context, id string) (*fdb.Flight, error) {
	<-ctx.Done()
	return nil, db.Wrap("findarchived", id, ctx.Err())
}

func TestStoreTimeout(t *testing.T) {
	ctx := context.Background()
	e, ms, _ := newTestEngine()
	e.Store = slowStore{ms}
	e.StoreTimeout = 10 * time.Millisecond

	_, err := e.Ingest(ctx, payload(t, cruising("PK313")))
	require.Error(t, err)
	assert.True(t, db.IsTimeout(err), fmt.Sprintf("%v", err))
}
