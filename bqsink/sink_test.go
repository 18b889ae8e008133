package bqsink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fdb "github.com/skypies/flightlog"
	"github.com/skypies/flightlog/db"
)

type fakeInserter struct {
	rows []interface{}
	err  error
}

func (fi *fakeInserter) Put(ctx context.Context, src interface{}) error {
	if fi.err != nil {
		return fi.err
	}
	fi.rows = append(fi.rows, src)
	return nil
}

func archivedFlight(id string, completed time.Time) *fdb.Flight {
	f := fdb.NewFlight(fdb.Report{
		FlightID: id,
		Callsign: id,
		Update: fdb.PositionUpdate{
			Lat: 31.5216, Lon: 74.4036, Timestamp: fdb.FormatTimestamp(completed.Add(-time.Hour)),
			ReceiverID: "RX1",
		},
	})
	f.Append(fdb.PositionUpdate{Lat: 33.6217, Lon: 73.0551, Timestamp: fdb.FormatTimestamp(completed), ReceiverID: "RX2"}, fdb.Overrides{})
	f.Finalize(completed)
	return f
}

func TestSchema(t *testing.T) {
	schema, err := Schema()
	require.NoError(t, err)
	names := []string{}
	for _, fs := range schema {
		names = append(names, fs.Name)
	}
	assert.Contains(t, names, "flight_id")
	assert.Contains(t, names, "total_distance_km")
	assert.Contains(t, names, "receivers")
}

func TestSinkArchived(t *testing.T) {
	fi := &fakeInserter{}
	s, err := newSink(fi)
	require.NoError(t, err)

	f := archivedFlight("PK301", time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, s.Archived(context.Background(), f))
	require.Len(t, fi.rows, 1)

	saver := fi.rows[0].(*bigquery.StructSaver)
	assert.Equal(t, "PK301", saver.InsertID)
	fbq := saver.Struct.(*fdb.FlightForBigQuery)
	assert.Equal(t, "2024-01-15", fbq.Date)
	assert.Equal(t, 2, fbq.NumUpdates)
	assert.Equal(t, []string{"RX1", "RX2"}, fbq.Receivers)
	assert.Equal(t, f.DistanceKM(), fbq.TotalDistanceKM)

	fi.err = errors.New("quota")
	err = s.Archived(context.Background(), f)
	assert.ErrorContains(t, err, "PK301")
	assert.Error(t, s.EnsureTable(context.Background()))
	assert.NoError(t, s.Close())
}

func TestWriteRows(t *testing.T) {
	ctx := context.Background()
	ms := db.NewMemStore()
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	for _, f := range []*fdb.Flight{
		archivedFlight("PK301", day.Add(12*time.Hour)),
		archivedFlight("EK601", day.Add(23*time.Hour)),
		archivedFlight("BA260", day.Add(25*time.Hour)),
	} {
		require.NoError(t, ms.CreateActive(ctx, f))
		require.NoError(t, ms.MoveToArchived(ctx, f, len(f.Updates)))
	}

	var buf bytes.Buffer
	n, err := WriteRows(ctx, ms, day.Add(3*time.Hour), &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	row := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &row))
	assert.Equal(t, "PK301", row["flight_id"])
}
