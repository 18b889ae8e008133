// Package lifecycle runs flights through their lives: position reports come in, get
// validated and appended to the flight's track, and after every report the archival policy
// decides whether the flight is over. Finished flights move, with their total distance, from
// the active set to the archived set.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	fdb "github.com/skypies/flightlog"
	"github.com/skypies/flightlog/db"
	"github.com/skypies/flightlog/log"
	"github.com/skypies/flightlog/ref"
)

// An ArchiveSink is told about every flight that gets archived (e.g. bqsink.Sink). Failures
// are logged; they never undo the archival.
type ArchiveSink interface {
	Archived(ctx context.Context, f *fdb.Flight) error
}

// Engine holds no mutable state of its own; everything lives in the store, so any number of
// goroutines (or processes, sharing a store) can use it at once.
type Engine struct {
	Store     db.TrackStore
	Airports  ref.AirportDirectory
	Airframes ref.AirframeRegistry // optional
	Sink      ArchiveSink          // optional
	Policy    fdb.Policy
	Log       *log.Logger // optional

	StoreTimeout     time.Duration // applied to each store call; zero means none
	BatchConcurrency int           // how many flights a batch works on at once

	Now func() time.Time // for tests; defaults to time.Now
}

func New(store db.TrackStore, airports ref.AirportDirectory) *Engine {
	return &Engine{
		Store:            store,
		Airports:         airports,
		Policy:           fdb.DefaultPolicy(),
		StoreTimeout:     10 * time.Second,
		BatchConcurrency: 8,
	}
}

var ErrFlightArchived = errors.New("flight has already been archived")

// NotFoundError is returned by lookups of flights that are in neither set.
type NotFoundError struct {
	What string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.What, e.ID) }

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

// {{{ store call helpers

func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return fn(ctx)
}

func (e *Engine) findActive(ctx context.Context, id string) (*fdb.Flight, error) {
	return withTimeout(ctx, e.StoreTimeout, func(ctx context.Context) (*fdb.Flight, error) {
		return e.Store.FindActive(ctx, id)
	})
}

func (e *Engine) findArchived(ctx context.Context, id string) (*fdb.Flight, error) {
	return withTimeout(ctx, e.StoreTimeout, func(ctx context.Context) (*fdb.Flight, error) {
		return e.Store.FindArchived(ctx, id)
	})
}

func (e *Engine) createActive(ctx context.Context, f *fdb.Flight) error {
	_, err := withTimeout(ctx, e.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.Store.CreateActive(ctx, f)
	})
	return err
}

func (e *Engine) appendUpdate(ctx context.Context, id string, u fdb.PositionUpdate, o fdb.Overrides) (*fdb.Flight, error) {
	return withTimeout(ctx, e.StoreTimeout, func(ctx context.Context) (*fdb.Flight, error) {
		return e.Store.AppendUpdate(ctx, id, u, o)
	})
}

func (e *Engine) moveToArchived(ctx context.Context, f *fdb.Flight, n int) error {
	_, err := withTimeout(ctx, e.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.Store.MoveToArchived(ctx, f, n)
	})
	return err
}

func (e *Engine) deleteActive(ctx context.Context, id string) error {
	_, err := withTimeout(ctx, e.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.Store.DeleteActive(ctx, id)
	})
	return err
}

func (e *Engine) query(ctx context.Context, q *db.Query) ([]*fdb.Flight, error) {
	return withTimeout(ctx, e.StoreTimeout, func(ctx context.Context) ([]*fdb.Flight, error) {
		return e.Store.Query(ctx, q)
	})
}

func (e *Engine) queryIDs(ctx context.Context, q *db.Query) ([]string, error) {
	return withTimeout(ctx, e.StoreTimeout, func(ctx context.Context) ([]string, error) {
		return e.Store.QueryIDs(ctx, q)
	})
}

func (e *Engine) count(ctx context.Context, s db.Set) (int, error) {
	return withTimeout(ctx, e.StoreTimeout, func(ctx context.Context) (int, error) {
		return e.Store.Count(ctx, s)
	})
}

func (e *Engine) findAirport(ctx context.Context, code string) (*fdb.Airport, error) {
	return withTimeout(ctx, e.StoreTimeout, func(ctx context.Context) (*fdb.Airport, error) {
		return e.Airports.FindByCode(ctx, code)
	})
}

// }}}

// reconcile finishes a move that was interrupted after the archived copy was written: the
// archived record is authoritative, so the active one goes.
func (e *Engine) reconcile(ctx context.Context, id string) error {
	active, err := e.findActive(ctx, id)
	if err != nil || active == nil {
		return err
	}
	e.Log.Warnf("[%s] in both sets; removing the active copy", id)
	return e.deleteActive(ctx, id)
}
