package db

import (
	"context"
	"errors"

	fdb "github.com/skypies/flightlog"
)

/*

  import "github.com/skypies/flightlog/db"

	store := db.NewMemStore()  // Or db.NewCloudStore(ctx, "projname"), for Cloud Datastore

	f,err := store.FindActive(ctx, "PK301")
	if f == nil { ... never heard of it, or it has been archived }

	ids,err := store.QueryIDs(ctx, db.NewQuery(db.ActiveSet).ByLastSeenBefore(cutoff))

 */

// A TrackStore holds flight records in two disjoint sets: active and archived. Every method
// that changes a record is atomic per flight ID. Lookups of absent flights return (nil,nil).
type TrackStore interface {
	FindActive(ctx context.Context, id string) (*fdb.Flight, error)
	FindArchived(ctx context.Context, id string) (*fdb.Flight, error)

	// CreateActive inserts a new record into the active set; ErrDuplicate if the ID is
	// already there, ErrArchived if it has already been archived. Both checks happen in
	// the same step as the insert.
	CreateActive(ctx context.Context, f *fdb.Flight) error

	// AppendUpdate adds an update to an active record (bumping last_seen, and applying any
	// overrides), and returns the record as stored. ErrNotActive if there is no such record.
	AppendUpdate(ctx context.Context, id string, u fdb.PositionUpdate, o fdb.Overrides) (*fdb.Flight, error)

	// MoveToArchived writes f into the archived set and removes the active record, as one
	// step. nUpdates is how many updates the caller saw when it decided to archive; if the
	// active record now has a different count, nothing is changed and ErrChanged comes back.
	// ErrNotActive if the active record is gone (someone else archived it).
	MoveToArchived(ctx context.Context, f *fdb.Flight, nUpdates int) error

	// DeleteActive removes an active record, if there is one. Used to clean up after a
	// move that was interrupted.
	DeleteActive(ctx context.Context, id string) error

	Query(ctx context.Context, q *Query) ([]*fdb.Flight, error)
	QueryIDs(ctx context.Context, q *Query) ([]string, error)
	Count(ctx context.Context, set Set) (int, error)
}

var (
	ErrDuplicate = errors.New("flight already exists in the active set")
	ErrNotActive = errors.New("flight not in the active set")
	ErrChanged   = errors.New("active flight changed underneath us")
	ErrArchived  = errors.New("flight already in the archived set")
)

// {{{ -------------------------={ E N D }=----------------------------------

// Local variables:
// folded-file: t
// end:

// }}}
