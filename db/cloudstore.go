package db

// https://godoc.org/cloud.google.com/go/datastore

import (
	"context"
	"errors"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/option"

	fdb "github.com/skypies/flightlog"
)

// CloudStore implements the TrackStore interface on Cloud Datastore. Each set is its own
// kind; entities are IndexedFlightBlobs keyed by flight ID.
type CloudStore struct {
	Client *datastore.Client
}

func NewCloudStore(ctx context.Context, project string, opts ...option.ClientOption) (*CloudStore, error) {
	client, err := datastore.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, Wrap("NewClient", project, err)
	}
	return &CloudStore{Client: client}, nil
}

func (cs *CloudStore) Close() error { return cs.Client.Close() }

func (cs *CloudStore) find(ctx context.Context, s Set, id string) (*fdb.Flight, error) {
	blob := fdb.IndexedFlightBlob{}
	if err := cs.Client.Get(ctx, flightKey(s, id), &blob); errors.Is(err, datastore.ErrNoSuchEntity) {
		return nil, nil
	} else if err != nil {
		return nil, Wrap("find"+s.String(), id, err)
	}
	f, err := blob.ToFlight()
	return f, Wrap("find"+s.String(), id, err)
}

func (cs *CloudStore) FindActive(ctx context.Context, id string) (*fdb.Flight, error) {
	return cs.find(ctx, ActiveSet, id)
}

func (cs *CloudStore) FindArchived(ctx context.Context, id string) (*fdb.Flight, error) {
	return cs.find(ctx, ArchivedSet, id)
}

// {{{ cs.CreateActive

func (cs *CloudStore) CreateActive(ctx context.Context, f *fdb.Flight) error {
	blob, err := f.ToBlob(fdb.TimeslotDuration)
	if err != nil {
		return Wrap("CreateActive", f.FlightID, err)
	}
	key := flightKey(ActiveSet, f.FlightID)

	_, err = cs.Client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		existing := fdb.IndexedFlightBlob{}
		if err := tx.Get(key, &existing); err == nil {
			return ErrDuplicate
		} else if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		if err := tx.Get(flightKey(ArchivedSet, f.FlightID), &existing); err == nil {
			return ErrArchived
		} else if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		_, err := tx.Put(key, blob)
		return err
	}, datastore.MaxAttempts(1))

	// Losing the race to another creator means it exists now.
	if errors.Is(err, datastore.ErrConcurrentTransaction) {
		err = ErrDuplicate
	}
	return Wrap("CreateActive", f.FlightID, err)
}

// }}}
// {{{ cs.AppendUpdate

// AppendUpdate does not retry on contention; a concurrent transaction surfaces as a
// StoreError with code Aborted, and the caller decides what to do about it.
func (cs *CloudStore) AppendUpdate(ctx context.Context, id string, u fdb.PositionUpdate, o fdb.Overrides) (*fdb.Flight, error) {
	key := flightKey(ActiveSet, id)
	var f *fdb.Flight

	_, err := cs.Client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		blob := fdb.IndexedFlightBlob{}
		if err := tx.Get(key, &blob); errors.Is(err, datastore.ErrNoSuchEntity) {
			return ErrNotActive
		} else if err != nil {
			return err
		}

		var err error
		if f, err = blob.ToFlight(); err != nil {
			return err
		}
		f.Append(u, o)

		newBlob, err := f.ToBlob(fdb.TimeslotDuration)
		if err != nil {
			return err
		}
		_, err = tx.Put(key, newBlob)
		return err
	}, datastore.MaxAttempts(1))

	if err != nil {
		return nil, Wrap("AppendUpdate", id, err)
	}
	return f, nil
}

// }}}
// {{{ cs.MoveToArchived

// MoveToArchived writes the archived entity and deletes the active one in a single
// transaction, so datastore never shows the flight in both sets.
func (cs *CloudStore) MoveToArchived(ctx context.Context, f *fdb.Flight, nUpdates int) error {
	blob, err := f.ToBlob(fdb.TimeslotDuration)
	if err != nil {
		return Wrap("MoveToArchived", f.FlightID, err)
	}
	activeKey := flightKey(ActiveSet, f.FlightID)
	archivedKey := flightKey(ArchivedSet, f.FlightID)

	_, err = cs.Client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		cur := fdb.IndexedFlightBlob{}
		if err := tx.Get(activeKey, &cur); errors.Is(err, datastore.ErrNoSuchEntity) {
			return ErrNotActive
		} else if err != nil {
			return err
		}
		if curFlight, err := cur.ToFlight(); err != nil {
			return err
		} else if len(curFlight.Updates) != nUpdates {
			return ErrChanged
		}

		if _, err := tx.Put(archivedKey, blob); err != nil {
			return err
		}
		return tx.Delete(activeKey)
	}, datastore.MaxAttempts(1))

	if errors.Is(err, datastore.ErrConcurrentTransaction) {
		err = ErrChanged
	}
	return Wrap("MoveToArchived", f.FlightID, err)
}

// }}}

func (cs *CloudStore) DeleteActive(ctx context.Context, id string) error {
	err := cs.Client.Delete(ctx, flightKey(ActiveSet, id))
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		err = nil
	}
	return Wrap("DeleteActive", id, err)
}

// {{{ cs.Query, cs.QueryIDs, cs.Count

func flattenQuery(in *Query) *datastore.Query {
	out := datastore.NewQuery(in.Set.Kind())
	for _, filter := range in.Filters {
		field, op := splitFilter(filter.Field)
		out = out.FilterField(field, op, filter.Value)
	}
	if in.OrderStr != "" {
		out = out.Order(in.OrderStr)
	}
	if in.LimitVal != 0 {
		out = out.Limit(in.LimitVal)
	}
	if in.OffsetVal != 0 {
		out = out.Offset(in.OffsetVal)
	}
	return out
}

func (cs *CloudStore) Query(ctx context.Context, q *Query) ([]*fdb.Flight, error) {
	blobs := []fdb.IndexedFlightBlob{}
	if _, err := cs.Client.GetAll(ctx, flattenQuery(q), &blobs); err != nil {
		return nil, Wrap("Query", "", err)
	}

	flights := []*fdb.Flight{}
	for _, blob := range blobs {
		f, err := blob.ToFlight()
		if err != nil {
			return nil, Wrap("Query", blob.FlightID, err)
		}
		flights = append(flights, f)
	}
	return flights, nil
}

func (cs *CloudStore) QueryIDs(ctx context.Context, q *Query) ([]string, error) {
	keys, err := cs.Client.GetAll(ctx, flattenQuery(q).KeysOnly(), nil)
	if err != nil {
		return nil, Wrap("QueryIDs", "", err)
	}
	ids := []string{}
	for _, k := range keys {
		ids = append(ids, k.Name)
	}
	return ids, nil
}

func (cs *CloudStore) Count(ctx context.Context, s Set) (int, error) {
	n, err := cs.Client.Count(ctx, datastore.NewQuery(s.Kind()).KeysOnly())
	return n, Wrap("Count", s.String(), err)
}

// }}}
