package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mohae/deepcopy"

	fdb "github.com/skypies/flightlog"
)

// MemStore is a TrackStore that lives in memory, behind one lock. Records are deep-copied
// on the way in and out, so callers never share state with the store.
type MemStore struct {
	sync.Mutex
	active   map[string]*fdb.Flight
	archived map[string]*fdb.Flight

	// If set, MoveToArchived calls this after writing the archived copy and before removing
	// the active one; an error aborts the move at that point, leaving the flight in both
	// sets, as a crash would.
	BetweenPhases func(id string) error
}

func NewMemStore() *MemStore {
	return &MemStore{
		active:   map[string]*fdb.Flight{},
		archived: map[string]*fdb.Flight{},
	}
}

func (ms *MemStore) String() string {
	ms.Lock()
	defer ms.Unlock()
	return fmt.Sprintf("MemStore{active:%d, archived:%d}", len(ms.active), len(ms.archived))
}

func copyFlight(f *fdb.Flight) *fdb.Flight {
	if f == nil {
		return nil
	}
	return deepcopy.Copy(f).(*fdb.Flight)
}

func (ms *MemStore) set(s Set) map[string]*fdb.Flight {
	if s == ArchivedSet {
		return ms.archived
	}
	return ms.active
}

func (ms *MemStore) find(ctx context.Context, s Set, id string) (*fdb.Flight, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap("find"+s.String(), id, err)
	}
	ms.Lock()
	defer ms.Unlock()
	return copyFlight(ms.set(s)[id]), nil
}

func (ms *MemStore) FindActive(ctx context.Context, id string) (*fdb.Flight, error) {
	return ms.find(ctx, ActiveSet, id)
}

func (ms *MemStore) FindArchived(ctx context.Context, id string) (*fdb.Flight, error) {
	return ms.find(ctx, ArchivedSet, id)
}

func (ms *MemStore) CreateActive(ctx context.Context, f *fdb.Flight) error {
	if err := ctx.Err(); err != nil {
		return Wrap("CreateActive", f.FlightID, err)
	}
	ms.Lock()
	defer ms.Unlock()
	if _, exists := ms.active[f.FlightID]; exists {
		return Wrap("CreateActive", f.FlightID, ErrDuplicate)
	} else if _, archived := ms.archived[f.FlightID]; archived {
		return Wrap("CreateActive", f.FlightID, ErrArchived)
	}
	ms.active[f.FlightID] = copyFlight(f)
	return nil
}

func (ms *MemStore) AppendUpdate(ctx context.Context, id string, u fdb.PositionUpdate, o fdb.Overrides) (*fdb.Flight, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap("AppendUpdate", id, err)
	}
	ms.Lock()
	defer ms.Unlock()
	f, exists := ms.active[id]
	if !exists {
		return nil, Wrap("AppendUpdate", id, ErrNotActive)
	}
	f.Append(u, o)
	return copyFlight(f), nil
}

func (ms *MemStore) MoveToArchived(ctx context.Context, f *fdb.Flight, nUpdates int) error {
	id := f.FlightID
	if err := ctx.Err(); err != nil {
		return Wrap("MoveToArchived", id, err)
	}
	ms.Lock()
	defer ms.Unlock()

	cur, exists := ms.active[id]
	if !exists {
		return Wrap("MoveToArchived", id, ErrNotActive)
	} else if len(cur.Updates) != nUpdates {
		return Wrap("MoveToArchived", id, ErrChanged)
	}

	ms.archived[id] = copyFlight(f)
	if ms.BetweenPhases != nil {
		if err := ms.BetweenPhases(id); err != nil {
			return Wrap("MoveToArchived", id, err)
		}
	}
	delete(ms.active, id)
	return nil
}

func (ms *MemStore) DeleteActive(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return Wrap("DeleteActive", id, err)
	}
	ms.Lock()
	defer ms.Unlock()
	delete(ms.active, id)
	return nil
}

// {{{ ms.Query

func (ms *MemStore) Query(ctx context.Context, q *Query) ([]*fdb.Flight, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap("Query", "", err)
	}
	ms.Lock()
	defer ms.Unlock()

	type hit struct {
		f    *fdb.Flight
		blob *fdb.IndexedFlightBlob
	}
	hits := []hit{}
	for _, f := range ms.set(q.Set) {
		blob, err := f.ToBlob(fdb.TimeslotDuration)
		if err != nil {
			return nil, Wrap("Query", f.FlightID, err)
		}
		if q.Matches(blob) {
			hits = append(hits, hit{f, blob})
		}
	}

	desc := strings.HasPrefix(q.OrderStr, "-")
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if desc {
			a, b = b, a
		}
		switch strings.TrimPrefix(q.OrderStr, "-") {
		case "LastSeen":
			if !a.blob.LastSeen.Equal(b.blob.LastSeen) {
				return a.blob.LastSeen.Before(b.blob.LastSeen)
			}
		case "CompletedAt":
			if !a.blob.CompletedAt.Equal(b.blob.CompletedAt) {
				return a.blob.CompletedAt.Before(b.blob.CompletedAt)
			}
		}
		return a.f.FlightID < b.f.FlightID
	})

	if q.OffsetVal > 0 {
		hits = hits[min(q.OffsetVal, len(hits)):]
	}
	if q.LimitVal > 0 && len(hits) > q.LimitVal {
		hits = hits[:q.LimitVal]
	}

	flights := []*fdb.Flight{}
	for _, h := range hits {
		flights = append(flights, copyFlight(h.f))
	}
	return flights, nil
}

// }}}

func (ms *MemStore) QueryIDs(ctx context.Context, q *Query) ([]string, error) {
	flights, err := ms.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	ids := []string{}
	for _, f := range flights {
		ids = append(ids, f.FlightID)
	}
	return ids, nil
}

func (ms *MemStore) Count(ctx context.Context, s Set) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, Wrap("Count", "", err)
	}
	ms.Lock()
	defer ms.Unlock()
	return len(ms.set(s)), nil
}
