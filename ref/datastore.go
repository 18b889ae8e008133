package ref

import (
	"context"
	"errors"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/option"

	fdb "github.com/skypies/flightlog"
	"github.com/skypies/flightlog/db"
)

const kAirportKind = "airports"

// DatastoreAirports reads airports out of Cloud Datastore, one entity per code (the key
// name). Wrap it in a CachedAirports; every lookup is a round trip.
type DatastoreAirports struct {
	Client *datastore.Client
}

func NewDatastoreAirports(ctx context.Context, project string, opts ...option.ClientOption) (*DatastoreAirports, error) {
	client, err := datastore.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, db.Wrap("NewClient", project, err)
	}
	return &DatastoreAirports{Client: client}, nil
}

func (da *DatastoreAirports) FindByCode(ctx context.Context, code string) (*fdb.Airport, error) {
	code = normalize(code)
	a := fdb.Airport{}
	if err := da.Client.Get(ctx, datastore.NameKey(kAirportKind, code, nil), &a); errors.Is(err, datastore.ErrNoSuchEntity) {
		return nil, nil
	} else if err != nil {
		return nil, db.Wrap("FindAirport", code, err)
	}
	return &a, nil
}

// Seed writes the given airports, overwriting any with the same code.
func (da *DatastoreAirports) Seed(ctx context.Context, airports []fdb.Airport) error {
	keys := []*datastore.Key{}
	for i := range airports {
		airports[i].Code = normalize(airports[i].Code)
		keys = append(keys, datastore.NameKey(kAirportKind, airports[i].Code, nil))
	}
	_, err := da.Client.PutMulti(ctx, keys, airports)
	return db.Wrap("SeedAirports", "", err)
}

func (da *DatastoreAirports) Close() error { return da.Client.Close() }
