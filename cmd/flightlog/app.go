package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/api/option"

	fdb "github.com/skypies/flightlog"
	"github.com/skypies/flightlog/bqsink"
	"github.com/skypies/flightlog/config"
	"github.com/skypies/flightlog/db"
	"github.com/skypies/flightlog/lifecycle"
	"github.com/skypies/flightlog/log"
	"github.com/skypies/flightlog/ref"
)

// Setting reference.airports to this reads them from datastore, through an LRU.
const kAirportsFromDatastore = "datastore"

type app struct {
	cfg  *config.Config
	log  *log.Logger
	opts []option.ClientOption

	store     db.TrackStore
	airports  ref.AirportDirectory
	airframes *ref.AirframeCache
	static    []fdb.Airport // the airport table, if we have it in memory
	engine    *lifecycle.Engine

	closers []func() error
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warnf("close: %v", err)
		}
	}
	a.closers = nil
}

func newApp(ctx context.Context, cfg *config.Config, lg *log.Logger) (*app, error) {
	a := &app{cfg: cfg, log: lg, opts: cfg.ClientOptions()}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openReference(ctx); err != nil {
		a.Close()
		return nil, err
	}

	e := lifecycle.New(a.store, a.airports)
	e.Airframes = a.airframes
	e.Policy = cfg.ArchivalPolicy()
	e.StoreTimeout = cfg.Store.Timeout
	e.BatchConcurrency = cfg.Ingest.BatchConcurrency
	e.Log = lg

	if cfg.Archive.Dataset != "" {
		sink, err := bqsink.NewSink(ctx, cfg.Store.Project, cfg.Archive.Dataset, cfg.Archive.Table, a.opts...)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("bigquery sink: %w", err)
		}
		a.closers = append(a.closers, sink.Close)
		if err := sink.EnsureTable(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("bigquery table: %w", err)
		}
		e.Sink = sink
	}

	a.engine = e
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Store.Backend {
	case config.BackendDatastore:
		cs, err := db.NewCloudStore(ctx, a.cfg.Store.Project, a.opts...)
		if err != nil {
			return fmt.Errorf("datastore: %w", err)
		}
		a.closers = append(a.closers, cs.Close)
		a.store = cs
	default:
		a.store = db.NewMemStore()
	}
	a.log.Infof("store: %s", a.cfg.Store.Backend)
	return nil
}

// openReference prefers a snapshot, if one is configured and exists; else it loads the
// airports from their configured source, and uses the built-in airframes.
func (a *app) openReference(ctx context.Context) error {
	if path := a.cfg.Reference.Snapshot; path != "" {
		snap, err := ref.LoadSnapshot(path)
		if err == nil {
			a.log.Infof("reference: %s", snap)
			a.static = snap.Airports
			a.airports = ref.NewStaticAirports(snap.Airports)
			a.airframes = ref.NewAirframeCache(snap.Airframes)
			return nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("snapshot %s: %w", path, err)
		}
		a.log.Infof("reference: no snapshot at %s, loading from %s", path, a.cfg.Reference.Airports)
	}

	a.airframes = ref.NewAirframeCache(ref.DefaultAirframes())

	if a.cfg.Reference.Airports == kAirportsFromDatastore {
		da, err := ref.NewDatastoreAirports(ctx, a.cfg.Store.Project, a.opts...)
		if err != nil {
			return fmt.Errorf("airports: %w", err)
		}
		a.closers = append(a.closers, da.Close)
		cached, err := ref.NewCachedAirports(da, a.cfg.Reference.CacheSize)
		if err != nil {
			return err
		}
		a.airports = cached
		return nil
	}

	sa, err := ref.OpenAirports(ctx, a.cfg.Reference.Airports, a.opts...)
	if err != nil {
		return fmt.Errorf("airports %s: %w", a.cfg.Reference.Airports, err)
	}
	a.static = sa.List()
	a.airports = sa
	a.log.Infof("reference: %d airports from %s", len(a.static), a.cfg.Reference.Airports)
	return nil
}

// airportTable is the full airport list, from memory if we have it, else the built-in set.
func (a *app) airportTable() []fdb.Airport {
	if a.static != nil {
		return a.static
	}
	return ref.DefaultAirports()
}
