package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/skypies/adsb"

	fdb "github.com/skypies/flightlog"
	"github.com/skypies/flightlog/bqsink"
	"github.com/skypies/flightlog/db"
	"github.com/skypies/flightlog/lifecycle"
	"github.com/skypies/flightlog/ref"
)

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", b)
	return nil
}

func openInput(args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(args[0])
}

func needArgs(args []string, n int, what string) error {
	if len(args) != n {
		return fmt.Errorf("want %s", what)
	}
	return nil
}

// {{{ ingest, replay

// ingestLines feeds one report per non-blank line to the engine. Rejected reports are
// printed and counted; anything else stops the run.
func (a *app) ingestLines(r io.Reader, quiet bool) (nOK, nBad int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		res, err := a.engine.Ingest(ctx, raw)
		var verr *fdb.ValidationError
		if errors.As(err, &verr) || errors.Is(err, lifecycle.ErrFlightArchived) {
			nBad++
			fmt.Printf("line %d: %v\n", line, err)
			continue
		} else if err != nil {
			return nOK, nBad, fmt.Errorf("line %d: %w", line, err)
		}
		nOK++
		if !quiet {
			fmt.Printf("%s\n", res)
		}
	}
	return nOK, nBad, scanner.Err()
}

func (a *app) replay(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	nOK, nBad, err := a.ingestLines(f, true)
	a.log.Infof("replayed %s: %d ok, %d rejected", path, nOK, nBad)
	return err
}

func cmdIngest(a *app, args []string) error {
	in, err := openInput(args)
	if err != nil {
		return err
	}
	defer in.Close()
	nOK, nBad, err := a.ingestLines(in, false)
	fmt.Printf("ingested %d, rejected %d\n", nOK, nBad)
	return err
}

// }}}
// {{{ batch, adsb

func cmdBatch(a *app, args []string) error {
	if err := needArgs(args, 1, "a batch file"); err != nil {
		return err
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	br, err := a.engine.BatchIngest(ctx, raw)
	if err != nil {
		return err
	}
	if fVerbose {
		return printJSON(br)
	}
	for _, item := range br.Items {
		if !item.OK() {
			fmt.Printf("[%3d] %s: %v\n", item.Index, item.FlightID, item.Errors)
		}
	}
	fmt.Printf("%s\n", br)
	return nil
}

func cmdADSB(a *app, args []string) error {
	if err := needArgs(args, 1, "a file of ADS-B messages"); err != nil {
		return err
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	msgs := []*adsb.CompositeMsg{}
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	results, err := a.engine.IngestADSB(ctx, msgs)
	for _, res := range results {
		fmt.Printf("%s\n", res)
	}
	fmt.Printf("%d messages, %d reports ingested\n", len(msgs), len(results))
	return err
}

// }}}
// {{{ archive, sweep

func cmdArchive(a *app, args []string) error {
	if err := needArgs(args, 1, "a flight id"); err != nil {
		return err
	}
	archived, err := a.engine.EvaluateAndArchive(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s: archived=%v\n", args[0], archived)
	return nil
}

func cmdSweep(a *app, args []string) error {
	res, err := a.engine.Sweep(ctx)
	if res != nil {
		fmt.Printf("sweep: %s\n", res)
	}
	return err
}

// }}}
// {{{ show, nearby, stats

func cmdShow(a *app, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fAt := fs.String("at", "", "report the position nearest this time (RFC3339)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needArgs(fs.Args(), 1, "a flight id"); err != nil {
		return err
	}

	var at *time.Time
	if *fAt != "" {
		t, err := fdb.ParseTimestamp(*fAt)
		if err != nil {
			return err
		}
		at = &t
	}

	lr, err := a.engine.Lookup(ctx, fs.Arg(0), at)
	if err != nil {
		return err
	}
	if fVerbose {
		return printJSON(lr.Flight)
	}
	fmt.Printf("%s\n", lr)
	return nil
}

// parseList reads the list flags; which set to list comes back as "active", "archived" or
// "all".
func parseList(args []string) (string, lifecycle.ListFilter, error) {
	lf := lifecycle.ListFilter{}
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fSet := fs.String("set", "active", "which flights: active, archived, or all")
	fs.StringVar(&lf.Destination, "dest", "", "only flights to this airport")
	fs.StringVar(&lf.Callsign, "callsign", "", "only flights with this callsign")
	fAt := fs.String("at", "", "only flights airborne at this time (RFC3339)")
	fFrom := fs.String("from", "", "only flights airborne at or after this time (RFC3339)")
	fTo := fs.String("to", "", "only flights airborne at or before this time (RFC3339)")
	fs.IntVar(&lf.Limit, "limit", lifecycle.DefaultListLimit, "at most this many flights per set")
	fs.IntVar(&lf.Offset, "offset", 0, "skip this many flights per set")
	if err := fs.Parse(args); err != nil {
		return "", lf, err
	}

	switch *fSet {
	case "active", "archived", "all":
	default:
		return "", lf, fmt.Errorf("-set %q: want active, archived or all", *fSet)
	}

	for _, tf := range []struct {
		str string
		t   *time.Time
	}{{*fAt, &lf.At}, {*fFrom, &lf.From}, {*fTo, &lf.To}} {
		if tf.str == "" {
			continue
		}
		t, err := fdb.ParseTimestamp(tf.str)
		if err != nil {
			return "", lf, err
		}
		*tf.t = t
	}
	return *fSet, lf, nil
}

func cmdList(a *app, args []string) error {
	set, lf, err := parseList(args)
	if err != nil {
		return err
	}

	var flights []*fdb.Flight
	switch set {
	case "active":
		flights, err = a.engine.List(ctx, db.ActiveSet, lf)
	case "archived":
		flights, err = a.engine.List(ctx, db.ArchivedSet, lf)
	default:
		flights, err = a.engine.ListAll(ctx, lf)
	}
	if err != nil {
		return err
	}

	if fVerbose {
		return printJSON(flights)
	}
	for _, f := range flights {
		fmt.Printf("%s\n", f)
	}
	fmt.Printf("%d flights\n", len(flights))
	return nil
}

func cmdNearby(a *app, args []string) error {
	if err := needArgs(args, 3, "lat lon km"); err != nil {
		return err
	}
	vals := [3]float64{}
	for i, s := range args {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("%q: not a number", s)
		}
		vals[i] = v
	}

	nearby, err := a.engine.Nearby(ctx, vals[0], vals[1], vals[2])
	if err != nil {
		return err
	}
	for _, nf := range nearby {
		fmt.Printf("%s\n", nf)
	}
	fmt.Printf("%d flights within %.1fKM\n", len(nearby), vals[2])
	return nil
}

func cmdStats(a *app, args []string) error {
	stats, err := a.engine.Statistics(ctx)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

// }}}
// {{{ airports, snapshot, seed

func cmdAirports(a *app, args []string) error {
	fmt.Print(ref.NewStaticAirports(a.airportTable()))
	if fVerbose {
		fmt.Print(a.airframes)
	}
	return nil
}

func cmdSnapshot(a *app, args []string) error {
	if err := needArgs(args, 1, "a snapshot path"); err != nil {
		return err
	}
	snap := ref.Snapshot{
		Created:   time.Now().UTC(),
		Airports:  a.airportTable(),
		Airframes: a.airframes.List(),
	}
	if err := ref.SaveSnapshot(args[0], snap); err != nil {
		return err
	}
	fmt.Printf("wrote %s to %s\n", snap, args[0])
	return nil
}

func cmdSeed(a *app, args []string) error {
	if a.cfg.Store.Project == "" {
		return errors.New("seed needs store.project")
	}
	da, err := ref.NewDatastoreAirports(ctx, a.cfg.Store.Project, a.opts...)
	if err != nil {
		return err
	}
	defer da.Close()

	airports := a.airportTable()
	if err := da.Seed(ctx, airports); err != nil {
		return err
	}
	fmt.Printf("seeded %d airports into %s\n", len(airports), a.cfg.Store.Project)
	return nil
}

// }}}
// {{{ export

func cmdExport(a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fDay := fs.String("day", "", "UTC day to export, YYYY-MM-DD (default yesterday)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needArgs(fs.Args(), 1, "a gs://bucket/object path"); err != nil {
		return err
	}
	if a.cfg.Archive.Dataset == "" {
		return errors.New("export needs archive.dataset")
	}

	day := time.Now().UTC().AddDate(0, 0, -1)
	if *fDay != "" {
		t, err := time.Parse("2006-01-02", *fDay)
		if err != nil {
			return err
		}
		day = t
	}

	job, n, err := bqsink.Publish(ctx, a.store, day, fs.Arg(0), a.cfg.Store.Project,
		a.cfg.Archive.Dataset, a.cfg.Archive.Table, a.opts...)
	if err != nil {
		return err
	}
	fmt.Printf("%d rows for %s loaded from %s (job %s)\n", n, day.Format("2006-01-02"), fs.Arg(0), job.ID())
	return nil
}

// }}}
