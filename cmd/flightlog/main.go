// The flightlog command drives the lifecycle engine from the command line.
//
//	flightlog [-config file.yaml] [-replay reports.jsonl] <command> [args]
//
// Commands: ingest, batch, adsb, archive, sweep, show, nearby, stats, airports, snapshot,
// seed, export.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/skypies/flightlog/config"
	"github.com/skypies/flightlog/log"
)

var (
	ctx         = context.Background()
	fConfigFile string
	fReplayFile string
	fLogLevel   string
	fVerbose    bool
)

func init() {
	flag.StringVar(&fConfigFile, "config", "", "YAML config file (defaults apply if empty)")
	flag.StringVar(&fReplayFile, "replay", "", "file of JSON reports to ingest before running the command")
	flag.StringVar(&fLogLevel, "log", "", "override the configured log level")
	flag.BoolVar(&fVerbose, "v", false, "print whole flight records")
	flag.Usage = usage
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: flightlog [flags] <command> [args]

  ingest [file]           ingest JSON reports, one per line (stdin if no file)
  batch file              ingest a {"updates":[...]} batch payload
  adsb file               ingest a JSON array of ADS-B composite messages
  archive id              evaluate one flight against the archival policy
  sweep                   evaluate every stale active flight
  show [-at ts] id        look a flight up, optionally its position at a time
  list [flags]            list flights; -set, -dest, -callsign, -at, -from, -to, -limit, -offset
  nearby lat lon km       active flights within km of a point
  stats                   counts and averages
  airports                list the airport directory
  snapshot path           write the reference data to a msgpack snapshot
  seed                    copy the airport table into datastore
  export [-day d] gs://b/o  write a day's archived flights to GCS, load into BigQuery

flags:
`)
	flag.PrintDefaults()
}

type command func(app *app, args []string) error

var commands = map[string]command{
	"ingest":   cmdIngest,
	"batch":    cmdBatch,
	"adsb":     cmdADSB,
	"archive":  cmdArchive,
	"sweep":    cmdSweep,
	"show":     cmdShow,
	"list":     cmdList,
	"nearby":   cmdNearby,
	"stats":    cmdStats,
	"airports": cmdAirports,
	"snapshot": cmdSnapshot,
	"seed":     cmdSeed,
	"export":   cmdExport,
}

func loadConfig() (*config.Config, error) {
	if fConfigFile == "" {
		return config.Default(), nil
	}
	return config.Load(fConfigFile)
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	cmd, exists := commands[flag.Arg(0)]
	if !exists {
		fmt.Fprintf(os.Stderr, "flightlog: unknown command %q\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "flightlog: config: %v\n", err)
		os.Exit(1)
	}
	if fLogLevel != "" {
		cfg.Log.Level = fLogLevel
	}
	lg := log.New(cfg.Log.Level, cfg.Log.Dir)

	tStart := time.Now()
	a, err := newApp(ctx, cfg, lg)
	if err != nil {
		lg.Errorf("setup: %v", err)
		fmt.Fprintf(os.Stderr, "flightlog: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if fReplayFile != "" {
		if err := a.replay(fReplayFile); err != nil {
			lg.Errorf("replay %s: %v", fReplayFile, err)
			fmt.Fprintf(os.Stderr, "flightlog: replay: %v\n", err)
			a.Close()
			os.Exit(1)
		}
	}

	if err := cmd(a, flag.Args()[1:]); err != nil {
		lg.Errorf("%s: %v", flag.Arg(0), err)
		fmt.Fprintf(os.Stderr, "flightlog %s: %v\n", flag.Arg(0), err)
		a.Close()
		os.Exit(1)
	}
	lg.Debugf("%s done in %s", flag.Arg(0), time.Since(tStart))
}

// {{{ -------------------------={ E N D }=----------------------------------

// Local variables:
// folded-file: t
// end:

// }}}
