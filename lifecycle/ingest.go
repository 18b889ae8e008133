package lifecycle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/skypies/adsb"

	fdb "github.com/skypies/flightlog"
	"github.com/skypies/flightlog/db"
)

const (
	MsgNewFlight     = "New flight tracked"
	MsgFlightUpdated = "Flight data updated"
)

type IngestResult struct {
	FlightID  string `json:"flight_id"`
	Timestamp string `json:"timestamp"`
	Created   bool   `json:"created"`
	Archived  bool   `json:"archived"`
	Message   string `json:"message"`
}

func (r IngestResult) String() string {
	str := fmt.Sprintf("[%s] %s @ %s", r.FlightID, r.Message, r.Timestamp)
	if r.Archived {
		str += " (archived)"
	}
	return str
}

// decodeObject decodes a JSON object, keeping numbers as json.Number so that nothing is
// lost before validation looks at them.
func decodeObject(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return &fdb.ValidationError{Problems: []string{"Invalid JSON payload: " + err.Error()}}
	}
	return nil
}

// Ingest takes one raw JSON position report. Validation problems come back, all together,
// as a *fdb.ValidationError, and nothing is stored.
func (e *Engine) Ingest(ctx context.Context, raw []byte) (*IngestResult, error) {
	payload := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &fdb.ValidationError{Problems: []string{"No data provided"}}
	} else if err := decodeObject(raw, &payload); err != nil {
		return nil, err
	}

	r, err := fdb.ParseReport(payload)
	if err != nil {
		return nil, err
	}
	return e.IngestReport(ctx, r)
}

// {{{ e.IngestReport

// IngestReport stamps the report with its arrival time, adds it to the flight (creating the
// flight if need be), and then sees whether the flight should now be archived.
//
// If the update was stored but the archival check failed, both the result and the error are
// returned; the next report for the flight will check again.
func (e *Engine) IngestReport(ctx context.Context, r fdb.Report) (*IngestResult, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	id := r.FlightID

	r.Update.Timestamp = fdb.FormatTimestamp(e.now())
	if r.Update.ReceiverID == "" {
		r.Update.ReceiverID = fdb.UnknownReceiver
	}

	if archived, err := e.findArchived(ctx, id); err != nil {
		return nil, err
	} else if archived != nil {
		if err := e.reconcile(ctx, id); err != nil {
			e.Log.Errorf("[%s] reconcile: %v", id, err)
		}
		return nil, fmt.Errorf("%s: %w", id, ErrFlightArchived)
	}

	res := IngestResult{FlightID: id, Timestamp: r.Update.Timestamp, Message: MsgFlightUpdated}

	active, err := e.findActive(ctx, id)
	if err != nil {
		return nil, err
	}

	if active == nil {
		f := fdb.NewFlight(r)
		e.overlayAirframe(ctx, f)
		err := e.createActive(ctx, f)
		if errors.Is(err, db.ErrDuplicate) {
			// Someone else created it first; we're just another update
			e.Log.Debugf("[%s] lost the race to create; appending", id)
		} else if errors.Is(err, db.ErrArchived) {
			// Archived after our lookup; don't resurrect it as a new active flight
			return nil, fmt.Errorf("%s: %w", id, ErrFlightArchived)
		} else if err != nil {
			return nil, err
		} else {
			res.Created, res.Message = true, MsgNewFlight
			e.Log.Infof("[%s] new flight %s", id, f)
		}
	}

	if !res.Created {
		if _, err := e.appendUpdate(ctx, id, r.Update, r.Overrides); errors.Is(err, db.ErrNotActive) {
			// Archived between our lookup and the append
			return nil, fmt.Errorf("%s: %w", id, ErrFlightArchived)
		} else if err != nil {
			return nil, err
		}
		e.Log.Debugf("[%s] appended %s", id, r.Update)
	}

	archived, err := e.EvaluateAndArchive(ctx, id)
	res.Archived = archived
	if err != nil {
		return &res, fmt.Errorf("%s: stored, but archival check failed: %w", id, err)
	}
	return &res, nil
}

// }}}

// overlayAirframe fills in the aircraft type from the registry, for new flights that didn't
// say. Registry trouble is not worth failing an ingest over.
func (e *Engine) overlayAirframe(ctx context.Context, f *fdb.Flight) {
	if e.Airframes == nil || f.AircraftType != fdb.Unknown || f.TailNumber == fdb.UnknownTail {
		return
	}
	af, err := e.Airframes.FindByTail(ctx, f.TailNumber)
	if err != nil {
		e.Log.Warnf("[%s] airframe lookup %s: %v", f.FlightID, f.TailNumber, err)
		return
	} else if af != nil {
		f.OverlayAirframe(*af)
	}
}

// IngestADSB ingests a batch of decoded ADS-B messages, oldest first. It stops at the first
// failure that isn't a rejected report. Transponders we have airframe data for get their
// tail number, and the carrier code for bare flight numbers, filled in.
func (e *Engine) IngestADSB(ctx context.Context, msgs []*adsb.CompositeMsg) ([]*IngestResult, error) {
	var lookup func(string) *fdb.Airframe
	if e.Airframes != nil {
		lookup = func(icao24 string) *fdb.Airframe {
			af, err := e.Airframes.FindByIcao24(ctx, icao24)
			if err != nil {
				e.Log.Warnf("[%s] airframe lookup: %v", icao24, err)
			}
			return af
		}
	}

	results := []*IngestResult{}
	for _, r := range fdb.ReportsFromADSB(msgs, lookup) {
		res, err := e.IngestReport(ctx, r)
		var verr *fdb.ValidationError
		if errors.As(err, &verr) || errors.Is(err, ErrFlightArchived) {
			e.Log.Debugf("[%s] adsb report dropped: %v", r.FlightID, err)
			continue
		} else if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
