package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	fdb "github.com/skypies/flightlog"
)

// BatchItem is the outcome for one entry of a batch, in payload order.
type BatchItem struct {
	Index    int           `json:"index"`
	FlightID string        `json:"flight_id,omitempty"`
	Result   *IngestResult `json:"result,omitempty"`
	Errors   []string      `json:"errors,omitempty"`
}

func (bi BatchItem) OK() bool { return len(bi.Errors) == 0 }

type BatchResult struct {
	Successful int         `json:"successful"`
	Failed     int         `json:"failed"`
	Items      []BatchItem `json:"items"`
}

func (br BatchResult) String() string {
	return fmt.Sprintf("batch: %d ok, %d failed", br.Successful, br.Failed)
}

type batchPayload struct {
	Updates []map[string]any `json:"updates"`
}

func errorList(err error) []string {
	var verr *fdb.ValidationError
	if errors.As(err, &verr) {
		return verr.Problems
	}
	return []string{err.Error()}
}

// {{{ e.BatchIngest

// BatchIngest takes {"updates":[...]}, and ingests each entry on its own; one bad entry
// doesn't spoil the rest. Entries for the same flight are applied in payload order; distinct
// flights proceed concurrently, up to BatchConcurrency at a time. The error return is only
// for a payload that can't be read at all (or a cancelled context).
func (e *Engine) BatchIngest(ctx context.Context, raw []byte) (*BatchResult, error) {
	payload := batchPayload{}
	if err := decodeObject(raw, &payload); err != nil {
		return nil, err
	} else if payload.Updates == nil {
		return nil, &fdb.ValidationError{Problems: []string{"Expected 'updates' array"}}
	} else if len(payload.Updates) == 0 {
		return nil, &fdb.ValidationError{Problems: []string{"No updates provided"}}
	}

	items := make([]BatchItem, len(payload.Updates))
	reports := make([]fdb.Report, len(payload.Updates))

	// Validate everything up front, and group the good ones by flight
	order := []string{}
	groups := map[string][]int{}
	for i, p := range payload.Updates {
		items[i].Index = i
		r, err := fdb.ParseReport(p)
		if err != nil {
			items[i].FlightID = r.FlightID
			items[i].Errors = errorList(err)
			continue
		}
		reports[i] = r
		items[i].FlightID = r.FlightID
		if _, exists := groups[r.FlightID]; !exists {
			order = append(order, r.FlightID)
		}
		groups[r.FlightID] = append(groups[r.FlightID], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	if e.BatchConcurrency > 0 {
		g.SetLimit(e.BatchConcurrency)
	}
	for _, id := range order {
		idxs := groups[id]
		g.Go(func() error {
			// Each index belongs to exactly one group, so items[i] has a single writer
			for _, i := range idxs {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := e.IngestReport(gctx, reports[i])
				items[i].Result = res
				if err != nil {
					items[i].Errors = errorList(err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	br := BatchResult{Items: items}
	for _, item := range items {
		if item.OK() {
			br.Successful++
		} else {
			br.Failed++
		}
	}
	e.Log.Infof("%s", br)
	return &br, nil
}

// }}}
