package lifecycle

import (
	"context"
	"errors"
	"fmt"

	fdb "github.com/skypies/flightlog"
	"github.com/skypies/flightlog/db"
)

// {{{ e.EvaluateAndArchive

// EvaluateAndArchive applies the archival policy to an active flight, and if it says so,
// moves the flight to the archived set. Returns true only if this call did the move: a
// flight that isn't active, that the policy keeps, or that someone else archived first,
// all yield false.
func (e *Engine) EvaluateAndArchive(ctx context.Context, id string) (bool, error) {
	f, err := e.findActive(ctx, id)
	if err != nil || f == nil {
		return false, err
	}

	// An earlier move may have stopped halfway
	if archived, err := e.findArchived(ctx, id); err != nil {
		return false, err
	} else if archived != nil {
		return false, e.reconcile(ctx, id)
	}

	var dest *fdb.Airport
	if e.Policy.WantsDestination(f) {
		if dest, err = e.findAirport(ctx, f.DestinationAirport); err != nil {
			return false, fmt.Errorf("looking up %s: %w", f.DestinationAirport, err)
		} else if dest == nil {
			e.Log.Debugf("[%s] destination %s not in the directory", id, f.DestinationAirport)
		}
	}

	now := e.now()
	d := e.Policy.Decide(f, dest, now)
	e.Log.Debugf("[%s] %s", id, d)
	if !d.Archive {
		return false, nil
	}

	n := len(f.Updates)
	f.Finalize(now)

	if err := e.moveToArchived(ctx, f, n); errors.Is(err, db.ErrNotActive) || errors.Is(err, db.ErrChanged) {
		// Someone else archived it, or appended to it (and their evaluation will decide)
		e.Log.Debugf("[%s] not archived by us: %v", id, err)
		return false, nil
	} else if err != nil {
		return false, err
	}

	e.Log.Infof("[%s] archived (%s), %.2fKM over %d updates", id, d.Reason, f.DistanceKM(), n)

	if e.Sink != nil {
		if err := e.Sink.Archived(ctx, f); err != nil {
			e.Log.Errorf("[%s] archive sink: %v", id, err)
		}
	}
	return true, nil
}

// }}}
// {{{ e.Sweep

type SweepResult struct {
	Examined int
	Archived []string
}

func (r SweepResult) String() string {
	return fmt.Sprintf("examined %d, archived %d %v", r.Examined, len(r.Archived), r.Archived)
}

// Sweep evaluates every active flight that hasn't been heard from within the stale
// threshold. It only runs when called; nothing schedules it. A failure on one flight
// doesn't stop the others; all the failures come back joined.
func (e *Engine) Sweep(ctx context.Context) (*SweepResult, error) {
	cutoff := e.now().Add(-e.Policy.StaleAfter)
	ids, err := e.queryIDs(ctx, db.QueryForStale(cutoff))
	if err != nil {
		return nil, err
	}

	res := SweepResult{Archived: []string{}}
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res.Examined++
		if archived, err := e.EvaluateAndArchive(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		} else if archived {
			res.Archived = append(res.Archived, id)
		}
	}

	e.Log.Infof("sweep: %s", res)
	return &res, errors.Join(errs...)
}

// }}}
