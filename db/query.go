package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/skypies/util/date"

	fdb "github.com/skypies/flightlog"
)

// Query is a thin skin over the datastore query API. It provides for a textual dump of the
// query, and lets the in-memory store answer the same queries as Cloud Datastore. Filter
// fields name the index fields of fdb.IndexedFlightBlob.
type Query struct {
	Set      Set
	Filters  []Filter
	OrderStr  string
	LimitVal  int
	OffsetVal int
}

type Filter struct {
	Field string // e.g. "LastSeen <"
	Value interface{}
}

func (q *Query) String() string {
	str := fmt.Sprintf("NewQuery(%q)\n", q.Set.Kind())
	for _, f := range q.Filters {
		str += fmt.Sprintf("  .Filter(%q, %v)\n", f.Field, f.Value)
	}
	if q.OrderStr != "" {
		str += fmt.Sprintf("  .Order(%q)\n", q.OrderStr)
	}
	if q.LimitVal != 0 {
		str += fmt.Sprintf("  .Limit(%d)\n", q.LimitVal)
	}
	if q.OffsetVal != 0 {
		str += fmt.Sprintf("  .Offset(%d)\n", q.OffsetVal)
	}
	return str
}

func NewQuery(s Set) *Query { return &Query{Set: s} }

func (q *Query) Filter(field string, val interface{}) *Query {
	q.Filters = append(q.Filters, Filter{field, val})
	return q
}

func (q *Query) Order(o string) *Query {
	q.OrderStr = o
	return q
}

func (q *Query) Limit(l int) *Query {
	q.LimitVal = l
	return q
}

func (q *Query) Offset(o int) *Query {
	q.OffsetVal = o
	return q
}

// {{{ canned filters

func (q *Query) ByLastSeenBefore(t time.Time) *Query { return q.Filter("LastSeen <", t) }
func (q *Query) ByDestination(code string) *Query   { return q.Filter("Destination =", code) }
func (q *Query) ByCallsign(callsign string) *Query {
	return q.Filter("Callsign =", fdb.NormalizeCallsign(callsign))
}

func (q *Query) ByTime(t time.Time) *Query {
	// Round the time off to the nearest timeslot; and then assert flights possess it
	slots := date.Timeslots(t, t, fdb.TimeslotDuration)
	return q.Filter("Timeslots =", slots[0])
}

// ByTimeRange matches flights that have at least one timeslot within [s,e].
func (q *Query) ByTimeRange(s, e time.Time) *Query {
	slots := date.Timeslots(s, e, fdb.TimeslotDuration)
	return q.
		Filter("Timeslots >=", slots[0]).
		Filter("Timeslots <=", slots[len(slots)-1])
}

// QueryForStale finds active flights that have not been heard from since the cutoff.
func QueryForStale(cutoff time.Time) *Query {
	return NewQuery(ActiveSet).ByLastSeenBefore(cutoff)
}

// }}}

// {{{ q.Matches

// Matches evaluates the filters against a blob's index fields, the way datastore would: a
// filter on a list property matches if any element matches. Unknown fields never match.
func (q *Query) Matches(b *fdb.IndexedFlightBlob) bool {
	for _, f := range q.Filters {
		field, op := splitFilter(f.Field)
		switch field {
		case "FlightID":
			if !compareStrings(b.FlightID, op, f.Value) {
				return false
			}
		case "Callsign":
			if !compareStrings(b.Callsign, op, f.Value) {
				return false
			}
		case "Status":
			if !compareStrings(b.Status, op, f.Value) {
				return false
			}
		case "Destination":
			if !compareStrings(b.Destination, op, f.Value) {
				return false
			}
		case "LastSeen":
			if !compareTimes(b.LastSeen, op, f.Value) {
				return false
			}
		case "CompletedAt":
			if !compareTimes(b.CompletedAt, op, f.Value) {
				return false
			}
		case "Timeslots":
			matched := false
			for _, slot := range b.Timeslots {
				if compareTimes(slot, op, f.Value) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// }}}

func splitFilter(s string) (field, op string) {
	parts := strings.Fields(s)
	if len(parts) == 1 {
		return parts[0], "="
	} else if len(parts) == 0 {
		return "", "="
	}
	return parts[0], parts[1]
}

func compareStrings(have, op string, want interface{}) bool {
	w, ok := want.(string)
	if !ok {
		return false
	}
	return cmpOp(strings.Compare(have, w), op)
}

func compareTimes(have time.Time, op string, want interface{}) bool {
	w, ok := want.(time.Time)
	if !ok {
		return false
	}
	return cmpOp(have.Compare(w), op)
}

func cmpOp(c int, op string) bool {
	switch op {
	case "=":
		return c == 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}
