package db

import "cloud.google.com/go/datastore"

// Set is one of the two places a flight record can be.
type Set int

const (
	ActiveSet Set = iota
	ArchivedSet
)

func (s Set) String() string {
	if s == ArchivedSet {
		return "archived"
	}
	return "active"
}

// Kind is the datastore kind for the set. The names match the collections the flight log
// has always used.
func (s Set) Kind() string {
	if s == ArchivedSet {
		return "flight_logs"
	}
	return "flight_updates"
}

// Flight IDs are unique within a set, so they make the key name; there is no ancestor.
func flightKey(s Set, id string) *datastore.Key {
	return datastore.NameKey(s.Kind(), id, nil)
}
