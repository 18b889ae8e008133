// Package ref contains reference lookups: the airports that flights fly to, and the
// airframes that fly them. Lookups of unknown codes return (nil,nil); an error means the
// directory itself could not be consulted.
package ref

import (
	"context"
	"strings"

	fdb "github.com/skypies/flightlog"
)

type AirportDirectory interface {
	FindByCode(ctx context.Context, code string) (*fdb.Airport, error)
}

type AirframeRegistry interface {
	FindByTail(ctx context.Context, tail string) (*fdb.Airframe, error)
	FindByIcao24(ctx context.Context, icao24 string) (*fdb.Airframe, error)
}

// Codes and tail numbers are matched case-insensitively, ignoring surrounding space.
func normalize(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
