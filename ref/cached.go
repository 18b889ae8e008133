package ref

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	fdb "github.com/skypies/flightlog"
)

// CachedAirports puts an LRU in front of a slower directory. Misses are cached too (as nil),
// since flights keep asking about the same unknown destinations. Errors are not cached.
type CachedAirports struct {
	Backend AirportDirectory
	cache   *lru.Cache[string, *fdb.Airport]
}

func NewCachedAirports(backend AirportDirectory, size int) (*CachedAirports, error) {
	cache, err := lru.New[string, *fdb.Airport](size)
	if err != nil {
		return nil, err
	}
	return &CachedAirports{Backend: backend, cache: cache}, nil
}

func (ca *CachedAirports) FindByCode(ctx context.Context, code string) (*fdb.Airport, error) {
	code = normalize(code)
	if a, hit := ca.cache.Get(code); hit {
		return copyAirport(a), nil
	}

	a, err := ca.Backend.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	ca.cache.Add(code, copyAirport(a))
	return a, nil
}

func (ca *CachedAirports) Len() int { return ca.cache.Len() }

func copyAirport(a *fdb.Airport) *fdb.Airport {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
