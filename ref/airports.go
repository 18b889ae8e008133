package ref

import (
	"context"
	"fmt"
	"sort"

	fdb "github.com/skypies/flightlog"
)

// StaticAirports is an in-memory AirportDirectory, keyed by airport code.
type StaticAirports struct {
	Map map[string]fdb.Airport
}

func NewStaticAirports(airports []fdb.Airport) *StaticAirports {
	sa := StaticAirports{Map: map[string]fdb.Airport{}}
	for _, a := range airports {
		a.Code = normalize(a.Code)
		sa.Map[a.Code] = a
	}
	return &sa
}

func (sa *StaticAirports) FindByCode(ctx context.Context, code string) (*fdb.Airport, error) {
	if a, exists := sa.Map[normalize(code)]; exists {
		return &a, nil
	}
	return nil, nil
}

// List returns the airports sorted by code.
func (sa *StaticAirports) List() []fdb.Airport {
	airports := []fdb.Airport{}
	for _, a := range sa.Map {
		airports = append(airports, a)
	}
	sort.Slice(airports, func(i, j int) bool { return airports[i].Code < airports[j].Code })
	return airports
}

func (sa StaticAirports) String() string {
	str := fmt.Sprintf("--- airports (%d entries) ---\n", len(sa.Map))
	for _, a := range sa.List() {
		str += fmt.Sprintf(" %s\n", a)
	}
	return str
}

// DefaultAirports is the seed set the flight log has always shipped with.
func DefaultAirports() []fdb.Airport {
	return []fdb.Airport{
		{Code: "LHE", Name: "Allama Iqbal International Airport", City: "Lahore", Country: "Pakistan", Lat: 31.5216, Lon: 74.4036},
		{Code: "ISB", Name: "Islamabad International Airport", City: "Islamabad", Country: "Pakistan", Lat: 33.6217, Lon: 73.0551},
		{Code: "KHI", Name: "Jinnah International Airport", City: "Karachi", Country: "Pakistan", Lat: 24.9060, Lon: 67.1600},
		{Code: "DXB", Name: "Dubai International Airport", City: "Dubai", Country: "United Arab Emirates", Lat: 25.2532, Lon: 55.3657},
		{Code: "JFK", Name: "John F. Kennedy International Airport", City: "New York", Country: "United States", Lat: 40.6413, Lon: -73.7781},
		{Code: "LHR", Name: "London Heathrow Airport", City: "London", Country: "United Kingdom", Lat: 51.4700, Lon: -0.4543},
		{Code: "CDG", Name: "Charles de Gaulle Airport", City: "Paris", Country: "France", Lat: 49.0097, Lon: 2.5479},
		{Code: "FRA", Name: "Frankfurt Airport", City: "Frankfurt", Country: "Germany", Lat: 50.0379, Lon: 8.5622},
	}
}
