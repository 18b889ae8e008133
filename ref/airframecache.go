package ref

import (
	"context"
	"fmt"
	"sort"
	"sync"

	fdb "github.com/skypies/flightlog"
)

// We build a map, from tail numbers, to static data about the physical airframe that is
// flying. It starts with the seed set, and can be added to over time. Airframes with a known
// transponder address can also be found by that.
type AirframeCache struct {
	sync.RWMutex
	Map map[string]*fdb.Airframe

	byIcao24 map[string]string // icao24 -> tail
}

func BlankAirframeCache() *AirframeCache {
	return &AirframeCache{Map: map[string]*fdb.Airframe{}, byIcao24: map[string]string{}}
}

func NewAirframeCache(airframes []fdb.Airframe) *AirframeCache {
	ac := BlankAirframeCache()
	for i := range airframes {
		ac.Set(&airframes[i])
	}
	return ac
}

func (ac *AirframeCache) Get(tail string) *fdb.Airframe {
	ac.RLock()
	defer ac.RUnlock()
	return ac.Map[normalize(tail)]
}

func (ac *AirframeCache) Set(af *fdb.Airframe) {
	ac.Lock()
	defer ac.Unlock()
	c := *af
	c.TailNumber = normalize(af.TailNumber)
	c.Icao24 = normalize(af.Icao24)
	if old, exists := ac.Map[c.TailNumber]; exists && ac.byIcao24[old.Icao24] == c.TailNumber {
		delete(ac.byIcao24, old.Icao24)
	}
	ac.Map[c.TailNumber] = &c
	if c.Icao24 != "" {
		ac.byIcao24[c.Icao24] = c.TailNumber
	}
}

func (ac *AirframeCache) FindByTail(ctx context.Context, tail string) (*fdb.Airframe, error) {
	if af := ac.Get(tail); af != nil {
		c := *af
		return &c, nil
	}
	return nil, nil
}

func (ac *AirframeCache) FindByIcao24(ctx context.Context, icao24 string) (*fdb.Airframe, error) {
	ac.RLock()
	defer ac.RUnlock()
	if af := ac.Map[ac.byIcao24[normalize(icao24)]]; af != nil {
		c := *af
		return &c, nil
	}
	return nil, nil
}

// List returns the airframes sorted by tail number.
func (ac *AirframeCache) List() []fdb.Airframe {
	ac.RLock()
	defer ac.RUnlock()
	airframes := []fdb.Airframe{}
	for _, af := range ac.Map {
		airframes = append(airframes, *af)
	}
	sort.Slice(airframes, func(i, j int) bool { return airframes[i].TailNumber < airframes[j].TailNumber })
	return airframes
}

func (ac *AirframeCache) String() string {
	airframes := ac.List()
	str := fmt.Sprintf("--- airframe cache (%d entries) ---\n", len(airframes))
	for _, af := range airframes {
		str += fmt.Sprintf(" %s\n", af)
	}
	return str
}

func DefaultAirframes() []fdb.Airframe {
	return []fdb.Airframe{
		{TailNumber: "AP-BLD", AircraftType: "B737", Airline: "Pakistan International Airlines", AirlineCode: "PIA",
			Manufacturer: "Boeing", Model: "737-800", Icao24: "760A01"},
		{TailNumber: "AP-BLE", AircraftType: "B777", Airline: "Pakistan International Airlines", AirlineCode: "PIA",
			Manufacturer: "Boeing", Model: "777-300ER", Icao24: "760A02"},
		{TailNumber: "AP-BMG", AircraftType: "A320", Airline: "Pakistan International Airlines", AirlineCode: "PIA",
			Manufacturer: "Airbus", Model: "A320-200", Icao24: "760B17"},
		{TailNumber: "A6-EUA", AircraftType: "A380", Airline: "Emirates", AirlineCode: "UAE",
			Manufacturer: "Airbus", Model: "A380-800", Icao24: "896180"},
		{TailNumber: "A6-EPF", AircraftType: "A320", Airline: "Emirates", AirlineCode: "UAE",
			Manufacturer: "Airbus", Model: "A320-200", Icao24: "8962C4"},
		{TailNumber: "G-ZBKA", AircraftType: "B787", Airline: "British Airways", AirlineCode: "BAW",
			Manufacturer: "Boeing", Model: "787-9", Icao24: "4005C1"},
		{TailNumber: "G-CIVB", AircraftType: "B747", Airline: "British Airways", AirlineCode: "BAW",
			Manufacturer: "Boeing", Model: "747-400", Icao24: "4007F2"},
		{TailNumber: "F-HPJA", AircraftType: "A380", Airline: "Air France", AirlineCode: "AFR",
			Manufacturer: "Airbus", Model: "A380-800", Icao24: "39BDA3"},
		{TailNumber: "F-GRHZ", AircraftType: "A319", Airline: "Air France", AirlineCode: "AFR",
			Manufacturer: "Airbus", Model: "A319-100", Icao24: "3965A7"},
		{TailNumber: "D-ABYQ", AircraftType: "B747", Airline: "Lufthansa", AirlineCode: "DLH",
			Manufacturer: "Boeing", Model: "747-8", Icao24: "3C4B31"},
		{TailNumber: "D-AIXP", AircraftType: "A350", Airline: "Lufthansa", AirlineCode: "DLH",
			Manufacturer: "Airbus", Model: "A350-900", Icao24: "3C6750"},
		{TailNumber: "N12345", AircraftType: "B777", Airline: "American Airlines", AirlineCode: "AAL",
			Manufacturer: "Boeing", Model: "777-200", Icao24: "A061D9"},
		{TailNumber: "N54321", AircraftType: "A321", Airline: "American Airlines", AirlineCode: "AAL",
			Manufacturer: "Airbus", Model: "A321-200", Icao24: "A6D3E1"},
	}
}
