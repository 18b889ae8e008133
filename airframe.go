package flightlog

import "fmt"

// An Airframe is a thing that flies, identified by its tail number (registration). Its type
// and operator should be constant over many flights, so we keep them as reference data and
// overlay them onto new flights that didn't say what they were.
type Airframe struct {
	TailNumber   string `json:"tail_number" yaml:"tail_number" msgpack:"tail_number"`
	AircraftType string `json:"aircraft_type" yaml:"aircraft_type" msgpack:"aircraft_type"` // e.g. A320, B77W
	Airline      string `json:"airline" yaml:"airline" msgpack:"airline"`
	AirlineCode  string `json:"airline_code" yaml:"airline_code" msgpack:"airline_code"` // ICAO, e.g. PIA
	Manufacturer string `json:"manufacturer" yaml:"manufacturer" msgpack:"manufacturer"`
	Model        string `json:"model" yaml:"model" msgpack:"model"`

	// The Mode-S transponder address, as six hex digits; lets ADS-B traffic be matched up
	// with the airframe.
	Icao24 string `json:"icao24,omitempty" yaml:"icao24,omitempty" msgpack:"icao24,omitempty"`
}

func (af Airframe) String() string {
	return fmt.Sprintf("[%s] %-4.4s %3.3s %s %s", af.TailNumber, af.AircraftType, af.AirlineCode,
		af.Manufacturer, af.Model)
}
