package flightlog

import (
	"fmt"

	"github.com/skypies/geo"
)

// An Airport is a reference point for the touchdown rule; flights name it by Code.
type Airport struct {
	Code    string  `json:"code" yaml:"code" msgpack:"code" datastore:"code"`
	Name    string  `json:"name" yaml:"name" msgpack:"name" datastore:"name,noindex"`
	City    string  `json:"city" yaml:"city" msgpack:"city" datastore:"city,noindex"`
	Country string  `json:"country" yaml:"country" msgpack:"country" datastore:"country,noindex"`
	Lat     float64 `json:"lat" yaml:"lat" msgpack:"lat" datastore:"lat,noindex"`
	Lon     float64 `json:"lon" yaml:"lon" msgpack:"lon" datastore:"lon,noindex"`
}

func (a Airport) String() string {
	return fmt.Sprintf("%s %s (%s, %s) (%.4f,%.4f)", a.Code, a.Name, a.City, a.Country, a.Lat, a.Lon)
}

func (a Airport) Latlong() geo.Latlong { return geo.Latlong{Lat: a.Lat, Long: a.Lon} }
