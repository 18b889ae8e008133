package flightlog

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/skypies/geo"
)

const EarthRadiusKM = 6371.0

func radians(deg float64) float64 { return deg * math.Pi / 180.0 }
func degrees(rad float64) float64 { return rad * 180.0 / math.Pi }

// DistKM is the great-circle distance between two points, via the haversine formula.
func DistKM(lat1, lon1, lat2, lon2 float64) float64 {
	phi1, phi2 := radians(lat1), radians(lat2)
	dPhi, dLambda := radians(lat2-lat1), radians(lon2-lon1)

	sinPhi, sinLambda := math.Sin(dPhi/2), math.Sin(dLambda/2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda

	// Rounding can push a just outside [0,1] for antipodal points; sqrt(1-a) would then be NaN.
	a = math.Max(0, math.Min(1, a))

	return EarthRadiusKM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BearingDeg is the initial great-circle bearing from the first point to the second, in
// [0,360).
func BearingDeg(lat1, lon1, lat2, lon2 float64) float64 {
	phi1, phi2 := radians(lat1), radians(lat2)
	dLambda := radians(lon2 - lon1)

	x := math.Sin(dLambda) * math.Cos(phi2)
	y := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	b := math.Mod(degrees(math.Atan2(x, y))+360, 360)
	if b >= 360 {
		b = 0
	}
	return b
}

// IsValidCoordinate reports whether lat/lon are numbers within [-90,90] and [-180,180]. It
// takes anything that might turn up in a decoded payload; things that don't parse as a
// number are simply invalid.
func IsValidCoordinate(lat, lon any) bool {
	la, ok := toFloat(lat)
	if !ok {
		return false
	}
	lo, ok := toFloat(lon)
	if !ok {
		return false
	}
	return la >= -90 && la <= 90 && lo >= -180 && lo <= 180
}

// toFloat coerces a decoded JSON value (or a plain Go number) into a finite float64.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// DistLatlongKM is DistKM for skypies geo types.
func DistLatlongKM(from, to geo.Latlong) float64 {
	return DistKM(from.Lat, from.Long, to.Lat, to.Long)
}
