package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const EARTH_RADIUS_METERS = 6371000.0

func to_radians(d float64) float64 {
	return d * math.Pi / 180.0
}

func to_degrees(r float64) float64 {
	return r * 180.0 / math.Pi
}

// Bearing is the initial great circle bearing from (lat1,lon1) to
// (lat2,lon2), in degrees within (-180, 180]. The bearing of a point to
// itself is 0.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := to_radians(lat1)
	rlat2 := to_radians(lat2)
	dlon := to_radians(lon2 - lon1)
	x := math.Sin(dlon) * math.Cos(rlat2)
	y := math.Cos(rlat1)*math.Sin(rlat2) - math.Sin(rlat1)*math.Cos(rlat2)*math.Cos(dlon)
	b := math.Mod(to_degrees(math.Atan2(x, y))+360.0, 360.0)
	if b > 180.0 {
		b -= 360.0
	}
	return b
}

// Distance is the haversine distance in metres.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := to_radians(lat1)
	rlat2 := to_radians(lat2)
	dlat := rlat2 - rlat1
	dlon := to_radians(lon2 - lon1)
	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(rlat1)*math.Cos(rlat2)*math.Pow(math.Sin(dlon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EARTH_RADIUS_METERS * c
}

// Csedist returns course and distance (metres) in one call.
func Csedist(lat1, lon1, lat2, lon2 float64) (float64, float64) {
	return Bearing(lat1, lon1, lat2, lon2), Distance(lat1, lon1, lat2, lon2)
}

// Duration is the transit time in seconds; 0 when speed is not positive.
func Duration(distance, speed float64) float64 {
	if speed <= 0 {
		return 0
	}
	return distance / speed
}

// FormatTime renders seconds as MM:SS, or N/A for negative values.
func FormatTime(secs float64) string {
	if secs < 0 || math.IsNaN(secs) {
		return "N/A"
	}
	m := int(secs / 60)
	s := int(math.Mod(secs, 60))
	return fmt.Sprintf("%02d:%02d", m, s)
}

func Msplit(s string, separators []rune) []string {
	f := func(r rune) bool {
		for _, s := range separators {
			if r == s {
				return true
			}
		}
		return false
	}
	return strings.FieldsFunc(s, f)
}

// ParsePosition reads "lat,lon" (any of / : ; space or comma as
// separator) into a validated pair.
func ParsePosition(s string) (float64, float64, error) {
	parts := Msplit(s, []rune{'/', ':', ';', ' ', ','})
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("position %q: want lat,lon", s)
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "position %q: latitude", s)
	}
	lon, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "position %q: longitude", s)
	}
	if math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return 0, 0, errors.Errorf("position %q: out of range", s)
	}
	return lat, lon, nil
}
