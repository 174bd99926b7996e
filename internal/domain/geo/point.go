package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// EarthRadiusKm is the mean radius of Earth used for Haversine distance.
const EarthRadiusKm = 6371.0

// MaxLatitude is the latitude limit of the Redis GEO index (Web Mercator).
// Points beyond it are rejected by the index and never become searchable.
const MaxLatitude = 85.05112878

// ErrInvalidPoint is returned for malformed or out-of-range coordinates.
var ErrInvalidPoint = errors.New("invalid geo point")

// Point is a WGS84 coordinate. It is stored in the catalog as the
// "lon,lat" string the GEO index understands.
type Point struct {
	Lon float64
	Lat float64
}

// String renders the point as "lon,lat".
func (p Point) String() string {
	return strconv.FormatFloat(p.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lat, 'f', -1, 64)
}

// Validate checks coordinate ranges.
func (p Point) Validate() error {
	return ValidateCoordinates(p.Lat, p.Lon)
}

// MarshalJSON encodes the point as a "lon,lat" string.
func (p Point) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(p.String())), nil
}

// UnmarshalJSON accepts "lon,lat", [lon, lat], {"lon":..,"lat":..} or
// {"longitude":..,"latitude":..}.
func (p *Point) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		pt, perr := ParsePoint(s)
		if perr != nil {
			return perr
		}
		*p = pt
		return nil
	}

	var arr []float64
	if err := json.Unmarshal(data, &arr); err == nil {
		if len(arr) != 2 {
			return fmt.Errorf("%w: want [lon, lat], got %d values", ErrInvalidPoint, len(arr))
		}
		*p = Point{Lon: arr[0], Lat: arr[1]}
		return nil
	}

	var obj struct {
		Lon       *float64 `json:"lon"`
		Lat       *float64 `json:"lat"`
		Longitude *float64 `json:"longitude"`
		Latitude  *float64 `json:"latitude"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPoint, data)
	}
	lon, lat := firstSet(obj.Lon, obj.Longitude), firstSet(obj.Lat, obj.Latitude)
	if lon == nil || lat == nil {
		return fmt.Errorf("%w: %s", ErrInvalidPoint, data)
	}
	*p = Point{Lon: *lon, Lat: *lat}
	return nil
}

func firstSet(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}

// ParsePoint parses a "lon,lat" string.
func ParsePoint(s string) (Point, error) {
	lonStr, latStr, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, fmt.Errorf("%w: %q is not lon,lat", ErrInvalidPoint, s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: longitude %q", ErrInvalidPoint, lonStr)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: latitude %q", ErrInvalidPoint, latStr)
	}
	return Point{Lon: lon, Lat: lat}, nil
}

// ValidateCoordinates checks that latitude is within ±MaxLatitude and
// longitude within [-180,180].
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) ||
		lat < -MaxLatitude || lat > MaxLatitude || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: lat=%g lon=%g", ErrInvalidPoint, lat, lon)
	}
	return nil
}

// HaversineKm returns the great-circle distance in kilometres between two points.
func HaversineKm(a, b Point) float64 {
	lat1r := a.Lat * math.Pi / 180
	lat2r := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}
