// Package geo holds the proximity math behind the near= listing filter.
package geo

import (
	"math"
	"strconv"
	"strings"

	"github.com/lalith-99/estatehub/internal/models"
	"github.com/mmcloughlin/geohash"
)

const earthRadiusMeters = 6371000.0

// DefaultMaxDistance applies when near= is given without maxDistance=.
const DefaultMaxDistance = 5000.0

// StoredPrecision is the geohash length persisted per listing (~5m cells).
const StoredPrecision = 9

// Encode returns the stored geohash for c.
func Encode(c models.Coordinates) string {
	return geohash.EncodeWithPrecision(c.Latitude, c.Longitude, StoredPrecision)
}

// Distance is the great-circle distance between a and b in meters.
func Distance(a, b models.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLng/2), 2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// ParseNear parses a "lng,lat" string. Anything malformed or out of range
// returns false and the caller drops the filter.
func ParseNear(s string) (models.Coordinates, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return models.Coordinates{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return models.Coordinates{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return models.Coordinates{}, false
	}
	c := models.Coordinates{Longitude: lng, Latitude: lat}
	if !c.Valid() || math.IsNaN(lng) || math.IsNaN(lat) {
		return models.Coordinates{}, false
	}
	return c, true
}

// cell sizes in meters at the equator, indexed by precision-1.
var cellWidth = []float64{5009400, 1252300, 156500, 39100, 4890, 1220, 152.9, 38.2, 4.77}
var cellHeight = []float64{4992600, 624100, 156000, 19500, 4890, 610, 152.4, 19.0, 4.77}

// CoveringPrefixes returns geohash prefixes whose cells together contain
// every point within radius meters of center: the center cell plus its
// eight neighbours, at the finest precision whose cells are at least
// radius across. It returns nil when the radius is too large for a 3x3
// block to cover, in which case only the exact distance check applies.
func CoveringPrefixes(center models.Coordinates, radius float64) []string {
	if radius <= 0 {
		return nil
	}
	// widths shrink toward the poles; size cells for the poleward edge of the circle.
	edgeLat := math.Min(math.Abs(center.Latitude)+radius/111320, 90)
	shrink := math.Cos(edgeLat * math.Pi / 180)
	precision := 0
	for i := range cellWidth {
		w := cellWidth[i] * shrink
		if math.Min(w, cellHeight[i]) < radius {
			break
		}
		precision = i + 1
	}
	if precision == 0 {
		return nil
	}
	hash := geohash.EncodeWithPrecision(center.Latitude, center.Longitude, uint(precision))
	return append([]string{hash}, geohash.Neighbors(hash)...)
}
