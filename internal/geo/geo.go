// Package geo holds the great-circle math behind the nearby-reports query.
package geo

import (
	"math"
	"sort"
)

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// DistanceKm returns the great-circle distance between p and q using the
// spherical law of cosines form of the Haversine distance. The acos argument
// is clamped to [-1, 1]; rounding pushes it just above 1 for identical points.
func DistanceKm(p, q Point) float64 {
	if p == q {
		return 0
	}
	lat1, lat2 := radians(p.Lat), radians(q.Lat)
	x := math.Cos(lat1)*math.Cos(lat2)*math.Cos(radians(q.Lon)-radians(p.Lon)) +
		math.Sin(lat1)*math.Sin(lat2)
	return EarthRadiusKm * math.Acos(clamp(x, -1, 1))
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// Match pairs an item index with its distance from the query point.
type Match struct {
	Index      int
	DistanceKm float64
}

// Within returns the indexes of points strictly closer than radiusKm to
// origin, nearest first. A radius of zero keeps only points at exactly the
// origin. Ties keep input order.
func Within(origin Point, points []Point, radiusKm float64) []Match {
	var out []Match
	for i, p := range points {
		d := DistanceKm(origin, p)
		if d < radiusKm || (radiusKm == 0 && d == 0) {
			out = append(out, Match{Index: i, DistanceKm: d})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].DistanceKm < out[b].DistanceKm })
	return out
}

// Finite reports whether f is neither NaN nor infinite.
func Finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ValidLatLon reports whether lat/lon are finite and within WGS84 bounds.
func ValidLatLon(lat, lon float64) bool {
	return Finite(lat) && Finite(lon) && lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
