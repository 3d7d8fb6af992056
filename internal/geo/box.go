package geo

import "math"

// metersPerDegreeLat is close enough for a prefilter box; inclusion is always
// re-validated against the exact geodesic distance before emission.
const metersPerDegreeLat = 111320.0

// BoundingBox is a latitude/longitude rectangle used to narrow the restaurant
// fetch on the store side. It over-approximates the radius: it may include
// points farther than radiusMeters, never exclude points within it. A box
// whose MinLongitude is greater than its MaxLongitude wraps across the
// antimeridian and covers the two ranges [MinLongitude, 180] and
// [-180, MaxLongitude].
type BoundingBox struct {
	MinLatitude  float64
	MaxLatitude  float64
	MinLongitude float64
	MaxLongitude float64
}

// NewBoundingBox returns the smallest axis-aligned box guaranteed to contain
// every point within radiusMeters of center.
func NewBoundingBox(center Point, radiusMeters float64) BoundingBox {
	dLat := radiusMeters / metersPerDegreeLat

	cosLat := math.Cos(radians(center.Latitude))
	dLon := 180.0 // near the poles every longitude is in range
	if cosLat > 1e-6 {
		dLon = radiusMeters / (metersPerDegreeLat * cosLat)
	}

	box := BoundingBox{
		MinLatitude: math.Max(center.Latitude-dLat, -90),
		MaxLatitude: math.Min(center.Latitude+dLat, 90),
	}
	if dLon >= 180 {
		box.MinLongitude, box.MaxLongitude = -180, 180
		return box
	}
	// Longitudes wrap instead of clamping so a radius straddling the
	// antimeridian keeps covering both sides of it.
	box.MinLongitude = wrapLongitude(center.Longitude - dLon)
	box.MaxLongitude = wrapLongitude(center.Longitude + dLon)
	return box
}

// Wraps reports whether the box crosses the antimeridian.
func (b BoundingBox) Wraps() bool {
	return b.MinLongitude > b.MaxLongitude
}

// Contains reports whether p falls inside the box.
func (b BoundingBox) Contains(p Point) bool {
	if p.Latitude < b.MinLatitude || p.Latitude > b.MaxLatitude {
		return false
	}
	if b.Wraps() {
		return p.Longitude >= b.MinLongitude || p.Longitude <= b.MaxLongitude
	}
	return p.Longitude >= b.MinLongitude && p.Longitude <= b.MaxLongitude
}

// wrapLongitude normalizes a longitude into [-180, 180].
func wrapLongitude(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
