// Package geo provides geodesic distance on the WGS-84 ellipsoid and the
// bounding-box helper used for store-side candidate prefiltering.
package geo

import "math"

// WGS-84 ellipsoid parameters.
const (
	semiMajorAxis = 6378137.0         // meters
	semiMinorAxis = 6356752.314245    // meters
	flattening    = 1 / 298.257223563 // (a-b)/a
)

// Point is a position in decimal degrees. Callers validate coordinate ranges
// before computing distances; results for NaN or out-of-range inputs are
// undefined.
type Point struct {
	Latitude  float64
	Longitude float64
}

// DistanceMeters returns the geodesic distance between a and b truncated to
// whole meters. Deterministic: identical inputs always yield the same integer.
func DistanceMeters(a, b Point) int {
	return int(Distance(a, b))
}

// Distance returns the geodesic distance between a and b in meters, using
// Vincenty's inverse formula on the WGS-84 ellipsoid. For the rare
// near-antipodal pairs where the iteration does not converge it falls back to
// the spherical great-circle distance.
func Distance(a, b Point) float64 {
	if a == b {
		return 0
	}

	u1 := math.Atan((1 - flattening) * math.Tan(radians(a.Latitude)))
	u2 := math.Atan((1 - flattening) * math.Tan(radians(b.Latitude)))
	l := radians(b.Longitude - a.Longitude)

	sinU1, cosU1 := math.Sincos(u1)
	sinU2, cosU2 := math.Sincos(u2)

	lambda := l
	var sinSigma, cosSigma, sigma, cos2Alpha, cos2SigmaM float64
	converged := false

	for i := 0; i < 200; i++ {
		sinLambda, cosLambda := math.Sincos(lambda)

		sinSigma = math.Sqrt(
			(cosU2*sinLambda)*(cosU2*sinLambda) +
				(cosU1*sinU2-sinU1*cosU2*cosLambda)*(cosU1*sinU2-sinU1*cosU2*cosLambda),
		)
		if sinSigma == 0 {
			return 0 // coincident points
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)

		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cos2Alpha = 1 - sinAlpha*sinAlpha
		if cos2Alpha == 0 {
			cos2SigmaM = 0 // equatorial line
		} else {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cos2Alpha
		}

		c := flattening / 16 * cos2Alpha * (4 + flattening*(4-3*cos2Alpha))
		prev := lambda
		lambda = l + (1-c)*flattening*sinAlpha*
			(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))

		if math.Abs(lambda-prev) < 1e-12 {
			converged = true
			break
		}
	}

	if !converged {
		return haversine(a, b)
	}

	uSq := cos2Alpha * (semiMajorAxis*semiMajorAxis - semiMinorAxis*semiMinorAxis) /
		(semiMinorAxis * semiMinorAxis)
	bigA := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	bigB := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))

	deltaSigma := bigB * sinSigma * (cos2SigmaM + bigB/4*
		(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
			bigB/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

	return semiMinorAxis * bigA * (sigma - deltaSigma)
}

// haversine returns the spherical great-circle distance in meters.
func haversine(a, b Point) float64 {
	const earthRadius = 6371008.8 // mean radius, meters

	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
