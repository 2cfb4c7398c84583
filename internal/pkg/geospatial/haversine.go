package geospatial

import "math"

// EarthRadiusKm is the mean radius of the spherical Earth model.
const EarthRadiusKm = 6371.0

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// ToRadians converts degrees to radians.
func ToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ToDegrees converts radians to degrees.
func ToDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// NormalizeLongitude wraps a longitude in radians back into [-π, π).
func NormalizeLongitude(lngRad float64) float64 {
	twoPi := 2 * math.Pi
	return math.Mod(math.Mod(lngRad+math.Pi, twoPi)+twoPi, twoPi) - math.Pi
}

// HaversineKm calculates the great-circle distance in kilometers between two points.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := ToRadians(lat2 - lat1)
	dLng := ToRadians(lng2 - lng1)

	sinLat, sinLng := math.Sin(dLat/2), math.Sin(dLng/2)
	cosProduct := float64(math.Cos(ToRadians(lat1)) * math.Cos(ToRadians(lat2)))

	// Unfused, as in ProjectPoint: separation checks compare this result
	// against a threshold and must decide the same way on every machine.
	a := float64(sinLat*sinLat) + float64(cosProduct*float64(sinLng*sinLng))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// ProjectPoint returns the point reached by travelling distanceKm from
// (lat, lng) along the initial bearing bearingRad (radians clockwise from north).
func ProjectPoint(lat, lng, distanceKm, bearingRad float64) Point {
	angular := distanceKm / EarthRadiusKm
	latRad := ToRadians(lat)
	lngRad := ToRadians(lng)

	sinLat, cosLat := math.Sin(latRad), math.Cos(latRad)
	sinAng, cosAng := math.Sin(angular), math.Cos(angular)

	// Explicit float64 conversions stop the compiler from fusing multiply-adds,
	// keeping results bit-identical across architectures.
	targetLat := math.Asin(float64(sinLat*cosAng) + float64(cosLat*sinAng*math.Cos(bearingRad)))
	targetLng := lngRad + math.Atan2(
		math.Sin(bearingRad)*sinAng*cosLat,
		cosAng-float64(sinLat*math.Sin(targetLat)),
	)

	return Point{
		Lat: ToDegrees(targetLat),
		Lng: ToDegrees(NormalizeLongitude(targetLng)),
	}
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lng, radiusMeters float64) (minLat, minLng, maxLat, maxLng float64) {
	latDelta := radiusMeters / 111320.0
	lngDelta := radiusMeters / (111320.0 * math.Cos(ToRadians(lat)))

	return lat - latDelta, lng - lngDelta, lat + latDelta, lng + lngDelta
}
