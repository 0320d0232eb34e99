// Package geo holds the small numeric helpers that sit next to the decoder:
// great-circle distance and course between two decoded positions, a compass
// label for a course, and unit conversions for decoded speed and altitude.
package geo

import "math"

// EarthRadiusM is the sphere radius used by DistanceBetween. Real-world error
// is up to about 0.5% because the Earth is not a sphere.
const EarthRadiusM = 6372795.0

func radians(deg float64) float64 { return deg * math.Pi / 180.0 }
func degrees(rad float64) float64 { return rad * 180.0 / math.Pi }

// DistanceBetween returns the great-circle distance in meters between two
// positions given in signed decimal degrees.
func DistanceBetween(lat1, lon1, lat2, lon2 float64) float64 {
	delta := radians(lon1 - lon2)
	sdlong := math.Sin(delta)
	cdlong := math.Cos(delta)
	lat1 = radians(lat1)
	lat2 = radians(lat2)
	slat1, clat1 := math.Sin(lat1), math.Cos(lat1)
	slat2, clat2 := math.Sin(lat2), math.Cos(lat2)

	delta = clat1*slat2 - slat1*clat2*cdlong
	delta = delta * delta
	delta += (clat2 * sdlong) * (clat2 * sdlong)
	delta = math.Sqrt(delta)
	denom := slat1*slat2 + clat1*clat2*cdlong
	return math.Atan2(delta, denom) * EarthRadiusM
}

// CourseTo returns the initial course in degrees [0,360) from position 1 to
// position 2 (North=0, East=90).
func CourseTo(lat1, lon1, lat2, lon2 float64) float64 {
	dlon := radians(lon2 - lon1)
	lat1 = radians(lat1)
	lat2 = radians(lat2)
	a1 := math.Sin(dlon) * math.Cos(lat2)
	a2 := math.Sin(lat1) * math.Cos(lat2) * math.Cos(dlon)
	a2 = math.Cos(lat1)*math.Sin(lat2) - a2
	a2 = math.Atan2(a1, a2)
	if a2 < 0 {
		a2 += 2 * math.Pi
	}
	return degrees(a2)
}

var directions = [16]string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE", "S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}

// Cardinal returns the 16-point compass label for a course in degrees.
func Cardinal(course float64) string {
	course = math.Mod(course, 360)
	if course < 0 {
		course += 360
	}
	i := int((course + 11.25) / 22.5)
	return directions[i%16]
}
