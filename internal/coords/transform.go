// Package coords converts radar returns between the sensor's spherical frame
// and a local Cartesian frame.
//
// Coordinate convention: X=right, Y=forward, Z=up. Azimuth is measured in
// degrees clockwise from +Y, elevation in degrees above the XY plane.
package coords

import "math"

const (
	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

// ToCartesian converts range, azimuth (degrees) and elevation (degrees) into
// sensor-frame Cartesian coordinates.
func ToCartesian(rng, azimuthDeg, elevationDeg float64) (x, y, z float64) {
	azimuthRad := azimuthDeg * degToRad
	elevationRad := elevationDeg * degToRad

	cosElevation := math.Cos(elevationRad)
	sinElevation := math.Sin(elevationRad)
	cosAzimuth := math.Cos(azimuthRad)
	sinAzimuth := math.Sin(azimuthRad)

	x = rng * cosElevation * sinAzimuth
	y = rng * cosElevation * cosAzimuth
	z = rng * sinElevation
	return
}

// ToSpherical is the inverse of ToCartesian.
//
// Azimuth follows the sensor's own convention: the half-plane arctangent
// atan(y/x) is reflected about π/2 for x > 0 and about 3π/2 otherwise, then
// wrapped into [0°, 360°]. This is not interchangeable with an atan2 based
// azimuth; the two disagree across the x=0 boundary. Points on the Y axis
// (x == 0) are resolved directly since y/x is not finite there.
//
// Elevation is atan2(z, √(x²+y²)). The origin yields NaN azimuth, which is
// passed through.
func ToSpherical(x, y, z float64) (rng, azimuthDeg, elevationDeg float64) {
	rho := math.Sqrt(x*x + y*y)
	rng = math.Sqrt(x*x + y*y + z*z)
	elevationDeg = math.Atan2(z, rho) * radToDeg

	switch {
	case x == 0 && y > 0:
		azimuthDeg = 0
	case x == 0 && y < 0:
		azimuthDeg = 180
	case x == 0:
		azimuthDeg = math.NaN()
	default:
		azimuthDeg = foldAzimuth(x, math.Atan(y/x))
	}
	return
}

// foldAzimuth maps a half-plane arctangent (radians) onto compass azimuth
// in degrees.
func foldAzimuth(x, angle float64) float64 {
	var az float64
	if x > 0.0 {
		az = math.Pi/2 - angle
	} else {
		az = 3*math.Pi/2 - angle
	}
	az *= radToDeg

	if az < 0.0 {
		az += 360
	}
	if az > 360 {
		az -= 360
	}
	return az
}
