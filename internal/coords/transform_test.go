package coords

import (
	"math"
	"math/rand"
	"testing"
)

const eps = 1e-9

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestToCartesian_Axes(t *testing.T) {
	cases := []struct {
		name       string
		rng, az, e float64
		x, y, z    float64
	}{
		{"north", 10, 0, 0, 0, 10, 0},
		{"east", 10, 90, 0, 10, 0, 0},
		{"south", 10, 180, 0, 0, -10, 0},
		{"west", 10, 270, 0, -10, 0, 0},
		{"zenith", 10, 0, 90, 0, 0, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			x, y, z := ToCartesian(tc.rng, tc.az, tc.e)
			if !near(x, tc.x, eps) || !near(y, tc.y, eps) || !near(z, tc.z, eps) {
				t.Errorf("ToCartesian(%v,%v,%v) = (%v,%v,%v), want (%v,%v,%v)",
					tc.rng, tc.az, tc.e, x, y, z, tc.x, tc.y, tc.z)
			}
		})
	}
}

func TestToSpherical_Quadrants(t *testing.T) {
	cases := []struct {
		name    string
		x, y, z float64
		az      float64
	}{
		{"first quadrant", 1, 1, 0, 45},
		{"second quadrant", 1, -1, 0, 135},
		{"third quadrant", -1, -1, 0, 225},
		{"fourth quadrant", -1, 1, 0, 315},
		{"positive y axis", 0, 5, 0, 0},
		{"negative y axis", 0, -5, 0, 180},
		{"positive x axis", 5, 0, 0, 90},
		{"negative x axis", -5, 0, 0, 270},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, az, _ := ToSpherical(tc.x, tc.y, tc.z)
			if !near(az, tc.az, 1e-9) {
				t.Errorf("azimuth = %v, want %v", az, tc.az)
			}
			if az < 0 || az > 360 {
				t.Errorf("azimuth %v outside [0, 360]", az)
			}
		})
	}
}

// An atan2-based azimuth fed through the same reflection lands in the wrong
// half-plane for x < 0. Guard against regressing to it.
func TestToSpherical_DiffersFromAtan2Reflection(t *testing.T) {
	x, y := -1.0, 1.0
	naive := (3*math.Pi/2 - math.Atan2(y, x)) * radToDeg
	_, az, _ := ToSpherical(x, y, 0)
	if near(az, naive, 1e-6) {
		t.Fatalf("azimuth %v matches the atan2 reflection; expected 315", az)
	}
	if !near(az, 315, 1e-9) {
		t.Errorf("azimuth = %v, want 315", az)
	}
}

func TestToSpherical_Elevation(t *testing.T) {
	_, _, el := ToSpherical(1, 0, 1)
	if !near(el, 45, eps) {
		t.Errorf("elevation = %v, want 45", el)
	}
	_, _, el = ToSpherical(0, 3, -3)
	if !near(el, -45, eps) {
		t.Errorf("elevation = %v, want -45", el)
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		x := rng.Float64()*2000 - 1000
		y := rng.Float64()*2000 - 1000
		z := rng.Float64()*200 - 100
		if x*x+y*y == 0 {
			continue
		}

		r, az, el := ToSpherical(x, y, z)
		gx, gy, gz := ToCartesian(r, az, el)

		tol := 1e-9 * math.Max(1, r)
		if !near(gx, x, tol) || !near(gy, y, tol) || !near(gz, z, tol) {
			t.Fatalf("round trip (%v,%v,%v) -> (%v,%v,%v) -> (%v,%v,%v)",
				x, y, z, r, az, el, gx, gy, gz)
		}
	}
}

func TestRoundTrip_SphericalFirst(t *testing.T) {
	for az := 0.5; az < 360; az += 7.25 {
		for el := -60.0; el <= 60; el += 15 {
			x, y, z := ToCartesian(1500, az, el)
			r, gotAz, gotEl := ToSpherical(x, y, z)
			if !near(r, 1500, 1e-6) || !near(gotAz, az, 1e-9) || !near(gotEl, el, 1e-9) {
				t.Fatalf("(1500,%v,%v) -> (%v,%v,%v)", az, el, r, gotAz, gotEl)
			}
		}
	}
}

func TestToSpherical_OriginPassesThroughNaN(t *testing.T) {
	r, az, _ := ToSpherical(0, 0, 0)
	if r != 0 {
		t.Errorf("range = %v, want 0", r)
	}
	if !math.IsNaN(az) {
		t.Errorf("azimuth at origin = %v, want NaN", az)
	}
}
