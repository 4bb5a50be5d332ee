package common

import (
	"math"
	"testing"
)

func TestGeodeticToECEFAtEquator(t *testing.T) {
	// S6: (lat=0, lon=0, h=0) -> translation column = (6378137, 0, 0).
	p := GeodeticToECEF(0, 0, 0)
	if math.Abs(p.X-wgs84SemiMajorAxis) > 1e-3 {
		t.Fatalf("X = %v, want ~%v", p.X, wgs84SemiMajorAxis)
	}
	if math.Abs(p.Y) > 1e-3 || math.Abs(p.Z) > 1e-3 {
		t.Fatalf("Y,Z = %v,%v, want ~0,0", p.Y, p.Z)
	}
}

func TestENUToECEFMatrixUpperLeft(t *testing.T) {
	m := ENUToECEFMatrix(0, 0, 0)

	// east = (0,1,0), north = (0,0,1), up = (1,0,0) at the equator/prime meridian.
	want := [9]float64{
		0, 1, 0,
		0, 0, 1,
		1, 0, 0,
	}
	got := [9]float64{
		m[0], m[1], m[2],
		m[4], m[5], m[6],
		m[8], m[9], m[10],
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("upper-left 3x3 mismatch at %d: got %v want %v", i, got, want)
		}
	}
}

func TestMatrixAppliedToOriginMatchesGeodeticFormula(t *testing.T) {
	lat, lon, h := 0.7, -1.2, 150.0
	m := ENUToECEFMatrix(lat, lon, h)
	origin := ApplyMatrix4(m, Vertex3{})
	want := GeodeticToECEF(lat, lon, h)

	if math.Abs(origin.X-want.X) > 1e-6 || math.Abs(origin.Y-want.Y) > 1e-6 || math.Abs(origin.Z-want.Z) > 1e-6 {
		t.Fatalf("origin = %+v, want %+v", origin, want)
	}
}
