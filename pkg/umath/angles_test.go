package umath

import (
	"math"
	"testing"
)

func TestWrapAngle(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{math.Pi / 2, math.Pi / 2},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi, math.Pi},
		{2*math.Pi + 0.1, 0.1},
		{-2*math.Pi - 0.1, -0.1},
	}
	for _, c := range cases {
		if got := WrapAngle(c.in); math.Abs(got-c.want) > 1e-12 {
			t.Fatalf("WrapAngle(%f): got %f, want %f", c.in, got, c.want)
		}
	}
}

func TestLerpAngleEndpoints(t *testing.T) {
	a, b := 0.3, 1.1
	if got := LerpAngle(a, b, 0); math.Abs(got-a) > 1e-12 {
		t.Fatalf("w=0: got %f, want %f", got, a)
	}
	if got := LerpAngle(a, b, 1); math.Abs(got-b) > 1e-12 {
		t.Fatalf("w=1: got %f, want %f", got, b)
	}
}

func TestLerpAngleShortestArc(t *testing.T) {
	// 359deg to 1deg should pass through 0deg, not 180deg
	a := 359.0 * math.Pi / 180.0
	b := 1.0 * math.Pi / 180.0
	got := LerpAngle(a, b, 0.5)
	if math.Abs(WrapAngle(got)) > 1e-9 {
		t.Fatalf("midpoint across the seam: got %f rad, want 0", got)
	}

	// and the blend is monotone along the short way
	quarter := LerpAngle(a, b, 0.25)
	if math.Abs(WrapAngle(quarter)-(-0.5*math.Pi/180.0)) > 1e-9 {
		t.Fatalf("quarter blend: got %f rad, want %f", WrapAngle(quarter), -0.5*math.Pi/180.0)
	}
}
