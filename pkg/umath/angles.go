package umath

import "math"

// Some functions that only operate on basic types, that are useful

// WrapAngle maps an angle into (-pi, pi].
func WrapAngle(theta float64) float64 {
	for theta <= -math.Pi {
		theta += 2 * math.Pi
	}
	for theta > math.Pi {
		theta -= 2 * math.Pi
	}
	return theta
}

// LerpAngle blends two angles along the shortest arc between them, so
// e.g. blending 359deg with 1deg passes through 0deg, not 180deg.
// w=0 returns a, w=1 returns b.
func LerpAngle(a, b, w float64) float64 {
	return WrapAngle(a + w*WrapAngle(b-a))
}

// Lerp is the plain linear blend.
func Lerp(a, b, w float64) float64 {
	return a + w*(b-a)
}
