package umath

// Some basic affine transformations, used in image registration.

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Use a local type so we can hang methods off it
type Aff3 f64.Aff3

// Cut-n-pasted from image@0.7.0/draw/scale:matMul
func (p Aff3) Mult(q Aff3) Aff3 {
	return Aff3{
		p[3*0+0]*q[3*0+0] + p[3*0+1]*q[3*1+0],
		p[3*0+0]*q[3*0+1] + p[3*0+1]*q[3*1+1],
		p[3*0+0]*q[3*0+2] + p[3*0+1]*q[3*1+2] + p[3*0+2],
		p[3*1+0]*q[3*0+0] + p[3*1+1]*q[3*1+0],
		p[3*1+0]*q[3*0+1] + p[3*1+1]*q[3*1+1],
		p[3*1+0]*q[3*0+2] + p[3*1+1]*q[3*1+2] + p[3*1+2],
	}
}

func Identity() Aff3 {
	return Aff3{1, 0, 0, 0, 1, 0}
}

func (m Aff3) Translate(tx, ty float64) Aff3 {
	return m.Mult(Aff3{1, 0, tx, 0, 1, ty})
}

func (m Aff3) Rotate(theta float64) Aff3 {
	cosTheta := math.Cos(theta)
	sinTheta := math.Sin(theta)
	return m.Mult(Aff3{cosTheta, -1 * sinTheta, 0, sinTheta, cosTheta, 0})
}

// RotateAbout rotates by theta radians about the point (x,y).
// Remember they compose back to front - rightmost operations performed first.
func RotateAbout(theta, x, y float64) Aff3 {
	return Identity().Translate(x, y).Rotate(theta).Translate(-1*x, -1*y)
}

func (m Aff3) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

// Invert only handles the rigid case (orthonormal upper-left 2x2),
// which is all a registration transform ever is.
func (m Aff3) Invert() Aff3 {
	// inv(R)·(p - t) == R'·p - R'·t
	return Aff3{
		m[0], m[3], -(m[0]*m[2] + m[3]*m[5]),
		m[1], m[4], -(m[1]*m[2] + m[4]*m[5]),
	}
}
