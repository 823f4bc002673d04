package register

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"umbra/pkg/umath"
)

// A RigidTransform maps a pixel location in some frame to the location
// in the reference frame that corresponds to the same point in the sky:
// a rotation by Theta about the reference frame's optical center,
// followed by a translation. Moon transforms always carry Theta == 0,
// since a featureless disk cannot pin down rotation; the sun transform
// is where rotation gets resolved.
type RigidTransform struct {
	Theta  float64 // radians, about the pivot
	Tx, Ty float64
}

func IdentityTransform() RigidTransform {
	return RigidTransform{}
}

func (t RigidTransform) String() string {
	str := fmt.Sprintf("xform[(%6.2f,%6.2f)", t.Tx, t.Ty)
	if t.Theta != 0.0 {
		str += fmt.Sprintf(", %5.3fdeg", t.Theta*180.0/math.Pi)
	}
	return str + "]"
}

func (t RigidTransform) IsIdentity() bool {
	return t.Theta == 0 && t.Tx == 0 && t.Ty == 0
}

// ToMatrix builds the affine form, rotating about the pivot first and
// translating second, matching how the transforms are estimated.
func (t RigidTransform) ToMatrix(pivotX, pivotY float64) umath.Aff3 {
	m := umath.RotateAbout(t.Theta, pivotX, pivotY)
	return umath.Identity().Translate(t.Tx, t.Ty).Mult(m)
}

// Compose returns the transform equivalent to applying t first, then
// u, about the same pivot. Angles add; t's translation gets carried
// through u's rotation.
func (t RigidTransform) Compose(u RigidTransform) RigidTransform {
	cos, sin := math.Cos(u.Theta), math.Sin(u.Theta)
	return RigidTransform{
		Theta: umath.WrapAngle(t.Theta + u.Theta),
		Tx:    cos*t.Tx - sin*t.Ty + u.Tx,
		Ty:    sin*t.Tx + cos*t.Ty + u.Ty,
	}
}

// Invert returns the transform that undoes t: t.Compose(t.Invert())
// is the identity.
func (t RigidTransform) Invert() RigidTransform {
	cos, sin := math.Cos(-t.Theta), math.Sin(-t.Theta)
	return RigidTransform{
		Theta: -t.Theta,
		Tx:    -(cos*t.Tx - sin*t.Ty),
		Ty:    -(sin*t.Tx + cos*t.Ty),
	}
}

// Apply maps a point through the transform.
func (t RigidTransform) Apply(pivotX, pivotY, x, y float64) (float64, float64) {
	return t.ToMatrix(pivotX, pivotY).Apply(x, y)
}

// WarpGrid resamples a frame's pixel grid into the reference frame's
// coordinates under t.
func (t RigidTransform) WarpGrid(g *umath.FloatGrid, pivotX, pivotY float64) umath.FloatGrid {
	return g.WarpBy(t.ToMatrix(pivotX, pivotY).Invert())
}

// WarpImage is the image.Image flavor, for handing registered pixels to
// whatever writes the output files.
func (t RigidTransform) WarpImage(src image.Image, pivotX, pivotY float64) image.Image {
	dst := image.NewRGBA64(src.Bounds())
	m := t.ToMatrix(pivotX, pivotY)
	draw.CatmullRom.Transform(dst, f64.Aff3(m), src, src.Bounds(), draw.Src, nil)
	return dst
}
