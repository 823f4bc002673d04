package register

import (
	"math"

	"umbra/pkg/umath"
)

// The moon moves by well under 0.1R relative to the sun during
// totality, so a mask at 1.05R covers the moon in every frame, and the
// 1.05R..1.15R band sits just outside it in all of them.
const (
	moonMaskRadii       = 1.05
	moonMaskBorderRadii = 1.15
)

// Angular resolution of the polar resample used by the tangential
// filter: 0.1 degree per bin.
const polarThetaBins = 3600

// MoonClippingValue finds the darkest pixel in the annulus just outside
// the moon mask. Clipping the frame there levels the moon, its bright
// inner rim, and anything brighter, so none of it can dominate the
// corona alignment.
func MoonClippingValue(f *Frame, moon Circle) float64 {
	g := &f.Pixels
	min := math.MaxFloat64
	for y := 0; y < g.Dy(); y++ {
		for x := 0; x < g.Dx(); x++ {
			rho := math.Hypot(float64(x)-moon.X, float64(y)-moon.Y)
			if rho >= moonMaskRadii*moon.Radius && rho <= moonMaskBorderRadii*moon.Radius {
				if v := g.Get(x, y); v < min {
					min = v
				}
			}
		}
	}
	return min
}

// FilterCorona re-expresses a frame so that only fine angularly-varying
// coronal structure remains: mask and clip the moon, subtract a
// tangential low-pass (computed in polar space about the moon disk,
// blurred along the angular axis, mapped back), soften with a small
// isotropic blur, and normalize by the standard deviation. The result
// is only ever used for alignment scoring, never for output pixels.
func FilterCorona(cfg Config, f *Frame, moon Circle, clippingValue float64) umath.FloatGrid {
	g := f.Pixels.Copy()

	// Clip the moon and its surroundings
	for y := 0; y < g.Dy(); y++ {
		for x := 0; x < g.Dx(); x++ {
			rho := math.Hypot(float64(x)-moon.X, float64(y)-moon.Y)
			if rho <= moonMaskRadii*moon.Radius || g.Get(x, y) >= clippingValue {
				g.Set(x, y, clippingValue)
			}
		}
	}

	// Tangential high-pass: suppresses the smooth radial brightness
	// falloff, keeps the streamers
	rMax := maxCornerRadius(moon.X, moon.Y, g.Dx(), g.Dy())
	rBins := int(rMax)
	sigmaBins := cfg.SigmaHighpassTangential / 360.0 * polarThetaBins

	polar := g.Polar(moon.X, moon.Y, rMax, polarThetaBins, rBins)
	smooth := polar.BlurXWrap(sigmaBins)
	tangential := smooth.Unpolar(moon.X, moon.Y, rMax, g.Dx(), g.Dy())
	g.Sub(&tangential)

	// Low-pass to attenuate interpolation effects during registration
	out := g.GaussianBlur(2.0)

	if std := out.Std(); std > 0 {
		out.Scale(1.0 / std)
	}
	return out
}

func maxCornerRadius(cx, cy float64, w, h int) float64 {
	r := 0.0
	for _, corner := range [4][2]float64{{0, 0}, {float64(w), 0}, {0, float64(h)}, {float64(w), float64(h)}} {
		if d := math.Hypot(corner[0]-cx, corner[1]-cy); d > r {
			r = d
		}
	}
	return r
}
