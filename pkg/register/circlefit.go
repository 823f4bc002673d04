package register

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// FitCircle estimates the moon disk from limb edge points: an algebraic
// least-squares circle fit, re-run a few times with outlier trimming so
// a minority of stray points surviving suppression can't drag the disk.
// Fails with ErrDegenerateFit when the point set can't support a circle
// (collinear, coincident) or the fit radius comes out non-positive.
func FitCircle(edges []EdgePixel) (Circle, error) {
	if degenerateEdgeSet(edges) {
		return Circle{}, ErrDegenerateFit
	}

	weights := make([]float64, len(edges))
	for i := range weights {
		weights[i] = 1
	}

	var c Circle
	var err error
	for pass := 0; pass < 3; pass++ {
		c, err = fitCircleWeighted(edges, weights)
		if err != nil {
			return Circle{}, err
		}

		// Trim points whose radial residual is way off the consensus
		resid := make([]float64, len(edges))
		abs := make([]float64, 0, len(edges))
		for i, e := range edges {
			d := math.Hypot(float64(e.X)-c.X, float64(e.Y)-c.Y)
			resid[i] = d - c.Radius
			if weights[i] > 0 {
				abs = append(abs, math.Abs(resid[i]))
			}
		}
		sort.Float64s(abs)
		scale := 1.4826 * abs[len(abs)/2]
		if scale < 1e-6 {
			break // already a clean consensus
		}
		kept := 0
		for i := range edges {
			if math.Abs(resid[i]) <= 3*scale {
				weights[i] = 1
				kept++
			} else {
				weights[i] = 0
			}
		}
		if kept < 3 {
			return Circle{}, ErrDegenerateFit
		}
	}

	return c, nil
}

// fitCircleWeighted solves the algebraic form x^2+y^2 = 2ax + 2by + c
// as a linear least squares problem in (a, b, c).
func fitCircleWeighted(edges []EdgePixel, weights []float64) (Circle, error) {
	n := 0
	for _, w := range weights {
		if w > 0 {
			n++
		}
	}
	if n < 3 {
		return Circle{}, ErrDegenerateFit
	}

	A := mat.NewDense(n, 3, nil)
	b := mat.NewVecDense(n, nil)
	row := 0
	for i, e := range edges {
		if weights[i] <= 0 {
			continue
		}
		sw := math.Sqrt(weights[i])
		x, y := float64(e.X), float64(e.Y)
		A.Set(row, 0, sw*2*x)
		A.Set(row, 1, sw*2*y)
		A.Set(row, 2, sw*1)
		b.SetVec(row, sw*(x*x+y*y))
		row++
	}

	var sol mat.VecDense
	if err := sol.SolveVec(A, b); err != nil {
		return Circle{}, ErrDegenerateFit
	}

	cx, cy, cc := sol.AtVec(0), sol.AtVec(1), sol.AtVec(2)
	r2 := cc + cx*cx + cy*cy
	if r2 <= 0 || math.IsNaN(r2) {
		return Circle{}, ErrDegenerateFit
	}
	return Circle{X: cx, Y: cy, Radius: math.Sqrt(r2)}, nil
}

// DetectMoon runs the full per-frame moon pipeline: edge extraction
// followed by the robust circle fit.
func DetectMoon(cfg Config, f *Frame) (Circle, error) {
	edges, err := ExtractEdges(cfg, f)
	if err != nil {
		return Circle{}, err
	}
	c, err := FitCircle(edges)
	if err != nil {
		return Circle{}, err
	}
	if cfg.Verbosity > 0 {
		if err := writeLimbOverlay(f, edges, c); err != nil {
			cfg.Log.Warn().Err(err).Str("frame", f.Name()).Msg("limb overlay dump failed")
		}
	}
	return c, nil
}
