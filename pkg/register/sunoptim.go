package register

import (
	"context"
	"math"

	"umbra/pkg/umath"
)

// The optimizer works on a scaled parameter vector so a unit step in
// any component moves the image by a comparable amount: one unit of the
// angle parameter is pi/1800 radians (0.1 degree), one unit of either
// translation parameter is one pixel.
const thetaScale = 1800.0 / math.Pi

// Armijo line search constants, and the step magnitudes that bound the
// descent: start proposing moves of deltaInitial, stop once we can't
// move by more than deltaFinal.
const (
	armijoC      = 0.5
	deltaInitial = 0.1
	deltaFinal   = 1e-4
)

// A SunResult is the optimizer's outcome: the transform it settled on,
// and whether the convergence tolerance was met before max_iter ran
// out. A non-converged result is still usable, just flagged.
type SunResult struct {
	Transform  RigidTransform
	Converged  bool
	Iterations int
	Score      float64
}

// sunObjective scores a candidate transform by the half mean squared
// difference between the warped filtered target and the filtered
// reference. Caches the last evaluation, since the forward-difference
// gradient revisits the base point constantly.
type sunObjective struct {
	ref, img       *umath.FloatGrid
	pivotX, pivotY float64

	cachedX     [3]float64
	cachedValue float64
	cacheOK     bool
	evals       int
}

func (o *sunObjective) value(x [3]float64) float64 {
	if o.cacheOK && x == o.cachedX {
		return o.cachedValue
	}
	t := paramsToTransform(x)
	warped := t.WarpGrid(o.img, o.pivotX, o.pivotY)

	sum := 0.0
	vals := warped.Values()
	refVals := o.ref.Values()
	for i := range vals {
		d := vals[i] - refVals[i]
		sum += d * d
	}
	v := 0.5 * sum / float64(len(vals))

	o.cachedX, o.cachedValue, o.cacheOK = x, v, true
	o.evals++
	return v
}

func (o *sunObjective) grad(x [3]float64) [3]float64 {
	const perturbation = 0.01
	base := o.value(x)
	var g [3]float64
	for i := 0; i < 3; i++ {
		perturbed := x
		perturbed[i] += perturbation
		g[i] = (o.value(perturbed) - base) / perturbation
	}
	// restore the cache to the base point
	o.value(x)
	return g
}

func paramsToTransform(x [3]float64) RigidTransform {
	return RigidTransform{Theta: x[0] / thetaScale, Tx: x[1], Ty: x[2]}
}

func transformToParams(t RigidTransform) [3]float64 {
	return [3]float64{t.Theta * thetaScale, t.Tx, t.Ty}
}

// OptimizeSun iteratively refines the rigid transform aligning a
// filtered frame to the filtered reference, starting from `initial`
// (normally the frame's moon transform, which lands us in the right
// basin). Gradient descent with Armijo backtracking and an adaptive
// upper step bound; stops early once steps shrink below tolerance, or
// gives up (flagged, not failed) at max_iter. Checks ctx between
// iterations so a long loop can be interrupted.
func OptimizeSun(ctx context.Context, cfg Config, target, ref *umath.FloatGrid, initial RigidTransform) (SunResult, error) {
	obj := &sunObjective{
		ref:    ref,
		img:    target,
		pivotX: float64(ref.Dx()) / 2,
		pivotY: float64(ref.Dy()) / 2,
	}

	x := transformToParams(initial)
	f := obj.value(x)
	g := obj.grad(x)

	gMax := maxAbs(g)
	if gMax == 0 {
		// Flat gradient at the initial guess: nothing to improve
		return SunResult{Transform: initial, Converged: true, Score: f}, nil
	}
	alphaMax := deltaInitial / gMax

	res := SunResult{}
	for iter := 0; iter < cfg.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			res.Transform = paramsToTransform(x)
			res.Iterations = iter
			res.Score = f
			return res, err
		}

		// Armijo backtracking: halve alpha until we see sufficient decrease
		alpha := alphaMax
		gDotG := g[0]*g[0] + g[1]*g[1] + g[2]*g[2]
		var fNext float64
		for {
			fNext = obj.value(step(x, g, alpha))
			if fNext <= f-armijoC*alpha*gDotG {
				break
			}
			alpha /= 2
			if alpha <= 1e-10 {
				// gradient is wrong, or its magnitude is way too high
				alpha = 0
				fNext = f
				break
			}
		}

		converged := alpha*maxAbs(g) <= deltaFinal && alpha != alphaMax

		x = step(x, g, alpha)
		f = fNext
		g = obj.grad(x)

		if alpha == alphaMax {
			alphaMax *= 2
		} else {
			alphaMax /= 2
		}

		cfg.Log.Debug().
			Int("iter", iter).
			Float64("value", f).
			Float64("theta_deg", x[0]/thetaScale*180/math.Pi).
			Float64("tx", x[1]).
			Float64("ty", x[2]).
			Msg("sun optimizer step")

		if converged {
			res.Iterations = iter + 1
			res.Converged = true
			break
		}
		res.Iterations = iter + 1
	}

	res.Transform = paramsToTransform(x)
	res.Transform.Theta = umath.WrapAngle(res.Transform.Theta)
	res.Score = f
	return res, nil
}

func step(x, g [3]float64, alpha float64) [3]float64 {
	return [3]float64{x[0] - alpha*g[0], x[1] - alpha*g[1], x[2] - alpha*g[2]}
}

func maxAbs(g [3]float64) float64 {
	m := math.Abs(g[0])
	if v := math.Abs(g[1]); v > m {
		m = v
	}
	if v := math.Abs(g[2]); v > m {
		m = v
	}
	return m
}
