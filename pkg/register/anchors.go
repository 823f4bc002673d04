package register

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"umbra/pkg/umath"
)

// An Anchor is a frame that has been explicitly sun-registered: the
// reference itself (sun transform = identity, it is the alignment
// target) plus each configured anchor frame with its optimizer result.
// Anchors are the time-indexed basis points the interpolator blends
// between.
type Anchor struct {
	Frame        *Frame
	Taken        time.Time
	Moon         RigidTransform
	Sun          RigidTransform
	NonConverged bool
}

// An AnchorSet is ordered by timestamp. Built once per run, read-only
// afterwards.
type AnchorSet []Anchor

// moonRegistration is what stage 1 produces per frame.
type moonRegistration struct {
	frame  *Frame
	circle Circle
	moon   RigidTransform
}

// ResolveAnchors runs the corona filter + sun optimizer for the
// reference and every anchor frame, in parallel across anchors. The
// clipping value is shared: the minimum over all participating frames,
// so every filtered image is leveled the same way.
func ResolveAnchors(ctx context.Context, cfg Config, ref moonRegistration, anchors []moonRegistration) (AnchorSet, error) {
	clippingValue := MoonClippingValue(ref.frame, ref.circle)
	for _, a := range anchors {
		if v := MoonClippingValue(a.frame, a.circle); v < clippingValue {
			clippingValue = v
		}
	}
	cfg.Log.Debug().Float64("clipping_value", clippingValue).Msg("shared corona clipping value")

	refFiltered := FilterCorona(cfg, ref.frame, ref.circle, clippingValue)

	type anchorJob struct {
		reg moonRegistration
		res SunResult
		err error
	}

	jobsChan := make(chan moonRegistration, len(anchors))
	resultsChan := make(chan anchorJob, len(anchors))

	nWorkers := cfg.Workers
	if nWorkers < 1 {
		nWorkers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for reg := range jobsChan {
				filtered := FilterCorona(cfg, reg.frame, reg.circle, clippingValue)
				res, err := OptimizeSun(ctx, cfg, &filtered, &refFiltered, reg.moon)
				resultsChan <- anchorJob{reg: reg, res: res, err: err}
			}
		}()
	}

	for _, a := range anchors {
		jobsChan <- a
	}
	close(jobsChan)
	wg.Wait()
	close(resultsChan)

	set := AnchorSet{{
		Frame: ref.frame,
		Taken: ref.frame.Taken,
		Moon:  ref.moon,
		Sun:   IdentityTransform(),
	}}
	for job := range resultsChan {
		if job.err != nil {
			return nil, job.err // context cancellation, not a frame problem
		}
		a := Anchor{
			Frame:        job.reg.frame,
			Taken:        job.reg.frame.Taken,
			Moon:         job.reg.moon,
			Sun:          job.res.Transform,
			NonConverged: !job.res.Converged,
		}
		if a.NonConverged {
			cfg.Log.Warn().
				Str("frame", a.Frame.Name()).
				Int("iterations", job.res.Iterations).
				Msg("sun optimizer hit max_iter without converging")
		} else {
			cfg.Log.Info().
				Str("frame", a.Frame.Name()).
				Int("iterations", job.res.Iterations).
				Str("xform", a.Sun.String()).
				Msg("anchor sun-registered")
		}
		set = append(set, a)
	}

	if len(set) < 2 { // only the reference made it
		return nil, ErrNoUsableAnchors
	}

	sort.Slice(set, func(i, j int) bool { return set[i].Taken.Before(set[j].Taken) })
	return set, nil
}

// sunOffset is the moon-to-sun translation residual an anchor measured:
// how far the sun transform's translation departs from the frame's own
// moon transform. It varies smoothly over the eclipse, which is what
// makes it interpolable.
func (a Anchor) sunOffset() (float64, float64) {
	return a.Sun.Tx - a.Moon.Tx, a.Sun.Ty - a.Moon.Ty
}

// rotationSpread reports the largest rotation gap between consecutive
// anchors, a useful sanity signal for logs.
func (as AnchorSet) rotationSpread() float64 {
	spread := 0.0
	for i := 1; i < len(as); i++ {
		d := math.Abs(umath.WrapAngle(as[i].Sun.Theta - as[i-1].Sun.Theta))
		if d > spread {
			spread = d
		}
	}
	return spread
}
