package register

import (
	"time"

	"umbra/pkg/umath"
)

// InterpolateSun derives a sun transform for a frame that was never
// explicitly sun-registered. The frame's own moon transform supplies
// the geometric anchor; what gets interpolated over time is (a) the
// moon-to-sun translation offset and (b) the rotation angle, both
// blended linearly between the bracketing anchors (rotation along the
// shortest arc). Outside the anchor span the nearest anchor applies
// as a constant; with a single anchor its offset and rotation apply
// uniformly, a degraded but supported mode. The result is strictly an
// estimate -- no convergence concept applies.
func (as AnchorSet) InterpolateSun(taken time.Time, moon RigidTransform) RigidTransform {
	lo, hi := as.bracket(taken)

	var offX, offY, theta float64
	if lo == hi {
		offX, offY = as[lo].sunOffset()
		theta = as[lo].Sun.Theta
	} else {
		span := as[hi].Taken.Sub(as[lo].Taken).Seconds()
		w := taken.Sub(as[lo].Taken).Seconds() / span

		loX, loY := as[lo].sunOffset()
		hiX, hiY := as[hi].sunOffset()
		offX = umath.Lerp(loX, hiX, w)
		offY = umath.Lerp(loY, hiY, w)
		theta = umath.LerpAngle(as[lo].Sun.Theta, as[hi].Sun.Theta, w)
	}

	return RigidTransform{
		Theta: theta,
		Tx:    moon.Tx + offX,
		Ty:    moon.Ty + offY,
	}
}

// bracket finds the pair of anchors whose timestamps surround `taken`.
// Both indices are equal when the target falls outside the anchor span
// (nearest-anchor constant mode) or there is only one basis point.
func (as AnchorSet) bracket(taken time.Time) (int, int) {
	if len(as) == 1 || !taken.After(as[0].Taken) {
		return 0, 0
	}
	last := len(as) - 1
	if !taken.Before(as[last].Taken) {
		return last, last
	}
	for i := 1; i <= last; i++ {
		if !as[i].Taken.Before(taken) {
			return i - 1, i
		}
	}
	return last, last
}
