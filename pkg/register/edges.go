package register

import (
	"math"
	"sort"

	"github.com/codahale/hdrhistogram"
)

// The clip annulus extends this far beyond the rough moon radius.
// Brightness varies around the limb, so the margin has to be large
// enough that a complete annulus gets clipped.
const clipAnnulusOuterMoonRadii = 1.3

// Candidate edge pixels are only considered in this radial band around
// the rough moon estimate.
const limbBandInner, limbBandOuter = 0.7, 1.3

// A roughDisk is the coarse moon estimate that seeds edge extraction:
// luminance centroid for the center, plate-scale radius. The precise
// disk comes out of FitCircle afterwards; this is only the bootstrap.
type roughDisk struct {
	cx, cy float64
	r      float64
}

// estimateRoughDisk finds the centre of mass of the image luminance,
// ignoring dim pixels (noise) and very bright pixels (they pull too far
// one direction) - what's left is hopefully the corona, whose centroid
// sits inside the moon disk.
func estimateRoughDisk(cfg Config, f *Frame) (roughDisk, error) {
	g := &f.Pixels
	sumX, sumY, n := 0.0, 0.0, 0
	for y := 0; y < g.Dy(); y++ {
		for x := 0; x < g.Dx(); x++ {
			v := g.Get(x, y)
			if v > 0.012 && v < 0.999 {
				sumX += float64(x)
				sumY += float64(y)
				n++
			}
		}
	}
	if n == 0 {
		return roughDisk{}, ErrInsufficientEdgeData
	}
	return roughDisk{
		cx: sumX / float64(n),
		cy: sumY / float64(n),
		r:  cfg.MoonRadiusPixels(),
	}, nil
}

// clipThreshold picks the pixel value above which roughly
// clipped_factor x annulus-area pixels sit, from a histogram of the
// whole frame. Clipping at that value saturates a band around the limb
// and makes the limb boundary sharp for the gradient pass.
func clipThreshold(cfg Config, f *Frame, rough roughDisk) float64 {
	g := &f.Pixels
	nPix := float64(g.Dx() * g.Dy())

	outer := math.Pi * (clipAnnulusOuterMoonRadii * rough.r) * (clipAnnulusOuterMoonRadii * rough.r)
	if outer > nPix {
		outer = nPix
	}
	annulusArea := outer - math.Pi*rough.r*rough.r
	clipCount := cfg.ClippedFactor * annulusArea
	if clipCount < 1 {
		clipCount = 1
	}

	hist := hdrhistogram.New(1, 65536, 3)
	for _, v := range g.Values() {
		hist.RecordValue(int64(v*65535.0) + 1)
	}

	q := 100.0 * (1.0 - clipCount/nPix)
	if q < 0 {
		q = 0
	}
	return float64(hist.ValueAtQuantile(q)-1) / 65535.0
}

// ExtractEdges finds candidate lunar limb points in a frame: clip the
// bright side, take a gradient map, keep the strongest K pixels in the
// expected limb band, then thin them with angular non-maximum
// suppression. K scales with edge_factor x the rough circumference.
func ExtractEdges(cfg Config, f *Frame) ([]EdgePixel, error) {
	rough, err := estimateRoughDisk(cfg, f)
	if err != nil {
		return nil, err
	}

	clipValue := clipThreshold(cfg, f, rough)
	if clipValue <= 0 {
		return nil, ErrInsufficientEdgeData
	}
	work := f.Pixels.Copy()
	work.ClipAbove(clipValue)
	work.Scale(1.0 / clipValue)

	smoothed := work.GaussianBlur(1.0)
	grad := smoothed.GradientMagnitude()

	// Gather candidates in the limb band
	edges := []EdgePixel{}
	for y := 0; y < grad.Dy(); y++ {
		for x := 0; x < grad.Dx(); x++ {
			rho := math.Hypot(float64(x)-rough.cx, float64(y)-rough.cy)
			if rho < limbBandInner*rough.r || rho > limbBandOuter*rough.r {
				continue
			}
			if s := grad.Get(x, y); s > 0 {
				edges = append(edges, EdgePixel{X: x, Y: y, Strength: s})
			}
		}
	}

	// Keep the K strongest
	k := int(cfg.EdgeFactor * 2 * math.Pi * rough.r)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Strength != edges[j].Strength {
			return edges[i].Strength > edges[j].Strength
		}
		return edges[i].Y*grad.Dx()+edges[i].X < edges[j].Y*grad.Dx()+edges[j].X
	})
	if len(edges) > k {
		edges = edges[:k]
	}

	edges = SuppressEdges(edges, rough.cx, rough.cy, int(2*math.Pi*rough.r))

	if degenerateEdgeSet(edges) {
		return nil, ErrInsufficientEdgeData
	}
	return edges, nil
}

// SuppressEdges does non-maximum suppression over angular position:
// pixels that sit at near-equal bearings from the rough center compete,
// and only the strongest survives. Idempotent: suppressing an already
// suppressed set changes nothing.
func SuppressEdges(edges []EdgePixel, cx, cy float64, bins int) []EdgePixel {
	if bins < 1 {
		bins = 1
	}
	best := map[int]EdgePixel{}
	for _, e := range edges {
		theta := math.Atan2(float64(e.Y)-cy, float64(e.X)-cx)
		if theta < 0 {
			theta += 2 * math.Pi
		}
		bin := int(theta / (2 * math.Pi) * float64(bins))
		if bin >= bins {
			bin = bins - 1
		}
		if prev, exists := best[bin]; !exists || e.Strength > prev.Strength {
			best[bin] = e
		}
	}

	keys := make([]int, 0, len(best))
	for bin := range best {
		keys = append(keys, bin)
	}
	sort.Ints(keys)

	out := make([]EdgePixel, 0, len(keys))
	for _, bin := range keys {
		out = append(out, best[bin])
	}
	return out
}

// degenerateEdgeSet reports whether the points cannot support a circle
// fit: fewer than 3, or all collinear.
func degenerateEdgeSet(edges []EdgePixel) bool {
	if len(edges) < 3 {
		return true
	}
	x0, y0 := float64(edges[0].X), float64(edges[0].Y)
	var dx, dy float64
	for _, e := range edges[1:] {
		dx, dy = float64(e.X)-x0, float64(e.Y)-y0
		if dx != 0 || dy != 0 {
			break
		}
	}
	if dx == 0 && dy == 0 {
		return true // all coincident
	}
	for _, e := range edges[1:] {
		cross := dx*(float64(e.Y)-y0) - dy*(float64(e.X)-x0)
		if math.Abs(cross) > 1e-9 {
			return false
		}
	}
	return true
}
