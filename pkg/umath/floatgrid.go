package umath

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
)

// A FloatGrid is a grid of floats, with some operations. All the pixel
// work in the registration engine happens on these, not on image.Image;
// images get converted on the way in and out.
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

func (fg *FloatGrid) NewFromThis() FloatGrid  { return NewFloatGrid(fg.Dx(), fg.Dy()) }
func (fg *FloatGrid) Set(x, y int, v float64) { fg.values[fg.stride*y+x] = v }
func (fg *FloatGrid) Get(x, y int) float64    { return fg.values[fg.stride*y+x] }
func (fg *FloatGrid) Dx() int                 { return fg.stride }
func (fg *FloatGrid) Dy() int                 { return len(fg.values) / fg.stride }
func (fg *FloatGrid) Values() []float64       { return fg.values }

func (fg *FloatGrid) Copy() *FloatGrid {
	g2 := FloatGrid{stride: fg.stride, values: make([]float64, len(fg.values))}
	copy(g2.values, fg.values)
	return &g2
}

// Bilinear samples the grid at a fractional position. Positions outside
// the grid read as zero, which is what the registration warps want.
func (fg *FloatGrid) Bilinear(x, y float64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	fx := x - x0
	fy := y - y0

	at := func(ix, iy int) float64 {
		if ix < 0 || iy < 0 || ix >= fg.Dx() || iy >= fg.Dy() {
			return 0
		}
		return fg.Get(ix, iy)
	}

	ix, iy := int(x0), int(y0)
	v := at(ix, iy) * (1 - fx) * (1 - fy)
	v += at(ix+1, iy) * fx * (1 - fy)
	v += at(ix, iy+1) * (1 - fx) * fy
	v += at(ix+1, iy+1) * fx * fy
	return v
}

// WarpBy resamples the grid through `inv`, the matrix that maps an
// output pixel location back to its source location.
func (fg *FloatGrid) WarpBy(inv Aff3) FloatGrid {
	g2 := fg.NewFromThis()
	for y := 0; y < fg.Dy(); y++ {
		for x := 0; x < fg.Dx(); x++ {
			sx, sy := inv.Apply(float64(x), float64(y))
			g2.Set(x, y, fg.Bilinear(sx, sy))
		}
	}
	return g2
}

func gaussKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	if radius < 1 {
		radius = 1
	}
	k := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range k {
		d := float64(i - radius)
		k[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// GaussianBlur does a separable blur with the given sigma, clamping at
// the grid edges.
func (fg *FloatGrid) GaussianBlur(sigma float64) FloatGrid {
	k := gaussKernel(sigma)
	radius := len(k) / 2
	width, height := fg.Dx(), fg.Dy()

	clamp := func(v, max int) int {
		if v < 0 {
			return 0
		}
		if v >= max {
			return max - 1
		}
		return v
	}

	// X pass, build up in T
	T := fg.NewFromThis()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			t := 0.0
			for i, kv := range k {
				t += kv * fg.Get(clamp(x+i-radius, width), y)
			}
			T.Set(x, y, t)
		}
	}

	// Y pass, read from T and generate output
	g2 := fg.NewFromThis()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			t := 0.0
			for i, kv := range k {
				t += kv * T.Get(x, clamp(y+i-radius, height))
			}
			g2.Set(x, y, t)
		}
	}
	return g2
}

// BlurXWrap blurs along the x axis only, wrapping around at the ends.
// Used on polar grids, where x is the angular axis and wrapping is the
// 0/360 degree seam.
func (fg *FloatGrid) BlurXWrap(sigma float64) FloatGrid {
	k := gaussKernel(sigma)
	radius := len(k) / 2
	width, height := fg.Dx(), fg.Dy()

	g2 := fg.NewFromThis()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			t := 0.0
			for i, kv := range k {
				ix := (x + i - radius) % width
				if ix < 0 {
					ix += width
				}
				t += kv * fg.Get(ix, y)
			}
			g2.Set(x, y, t)
		}
	}
	return g2
}

// GradientMagnitude returns a same-sized grid of local gradient
// magnitudes, computed from central differences.
func (fg *FloatGrid) GradientMagnitude() FloatGrid {
	G := fg.NewFromThis()
	width, height := fg.Dx(), fg.Dy()

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			w, e, n, s := x-1, x+1, y-1, y+1
			if x == 0 {
				w = 0
			}
			if x == width-1 {
				e = x
			}
			if y == 0 {
				n = 0
			}
			if y == height-1 {
				s = y
			}
			gx := (fg.Get(e, y) - fg.Get(w, y)) / 2.0
			gy := (fg.Get(x, s) - fg.Get(x, n)) / 2.0
			G.Set(x, y, math.Sqrt(gx*gx+gy*gy))
		}
	}
	return G
}

// Polar resamples the grid into polar coordinates about (cx,cy). The
// output has thetaBins columns (x axis = angle, full turn) and rBins
// rows (y axis = radius, rMax at the last row).
func (fg *FloatGrid) Polar(cx, cy, rMax float64, thetaBins, rBins int) FloatGrid {
	p := NewFloatGrid(thetaBins, rBins)
	for r := 0; r < rBins; r++ {
		rho := float64(r) * rMax / float64(rBins)
		for t := 0; t < thetaBins; t++ {
			theta := 2 * math.Pi * float64(t) / float64(thetaBins)
			x := cx + rho*math.Cos(theta)
			y := cy + rho*math.Sin(theta)
			p.Set(t, r, fg.Bilinear(x, y))
		}
	}
	return p
}

// Unpolar maps a polar grid back into a w x h cartesian grid about
// (cx,cy), the inverse of Polar. The angular axis wraps.
func (fg *FloatGrid) Unpolar(cx, cy, rMax float64, w, h int) FloatGrid {
	thetaBins, rBins := fg.Dx(), fg.Dy()
	g2 := NewFloatGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			rho := math.Hypot(dx, dy)
			if rho >= rMax {
				continue
			}
			theta := math.Atan2(dy, dx)
			if theta < 0 {
				theta += 2 * math.Pi
			}
			tf := theta / (2 * math.Pi) * float64(thetaBins)
			rf := rho / rMax * float64(rBins)
			g2.Set(x, y, fg.bilinearWrapX(tf, rf))
		}
	}
	return g2
}

func (fg *FloatGrid) bilinearWrapX(x, y float64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	fx := x - x0
	fy := y - y0

	at := func(ix, iy int) float64 {
		ix = ix % fg.Dx()
		if ix < 0 {
			ix += fg.Dx()
		}
		if iy < 0 || iy >= fg.Dy() {
			return 0
		}
		return fg.Get(ix, iy)
	}

	ix, iy := int(x0), int(y0)
	v := at(ix, iy) * (1 - fx) * (1 - fy)
	v += at(ix+1, iy) * fx * (1 - fy)
	v += at(ix, iy+1) * (1 - fx) * fy
	v += at(ix+1, iy+1) * fx * fy
	return v
}

func (fg *FloatGrid) Sub(other *FloatGrid) {
	for i := range fg.values {
		fg.values[i] -= other.values[i]
	}
}

func (fg *FloatGrid) ClipAbove(max float64) {
	for i := range fg.values {
		if fg.values[i] > max {
			fg.values[i] = max
		}
	}
}

func (fg *FloatGrid) Scale(f float64) {
	for i := range fg.values {
		fg.values[i] *= f
	}
}

func (fg *FloatGrid) Mean() float64 {
	sum := 0.0
	for _, v := range fg.values {
		sum += v
	}
	return sum / float64(len(fg.values))
}

func (fg *FloatGrid) Std() float64 {
	mean := fg.Mean()
	sum := 0.0
	for _, v := range fg.values {
		sum += (v - mean) * (v - mean)
	}
	return math.Sqrt(sum / float64(len(fg.values)))
}

func (fg *FloatGrid) MinMax() (float64, float64) {
	min, max := math.MaxFloat64, -math.MaxFloat64
	for _, v := range fg.values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

func (fg *FloatGrid) Stats() string {
	min, max := fg.MinMax()
	return fmt.Sprintf("fg[%dx%d, vals{%f,%f}]", fg.Dx(), fg.Dy(), min, max)
}

// ToImg saves a simple grayscale, based on the range of values in the
// grid, with a title burned in. Debugging aid.
func (fg *FloatGrid) ToImg(title, filename string) error {
	min, max := fg.MinMax()
	span := max - min
	if span == 0 {
		span = 1
	}

	img := image.NewRGBA64(image.Rectangle{Max: image.Point{fg.Dx(), fg.Dy()}})
	for y := 0; y < fg.Dy(); y++ {
		for x := 0; x < fg.Dx(); x++ {
			gray := uint16((fg.Get(x, y) - min) / span * 65535.0)
			img.Set(x, y, color.RGBA64{gray, gray, gray, 0xFFFF})
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1, 1, 1)
	dc.DrawString(title, 50, 50)
	return dc.SavePNG(filename)
}
