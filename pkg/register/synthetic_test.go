package register

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"umbra/pkg/umath"
)

// Test fixtures: synthetic eclipse frames with a dark moon disk over a
// glowing corona. The corona gets a mild 6-fold angular modulation so
// the tangential filter has structure left to align on.

func syntheticFrame(name string, w, h int, cx, cy, r float64, taken time.Time) *Frame {
	g := umath.NewFloatGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			rho := math.Hypot(float64(x)-cx, float64(y)-cy)
			if rho <= r {
				continue // moon disk stays 0
			}
			theta := math.Atan2(float64(y)-cy, float64(x)-cx)
			glow := 0.7 * math.Exp(-(rho-r)/(0.5*r))
			v := glow * (1.0 + 0.3*math.Sin(6*theta))
			if v > 0.98 {
				v = 0.98
			}
			g.Set(x, y, v)
		}
	}
	return &Frame{
		Filename: name,
		Pixels:   g,
		Taken:    taken,
		GroupKey: "0.25000s_iso800",
	}
}

// testConfig sets image_scale so the plate-scale rough radius matches
// the synthetic disk radius.
func testConfig(r float64) Config {
	cfg := NewConfig()
	cfg.ImageScale = 0.279 * 3600.0 / r
	cfg.Workers = 2
	cfg.MaxIter = 60
	cfg.Log = zerolog.Nop()
	return cfg
}

func flatFrame(name string, w, h int, v float64) *Frame {
	g := umath.NewFloatGrid(w, h)
	for i := range g.Values() {
		g.Values()[i] = v
	}
	return &Frame{Filename: name, Pixels: g, Taken: time.Unix(0, 0)}
}
