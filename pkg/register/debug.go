package register

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

// writeLimbOverlay dumps a PNG of the frame with the surviving edge
// points and the fitted circle drawn over it, one file per frame.
// Only runs at verbosity > 0.
func writeLimbOverlay(f *Frame, edges []EdgePixel, c Circle) error {
	g := &f.Pixels
	img := image.NewRGBA(image.Rect(0, 0, g.Dx(), g.Dy()))
	for y := 0; y < g.Dy(); y++ {
		for x := 0; x < g.Dx(); x++ {
			v := uint8(g.Get(x, y) * 255.0)
			img.Set(x, y, color.RGBA{v, v, v, 0xff})
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(0, 0.8, 0)
	for _, e := range edges {
		dc.DrawPoint(float64(e.X), float64(e.Y), 1)
		dc.Fill()
	}
	dc.SetRGB(0.9, 0.2, 0.2)
	dc.SetLineWidth(1)
	dc.DrawCircle(c.X, c.Y, c.Radius)
	dc.Stroke()
	dc.DrawString(fmt.Sprintf("%s %s", f.Name(), c), 50, 50)

	return dc.SavePNG(fmt.Sprintf("limb-%s.png", f.Name()))
}
