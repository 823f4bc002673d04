// Package eio loads exposure files into the in-memory frames the
// registration engine works on. Only 16-bit grayscale-ish TIFFs are
// handled; anything fancier should be converted upstream.
package eio

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/tiff"

	"umbra/pkg/register"
	"umbra/pkg/umath"
)

// LoadDir loads every .tif in a directory, sorted by capture time.
func LoadDir(dir string) ([]*register.Frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("readdir %s: %w", dir, err)
	}

	frames := []*register.Frame{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".tif") {
			continue
		}
		f, err := LoadTIFF(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", entry.Name(), err)
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// LoadTIFF reads one exposure: pixel data from the TIFF, capture
// timestamp and exposure settings from the EXIF block. The exposure
// settings become the frame's group key, since the downstream stacker
// only ever combines frames shot with identical settings.
func LoadTIFF(filename string) (*register.Frame, error) {
	f := &register.Frame{Filename: filename}

	reader, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r exif %s: %w", filename, err)
	}
	ex, err := exif.Decode(reader)
	reader.Close()
	if err != nil {
		return nil, fmt.Errorf("exif parsing %s: %w", filename, err)
	}

	if f.Taken, err = ex.DateTime(); err != nil {
		return nil, fmt.Errorf("exif datetime %s: %w", filename, err)
	}

	var exposure string
	if tag, err := ex.Get(exif.ExposureTime); err != nil {
		return nil, fmt.Errorf("exif ExposureTime %s: %w", filename, err)
	} else if num, denom, err := tag.Rat2(0); err != nil {
		return nil, fmt.Errorf("exif ExposureTime %s: %w", filename, err)
	} else {
		exposure = fmt.Sprintf("%.5fs", float64(num)/float64(denom))
	}

	iso := int64(0)
	if tag, err := ex.Get(exif.ISOSpeedRatings); err == nil {
		iso, _ = tag.Int64(0)
	}
	f.GroupKey = fmt.Sprintf("%s_iso%d", exposure, iso)

	// Re-open the file, now for the image data
	reader, err = os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r img %s: %w", filename, err)
	}
	defer reader.Close()
	img, err := tiff.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("tiff loading %s: %w", filename, err)
	}
	f.Pixels = GridFromImage(img)

	return f, nil
}

// GridFromImage converts an image into the engine's float grid,
// grayscale in [0,1]. Color inputs collapse via the usual luma weights.
func GridFromImage(img image.Image) umath.FloatGrid {
	b := img.Bounds()
	g := umath.NewFloatGrid(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, gg, bb, _ := img.At(x, y).RGBA() // channel values in range [0, 0xFFFF]
			gray := float64(r)*0.2989 + float64(gg)*0.5870 + float64(bb)*0.1140
			if gray > 0xFFFF {
				gray = 0xFFFF
			}
			g.Set(x-b.Min.X, y-b.Min.Y, gray/65535.0)
		}
	}
	return g
}
