package register

import (
	"fmt"
	"path/filepath"
	"time"

	"umbra/pkg/umath"
)

type Role int

const (
	RoleOrdinary Role = iota
	RoleReference
	RoleAnchor
)

func (r Role) String() string {
	switch r {
	case RoleReference:
		return "reference"
	case RoleAnchor:
		return "anchor"
	default:
		return "ordinary"
	}
}

// A Frame holds one calibrated grayscale exposure, with the metadata
// the registration engine needs. Pixel data is immutable once loaded;
// the engine only ever derives transforms from it.
type Frame struct {
	Filename string
	Pixels   umath.FloatGrid // grayscale samples, [0,1]
	Taken    time.Time
	GroupKey string // exposure settings, e.g. "0.25000s_iso800"
	Role     Role
}

func (f *Frame) Name() string {
	return filepath.Base(f.Filename)
}

func (f *Frame) String() string {
	return fmt.Sprintf("%s: %dx%d, %s, group %s, taken %s",
		f.Name(), f.Pixels.Dx(), f.Pixels.Dy(), f.Role, f.GroupKey,
		f.Taken.Format(time.RFC3339))
}

// An EdgePixel is a candidate lunar limb point, with the gradient
// strength used for ranking and suppression.
type EdgePixel struct {
	X, Y     int
	Strength float64
}

// A Circle is the best-fit lunar disk for one frame, at sub-pixel
// precision.
type Circle struct {
	X, Y   float64
	Radius float64
}

func (c Circle) String() string {
	return fmt.Sprintf("circle[(%.2f,%.2f) r=%.2f]", c.X, c.Y, c.Radius)
}

// A RegistrationRecord is the engine's per-frame output: the two
// transforms, plus the metadata the downstream stacker groups by.
// Built once by the orchestrator, never mutated afterwards.
type RegistrationRecord struct {
	Frame        *Frame
	MoonAlign    RigidTransform
	SunAlign     RigidTransform
	NonConverged bool // sun optimizer hit max_iter (anchors only)
}
