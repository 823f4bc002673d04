package register

import (
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

// Config holds the recognized registration options. The numeric
// defaults come from the values that worked for the 2024-04-08 dataset;
// override per-run via YAML or flags.
type Config struct {
	// RefFilename selects the reference frame; everything is aligned to it.
	RefFilename string `yaml:"ref_filename"`

	// AnchorFilenames selects the frames that get explicitly
	// sun-registered; all others are interpolated between them.
	AnchorFilenames []string `yaml:"anchor_filenames"`

	// ClippedFactor scales how many bright pixels get clipped before
	// limb edge detection, in units of the moon-border annulus area.
	ClippedFactor float64 `yaml:"clipped_factor"`

	// EdgeFactor scales how many candidate edge pixels are retained, in
	// units of the rough moon circumference.
	EdgeFactor float64 `yaml:"edge_factor"`

	// SigmaHighpassTangential is the angular sigma, in degrees, of the
	// tangential high-pass used to bring out coronal structure.
	SigmaHighpassTangential float64 `yaml:"sigma_highpass_tangential"`

	// MaxIter caps the sun optimizer's descent loop.
	MaxIter int `yaml:"max_iter"`

	// ImageScale is the plate scale in arcsec/pixel; it keeps
	// pixel-to-angle conversions consistent across the engine.
	ImageScale float64 `yaml:"image_scale"`

	Verbosity int `yaml:"verbosity"`
	Workers   int `yaml:"workers"`

	Log zerolog.Logger `yaml:"-"`
}

func NewConfig() Config {
	return Config{
		ClippedFactor:           0.3,
		EdgeFactor:              1.0,
		SigmaHighpassTangential: 10.0,
		MaxIter:                 100,
		ImageScale:              2.5,
		Workers:                 runtime.NumCPU(),
		Log:                     zerolog.Nop(),
	}
}

func NewConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("config yaml: %w", err)
	}
	return c, c.Validate()
}

func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config marshal failed: %v", err)
	}
	return string(b)
}

func (c Config) Validate() error {
	switch {
	case c.RefFilename == "":
		return fmt.Errorf("ref_filename must be set")
	case c.ClippedFactor < 0:
		return fmt.Errorf("clipped_factor must be >= 0, got %f", c.ClippedFactor)
	case c.EdgeFactor <= 0:
		return fmt.Errorf("edge_factor must be > 0, got %f", c.EdgeFactor)
	case c.SigmaHighpassTangential <= 0:
		return fmt.Errorf("sigma_highpass_tangential must be > 0, got %f", c.SigmaHighpassTangential)
	case c.MaxIter <= 0:
		return fmt.Errorf("max_iter must be > 0, got %d", c.MaxIter)
	case c.ImageScale <= 0:
		return fmt.Errorf("image_scale must be > 0, got %f", c.ImageScale)
	}
	return nil
}

// MoonRadiusPixels is the rough lunar radius implied by the plate
// scale: 0.279 degrees of apparent radius, converted to pixels. The
// precise radius comes out of the circle fit; this one only seeds the
// edge extractor.
func (c Config) MoonRadiusPixels() float64 {
	return 0.279 * 3600.0 / c.ImageScale
}
