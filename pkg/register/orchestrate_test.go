package register

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestRunZeroAnchorsFailsBeforeFrameWork(t *testing.T) {
	cfg := testConfig(40)
	cfg.RefFilename = "ref.tif"
	cfg.AnchorFilenames = nil

	// nil frames: the guard has to fire before any frame is touched
	_, _, err := Run(context.Background(), cfg, nil)
	if !errors.Is(err, ErrNoAnchorsConfigured) {
		t.Fatalf("got %v, want ErrNoAnchorsConfigured", err)
	}
}

func TestRunReferenceFailureIsFatal(t *testing.T) {
	r := 40.0
	cfg := testConfig(r)
	cfg.RefFilename = "ref.tif"
	cfg.AnchorFilenames = []string{"anchor.tif"}

	frames := []*Frame{
		flatFrame("ref.tif", 160, 160, 0.5), // no limb to find
		syntheticFrame("anchor.tif", 160, 160, 80, 80, r, time.Unix(60, 0)),
	}
	_, _, err := Run(context.Background(), cfg, frames)
	if !errors.Is(err, ErrMissingReferenceRegistration) {
		t.Fatalf("got %v, want ErrMissingReferenceRegistration", err)
	}
}

func TestRunFrameLocalFailureDoesNotAbortSiblings(t *testing.T) {
	r := 40.0
	cfg := testConfig(r)
	cfg.RefFilename = "ref.tif"
	cfg.AnchorFilenames = []string{"anchor.tif"}

	frames := []*Frame{
		syntheticFrame("ref.tif", 160, 160, 80, 80, r, time.Unix(0, 0)),
		syntheticFrame("anchor.tif", 160, 160, 81, 80.5, r, time.Unix(120, 0)),
		flatFrame("broken.tif", 160, 160, 0.5),
	}
	frames[2].Taken = time.Unix(60, 0)

	records, report, err := Run(context.Background(), cfg, frames)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if len(report.Failures) != 1 || report.Failures[0].Frame.Name() != "broken.tif" {
		t.Fatalf("report failures: %+v", report.Failures)
	}
	if !errors.Is(report.Failures[0].Err, ErrInsufficientEdgeData) {
		t.Fatalf("failure cause: %v", report.Failures[0].Err)
	}
}

// The full pipeline over 1 reference + 1 anchor + 3 ordinary frames
// spanning t0 (reference) < t1 < t2 (anchor) < t3. The corona pattern
// is static across frames while the moon disk wanders, so the resolved
// sun transforms should stay near identity and the interpolated frames
// must blend exactly between the reference and the anchor.
func TestRunEndToEnd(t *testing.T) {
	r := 40.0
	cfg := testConfig(r)
	cfg.RefFilename = "ref.tif"
	cfg.AnchorFilenames = []string{"anchor.tif"}

	t0 := time.Unix(0, 0)
	t1 := time.Unix(60, 0)
	t2 := time.Unix(240, 0)
	t3 := time.Unix(300, 0)

	frames := []*Frame{
		syntheticFrame("ref.tif", 160, 160, 80, 80, r, t0),
		syntheticFrame("f1.tif", 160, 160, 80.5, 80.25, r, t1),
		syntheticFrame("f2.tif", 160, 160, 81, 80.5, r, t1.Add(30*time.Second)),
		syntheticFrame("anchor.tif", 160, 160, 82, 81, r, t2),
		syntheticFrame("f3.tif", 160, 160, 82.5, 81.25, r, t3),
	}

	records, report, err := Run(context.Background(), cfg, frames)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(records) != 5 || report.Registered != 5 {
		t.Fatalf("got %d records (report says %d), want 5", len(records), report.Registered)
	}

	byName := map[string]RegistrationRecord{}
	for _, rec := range records {
		byName[rec.Frame.Name()] = rec
	}
	for _, name := range []string{"ref.tif", "f1.tif", "f2.tif", "anchor.tif", "f3.tif"} {
		if _, exists := byName[name]; !exists {
			t.Fatalf("no record for %s", name)
		}
	}

	ref := byName["ref.tif"]
	if !ref.MoonAlign.IsIdentity() || !ref.SunAlign.IsIdentity() {
		t.Fatalf("reference transforms must be identity: moon%s sun%s", ref.MoonAlign, ref.SunAlign)
	}

	// the anchor's moon transform should track the disk offset we drew
	anchor := byName["anchor.tif"]
	if math.Abs(anchor.MoonAlign.Tx-(-2)) > 1.0 || math.Abs(anchor.MoonAlign.Ty-(-1)) > 1.0 {
		t.Fatalf("anchor moon transform off: %s, drew offset (2,1)", anchor.MoonAlign)
	}

	// the corona never moved, so the optimizer should land near identity
	if math.Abs(anchor.SunAlign.Tx) > 1.0 || math.Abs(anchor.SunAlign.Ty) > 1.0 {
		t.Fatalf("anchor sun translation should be near zero: %s", anchor.SunAlign)
	}
	if math.Abs(anchor.SunAlign.Theta) > 0.02 {
		t.Fatalf("anchor sun rotation should be near zero: %s", anchor.SunAlign)
	}

	// f1 sits at w = (t1-t0)/(t2-t0) = 0.25 between reference and anchor:
	// its rotation and offset must be that exact blend
	f1 := byName["f1.tif"]
	w := 0.25
	wantTheta := w * anchor.SunAlign.Theta
	if math.Abs(f1.SunAlign.Theta-wantTheta) > 1e-9 {
		t.Fatalf("f1 rotation %f, want %f (w=%0.2f of anchor's %f)",
			f1.SunAlign.Theta, wantTheta, w, anchor.SunAlign.Theta)
	}
	wantTx := f1.MoonAlign.Tx + w*(anchor.SunAlign.Tx-anchor.MoonAlign.Tx)
	wantTy := f1.MoonAlign.Ty + w*(anchor.SunAlign.Ty-anchor.MoonAlign.Ty)
	if math.Abs(f1.SunAlign.Tx-wantTx) > 1e-9 || math.Abs(f1.SunAlign.Ty-wantTy) > 1e-9 {
		t.Fatalf("f1 sun translation (%f,%f), want (%f,%f)", f1.SunAlign.Tx, f1.SunAlign.Ty, wantTx, wantTy)
	}

	// f3 is past the anchor: nearest-anchor constant mode
	f3 := byName["f3.tif"]
	if math.Abs(f3.SunAlign.Theta-anchor.SunAlign.Theta) > 1e-9 {
		t.Fatalf("f3 rotation %f, want the anchor's %f", f3.SunAlign.Theta, anchor.SunAlign.Theta)
	}
	wantTx = f3.MoonAlign.Tx + (anchor.SunAlign.Tx - anchor.MoonAlign.Tx)
	if math.Abs(f3.SunAlign.Tx-wantTx) > 1e-9 {
		t.Fatalf("f3 sun tx %f, want %f", f3.SunAlign.Tx, wantTx)
	}
}

func TestRunUnknownReferenceName(t *testing.T) {
	r := 40.0
	cfg := testConfig(r)
	cfg.RefFilename = "nope.tif"
	cfg.AnchorFilenames = []string{"anchor.tif"}

	frames := []*Frame{
		syntheticFrame("ref.tif", 160, 160, 80, 80, r, time.Unix(0, 0)),
		syntheticFrame("anchor.tif", 160, 160, 80, 80, r, time.Unix(60, 0)),
	}
	if _, _, err := Run(context.Background(), cfg, frames); err == nil {
		t.Fatalf("bogus ref_filename should fail the run")
	}
}
