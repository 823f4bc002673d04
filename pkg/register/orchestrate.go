package register

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// A FrameFailure records a frame that had to be excluded from the run,
// and why.
type FrameFailure struct {
	Frame *Frame
	Stage string
	Err   error
}

func (ff FrameFailure) String() string {
	return fmt.Sprintf("%s: failed during %s: %v", ff.Frame.Name(), ff.Stage, ff.Err)
}

// A RunReport aggregates per-frame outcomes so the caller can present
// warnings and skips without digging through logs.
type RunReport struct {
	Registered   int
	Failures     []FrameFailure
	NonConverged []string // frames whose sun optimization hit max_iter
}

// Run is the registration engine's entry point. It sequences four
// stages over the frame set:
//
//  1. moon detection + circle fit for every frame, in parallel
//  2. anchor resolution (corona filtering + sun optimization), a
//     barrier: interpolation needs the complete AnchorSet
//  3. temporal interpolation for every non-anchor frame, in parallel
//  4. per-frame RegistrationRecord assembly
//
// Frame-local failures exclude that frame and are reported in the
// RunReport; they never abort the siblings. A failure on the reference
// frame itself, or an empty anchor configuration, aborts the whole run.
func Run(ctx context.Context, cfg Config, frames []*Frame) ([]RegistrationRecord, RunReport, error) {
	report := RunReport{}

	if err := cfg.Validate(); err != nil {
		return nil, report, err
	}
	if len(cfg.AnchorFilenames) == 0 {
		return nil, report, ErrNoAnchorsConfigured
	}
	if err := assignRoles(cfg, frames); err != nil {
		return nil, report, err
	}

	// Stage 1: moon registration, every frame independently
	regs, failures := detectMoonAll(ctx, cfg, frames)
	report.Failures = append(report.Failures, failures...)

	var ref *moonRegistration
	for i := range regs {
		if regs[i].frame.Role == RoleReference {
			ref = &regs[i]
		}
	}
	if ref == nil {
		for _, ff := range failures {
			if ff.Frame.Role == RoleReference {
				return nil, report, fmt.Errorf("%w: %s: %v", ErrMissingReferenceRegistration, ff.Frame.Name(), ff.Err)
			}
		}
		return nil, report, ErrMissingReferenceRegistration
	}

	// Moon transforms are relative to the reference disk
	for i := range regs {
		regs[i].moon = AlignMoon(regs[i].circle, ref.circle)
	}
	// ...which makes the reference's own transform identity by construction
	ref.moon = IdentityTransform()

	// Stage 2: resolve the anchor basis. Barrier before stage 3.
	anchors := []moonRegistration{}
	for _, r := range regs {
		if r.frame.Role == RoleAnchor {
			anchors = append(anchors, r)
		}
	}
	anchorSet, err := ResolveAnchors(ctx, cfg, *ref, anchors)
	if err != nil {
		return nil, report, err
	}
	cfg.Log.Info().
		Int("anchors", len(anchorSet)).
		Float64("rotation_spread_deg", anchorSet.rotationSpread()*180/math.Pi).
		Msg("anchor set resolved")

	// Stages 3+4: interpolate the rest and assemble records
	records := make([]RegistrationRecord, 0, len(regs))
	byFrame := map[*Frame]Anchor{}
	for _, a := range anchorSet {
		byFrame[a.Frame] = a
	}

	var mu sync.Mutex
	forEachParallel(cfg.Workers, regs, func(reg moonRegistration) {
		rec := RegistrationRecord{
			Frame:     reg.frame,
			MoonAlign: reg.moon,
		}
		if a, isAnchor := byFrame[reg.frame]; isAnchor {
			rec.SunAlign = a.Sun
			rec.NonConverged = a.NonConverged
		} else {
			rec.SunAlign = anchorSet.InterpolateSun(reg.frame.Taken, reg.moon)
		}
		mu.Lock()
		records = append(records, rec)
		mu.Unlock()
	})

	sort.Slice(records, func(i, j int) bool {
		return records[i].Frame.Taken.Before(records[j].Frame.Taken)
	})

	for _, rec := range records {
		if rec.NonConverged {
			report.NonConverged = append(report.NonConverged, rec.Frame.Name())
		}
	}
	report.Registered = len(records)

	cfg.Log.Info().
		Int("registered", report.Registered).
		Int("failed", len(report.Failures)).
		Int("non_converged", len(report.NonConverged)).
		Msg("registration run complete")
	return records, report, nil
}

// assignRoles tags each frame from the config's filename lists.
func assignRoles(cfg Config, frames []*Frame) error {
	byName := map[string]*Frame{}
	for _, f := range frames {
		f.Role = RoleOrdinary
		byName[f.Name()] = f
	}

	ref, exists := byName[cfg.RefFilename]
	if !exists {
		return fmt.Errorf("ref_filename %q matches no loaded frame", cfg.RefFilename)
	}
	ref.Role = RoleReference

	for _, name := range cfg.AnchorFilenames {
		a, exists := byName[name]
		if !exists {
			return fmt.Errorf("anchor filename %q matches no loaded frame", name)
		}
		if a == ref {
			return fmt.Errorf("frame %q cannot be both reference and anchor", name)
		}
		a.Role = RoleAnchor
	}
	return nil
}

// detectMoonAll fans stage 1 out over a worker pool; each frame only
// reads its own pixels, so there is no shared state to guard beyond
// the output slices.
func detectMoonAll(ctx context.Context, cfg Config, frames []*Frame) ([]moonRegistration, []FrameFailure) {
	type result struct {
		reg moonRegistration
		err error
	}

	results := make([]result, len(frames))
	jobs := make(chan int, len(frames))

	nWorkers := cfg.Workers
	if nWorkers < 1 {
		nWorkers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = result{err: ctx.Err()}
					continue
				}
				f := frames[idx]
				circle, err := DetectMoon(cfg, f)
				if err != nil {
					results[idx] = result{err: err}
					continue
				}
				cfg.Log.Info().Str("frame", f.Name()).Str("moon", circle.String()).Msg("moon detected")
				results[idx] = result{reg: moonRegistration{frame: f, circle: circle}}
			}
		}()
	}
	for idx := range frames {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	regs := []moonRegistration{}
	failures := []FrameFailure{}
	for idx, r := range results {
		if r.err != nil {
			cfg.Log.Error().Str("frame", frames[idx].Name()).Err(r.err).Msg("moon registration failed")
			failures = append(failures, FrameFailure{Frame: frames[idx], Stage: "moon registration", Err: r.err})
			continue
		}
		regs = append(regs, r.reg)
	}
	return regs, failures
}

// forEachParallel runs fn over items on a bounded worker pool.
func forEachParallel[T any](workers int, items []T, fn func(T)) {
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan T, len(items))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				fn(item)
			}
		}()
	}
	for _, item := range items {
		jobs <- item
	}
	close(jobs)
	wg.Wait()
}
