package register

import "errors"

// Frame-local failures: the offending frame is skipped and reported,
// processing of sibling frames carries on.
var (
	// ErrInsufficientEdgeData means too few (or degenerate) limb edge
	// points survived extraction to attempt a circle fit.
	ErrInsufficientEdgeData = errors.New("insufficient edge data for limb detection")

	// ErrDegenerateFit means the circle fit was numerically ill-posed
	// (collinear/coincident points, or a non-positive radius).
	ErrDegenerateFit = errors.New("degenerate circle fit")
)

// Run-fatal failures: the whole registration run aborts.
var (
	// ErrNoAnchorsConfigured means the config names no anchor frames, so
	// there is no basis for temporal interpolation. Checked before any
	// frame-level work begins.
	ErrNoAnchorsConfigured = errors.New("no anchor frames configured")

	// ErrNoUsableAnchors means anchors were configured but every one of
	// them failed registration at run time.
	ErrNoUsableAnchors = errors.New("no anchor frame could be registered")

	// ErrMissingReferenceRegistration means the reference frame itself
	// failed moon or sun alignment; with no target to align to, nothing
	// else can proceed.
	ErrMissingReferenceRegistration = errors.New("reference frame failed registration")
)
