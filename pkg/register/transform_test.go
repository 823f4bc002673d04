package register

import (
	"math"
	"testing"
)

func transformsClose(a, b RigidTransform, tol float64) bool {
	return math.Abs(a.Theta-b.Theta) < tol &&
		math.Abs(a.Tx-b.Tx) < tol &&
		math.Abs(a.Ty-b.Ty) < tol
}

func TestComposeWithInverseYieldsIdentity(t *testing.T) {
	xf := RigidTransform{Theta: 0.15, Tx: 12.5, Ty: -7.25}
	id := xf.Compose(xf.Invert())
	if !transformsClose(id, IdentityTransform(), 1e-9) {
		t.Fatalf("compose with inverse: got %s, want identity", id)
	}
	id = xf.Invert().Compose(xf)
	if !transformsClose(id, IdentityTransform(), 1e-9) {
		t.Fatalf("inverse compose: got %s, want identity", id)
	}
}

func TestComposeMatchesMatrixProduct(t *testing.T) {
	t1 := RigidTransform{Theta: 0.1, Tx: 3, Ty: -2}
	t2 := RigidTransform{Theta: -0.25, Tx: -1, Ty: 4}
	pivotX, pivotY := 50.0, 40.0

	composed := t1.Compose(t2)
	x, y := 17.0, 23.0

	// apply t1 then t2, pointwise
	mx, my := t1.Apply(pivotX, pivotY, x, y)
	mx, my = t2.Apply(pivotX, pivotY, mx, my)

	cx, cy := composed.Apply(pivotX, pivotY, x, y)
	if math.Abs(cx-mx) > 1e-9 || math.Abs(cy-my) > 1e-9 {
		t.Fatalf("compose mismatch: pointwise (%f,%f), composed (%f,%f)", mx, my, cx, cy)
	}
}

func TestMoonAlignerRoundTrip(t *testing.T) {
	target := Circle{X: 104.5, Y: 98.25, Radius: 50}
	reference := Circle{X: 100, Y: 101, Radius: 50}

	xf := AlignMoon(target, reference)
	if xf.Theta != 0 {
		t.Fatalf("moon transform must carry zero rotation, got %f", xf.Theta)
	}

	back := AlignMoon(reference, target)
	if !transformsClose(xf.Compose(back), IdentityTransform(), 1e-12) {
		t.Fatalf("moon align round trip not identity: %s", xf.Compose(back))
	}

	// the transform actually moves the target center onto the reference
	x, y := xf.Apply(0, 0, target.X, target.Y)
	if math.Abs(x-reference.X) > 1e-12 || math.Abs(y-reference.Y) > 1e-12 {
		t.Fatalf("center mapped to (%f,%f), want (%f,%f)", x, y, reference.X, reference.Y)
	}
}

func TestTranslationOnlyApplyIgnoresPivot(t *testing.T) {
	xf := RigidTransform{Tx: 5, Ty: -3}
	x1, y1 := xf.Apply(0, 0, 10, 10)
	x2, y2 := xf.Apply(999, -50, 10, 10)
	if x1 != x2 || y1 != y2 {
		t.Fatalf("pivot leaked into a pure translation: (%f,%f) vs (%f,%f)", x1, y1, x2, y2)
	}
}
