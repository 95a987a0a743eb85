package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestRodriguesRoundTrip(t *testing.T) {
	for _, v := range []r3.Vector{
		{},
		{X: 0.1},
		{X: 0.3, Y: -0.2, Z: 0.9},
		{X: -1.2, Y: 0.4, Z: 0.05},
		{Z: math.Pi - 1e-3},
	} {
		rm := RodriguesToRotationMatrix(v)
		back := RotationMatrixToRodrigues(rm)
		test.That(t, back.X, test.ShouldAlmostEqual, v.X, 1e-9)
		test.That(t, back.Y, test.ShouldAlmostEqual, v.Y, 1e-9)
		test.That(t, back.Z, test.ShouldAlmostEqual, v.Z, 1e-9)
	}
}

func TestRotationAboutZ(t *testing.T) {
	rm := RodriguesToRotationMatrix(r3.Vector{Z: math.Pi / 2})
	out := rm.MulVec(r3.Vector{X: 1})
	test.That(t, out.X, test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, out.Y, test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, out.Z, test.ShouldAlmostEqual, 0, 1e-12)
}

func TestPoseComposeInvert(t *testing.T) {
	a := NewPoseFromRodrigues(r3.Vector{X: 0.2, Y: -0.1, Z: 0.4}, r3.Vector{X: 1, Y: 2, Z: 3})
	b := NewPoseFromRodrigues(r3.Vector{X: -0.5, Z: 0.1}, r3.Vector{X: -0.3, Y: 0.2, Z: 0.7})
	pt := r3.Vector{X: 0.5, Y: -0.25, Z: 2}

	ab := Compose(a, b)
	expected := a.Transform(b.Transform(pt))
	got := ab.Transform(pt)
	test.That(t, got.Sub(expected).Norm(), test.ShouldBeLessThan, 1e-12)

	ident := Compose(ab, ab.Invert())
	test.That(t, PoseAlmostEqual(ident, NewZeroPose(), 1e-9), test.ShouldBeTrue)
}

func TestAverageRotations(t *testing.T) {
	base := r3.Vector{X: 0.3, Y: 0.2, Z: -0.1}
	rots := []*RotationMatrix{
		RodriguesToRotationMatrix(base.Add(r3.Vector{X: 0.01})),
		RodriguesToRotationMatrix(base.Add(r3.Vector{X: -0.01})),
		RodriguesToRotationMatrix(base.Add(r3.Vector{Y: 0.01})),
		RodriguesToRotationMatrix(base.Add(r3.Vector{Y: -0.01})),
	}
	avg := AverageRotations(rots)
	test.That(t, AngleBetween(avg, RodriguesToRotationMatrix(base)), test.ShouldBeLessThan, 1e-3)
}

func TestNearestRotation(t *testing.T) {
	rm := RodriguesToRotationMatrix(r3.Vector{X: 0.4, Y: 0.1, Z: -0.3})
	noisy := rm.Dense()
	noisy.Set(0, 0, noisy.At(0, 0)+1e-3)
	noisy.Set(1, 2, noisy.At(1, 2)-1e-3)
	fixed, err := NearestRotation(noisy)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.Det(fixed.Dense()), test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, AngleBetween(fixed, rm), test.ShouldBeLessThan, 2e-3)
}
