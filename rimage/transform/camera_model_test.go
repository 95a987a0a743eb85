package transform

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.viam.com/test"
)

func testBrown() *Brown {
	b := &Brown{Pinhole: *NewPinhole(500, 510, 0, 320, 240, 640, 480)}
	b.SetDistortion([]float64{-0.2, 0.05}, 0.001, -0.002)
	return b
}

func TestCameraModelClone(t *testing.T) {
	models := []CameraModel{
		NewPinhole(500, 510, 0.5, 320, 240, 640, 480),
		testBrown(),
		&UniversalOmni{Brown: *testBrown(), MirrorOffset: 0.8},
		&KannalaBrandt{Pinhole: *NewPinhole(300, 300, 0, 320, 240, 640, 480), Symmetric: []float64{1, 0.01, -0.002}},
	}
	for _, m := range models {
		c := m.Clone()
		test.That(t, c.Equal(m), test.ShouldBeTrue)
		test.That(t, m.Equal(c), test.ShouldBeTrue)
		test.That(t, cmp.Diff(m, c), test.ShouldBeEmpty)

		c.Intrinsics().Fx++
		test.That(t, c.Equal(m), test.ShouldBeFalse)
	}

	b := testBrown()
	c := b.Clone().(*Brown)
	c.Radial[0] = 1
	test.That(t, b.Radial[0], test.ShouldEqual, -0.2)
}

func TestCameraModelEqualAcrossVariants(t *testing.T) {
	b := testBrown()
	u := &UniversalOmni{Brown: *b.Clone().(*Brown)}
	test.That(t, b.Equal(u), test.ShouldBeFalse)
	test.That(t, u.Equal(b), test.ShouldBeFalse)
	test.That(t, b.Pinhole.Equal(b), test.ShouldBeFalse)

	empty := &Brown{Pinhole: b.Pinhole, Radial: []float64{}}
	test.That(t, empty.Equal(&Brown{Pinhole: b.Pinhole}), test.ShouldBeTrue)
}

func TestCameraModelCopyFrom(t *testing.T) {
	u := &UniversalOmni{Brown: *testBrown(), MirrorOffset: 0.9}

	var p Pinhole
	p.CopyFrom(u)
	test.That(t, p, test.ShouldResemble, u.Pinhole)

	var b Brown
	b.CopyFrom(u)
	test.That(t, b.Equal(testBrown()), test.ShouldBeTrue)

	b.CopyFrom(&p)
	test.That(t, b.IsDistorted(), test.ShouldBeFalse)
	test.That(t, b.Pinhole, test.ShouldResemble, p)

	var u2 UniversalOmni
	u2.CopyFrom(u)
	test.That(t, u2.Equal(u), test.ShouldBeTrue)

	kb := &KannalaBrandt{Symmetric: []float64{1}}
	kb.CopyFrom(u)
	test.That(t, kb.Pinhole, test.ShouldResemble, u.Pinhole)
	test.That(t, kb.Symmetric, test.ShouldResemble, []float64{1})
}

func TestIsDistorted(t *testing.T) {
	b := &Brown{}
	test.That(t, b.IsDistorted(), test.ShouldBeFalse)
	b.T2 = 1e-9
	test.That(t, b.IsDistorted(), test.ShouldBeTrue)
	b = &Brown{Radial: []float64{0}}
	test.That(t, b.IsDistorted(), test.ShouldBeTrue)
}

func TestCameraModelString(t *testing.T) {
	p := NewPinhole(1, 2, 3, 4, 5, 6, 7)
	test.That(t, p.String(), test.ShouldEqual,
		"Pinhole{ fx=1.000000 fy=2.000000 skew=3.000000 cx=4.000000 cy=5.000000 | width=6 height=7 }")

	b := testBrown()
	test.That(t, b.String(), test.ShouldContainSubstring, "Brown{ fx=500.000000")
	test.That(t, b.String(), test.ShouldContainSubstring, "radial=[-0.2 0.05] t1=0.001000 t2=-0.002000")
	test.That(t, b.String(), test.ShouldEqual, b.Clone().String())

	u := &UniversalOmni{Brown: Brown{Pinhole: *p}, MirrorOffset: 1}
	test.That(t, u.String(), test.ShouldContainSubstring, "| mirror=1.000000")
	test.That(t, strings.Contains(u.String(), "radial="), test.ShouldBeFalse)

	kb := &KannalaBrandt{Pinhole: *p}
	kb.SetCoefficients([]float64{1, 0.1}, []float64{0.2}, []float64{1, 2, 3, 4}, []float64{0.3}, []float64{5, 6, 7, 8})
	test.That(t, kb.String(), test.ShouldContainSubstring,
		"symmetric=[1 0.1] radial=[0.2] radialTrig=[1 2 3 4] tangent=[0.3] tangentTrig=[5 6 7 8]")
}

func TestPinholeCheckValid(t *testing.T) {
	var p *Pinhole
	test.That(t, p.CheckValid(), test.ShouldBeError)
	test.That(t, NewPinhole(0, 1, 0, 0, 0, 1, 1).CheckValid(), test.ShouldBeError)
	test.That(t, NewPinhole(1, 1, 0, 0, 0, -1, 1).CheckValid(), test.ShouldBeError)
	test.That(t, NewPinhole(1, 1, 0, 0, 0, 1, 1).CheckValid(), test.ShouldBeNil)

	k := NewPinhole(500, 510, 0.5, 320, 240, 640, 480).CameraMatrix()
	test.That(t, k.At(0, 1), test.ShouldEqual, 0.5)
	test.That(t, k.At(1, 2), test.ShouldEqual, 240.)
	test.That(t, k.At(2, 2), test.ShouldEqual, 1.)
}
