package transform

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/lenscal/rimage"
)

func patternImage(w, h int) *rimage.Image {
	img := rimage.NewImage(w, h, 2)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, 0, float32((x*7+y*13)%255))
			img.Set(x, y, 1, float32(x+y))
		}
	}
	return img
}

func TestChangeCameraModelIdentity(t *testing.T) {
	for _, model := range []CameraModel{NewPinhole(80, 82, 0, 32, 24, 64, 48), func() CameraModel {
		b := testBrown()
		b.SetMatrix(80, 82, 0, 32, 24)
		b.SetImageShape(64, 48)
		return b
	}()} {
		distort, adjusted, err := ChangeCameraModel(model, model.Clone(), 64, 48, AdjustFullView, rimage.BorderZero)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, adjusted.Equal(model), test.ShouldBeTrue)

		forEachPixel(64, 48, 1, func(x, y float64) {
			px, py := distort.Model.Compute(float32(x), float32(y))
			test.That(t, px, test.ShouldAlmostEqual, x, 1e-3)
			test.That(t, py, test.ShouldAlmostEqual, y, 1e-3)
		})

		in := patternImage(64, 48)
		out := rimage.NewImageLike(in)
		test.That(t, distort.Apply(in, out), test.ShouldBeNil)
		for b := 0; b < 2; b++ {
			for k, v := range in.Band(b) {
				test.That(t, out.Band(b)[k], test.ShouldAlmostEqual, v, 0.1)
			}
		}
	}
}

func TestAdjustIntrinsicsUndistortedPinhole(t *testing.T) {
	orig := NewPinhole(80, 82, 0, 31.5, 23.5, 64, 48)
	for _, adjustment := range []AdjustmentType{AdjustFullView, AdjustExpand} {
		adjusted := orig.Clone()
		err := adjustIntrinsics(orig, orig, adjusted.Intrinsics(), 64, 48, adjustment)
		test.That(t, err, test.ShouldBeNil)
		k := adjusted.Intrinsics()
		test.That(t, k.Fx, test.ShouldAlmostEqual, orig.Fx, 1e-9)
		test.That(t, k.Fy, test.ShouldAlmostEqual, orig.Fy, 1e-9)
		test.That(t, k.Skew, test.ShouldAlmostEqual, 0, 1e-9)
		test.That(t, k.Cx, test.ShouldAlmostEqual, orig.Cx, 1e-9)
		test.That(t, k.Cy, test.ShouldAlmostEqual, orig.Cy, 1e-9)
	}
}

func TestChangeCameraModelAdjustments(t *testing.T) {
	orig := testBrown()
	desired := &Pinhole{}
	desired.CopyFrom(orig)

	_, full, err := ChangeCameraModel(orig, desired, 640, 480, AdjustFullView, rimage.BorderZero)
	test.That(t, err, test.ShouldBeNil)
	_, expand, err := ChangeCameraModel(orig, desired, 640, 480, AdjustExpand, rimage.BorderZero)
	test.That(t, err, test.ShouldBeNil)
	_, none, err := ChangeCameraModel(orig, desired, 640, 480, AdjustNone, rimage.BorderZero)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, none.Equal(desired), test.ShouldBeTrue)
	test.That(t, full.Intrinsics().Fx, test.ShouldBeLessThan, expand.Intrinsics().Fx)
	// barrel distortion squeezes the border, seeing all of it needs a shorter focal length
	test.That(t, full.Intrinsics().Fx, test.ShouldBeLessThan, desired.Fx)
	test.That(t, full.Intrinsics().Fx/full.Intrinsics().Fy, test.ShouldAlmostEqual, desired.Fx/desired.Fy, 1e-9)

	// every original border pixel is visible with the full view model
	fullND, err := NewNarrowDistortion[float64](full)
	test.That(t, err, test.ShouldBeNil)
	origND, err := NewNarrowDistortion[float64](orig)
	test.That(t, err, test.ShouldBeNil)
	toFull := func(x, y float64) (float64, float64) {
		return fullND.Distort(false, true).Compute(origND.Undistort(true, false).Compute(x, y))
	}
	for _, corner := range [][2]float64{{0, 0}, {639, 0}, {0, 479}, {639, 479}} {
		x, y := toFull(corner[0], corner[1])
		test.That(t, x, test.ShouldBeGreaterThanOrEqualTo, -0.5)
		test.That(t, x, test.ShouldBeLessThanOrEqualTo, 639.5)
		test.That(t, y, test.ShouldBeGreaterThanOrEqualTo, -0.5)
		test.That(t, y, test.ShouldBeLessThanOrEqualTo, 479.5)
	}

	// every expanded output pixel lies in the original image
	distort, _, err := ChangeCameraModel(orig, desired, 640, 480, AdjustExpand, rimage.BorderZero)
	test.That(t, err, test.ShouldBeNil)
	forEachPixel(640, 480, 16, func(x, y float64) {
		px, py := distort.Model.Compute(float32(x), float32(y))
		test.That(t, px, test.ShouldBeGreaterThanOrEqualTo, -0.5)
		test.That(t, px, test.ShouldBeLessThanOrEqualTo, 639.5)
		test.That(t, py, test.ShouldBeGreaterThanOrEqualTo, -0.5)
		test.That(t, py, test.ShouldBeLessThanOrEqualTo, 479.5)
	})
}

func TestChangeCameraModelErrors(t *testing.T) {
	p := NewPinhole(80, 80, 0, 32, 24, 64, 48)
	_, _, err := ChangeCameraModel(p, p, 0, 48, AdjustNone, rimage.BorderZero)
	test.That(t, errors.Is(err, ErrInvalidConfiguration), test.ShouldBeTrue)

	omni := &UniversalOmni{Brown: Brown{Pinhole: *p}, MirrorOffset: 1}
	_, _, err = ChangeCameraModel(omni, p, 64, 48, AdjustFullView, rimage.BorderZero)
	test.That(t, errors.Is(err, ErrUnsupportedModel), test.ShouldBeTrue)

	distort, _, err := ChangeCameraModel(omni, p, 64, 48, AdjustNone, rimage.BorderZero)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, distort, test.ShouldNotBeNil)

	_, _, err = ChangeCameraModel(p, omni, 64, 48, AdjustNone, rimage.BorderZero)
	test.That(t, errors.Is(err, ErrUnsupportedModel), test.ShouldBeTrue)

	_, err = AdjustmentTypeFromString("crop")
	test.That(t, errors.Is(err, ErrInvalidConfiguration), test.ShouldBeTrue)
	for _, a := range []AdjustmentType{AdjustNone, AdjustFullView, AdjustExpand} {
		parsed, err := AdjustmentTypeFromString(a.String())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, a)
	}
}

func TestImageDistortBorders(t *testing.T) {
	in := patternImage(16, 12)
	shift := Point2TransformFunc[float32](func(x, y float32) (float32, float32) {
		return x + 100, y
	})

	out := rimage.NewImageLike(in)
	out.Fill(9)
	test.That(t, NewImageDistort(shift, rimage.BorderSkip).Apply(in, out), test.ShouldBeNil)
	test.That(t, out.Get(3, 3, 0), test.ShouldEqual, float32(9))

	test.That(t, NewImageDistort(shift, rimage.BorderZero).Apply(in, out), test.ShouldBeNil)
	test.That(t, out.Get(3, 3, 0), test.ShouldEqual, float32(0))

	test.That(t, NewImageDistort(shift, rimage.BorderExtend).Apply(in, out), test.ShouldBeNil)
	test.That(t, out.Get(3, 3, 1), test.ShouldEqual, in.Get(15, 3, 1))

	test.That(t, NewImageDistort(shift, rimage.BorderZero).Apply(in, rimage.NewImage(16, 12, 1)), test.ShouldBeError)
}

func TestRemoveDistortion(t *testing.T) {
	orig := testBrown()
	orig.SetMatrix(80, 82, 0, 32, 24)
	orig.SetImageShape(64, 48)
	in := patternImage(64, 48)
	out := rimage.NewImageLike(in)

	adjusted, err := RemoveDistortion(in, out, orig, AdjustExpand, rimage.BorderZero)
	test.That(t, err, test.ShouldBeNil)
	p, ok := adjusted.(*Pinhole)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p.Width, test.ShouldEqual, 64)
	test.That(t, p.Height, test.ShouldEqual, 48)

	// expanded output has no empty pixels
	for y := 1; y < 47; y++ {
		for x := 1; x < 63; x++ {
			test.That(t, out.Get(x, y, 1), test.ShouldBeGreaterThan, 0)
		}
	}
}
