package transform

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/lenscal/rimage"
	"go.viam.com/lenscal/utils"
)

// ImageDistort resamples an image through a pixel transform. For every output pixel, Model gives
// the location in the input image which is sampled with bilinear interpolation.
type ImageDistort struct {
	Model  Point2Transform[float32]
	Border rimage.BorderType
}

// NewImageDistort returns an ImageDistort for the transform.
func NewImageDistort(model Point2Transform[float32], border rimage.BorderType) *ImageDistort {
	return &ImageDistort{Model: model, Border: border}
}

// Apply renders out from in. Rows are processed in parallel.
func (d *ImageDistort) Apply(in, out *rimage.Image) error {
	return d.ApplyContext(context.Background(), in, out)
}

// ApplyContext is Apply with cancellation.
func (d *ImageDistort) ApplyContext(ctx context.Context, in, out *rimage.Image) error {
	if in == nil || out == nil {
		return errors.New("input or output image is nil")
	}
	if d.Model == nil {
		return errors.New("image distort has no model")
	}
	if in.NumBands() != out.NumBands() {
		return errors.Errorf("band counts differ: %d vs %d", in.NumBands(), out.NumBands())
	}
	width := out.Width()
	bands := out.NumBands()
	return utils.GroupWorkParallel(
		ctx,
		out.Height(),
		nil,
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			sample := make([]float32, bands)
			return func(memberNum, y int) {
				for x := 0; x < width; x++ {
					sx, sy := d.Model.Compute(float32(x), float32(y))
					if !rimage.Bilinear(in, sx, sy, d.Border, sample) {
						continue
					}
					for b, v := range sample {
						out.Set(x, y, b, v)
					}
				}
			}, nil
		},
	)
}

// AdjustmentType decides how ChangeCameraModel rescales the desired model.
type AdjustmentType int

const (
	// AdjustNone uses the desired model as is.
	AdjustNone AdjustmentType = iota
	// AdjustFullView scales the desired model so the whole original image is visible in the output.
	// Parts of the output may lie outside the original image.
	AdjustFullView
	// AdjustExpand scales the desired model so every output pixel lies inside the original image.
	// Parts of the original image may be cropped.
	AdjustExpand
)

func (a AdjustmentType) String() string {
	switch a {
	case AdjustNone:
		return "none"
	case AdjustFullView:
		return "full_view"
	case AdjustExpand:
		return "expand"
	default:
		return fmt.Sprintf("AdjustmentType(%d)", int(a))
	}
}

// AdjustmentTypeFromString parses the names produced by String.
func AdjustmentTypeFromString(s string) (AdjustmentType, error) {
	switch s {
	case "none":
		return AdjustNone, nil
	case "", "full_view":
		return AdjustFullView, nil
	case "expand":
		return AdjustExpand, nil
	default:
		return AdjustNone, NewInvalidConfigurationError(fmt.Sprintf("unknown adjustment type %q", s))
	}
}

// ChangeCameraModel builds the transform that renders an image taken with orig as if it had been
// taken with desired, producing a width x height output. The returned model is desired after the
// adjustment has been applied, with its image shape set to the output size. orig may be a wide
// field of view model only when adjustment is AdjustNone.
func ChangeCameraModel(
	orig, desired CameraModel,
	width, height int,
	adjustment AdjustmentType,
	border rimage.BorderType,
) (*ImageDistort, CameraModel, error) {
	if orig == nil || desired == nil {
		return nil, nil, NewInvalidConfigurationError("camera models must not be nil")
	}
	if width <= 0 || height <= 0 {
		return nil, nil, NewInvalidConfigurationError(fmt.Sprintf("invalid output size %dx%d", width, height))
	}

	adjusted := desired.Clone()
	// the fit of an unchanged model only reproduces it up to the precision of the inverse
	// distortion, skip it so the returned model stays equal
	identity := orig.Equal(desired) && width == orig.Intrinsics().Width && height == orig.Intrinsics().Height
	if adjustment != AdjustNone && !identity {
		if err := adjustIntrinsics(orig, desired, adjusted.Intrinsics(), width, height, adjustment); err != nil {
			return nil, nil, err
		}
	}
	adjusted.Intrinsics().SetImageShape(width, height)

	outToOrig, err := outputToOriginal(orig, adjusted)
	if err != nil {
		return nil, nil, err
	}
	return NewImageDistort(outToOrig, border), adjusted, nil
}

// outputToOriginal maps output pixels through the undistorted adjusted model into original pixels.
func outputToOriginal(orig, adjusted CameraModel) (Point2Transform[float32], error) {
	adjustedND, err := NewNarrowDistortion[float32](adjusted)
	if err != nil {
		return nil, err
	}
	switch orig.(type) {
	case *UniversalOmni, *KannalaBrandt:
		return NewNarrowToWidePtoP[float32](adjusted, orig)
	default:
	}
	origND, err := NewNarrowDistortion[float32](orig)
	if err != nil {
		return nil, err
	}
	toNorm := adjustedND.Undistort(true, false)
	toOrig := origND.Distort(false, true)
	return Point2TransformFunc[float32](func(x, y float32) (float32, float32) {
		return toOrig.Compute(toNorm.Compute(x, y))
	}), nil
}

type box struct {
	minX, minY, maxX, maxY float64
}

// adjustIntrinsics rescales and recenters the camera matrix of adjusted so the original image
// border, seen through desired, either fits inside the output or covers it.
func adjustIntrinsics(orig, desired CameraModel, adjusted *Pinhole, width, height int, adjustment AdjustmentType) error {
	switch orig.(type) {
	case *UniversalOmni, *KannalaBrandt:
		return NewUnsupportedModelError("only AdjustNone is supported for wide field of view models")
	default:
	}
	origND, err := NewNarrowDistortion[float64](orig)
	if err != nil {
		return err
	}
	desiredND, err := NewNarrowDistortion[float64](desired)
	if err != nil {
		return err
	}
	origToDesired := func(x, y float64) (float64, float64) {
		nx, ny := origND.Undistort(true, false).Compute(x, y)
		return desiredND.Distort(false, true).Compute(nx, ny)
	}

	op := orig.Intrinsics()
	if op.Width <= 1 || op.Height <= 1 {
		return NewInvalidConfigurationError("original model needs an image shape to be adjusted")
	}
	right, bottom := float64(op.Width-1), float64(op.Height-1)

	outer := box{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	inner := box{math.Inf(-1), math.Inf(-1), math.Inf(1), math.Inf(1)}
	visit := func(x, y float64, edge int) {
		dx, dy := origToDesired(x, y)
		outer.minX = math.Min(outer.minX, dx)
		outer.maxX = math.Max(outer.maxX, dx)
		outer.minY = math.Min(outer.minY, dy)
		outer.maxY = math.Max(outer.maxY, dy)
		switch edge {
		case 0:
			inner.minY = math.Max(inner.minY, dy)
		case 1:
			inner.maxY = math.Min(inner.maxY, dy)
		case 2:
			inner.minX = math.Max(inner.minX, dx)
		case 3:
			inner.maxX = math.Min(inner.maxX, dx)
		}
	}
	const samples = 100
	for i := 0; i <= samples; i++ {
		fx := right * float64(i) / samples
		fy := bottom * float64(i) / samples
		visit(fx, 0, 0)
		visit(fx, bottom, 1)
		visit(0, fy, 2)
		visit(right, fy, 3)
	}

	b := outer
	if adjustment == AdjustExpand {
		b = inner
	}
	bw, bh := b.maxX-b.minX, b.maxY-b.minY
	if bw <= 0 || bh <= 0 || math.IsNaN(bw) || math.IsNaN(bh) {
		return NewInvalidConfigurationError("original image border does not map to a valid region")
	}
	sx, sy := float64(width-1)/bw, float64(height-1)/bh
	scale := math.Min(sx, sy)
	if adjustment == AdjustExpand {
		scale = math.Max(sx, sy)
	}
	tx := float64(width-1)/2 - scale*(b.minX+b.maxX)/2
	ty := float64(height-1)/2 - scale*(b.minY+b.maxY)/2

	dp := desired.Intrinsics()
	adjusted.SetMatrix(scale*dp.Fx, scale*dp.Fy, scale*dp.Skew, scale*dp.Cx+tx, scale*dp.Cy+ty)
	return nil
}

// RemoveDistortion renders in as if taken by a camera without lens distortion and returns the
// undistorted model used for out.
func RemoveDistortion(
	in, out *rimage.Image,
	model CameraModel,
	adjustment AdjustmentType,
	border rimage.BorderType,
) (CameraModel, error) {
	desired := &Pinhole{}
	desired.CopyFrom(model)
	distort, adjusted, err := ChangeCameraModel(model, desired, out.Width(), out.Height(), adjustment, border)
	if err != nil {
		return nil, err
	}
	if err := distort.Apply(in, out); err != nil {
		return nil, err
	}
	return adjusted, nil
}
