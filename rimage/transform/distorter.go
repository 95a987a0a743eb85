package transform

import "fmt"

// NarrowDistortion builds transforms for narrow field of view models, which can be described on
// the z = 1 image plane.
type NarrowDistortion[T Float] struct {
	k pinholeMatrix[T]
	// nil for models without distortion, which use the closed form pinhole projection.
	brown *brownCoefficients[T]
}

// NewNarrowDistortion returns the distortion engine for a *Pinhole or *Brown model.
func NewNarrowDistortion[T Float](model CameraModel) (*NarrowDistortion[T], error) {
	switch m := model.(type) {
	case *Pinhole:
		return &NarrowDistortion[T]{k: newPinholeMatrix[T](m)}, nil
	case *Brown:
		nd := &NarrowDistortion[T]{k: newPinholeMatrix[T](&m.Pinhole)}
		if m.IsDistorted() {
			bc := newBrownCoefficients[T](m)
			nd.brown = &bc
		}
		return nd, nil
	case *UniversalOmni:
		return nil, NewUnsupportedModelError("UniversalOmni is not a narrow field of view camera model")
	case *KannalaBrandt:
		return nil, NewUnsupportedModelError("KannalaBrandt is not a narrow field of view camera model")
	default:
		return nil, NewUnsupportedModelError(fmt.Sprintf("unknown camera model %T", model))
	}
}

// narrowTransform applies the camera matrix and distortion in the configured direction.
type narrowTransform[T Float] struct {
	k        pinholeMatrix[T]
	brown    *brownCoefficients[T]
	pixelIn  bool
	pixelOut bool
	forward  bool
}

func (nt narrowTransform[T]) Compute(x, y T) (T, T) {
	if nt.pixelIn {
		x, y = nt.k.toNorm(x, y)
	}
	if nt.brown != nil {
		if nt.forward {
			x, y = nt.brown.distort(x, y)
		} else {
			x, y = nt.brown.undistort(x, y)
		}
	}
	if nt.pixelOut {
		x, y = nt.k.toPixel(x, y)
	}
	return x, y
}

// Distort returns the transform from undistorted to distorted coordinates. pixelIn and pixelOut
// pick pixel rather than normalized image coordinates for the input and output.
func (nd *NarrowDistortion[T]) Distort(pixelIn, pixelOut bool) Point2Transform[T] {
	return narrowTransform[T]{k: nd.k, brown: nd.brown, pixelIn: pixelIn, pixelOut: pixelOut, forward: true}
}

// Undistort returns the transform from distorted to undistorted coordinates. pixelIn and pixelOut
// pick pixel rather than normalized image coordinates for the input and output.
func (nd *NarrowDistortion[T]) Undistort(pixelIn, pixelOut bool) Point2Transform[T] {
	return narrowTransform[T]{k: nd.k, brown: nd.brown, pixelIn: pixelIn, pixelOut: pixelOut}
}

// WideDistortion builds transforms for wide field of view models. These go through the unit
// sphere since a plane cannot represent directions at or beyond 90 degrees off axis.
type WideDistortion[T Float] struct {
	stoP Point3Transform2[T]
	ptoS Point2Transform3[T]
}

// NewWideDistortion returns the distortion engine for a *UniversalOmni or *KannalaBrandt model.
func NewWideDistortion[T Float](model CameraModel) (*WideDistortion[T], error) {
	switch m := model.(type) {
	case *UniversalOmni:
		o := newOmni[T](m)
		return &WideDistortion[T]{stoP: o, ptoS: omniPixelToSphere[T]{o}}, nil
	case *KannalaBrandt:
		kb := newKannalaBrandt[T](m)
		return &WideDistortion[T]{stoP: kb, ptoS: kbPixelToSphere[T]{kb}}, nil
	case *Pinhole, *Brown:
		return nil, NewUnsupportedModelError(fmt.Sprintf("%T is not a wide field of view camera model", model))
	default:
		return nil, NewUnsupportedModelError(fmt.Sprintf("unknown camera model %T", model))
	}
}

// DistortStoP returns the transform from the unit sphere to distorted pixels.
func (wd *WideDistortion[T]) DistortStoP() Point3Transform2[T] {
	return wd.stoP
}

// UndistortPtoS returns the transform from distorted pixels to the unit sphere.
func (wd *WideDistortion[T]) UndistortPtoS() Point2Transform3[T] {
	return wd.ptoS
}
