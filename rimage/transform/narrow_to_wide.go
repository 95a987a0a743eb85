package transform

import (
	"go.viam.com/lenscal/spatialmath"
)

// NarrowToWidePtoP maps pixels of a virtual narrow field of view camera to pixels in a wide
// field of view camera. Combined with an ImageDistort it renders a pinhole view out of a fisheye
// image. The narrow camera looks down the wide camera's optical axis unless
// SetRotationWideToNarrow says otherwise.
type NarrowToWidePtoP[T Float] struct {
	narrowPtoN Point2Transform[T]
	wideStoP   Point3Transform2[T]
	// wide to narrow rotation in row major order
	rot [9]T
}

// NewNarrowToWidePtoP builds the transform from a narrow and a wide camera model.
func NewNarrowToWidePtoP[T Float](narrow, wide CameraModel) (*NarrowToWidePtoP[T], error) {
	nd, err := NewNarrowDistortion[T](narrow)
	if err != nil {
		return nil, err
	}
	wd, err := NewWideDistortion[T](wide)
	if err != nil {
		return nil, err
	}
	n2w := &NarrowToWidePtoP[T]{
		narrowPtoN: nd.Undistort(true, false),
		wideStoP:   wd.DistortStoP(),
	}
	n2w.SetRotationWideToNarrow(spatialmath.NewIdentityRotation())
	return n2w, nil
}

// SetRotationWideToNarrow changes the principal axis of the narrow camera. rot maps directions in
// the wide camera frame into the narrow camera frame.
func (n2w *NarrowToWidePtoP[T]) SetRotationWideToNarrow(rot *spatialmath.RotationMatrix) {
	for i, v := range rot.Data() {
		n2w.rot[i] = T(v)
	}
}

// Compute maps a narrow camera pixel to a wide camera pixel.
func (n2w *NarrowToWidePtoP[T]) Compute(x, y T) (T, T) {
	nx, ny := n2w.narrowPtoN.Compute(x, y)
	norm := sqrt(nx*nx + ny*ny + 1)
	nx, ny, nz := nx/norm, ny/norm, 1/norm

	// narrow to wide is the transpose of wide to narrow
	r := &n2w.rot
	wx := r[0]*nx + r[3]*ny + r[6]*nz
	wy := r[1]*nx + r[4]*ny + r[7]*nz
	wz := r[2]*nx + r[5]*ny + r[8]*nz
	return n2w.wideStoP.Compute(wx, wy, wz)
}
