package transform

// omniSphereToPixel projects unit sphere points with the unified omnidirectional model.
type omniSphereToPixel[T Float] struct {
	k         pinholeMatrix[T]
	brown     brownCoefficients[T]
	xi        T
	distorted bool
}

// omniPixelToSphere lifts pixels back onto the unit sphere.
type omniPixelToSphere[T Float] struct {
	omniSphereToPixel[T]
}

func newOmni[T Float](u *UniversalOmni) omniSphereToPixel[T] {
	return omniSphereToPixel[T]{
		k:         newPinholeMatrix[T](&u.Pinhole),
		brown:     newBrownCoefficients[T](&u.Brown),
		xi:        T(u.MirrorOffset),
		distorted: u.IsDistorted(),
	}
}

// Compute maps a direction (x, y, z) to a pixel. The direction does not need to be unit length.
func (o omniSphereToPixel[T]) Compute(x, y, z T) (T, T) {
	norm := sqrt(x*x + y*y + z*z)
	x, y, z = x/norm, y/norm, z/norm

	denom := z + o.xi
	nx, ny := x/denom, y/denom
	if o.distorted {
		nx, ny = o.brown.distort(nx, ny)
	}
	return o.k.toPixel(nx, ny)
}

// Compute maps a pixel to a unit direction.
func (o omniPixelToSphere[T]) Compute(u, v T) (T, T, T) {
	x, y := o.k.toNorm(u, v)
	if o.distorted {
		x, y = o.brown.undistort(x, y)
	}

	r2 := x*x + y*y
	factor := (o.xi + sqrt(1+(1-o.xi*o.xi)*r2)) / (r2 + 1)
	sx, sy, sz := factor*x, factor*y, factor-o.xi

	norm := sqrt(sx*sx + sy*sy + sz*sz)
	return sx / norm, sy / norm, sz / norm
}
