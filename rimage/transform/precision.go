package transform

import "math"

// Float is the arithmetic precision of a transform. A transform instance computes in exactly one
// precision, picked when it is built.
type Float interface {
	float32 | float64
}

// Point2Transform maps a 2D point to another 2D point.
type Point2Transform[T Float] interface {
	Compute(x, y T) (T, T)
}

// Point3Transform2 maps a 3D point, usually on the unit sphere, to a 2D point.
type Point3Transform2[T Float] interface {
	Compute(x, y, z T) (T, T)
}

// Point2Transform3 maps a 2D point to a 3D point, usually on the unit sphere.
type Point2Transform3[T Float] interface {
	Compute(x, y T) (T, T, T)
}

// Point2TransformFunc adapts a function to a Point2Transform.
type Point2TransformFunc[T Float] func(x, y T) (T, T)

// Compute calls f.
func (f Point2TransformFunc[T]) Compute(x, y T) (T, T) {
	return f(x, y)
}

// convergence tolerance of the iterative inverses for the precision
func tolerance[T Float]() T {
	var zero T
	if _, ok := any(zero).(float32); ok {
		return T(1e-6)
	}
	return T(1e-12)
}

func sqrt[T Float](v T) T {
	return T(math.Sqrt(float64(v)))
}

// pinholeMatrix is the camera matrix in the precision of a transform.
type pinholeMatrix[T Float] struct {
	fx, fy, skew, cx, cy T
}

func newPinholeMatrix[T Float](p *Pinhole) pinholeMatrix[T] {
	return pinholeMatrix[T]{fx: T(p.Fx), fy: T(p.Fy), skew: T(p.Skew), cx: T(p.Cx), cy: T(p.Cy)}
}

// toPixel maps normalized image coordinates to pixels.
func (k pinholeMatrix[T]) toPixel(x, y T) (T, T) {
	return k.fx*x + k.skew*y + k.cx, k.fy*y + k.cy
}

// toNorm maps pixels to normalized image coordinates.
func (k pinholeMatrix[T]) toNorm(u, v T) (T, T) {
	y := (v - k.cy) / k.fy
	x := (u - k.cx - k.skew*y) / k.fx
	return x, y
}
