package transform

import "math"

// kbSphereToPixel projects unit sphere points with the Kannala-Brandt model.
type kbSphereToPixel[T Float] struct {
	k           pinholeMatrix[T]
	symmetric   []T
	radial      []T
	radialTrig  [4]T
	tangent     []T
	tangentTrig [4]T
	asymmetric  bool
}

// kbPixelToSphere inverts kbSphereToPixel iteratively.
type kbPixelToSphere[T Float] struct {
	kbSphereToPixel[T]
}

func toPrecision[T Float](in []float64) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = T(v)
	}
	return out
}

func toTrig[T Float](in []float64) [4]T {
	var out [4]T
	for i := 0; i < len(in) && i < 4; i++ {
		out[i] = T(in[i])
	}
	return out
}

func newKannalaBrandt[T Float](kb *KannalaBrandt) kbSphereToPixel[T] {
	return kbSphereToPixel[T]{
		k:           newPinholeMatrix[T](&kb.Pinhole),
		symmetric:   toPrecision[T](kb.Symmetric),
		radial:      toPrecision[T](kb.Radial),
		radialTrig:  toTrig[T](kb.RadialTrig),
		tangent:     toPrecision[T](kb.Tangent),
		tangentTrig: toTrig[T](kb.TangentTrig),
		asymmetric:  kb.IsAsymmetric(),
	}
}

// oddPolynomial evaluates Σ c_i θ^(2i+1) and its derivative.
func oddPolynomial[T Float](coefs []T, theta T) (T, T) {
	theta2 := theta * theta
	pow := theta
	sum := T(0)
	deriv := T(0)
	for i, c := range coefs {
		sum += c * pow
		deriv += T(2*i+1) * c * (pow / theta)
		pow *= theta2
	}
	if theta == 0 && len(coefs) > 0 {
		deriv = coefs[0]
	}
	return sum, deriv
}

func trigSeries[T Float](c [4]T, phi T) T {
	p := float64(phi)
	return c[0]*T(math.Cos(p)) + c[1]*T(math.Sin(p)) + c[2]*T(math.Cos(2*p)) + c[3]*T(math.Sin(2*p))
}

// distortAngles maps incidence angle theta and azimuth phi to normalized image coordinates.
func (kb kbSphereToPixel[T]) distortAngles(theta, phi T) (T, T) {
	r, _ := oddPolynomial(kb.symmetric, theta)
	cosPhi := T(math.Cos(float64(phi)))
	sinPhi := T(math.Sin(float64(phi)))
	if !kb.asymmetric {
		return r * cosPhi, r * sinPhi
	}
	radial, _ := oddPolynomial(kb.radial, theta)
	tangent, _ := oddPolynomial(kb.tangent, theta)
	dr := radial * trigSeries(kb.radialTrig, phi)
	dt := tangent * trigSeries(kb.tangentTrig, phi)
	return (r+dr)*cosPhi - dt*sinPhi, (r+dr)*sinPhi + dt*cosPhi
}

// Compute maps a direction (x, y, z) to a pixel. The direction does not need to be unit length.
func (kb kbSphereToPixel[T]) Compute(x, y, z T) (T, T) {
	norm := sqrt(x*x + y*y + z*z)
	cosTheta := float64(z / norm)
	theta := T(math.Acos(math.Max(-1, math.Min(1, cosTheta))))
	phi := T(math.Atan2(float64(y), float64(x)))
	nx, ny := kb.distortAngles(theta, phi)
	return kb.k.toPixel(nx, ny)
}

// Compute maps a pixel to a unit direction.
func (kb kbPixelToSphere[T]) Compute(u, v T) (T, T, T) {
	x, y := kb.k.toNorm(u, v)
	rd := sqrt(x*x + y*y)
	phi := T(math.Atan2(float64(y), float64(x)))

	theta := kb.solveTheta(rd)
	if kb.asymmetric {
		theta, phi = kb.solveAngles(x, y, theta, phi)
	}

	sinTheta := T(math.Sin(float64(theta)))
	return sinTheta * T(math.Cos(float64(phi))), sinTheta * T(math.Sin(float64(phi))), T(math.Cos(float64(theta)))
}

// solveTheta inverts the symmetric polynomial r(θ) = rd with Newton's method.
func (kb kbSphereToPixel[T]) solveTheta(rd T) T {
	if rd == 0 {
		return 0
	}
	theta := rd
	if len(kb.symmetric) > 0 && kb.symmetric[0] != 0 {
		theta = rd / kb.symmetric[0]
	}
	tol := tolerance[T]()
	for i := 0; i < 20; i++ {
		r, deriv := oddPolynomial(kb.symmetric, theta)
		if deriv == 0 {
			break
		}
		step := (r - rd) / deriv
		theta -= step
		if step < tol && step > -tol {
			break
		}
	}
	return theta
}

// solveAngles refines (θ, φ) so the full asymmetric model lands on (x, y). The Jacobian is
// computed numerically.
func (kb kbSphereToPixel[T]) solveAngles(x, y, theta, phi T) (T, T) {
	tol := tolerance[T]()
	h := sqrt(tol)
	for i := 0; i < 20; i++ {
		ex, ey := kb.distortAngles(theta, phi)
		ex -= x
		ey -= y
		if ex*ex+ey*ey < tol*tol {
			break
		}

		xt1, yt1 := kb.distortAngles(theta+h, phi)
		xt0, yt0 := kb.distortAngles(theta-h, phi)
		xp1, yp1 := kb.distortAngles(theta, phi+h)
		xp0, yp0 := kb.distortAngles(theta, phi-h)
		a := (xt1 - xt0) / (2 * h)
		b := (xp1 - xp0) / (2 * h)
		c := (yt1 - yt0) / (2 * h)
		d := (yp1 - yp0) / (2 * h)

		det := a*d - b*c
		if det == 0 {
			break
		}
		theta -= (d*ex - b*ey) / det
		phi -= (-c*ex + a*ey) / det
	}
	return theta, phi
}
