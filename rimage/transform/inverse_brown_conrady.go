package transform

// brownCoefficients applies the Brown-Conrady distortion model with any number of radial terms.
//
// The forward model is:
//
//	x_d = x_u * (1 + k1*r² + k2*r⁴ + ...) + 2*t1*x_u*y_u + t2*(r² + 2*x_u²)
//	y_d = y_u * (1 + k1*r² + k2*r⁴ + ...) + t1*(r² + 2*y_u²) + 2*t2*x_u*y_u
//
// where (x_d, y_d) are distorted and (x_u, y_u) undistorted normalized image coordinates.
type brownCoefficients[T Float] struct {
	radial []T
	t1, t2 T
}

func newBrownCoefficients[T Float](b *Brown) brownCoefficients[T] {
	radial := make([]T, len(b.Radial))
	for i, k := range b.Radial {
		radial[i] = T(k)
	}
	return brownCoefficients[T]{radial: radial, t1: T(b.T1), t2: T(b.T2)}
}

// radialTerms returns 1 + Σ k_i r2^(i+1) and its derivative with respect to r2.
func (bc brownCoefficients[T]) radialTerms(r2 T) (T, T) {
	sum := T(0)
	deriv := T(0)
	pow := T(1)
	for i, k := range bc.radial {
		deriv += T(i+1) * k * pow
		pow *= r2
		sum += k * pow
	}
	return 1 + sum, deriv
}

// distort applies the forward model to normalized coordinates.
func (bc brownCoefficients[T]) distort(x, y T) (T, T) {
	r2 := x*x + y*y
	radDist, _ := bc.radialTerms(r2)
	xd := x*radDist + 2*bc.t1*x*y + bc.t2*(r2+2*x*x)
	yd := y*radDist + bc.t1*(r2+2*y*y) + 2*bc.t2*x*y
	return xd, yd
}

// undistort inverts the model with Newton-Raphson iterations.
func (bc brownCoefficients[T]) undistort(xd, yd T) (T, T) {
	// Start with the distorted point as initial guess
	xu, yu := xd, yd

	const maxIterations = 20
	tol := tolerance[T]()

	for i := 0; i < maxIterations; i++ {
		r2 := xu*xu + yu*yu
		radDist, dRadDr2 := bc.radialTerms(r2)

		xdEst := xu*radDist + 2*bc.t1*xu*yu + bc.t2*(r2+2*xu*xu)
		ydEst := yu*radDist + bc.t1*(r2+2*yu*yu) + 2*bc.t2*xu*yu

		errX := xdEst - xd
		errY := ydEst - yd
		if errX*errX+errY*errY < tol*tol {
			break
		}

		// J = [[dxd/dxu, dxd/dyu], [dyd/dxu, dyd/dyu]]
		dRadDistDxu := 2 * xu * dRadDr2
		dRadDistDyu := 2 * yu * dRadDr2

		dxdDxu := radDist + xu*dRadDistDxu + 2*bc.t1*yu + 6*bc.t2*xu
		dxdDyu := xu*dRadDistDyu + 2*bc.t1*xu + 2*bc.t2*yu
		dydDxu := yu*dRadDistDxu + 2*bc.t1*xu + 2*bc.t2*yu
		dydDyu := radDist + yu*dRadDistDyu + 6*bc.t1*yu + 2*bc.t2*xu

		det := dxdDxu*dydDyu - dxdDyu*dydDxu
		if det == 0 {
			break
		}

		// [xu, yu] -= J^-1 * [errX, errY]
		xu -= (dydDyu*errX - dxdDyu*errY) / det
		yu -= (-dydDxu*errX + dxdDxu*errY) / det
	}

	return xu, yu
}
