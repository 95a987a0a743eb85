package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateHomography is returned when the point configuration does not constrain a
// homography, e.g. fewer than 4 points or all points on a line.
var ErrDegenerateHomography = errors.New("degenerate point configuration for homography")

// EstimateHomography computes the 3x3 homography H with dst ~ H * src using the normalized direct
// linear transform, as described in Multiple View Geometry, Alg 4.2.
func EstimateHomography(src, dst []r2.Point) (*mat.Dense, error) {
	if len(src) != len(dst) {
		return nil, errors.New("sets of points src and dst must have the same number of elements")
	}
	if len(src) < 4 {
		return nil, errors.Wrapf(ErrDegenerateHomography, "need at least 4 points, got %d", len(src))
	}
	srcN, t1, err := normalizePoints(src)
	if err != nil {
		return nil, err
	}
	dstN, t2, err := normalizePoints(dst)
	if err != nil {
		return nil, err
	}

	nRows := 2 * len(src)
	if nRows < 9 {
		nRows = 9
	}
	a := mat.NewDense(nRows, 9, nil)
	for i := range srcN {
		x, y := srcN[i].X, srcN[i].Y
		u, v := dstN[i].X, dstN[i].Y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	mats := performSVD(a)
	if mats == nil {
		return nil, errors.Wrap(ErrDegenerateHomography, "SVD failed")
	}
	// the null space has to be one dimensional
	if mats.S.At(7, 7) < 1e-9*mats.S.At(0, 0) {
		return nil, errors.Wrap(ErrDegenerateHomography, "points do not span the plane")
	}
	lastColV := mats.V.ColView(8)
	hData := make([]float64, 9)
	for i := range hData {
		hData[i] = lastColV.AtVec(i)
	}
	hn := mat.NewDense(3, 3, hData)

	// denormalize: T2^-1 @ Hn @ T1
	var t2Inv, h mat.Dense
	if err := t2Inv.Inverse(t2); err != nil {
		return nil, errors.Wrap(err, "cannot invert normalization")
	}
	h.Mul(&t2Inv, hn)
	h.Mul(&h, t1)

	if s := h.At(2, 2); math.Abs(s) > 1e-12 {
		h.Scale(1/s, &h)
	} else {
		h.Scale(1/mat.Norm(&h, 2), &h)
	}
	return &h, nil
}

// ApplyHomography maps a point through h.
func ApplyHomography(h mat.Matrix, p r2.Point) r2.Point {
	x := h.At(0, 0)*p.X + h.At(0, 1)*p.Y + h.At(0, 2)
	y := h.At(1, 0)*p.X + h.At(1, 1)*p.Y + h.At(1, 2)
	w := h.At(2, 0)*p.X + h.At(2, 1)*p.Y + h.At(2, 2)
	return r2.Point{X: x / w, Y: y / w}
}

// helpers
// normalizePoints normalizes points as described in Multiple View Geometry, Alg 4.2.
func normalizePoints(pts []r2.Point) ([]r2.Point, *mat.Dense, error) {
	nPoints := len(pts)
	// compute centroid of points
	mu := r2.Point{X: 0, Y: 0}
	for _, pt := range pts {
		mu = mu.Add(pt)
	}
	mu = mu.Mul(1. / float64(nPoints))
	// compute scale factor
	d := 0.0
	for _, pt := range pts {
		d += pt.Sub(mu).Norm() / float64(nPoints)
	}
	if d == 0 || math.IsNaN(d) {
		return nil, nil, errors.Wrap(ErrDegenerateHomography, "all points coincide")
	}
	scale := math.Sqrt(2) / d
	T := mat.NewDense(3, 3, []float64{
		scale, 0, -scale * mu.X,
		0, scale, -scale * mu.Y,
		0, 0, 1,
	})
	// apply transform to points
	pointsTransformed := make([]r2.Point, nPoints)
	for i := range pointsTransformed {
		pointsTransformed[i] = pts[i].Sub(mu).Mul(scale)
	}
	return pointsTransformed, T, nil
}

// matsSVD stores the matrices from SVD decomposition.
type matsSVD struct {
	U *mat.Dense
	V *mat.Dense
	S *mat.DiagDense
}

// performSVD performs SVD on inputMatrix and returns matrices U, Sigma and V from the decomposition.
func performSVD(inputMatrix mat.Matrix) *matsSVD {
	var svd mat.SVD
	ok := svd.Factorize(inputMatrix, mat.SVDFull)
	if !ok {
		return nil
	}
	u, v := &mat.Dense{}, &mat.Dense{}
	svd.UTo(u)
	svd.VTo(v)
	return &matsSVD{U: u, V: v, S: mat.NewDiagDense(len(svd.Values(nil)), svd.Values(nil))}
}
