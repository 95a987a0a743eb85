package calibration

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/lenscal/rimage/transform"
	"go.viam.com/lenscal/spatialmath"
)

// targetHomography estimates the homography from the target plane to the image.
func targetHomography(layout Layout, obs *Observation) (*mat.Dense, error) {
	src := lo.Map(obs.Points, func(p PointIndex2D, _ int) r2.Point { return layout[p.Index] })
	dst := lo.Map(obs.Points, func(p PointIndex2D, _ int) r2.Point { return r2.Point{X: p.X, Y: p.Y} })
	h, err := transform.EstimateHomography(src, dst)
	if err != nil {
		return nil, errors.Wrap(ErrInsufficientData, err.Error())
	}
	return h, nil
}

// zhangRow returns v_ij from Zhang's "A Flexible New Technique for Camera Calibration".
func zhangRow(h mat.Matrix, i, j int) []float64 {
	return []float64{
		h.At(0, i) * h.At(0, j),
		h.At(0, i)*h.At(1, j) + h.At(1, i)*h.At(0, j),
		h.At(1, i) * h.At(1, j),
		h.At(2, i)*h.At(0, j) + h.At(0, i)*h.At(2, j),
		h.At(2, i)*h.At(1, j) + h.At(1, i)*h.At(2, j),
		h.At(2, i) * h.At(2, j),
	}
}

// estimateIntrinsics solves for the pinhole camera matrix from target homographies. Pixels are
// moved into a frame centered on the image with unit scale first, which keeps the linear system
// well conditioned.
func estimateIntrinsics(homographies []*mat.Dense, width, height int, zeroSkew bool) (*transform.Pinhole, error) {
	cx0, cy0 := float64(width)/2, float64(height)/2
	scale := math.Max(float64(width), float64(height)) / 2
	if scale <= 0 {
		scale = 1
	}
	norm := mat.NewDense(3, 3, []float64{
		1 / scale, 0, -cx0 / scale,
		0, 1 / scale, -cy0 / scale,
		0, 0, 1,
	})

	var rows [][]float64
	for _, h := range homographies {
		var hn mat.Dense
		hn.Mul(norm, h)
		hn.Scale(1/mat.Norm(&hn, 2), &hn)
		v11 := zhangRow(&hn, 0, 0)
		v22 := zhangRow(&hn, 1, 1)
		rows = append(rows, zhangRow(&hn, 0, 1), lo.Map(v11, func(v float64, i int) float64 { return v - v22[i] }))
	}
	if zeroSkew {
		rows = append(rows, []float64{0, 1, 0, 0, 0, 0})
	}
	nRows := max(len(rows), 6)
	v := mat.NewDense(nRows, 6, nil)
	for i, row := range rows {
		v.SetRow(i, row)
	}
	var svd mat.SVD
	if ok := svd.Factorize(v, mat.SVDFull); !ok {
		return nil, NewInsufficientDataError("cannot factorize intrinsic constraints")
	}
	var vMat mat.Dense
	svd.VTo(&vMat)
	b := mat.Col(nil, 5, &vMat)
	if b[0] < 0 {
		for i := range b {
			b[i] = -b[i]
		}
	}
	b11, b12, b22, b13, b23, b33 := b[0], b[1], b[2], b[3], b[4], b[5]

	den := b11*b22 - b12*b12
	if den <= 0 || b11 <= 0 {
		return nil, NewInsufficientDataError("degenerate homographies, target views are too similar")
	}
	v0 := (b12*b13 - b11*b23) / den
	lambda := b33 - (b13*b13+v0*(b12*b13-b11*b23))/b11
	if lambda <= 0 {
		return nil, NewInsufficientDataError("degenerate homographies, target views are too similar")
	}
	alpha := math.Sqrt(lambda / b11)
	beta := math.Sqrt(lambda * b11 / den)
	gamma := -b12 * alpha * alpha * beta / lambda
	u0 := gamma*v0/beta - b13*alpha*alpha/lambda
	if zeroSkew {
		gamma = 0
	}

	k := &transform.Pinhole{Width: width, Height: height}
	k.SetMatrix(scale*alpha, scale*beta, scale*gamma, scale*u0+cx0, scale*v0+cy0)
	if !isFinite(k.Fx) || !isFinite(k.Fy) || !isFinite(k.Cx) || !isFinite(k.Cy) {
		return nil, NewInsufficientDataError("degenerate homographies")
	}
	return k, nil
}

// poseFromHomography recovers the target to camera pose from a target homography and the
// camera matrix. The target is assumed to be in front of the camera.
func poseFromHomography(k *transform.Pinhole, h mat.Matrix) (*spatialmath.Pose, error) {
	var kInv, a mat.Dense
	if err := kInv.Inverse(k.CameraMatrix()); err != nil {
		return nil, errors.Wrap(err, "cannot invert camera matrix")
	}
	a.Mul(&kInv, h)
	a1 := r3.Vector{X: a.At(0, 0), Y: a.At(1, 0), Z: a.At(2, 0)}
	a2 := r3.Vector{X: a.At(0, 1), Y: a.At(1, 1), Z: a.At(2, 1)}
	a3 := r3.Vector{X: a.At(0, 2), Y: a.At(1, 2), Z: a.At(2, 2)}

	scale := 1 / a1.Norm()
	if a3.Z < 0 {
		scale = -scale
	}
	r1, r2, t := a1.Mul(scale), a2.Mul(scale), a3.Mul(scale)
	r3v := r1.Cross(r2)
	rot, err := spatialmath.NearestRotation(mat.NewDense(3, 3, []float64{
		r1.X, r2.X, r3v.X,
		r1.Y, r2.Y, r3v.Y,
		r1.Z, r2.Z, r3v.Z,
	}))
	if err != nil {
		return nil, err
	}
	return spatialmath.NewPose(rot, t), nil
}
