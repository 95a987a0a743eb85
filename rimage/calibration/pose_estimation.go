package calibration

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"go.viam.com/lenscal/rimage/transform"
	"go.viam.com/lenscal/spatialmath"
)

// normalizer maps a pixel to normalized image coordinates on the z = 1 plane.
type normalizer func(u, v float64) (float64, float64, bool)

func newNormalizer(model transform.CameraModel) (normalizer, error) {
	switch model.(type) {
	case *transform.Pinhole, *transform.Brown:
		nd, err := transform.NewNarrowDistortion[float64](model)
		if err != nil {
			return nil, err
		}
		toNorm := nd.Undistort(true, false)
		return func(u, v float64) (float64, float64, bool) {
			x, y := toNorm.Compute(u, v)
			return x, y, true
		}, nil
	case *transform.UniversalOmni, *transform.KannalaBrandt:
		wd, err := transform.NewWideDistortion[float64](model)
		if err != nil {
			return nil, err
		}
		toSphere := wd.UndistortPtoS()
		return func(u, v float64) (float64, float64, bool) {
			x, y, z := toSphere.Compute(u, v)
			if z <= 1e-6 {
				return 0, 0, false
			}
			return x / z, y / z, true
		}, nil
	default:
		return nil, transform.NewUnsupportedModelError(fmt.Sprintf("unknown camera model %T", model))
	}
}

// EstimateTargetPose finds the pose of the target in the frame of an already calibrated camera
// from a single image. The pose starts from the homography between the target and the
// undistorted points and is refined by minimizing the reprojection error.
func EstimateTargetPose(model transform.CameraModel, layout Layout, obs Observation) (*spatialmath.Pose, ImageResults, error) {
	if err := layout.Validate(); err != nil {
		return nil, ImageResults{}, err
	}
	if err := obs.checkAgainst(layout); err != nil {
		return nil, ImageResults{}, err
	}
	toNorm, err := newNormalizer(model)
	if err != nil {
		return nil, ImageResults{}, err
	}
	proj, err := newProjector(model)
	if err != nil {
		return nil, ImageResults{}, err
	}

	var src, dst []r2.Point
	for _, p := range obs.Points {
		x, y, ok := toNorm(p.X, p.Y)
		if !ok {
			continue
		}
		src = append(src, layout[p.Index])
		dst = append(dst, r2.Point{X: x, Y: y})
	}
	if len(src) < 4 {
		return nil, ImageResults{}, NewInsufficientDataError(
			fmt.Sprintf("need at least 4 points in front of the camera, got %d", len(src)))
	}
	h, err := transform.EstimateHomography(src, dst)
	if err != nil {
		return nil, ImageResults{}, errors.Wrap(ErrInsufficientData, err.Error())
	}
	initial, err := poseFromHomography(transform.NewPinhole(1, 1, 0, 0, 0, 0, 0), h)
	if err != nil {
		return nil, ImageResults{}, err
	}

	residuals := make([]float64, 2*len(obs.Points))
	errorFunc := func(x []float64) float64 {
		projectionResiduals(proj, decodePose(x), layout, &obs, residuals)
		c := floats.Dot(residuals, residuals)
		if !isFinite(c) {
			return math.Inf(1)
		}
		return c
	}

	x0 := make([]float64, poseParams)
	encodePose(initial, x0)
	best := x0
	result, _ := optimize.Minimize(
		optimize.Problem{Func: errorFunc},
		x0,
		&optimize.Settings{
			FuncEvaluations: 20000,
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-14,
				Relative:   1e-12,
				Iterations: 50,
			},
		},
		&optimize.NelderMead{},
	)
	// hitting the evaluation budget still leaves a usable location, keep it when it improves on
	// the linear estimate
	if result != nil && len(result.X) == poseParams && result.F <= errorFunc(x0) {
		best = result.X
	}

	pose := decodePose(best)
	projectionResiduals(proj, pose, layout, &obs, residuals)
	return pose, newImageResults(residuals), nil
}

// EstimateTargetPoses runs EstimateTargetPose on every observation.
func EstimateTargetPoses(model transform.CameraModel, layout Layout, obs []Observation) ([]*spatialmath.Pose, []ImageResults, error) {
	poses := make([]*spatialmath.Pose, 0, len(obs))
	results := make([]ImageResults, 0, len(obs))
	for i, o := range obs {
		pose, res, err := EstimateTargetPose(model, layout, o)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "image %d", i)
		}
		poses = append(poses, pose)
		results = append(results, res)
	}
	return poses, results, nil
}
