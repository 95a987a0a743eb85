package calibration

import (
	"context"
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/lenscal/rimage/transform"
	"go.viam.com/lenscal/spatialmath"
)

// initialRightToLeft combines the per pair estimates of the right to left transform. Rotations
// are quaternion averaged and translations are averaged.
func initialRightToLeft(leftPoses, rightPoses []*spatialmath.Pose) *spatialmath.Pose {
	rots := make([]*spatialmath.RotationMatrix, len(leftPoses))
	var t r3.Vector
	for i := range leftPoses {
		rtl := spatialmath.Compose(leftPoses[i], rightPoses[i].Invert())
		rots[i] = rtl.Rotation
		t = t.Add(rtl.Translation)
	}
	return spatialmath.NewPose(spatialmath.AverageRotations(rots), t.Mul(1/float64(len(leftPoses))))
}

// CalibrateStereo calibrates a stereo pair from images of the same target taken at the same time
// by both cameras. Each camera is calibrated as a Brown model, then both intrinsics, the right to
// left transform and the target poses are refined together. The returned results list the left
// images first, then the right images.
func CalibrateStereo(left, right []Observation, layout Layout, cfg MonoConfig) (*transform.StereoParameters, []ImageResults, error) {
	return CalibrateStereoContext(context.Background(), left, right, layout, cfg)
}

// CalibrateStereoContext is CalibrateStereo with a context to cancel the refinement.
func CalibrateStereoContext(
	ctx context.Context,
	left, right []Observation,
	layout Layout,
	cfg MonoConfig,
) (*transform.StereoParameters, []ImageResults, error) {
	if len(left) != len(right) {
		return nil, nil, transform.NewInvalidConfigurationError(
			fmt.Sprintf("left has %d images and right has %d", len(left), len(right)))
	}
	logger := cfg.logger()

	leftSol, err := solveMono(ctx, BrownModel, cfg, layout, left)
	if err != nil {
		return nil, nil, errors.Wrap(err, "left camera")
	}
	rightSol, err := solveMono(ctx, BrownModel, cfg, layout, right)
	if err != nil {
		return nil, nil, errors.Wrap(err, "right camera")
	}
	rightToLeft := initialRightToLeft(leftSol.poses, rightSol.poses)
	logger.Debugw("initial right to left", "pose", rightToLeft.String())

	// both cameras share the same structure so one parameterization serves both
	param, err := newParameterization(BrownModel, cfg)
	if err != nil {
		return nil, nil, err
	}
	nIntrinsics := param.numIntrinsics()
	rightOffset := nIntrinsics
	rtlOffset := 2 * nIntrinsics
	posesOffset := rtlOffset + poseParams
	numParams := posesOffset + poseParams*len(left)

	x0 := make([]float64, numParams)
	param.encode(leftSol.model, x0[:nIntrinsics])
	param.encode(rightSol.model, x0[rightOffset:rtlOffset])
	encodePose(rightToLeft, x0[rtlOffset:])
	for i, pose := range leftSol.poses {
		encodePose(pose, x0[posesOffset+poseParams*i:])
	}

	lw, lh := left[0].Width, left[0].Height
	rw, rh := right[0].Width, right[0].Height
	ls := &leastSquares{numParams: numParams}
	for i := range left {
		o := &left[i]
		poseOffset := posesOffset + poseParams*i
		deps := append(lo.Range(nIntrinsics), lo.RangeFrom(poseOffset, poseParams)...)
		ls.addBlock(2*len(o.Points), deps, func(x, dst []float64) {
			proj, err := newProjector(param.decode(x[:nIntrinsics], lw, lh))
			if err != nil {
				fillNaN(dst)
				return
			}
			projectionResiduals(proj, decodePose(x[poseOffset:poseOffset+poseParams]), layout, o, dst)
		})
	}
	for i := range right {
		o := &right[i]
		poseOffset := posesOffset + poseParams*i
		deps := lo.RangeFrom(rightOffset, nIntrinsics+poseParams)
		deps = append(deps, lo.RangeFrom(poseOffset, poseParams)...)
		ls.addBlock(2*len(o.Points), deps, func(x, dst []float64) {
			proj, err := newProjector(param.decode(x[rightOffset:rtlOffset], rw, rh))
			if err != nil {
				fillNaN(dst)
				return
			}
			rtl := decodePose(x[rtlOffset : rtlOffset+poseParams])
			targetToRight := spatialmath.Compose(rtl.Invert(), decodePose(x[poseOffset:poseOffset+poseParams]))
			projectionResiduals(proj, targetToRight, layout, o, dst)
		})
	}

	res, err := ls.minimize(ctx, x0, cfg.Solver.withDefaults(), logger)
	if err != nil {
		return nil, nil, err
	}

	//nolint:forcetypeassert
	params := &transform.StereoParameters{
		Left:        param.decode(res.x[:nIntrinsics], lw, lh).(*transform.Brown),
		Right:       param.decode(res.x[rightOffset:rtlOffset], rw, rh).(*transform.Brown),
		RightToLeft: decodePose(res.x[rtlOffset : rtlOffset+poseParams]),
	}
	r := make([]float64, ls.numResiduals)
	ls.residuals(res.x, r)
	results := lo.Map(ls.blocks, func(b residualBlock, _ int) ImageResults {
		return newImageResults(r[b.offset : b.offset+b.size])
	})
	logger.Infow("calibrated stereo pair",
		"baseline", params.Baseline(),
		"iterations", res.iterations,
		"mean_error", OverallMeanError(results))
	return params, results, nil
}
