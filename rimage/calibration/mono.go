package calibration

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/lenscal/rimage/transform"
	"go.viam.com/lenscal/spatialmath"
)

// monoSolution is a calibrated camera, the target pose of every image and the residual
// statistics.
type monoSolution struct {
	model   transform.CameraModel
	poses   []*spatialmath.Pose
	results []ImageResults
	cost    float64
}

// minImages is the number of views Zhang's method needs. Each view gives two constraints on the
// five intrinsics, zero skew adds one more.
func minImages(zeroSkew bool) int {
	if zeroSkew {
		return 2
	}
	return 3
}

func checkObservations(layout Layout, obs []Observation, zeroSkew bool) error {
	if err := layout.Validate(); err != nil {
		return err
	}
	if len(obs) < minImages(zeroSkew) {
		return NewInsufficientDataError(fmt.Sprintf("need at least %d images, got %d", minImages(zeroSkew), len(obs)))
	}
	for i := range obs {
		if err := obs[i].checkAgainst(layout); err != nil {
			return errors.Wrapf(err, "image %d", i)
		}
		if len(obs[i].Points) < 4 {
			return NewInsufficientDataError(fmt.Sprintf("image %d has %d points, need at least 4", i, len(obs[i].Points)))
		}
	}
	return nil
}

func countResiduals(obs []Observation) int {
	return lo.SumBy(obs, func(o Observation) int { return 2 * len(o.Points) })
}

// initialize runs the linear estimate: one homography per image, the camera matrix from the
// homographies and a pose per image.
func initialize(layout Layout, obs []Observation, zeroSkew bool) (*transform.Pinhole, []*spatialmath.Pose, error) {
	homographies := make([]*mat.Dense, len(obs))
	for i := range obs {
		h, err := targetHomography(layout, &obs[i])
		if err != nil {
			return nil, nil, errors.Wrapf(err, "image %d", i)
		}
		homographies[i] = h
	}
	k, err := estimateIntrinsics(homographies, obs[0].Width, obs[0].Height, zeroSkew)
	if err != nil {
		return nil, nil, err
	}
	poses := make([]*spatialmath.Pose, len(obs))
	for i, h := range homographies {
		pose, err := poseFromHomography(k, h)
		if err != nil {
			return nil, nil, errors.Wrap(ErrInsufficientData, err.Error())
		}
		poses[i] = pose
	}
	return k, poses, nil
}

// solveMono calibrates one camera from planar target observations.
func solveMono(ctx context.Context, kind ModelKind, cfg MonoConfig, layout Layout, obs []Observation) (*monoSolution, error) {
	logger := cfg.logger()
	param, err := newParameterization(kind, cfg)
	if err != nil {
		return nil, err
	}
	if err := checkObservations(layout, obs, cfg.ZeroSkew); err != nil {
		return nil, err
	}
	nIntrinsics := param.numIntrinsics()
	numParams := nIntrinsics + poseParams*len(obs)
	if numResiduals := countResiduals(obs); numResiduals < numParams {
		return nil, NewInsufficientDataError(
			fmt.Sprintf("%d residuals can't constrain %d parameters", numResiduals, numParams))
	}

	k, poses, err := initialize(layout, obs, cfg.ZeroSkew)
	if err != nil {
		return nil, err
	}
	width, height := obs[0].Width, obs[0].Height
	logger.Debugw("linear estimate", "intrinsics", k.String())

	x0 := make([]float64, numParams)
	param.encode(param.initialModel(k), x0[:nIntrinsics])
	for i, pose := range poses {
		encodePose(pose, x0[nIntrinsics+poseParams*i:])
	}

	ls := &leastSquares{numParams: numParams}
	intrinsicDeps := lo.Range(nIntrinsics)
	for i := range obs {
		o := &obs[i]
		poseOffset := nIntrinsics + poseParams*i
		deps := append(lo.RangeFrom(poseOffset, poseParams), intrinsicDeps...)
		ls.addBlock(2*len(o.Points), deps, func(x, dst []float64) {
			proj, err := newProjector(param.decode(x[:nIntrinsics], width, height))
			if err != nil {
				fillNaN(dst)
				return
			}
			projectionResiduals(proj, decodePose(x[poseOffset:poseOffset+poseParams]), layout, o, dst)
		})
	}

	res, err := ls.minimize(ctx, x0, cfg.Solver.withDefaults(), logger)
	if err != nil {
		return nil, err
	}

	sol := &monoSolution{
		model: param.decode(res.x[:nIntrinsics], width, height),
		poses: make([]*spatialmath.Pose, len(obs)),
		cost:  res.cost,
	}
	r := make([]float64, ls.numResiduals)
	ls.residuals(res.x, r)
	for i, b := range ls.blocks {
		sol.poses[i] = decodePose(res.x[nIntrinsics+poseParams*i:])
		sol.results = append(sol.results, newImageResults(r[b.offset:b.offset+b.size]))
	}
	logger.Infow("calibrated camera",
		"model", sol.model.String(),
		"images", len(obs),
		"iterations", res.iterations,
		"mean_error", OverallMeanError(sol.results))
	return sol, nil
}

func fillNaN(dst []float64) {
	for i := range dst {
		dst[i] = math.NaN()
	}
}

// CalibrateMonoPlanar calibrates a single camera from images of a planar target. Configure the
// model, add the observations of every image and call Process.
type CalibrateMonoPlanar struct {
	layout       Layout
	kind         ModelKind
	cfg          MonoConfig
	observations []Observation
	solution     *monoSolution
}

// NewCalibrateMonoPlanar returns a calibrator for the target layout, configured for a Brown model
// with the default settings.
func NewCalibrateMonoPlanar(layout Layout) *CalibrateMonoPlanar {
	return &CalibrateMonoPlanar{layout: layout, kind: BrownModel, cfg: DefaultBrownConfig()}
}

// ConfigurePinhole fits a Brown model. cfg.NumRadial, cfg.Tangential and cfg.ZeroSkew apply.
func (c *CalibrateMonoPlanar) ConfigurePinhole(cfg MonoConfig) {
	c.kind, c.cfg = BrownModel, cfg
}

// ConfigureUniversalOmni fits a UniversalOmni model. The Brown settings and cfg.MirrorOffset apply.
func (c *CalibrateMonoPlanar) ConfigureUniversalOmni(cfg MonoConfig) {
	c.kind, c.cfg = UniversalOmniModel, cfg
}

// ConfigureKannalaBrandt fits a KannalaBrandt model. cfg.NumSymmetric, cfg.NumAsymmetric and
// cfg.ZeroSkew apply.
func (c *CalibrateMonoPlanar) ConfigureKannalaBrandt(cfg MonoConfig) {
	c.kind, c.cfg = KannalaBrandtModel, cfg
}

// AddImage adds the observations of one image.
func (c *CalibrateMonoPlanar) AddImage(obs Observation) {
	c.observations = append(c.observations, obs)
}

// Reset removes all images and results.
func (c *CalibrateMonoPlanar) Reset() {
	c.observations = nil
	c.solution = nil
}

// Process runs the calibration over every added image.
func (c *CalibrateMonoPlanar) Process(ctx context.Context) (transform.CameraModel, error) {
	sol, err := solveMono(ctx, c.kind, c.cfg, c.layout, c.observations)
	if err != nil {
		return nil, err
	}
	c.solution = sol
	return sol.model, nil
}

// Errors returns the residual statistics of every image from the last Process call.
func (c *CalibrateMonoPlanar) Errors() []ImageResults {
	if c.solution == nil {
		return nil
	}
	return c.solution.results
}

// TargetPoses returns the estimated pose of the target in the camera frame for every image.
func (c *CalibrateMonoPlanar) TargetPoses() []*spatialmath.Pose {
	if c.solution == nil {
		return nil
	}
	return c.solution.poses
}

func calibrate[M transform.CameraModel](kind ModelKind, obs []Observation, layout Layout, cfg MonoConfig) (M, []ImageResults, error) {
	var zero M
	sol, err := solveMono(context.Background(), kind, cfg, layout, obs)
	if err != nil {
		return zero, nil, err
	}
	return sol.model.(M), sol.results, nil
}

// CalibrateBrown fits a Brown model, see DefaultBrownConfig.
func CalibrateBrown(obs []Observation, layout Layout, cfg MonoConfig) (*transform.Brown, []ImageResults, error) {
	return calibrate[*transform.Brown](BrownModel, obs, layout, cfg)
}

// CalibrateUniversal fits a UniversalOmni model, see DefaultUniversalConfig.
func CalibrateUniversal(obs []Observation, layout Layout, cfg MonoConfig) (*transform.UniversalOmni, []ImageResults, error) {
	return calibrate[*transform.UniversalOmni](UniversalOmniModel, obs, layout, cfg)
}

// CalibrateKannalaBrandt fits a KannalaBrandt model, see DefaultKannalaBrandtConfig.
func CalibrateKannalaBrandt(obs []Observation, layout Layout, cfg MonoConfig) (*transform.KannalaBrandt, []ImageResults, error) {
	return calibrate[*transform.KannalaBrandt](KannalaBrandtModel, obs, layout, cfg)
}
