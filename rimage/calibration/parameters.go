package calibration

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/lenscal/rimage/transform"
	"go.viam.com/lenscal/spatialmath"
)

// poseParams is the number of parameters of one pose, a Rodrigues rotation and a translation.
const poseParams = 6

// trigTerms is the length of a Kannala-Brandt trig series. Only the last three terms are free.
const trigTerms = 4

// parameterization maps a camera model to and from the intrinsic block of the parameter vector.
// The block is fx, fy, cx, cy, [skew], then the model distortion terms.
type parameterization struct {
	kind           ModelKind
	zeroSkew       bool
	numRadial      int
	tangential     bool
	estimateMirror bool
	mirror         float64
	numSymmetric   int
	numAsymmetric  int
}

func newParameterization(kind ModelKind, cfg MonoConfig) (*parameterization, error) {
	p := &parameterization{kind: kind, zeroSkew: cfg.ZeroSkew}
	switch kind {
	case BrownModel, UniversalOmniModel:
		if cfg.NumRadial < 0 {
			return nil, transform.NewInvalidConfigurationError(fmt.Sprintf("negative number of radial terms %d", cfg.NumRadial))
		}
		p.numRadial = cfg.NumRadial
		p.tangential = cfg.Tangential
		if kind == UniversalOmniModel {
			switch mo := cfg.MirrorOffset.(type) {
			case FixedMirrorOffset:
				p.mirror = float64(mo)
			case EstimatedMirrorOffset, nil:
				p.estimateMirror = true
			default:
				return nil, transform.NewInvalidConfigurationError(fmt.Sprintf("unknown mirror offset %v", mo))
			}
		}
	case KannalaBrandtModel:
		if cfg.NumSymmetric < 1 {
			return nil, transform.NewInvalidConfigurationError(
				fmt.Sprintf("need at least one symmetric term, got %d", cfg.NumSymmetric))
		}
		if cfg.NumAsymmetric < 0 {
			return nil, transform.NewInvalidConfigurationError(
				fmt.Sprintf("negative number of asymmetric terms %d", cfg.NumAsymmetric))
		}
		p.numSymmetric = cfg.NumSymmetric
		p.numAsymmetric = cfg.NumAsymmetric
	default:
		return nil, transform.NewUnsupportedModelError(fmt.Sprintf("cannot calibrate %q models", kind))
	}
	return p, nil
}

func (p *parameterization) numIntrinsics() int {
	n := 4
	if !p.zeroSkew {
		n++
	}
	switch p.kind {
	case BrownModel, UniversalOmniModel:
		n += p.numRadial
		if p.tangential {
			n += 2
		}
		if p.estimateMirror {
			n++
		}
	case KannalaBrandtModel:
		n += p.numSymmetric - 1
		if p.numAsymmetric > 0 {
			n += 2*p.numAsymmetric + 2*(trigTerms-1)
		}
	}
	return n
}

// initialModel builds the starting model from the linear pinhole estimate.
func (p *parameterization) initialModel(k *transform.Pinhole) transform.CameraModel {
	switch p.kind {
	case UniversalOmniModel:
		// near the optical axis the unified model acts like a pinhole with focal length f/(1+ξ)
		scale := 1 + p.mirror
		u := &transform.UniversalOmni{MirrorOffset: p.mirror}
		u.Pinhole = *k
		u.SetMatrix(k.Fx*scale, k.Fy*scale, k.Skew*scale, k.Cx, k.Cy)
		u.Radial = make([]float64, p.numRadial)
		return u
	case KannalaBrandtModel:
		kb := &transform.KannalaBrandt{Pinhole: *k}
		kb.Symmetric = make([]float64, p.numSymmetric)
		kb.Symmetric[0] = 1
		if p.numAsymmetric > 0 {
			kb.Radial = make([]float64, p.numAsymmetric)
			kb.Tangent = make([]float64, p.numAsymmetric)
			// the trig series scale the polynomials, their first terms stay at 1
			kb.RadialTrig = []float64{1, 0, 0, 0}
			kb.TangentTrig = []float64{1, 0, 0, 0}
		}
		return kb
	default:
		b := &transform.Brown{Pinhole: *k}
		b.Radial = make([]float64, p.numRadial)
		return b
	}
}

// encode writes the intrinsic block of model into dst.
func (p *parameterization) encode(model transform.CameraModel, dst []float64) {
	k := model.Intrinsics()
	dst[0], dst[1], dst[2], dst[3] = k.Fx, k.Fy, k.Cx, k.Cy
	i := 4
	if !p.zeroSkew {
		dst[i] = k.Skew
		i++
	}
	switch m := model.(type) {
	case *transform.Brown:
		p.encodeBrown(m, dst[i:])
	case *transform.UniversalOmni:
		i += p.encodeBrown(&m.Brown, dst[i:])
		if p.estimateMirror {
			dst[i] = m.MirrorOffset
		}
	case *transform.KannalaBrandt:
		i += copy(dst[i:], m.Symmetric[1:p.numSymmetric])
		if p.numAsymmetric > 0 {
			i += copy(dst[i:], m.Radial[:p.numAsymmetric])
			i += copy(dst[i:], m.Tangent[:p.numAsymmetric])
			i += copy(dst[i:], m.RadialTrig[1:trigTerms])
			copy(dst[i:], m.TangentTrig[1:trigTerms])
		}
	default:
	}
}

func (p *parameterization) encodeBrown(b *transform.Brown, dst []float64) int {
	i := copy(dst, b.Radial[:p.numRadial])
	if p.tangential {
		dst[i], dst[i+1] = b.T1, b.T2
		i += 2
	}
	return i
}

// decode builds a model from the intrinsic block in src.
func (p *parameterization) decode(src []float64, width, height int) transform.CameraModel {
	k := transform.Pinhole{Fx: src[0], Fy: src[1], Cx: src[2], Cy: src[3], Width: width, Height: height}
	i := 4
	if !p.zeroSkew {
		k.Skew = src[i]
		i++
	}
	switch p.kind {
	case UniversalOmniModel:
		u := &transform.UniversalOmni{Brown: transform.Brown{Pinhole: k}, MirrorOffset: p.mirror}
		i += p.decodeBrown(src[i:], &u.Brown)
		if p.estimateMirror {
			u.MirrorOffset = src[i]
		}
		return u
	case KannalaBrandtModel:
		kb := &transform.KannalaBrandt{Pinhole: k}
		kb.Symmetric = make([]float64, p.numSymmetric)
		kb.Symmetric[0] = 1
		i += copy(kb.Symmetric[1:], src[i:i+p.numSymmetric-1])
		if p.numAsymmetric > 0 {
			n, t := p.numAsymmetric, trigTerms-1
			kb.Radial = append([]float64(nil), src[i:i+n]...)
			kb.Tangent = append([]float64(nil), src[i+n:i+2*n]...)
			kb.RadialTrig = append([]float64{1}, src[i+2*n:i+2*n+t]...)
			kb.TangentTrig = append([]float64{1}, src[i+2*n+t:i+2*n+2*t]...)
		}
		return kb
	default:
		b := &transform.Brown{Pinhole: k}
		p.decodeBrown(src[i:], b)
		return b
	}
}

func (p *parameterization) decodeBrown(src []float64, b *transform.Brown) int {
	b.Radial = append([]float64(nil), src[:p.numRadial]...)
	i := p.numRadial
	if p.tangential {
		b.T1, b.T2 = src[i], src[i+1]
		i += 2
	}
	return i
}

func encodePose(pose *spatialmath.Pose, dst []float64) {
	rv := spatialmath.RotationMatrixToRodrigues(pose.Rotation)
	dst[0], dst[1], dst[2] = rv.X, rv.Y, rv.Z
	dst[3], dst[4], dst[5] = pose.Translation.X, pose.Translation.Y, pose.Translation.Z
}

func decodePose(src []float64) *spatialmath.Pose {
	return spatialmath.NewPoseFromRodrigues(
		r3.Vector{X: src[0], Y: src[1], Z: src[2]},
		r3.Vector{X: src[3], Y: src[4], Z: src[5]},
	)
}

// projector maps a point in the camera frame to a pixel.
type projector func(p r3.Vector) (float64, float64)

func newProjector(model transform.CameraModel) (projector, error) {
	switch model.(type) {
	case *transform.Pinhole, *transform.Brown:
		nd, err := transform.NewNarrowDistortion[float64](model)
		if err != nil {
			return nil, err
		}
		toPixel := nd.Distort(false, true)
		return func(p r3.Vector) (float64, float64) {
			if p.Z <= 0 {
				return math.NaN(), math.NaN()
			}
			return toPixel.Compute(p.X/p.Z, p.Y/p.Z)
		}, nil
	case *transform.UniversalOmni, *transform.KannalaBrandt:
		wd, err := transform.NewWideDistortion[float64](model)
		if err != nil {
			return nil, err
		}
		stoP := wd.DistortStoP()
		return func(p r3.Vector) (float64, float64) {
			return stoP.Compute(p.X, p.Y, p.Z)
		}, nil
	default:
		return nil, transform.NewUnsupportedModelError(fmt.Sprintf("unknown camera model %T", model))
	}
}

// projectionResiduals writes predicted minus observed pixel coordinates, two per point.
func projectionResiduals(proj projector, pose *spatialmath.Pose, layout Layout, obs *Observation, dst []float64) {
	for j, p := range obs.Points {
		u, v := proj(pose.Transform(layout.Point3D(p.Index)))
		dst[2*j] = u - p.X
		dst[2*j+1] = v - p.Y
	}
}
