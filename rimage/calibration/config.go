package calibration

import (
	"fmt"

	"go.viam.com/lenscal/logging"
	"go.viam.com/lenscal/rimage/transform"
)

// MirrorOffset is either FixedMirrorOffset or EstimatedMirrorOffset.
type MirrorOffset interface {
	fmt.Stringer
	isMirrorOffset()
}

// FixedMirrorOffset holds the mirror offset at the given value during calibration.
type FixedMirrorOffset float64

// EstimatedMirrorOffset makes the mirror offset a free parameter of the calibration.
type EstimatedMirrorOffset struct{}

func (FixedMirrorOffset) isMirrorOffset()     {}
func (EstimatedMirrorOffset) isMirrorOffset() {}

func (f FixedMirrorOffset) String() string {
	return fmt.Sprintf("fixed(%f)", float64(f))
}

func (EstimatedMirrorOffset) String() string {
	return "estimated"
}

// SolverConfig is the budget of the Levenberg-Marquardt refinement. Zero values are replaced by
// the defaults.
type SolverConfig struct {
	// MaxIterations bounds the accepted steps.
	MaxIterations int
	// FunctionTolerance stops when an accepted step reduces the cost by less than this fraction.
	FunctionTolerance float64
	// GradientTolerance stops when the largest gradient element falls below it.
	GradientTolerance float64
	// StepTolerance stops when a step is smaller than this fraction of the parameter norm.
	StepTolerance float64
	// InitialDamping is the starting Levenberg-Marquardt damping factor.
	InitialDamping float64
}

// DefaultSolverConfig returns the solver budget used when none is given.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		MaxIterations:     500,
		FunctionTolerance: 1e-12,
		GradientTolerance: 1e-12,
		StepTolerance:     1e-12,
		InitialDamping:    1e-3,
	}
}

func (sc SolverConfig) withDefaults() SolverConfig {
	def := DefaultSolverConfig()
	if sc.MaxIterations <= 0 {
		sc.MaxIterations = def.MaxIterations
	}
	if sc.FunctionTolerance <= 0 {
		sc.FunctionTolerance = def.FunctionTolerance
	}
	if sc.GradientTolerance <= 0 {
		sc.GradientTolerance = def.GradientTolerance
	}
	if sc.StepTolerance <= 0 {
		sc.StepTolerance = def.StepTolerance
	}
	if sc.InitialDamping <= 0 {
		sc.InitialDamping = def.InitialDamping
	}
	return sc
}

// MonoConfig holds the structural hyperparameters of a single camera calibration. Which fields
// apply depends on the model being calibrated.
type MonoConfig struct {
	// ZeroSkew forces the skew to zero.
	ZeroSkew bool
	// NumRadial is the number of Brown radial terms.
	NumRadial int
	// Tangential fits the Brown tangential terms.
	Tangential bool
	// MirrorOffset of a UniversalOmni model. nil means estimated.
	MirrorOffset MirrorOffset
	// NumSymmetric is the number of Kannala-Brandt symmetric terms, including the first one which
	// is held at 1.
	NumSymmetric int
	// NumAsymmetric is the number of Kannala-Brandt asymmetric radial and tangent terms.
	NumAsymmetric int

	Solver SolverConfig
	// Logger receives progress messages. nil disables logging.
	Logger logging.Logger
}

// DefaultBrownConfig returns 2 radial terms, tangential terms and zero skew.
func DefaultBrownConfig() MonoConfig {
	return MonoConfig{ZeroSkew: true, NumRadial: 2, Tangential: true}
}

// DefaultUniversalConfig returns the Brown defaults with an estimated mirror offset.
func DefaultUniversalConfig() MonoConfig {
	cfg := DefaultBrownConfig()
	cfg.MirrorOffset = EstimatedMirrorOffset{}
	return cfg
}

// DefaultKannalaBrandtConfig returns 5 symmetric terms, no asymmetric terms and zero skew.
func DefaultKannalaBrandtConfig() MonoConfig {
	return MonoConfig{ZeroSkew: true, NumSymmetric: 5}
}

// DefaultStereoConfig returns 4 radial terms, no tangential terms and zero skew.
func DefaultStereoConfig() MonoConfig {
	return MonoConfig{ZeroSkew: true, NumRadial: 4}
}

func (cfg *MonoConfig) logger() logging.Logger {
	if cfg.Logger == nil {
		return logging.NewBlankLogger("calibration")
	}
	return cfg.Logger
}

// ModelKind names the camera model a calibration fits.
type ModelKind string

// Supported model kinds, matching the names used when models are saved.
const (
	BrownModel         = ModelKind(transform.BrownModelName)
	UniversalOmniModel = ModelKind(transform.UniversalOmniModelName)
	KannalaBrandtModel = ModelKind(transform.KannalaBrandtModelName)
)

// DefaultConfig returns the default configuration for the model kind.
func DefaultConfig(kind ModelKind) (MonoConfig, error) {
	switch kind {
	case BrownModel:
		return DefaultBrownConfig(), nil
	case UniversalOmniModel:
		return DefaultUniversalConfig(), nil
	case KannalaBrandtModel:
		return DefaultKannalaBrandtConfig(), nil
	default:
		return MonoConfig{}, transform.NewUnsupportedModelError(fmt.Sprintf("cannot calibrate %q models", kind))
	}
}
