// Package config defines the calibration job file read by the lenscal command.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/lenscal/rimage/calibration"
	"go.viam.com/lenscal/rimage/transform"
)

// Target types.
const (
	ChessboardTarget = "chessboard"
	SquareGridTarget = "square_grid"
)

// Config describes a calibration job: the target, the cameras to calibrate and optionally a stereo
// pair made of two of those cameras.
type Config struct {
	Target  TargetConfig    `json:"target"`
	Cameras []*CameraConfig `json:"cameras"`
	Stereo  *StereoConfig   `json:"stereo,omitempty"`
	Solver  *SolverConfig   `json:"solver,omitempty"`
	Debug   bool            `json:"debug,omitempty"`

	// ConfigFilePath is where the config was read from. Relative paths in the config are relative
	// to its directory.
	ConfigFilePath string `json:"-"`
}

// TargetConfig describes the planar calibration target.
type TargetConfig struct {
	Type        string  `json:"type" jsonschema:"enum=chessboard,enum=square_grid"`
	Rows        int     `json:"rows"`
	Cols        int     `json:"cols"`
	SquareWidth float64 `json:"square_width"`
	SpaceWidth  float64 `json:"space_width,omitempty"`
}

// CameraConfig describes one camera to calibrate. Attributes hold the model specific settings, see
// ModelAttributes.
type CameraConfig struct {
	Name         string                 `json:"name"`
	Model        string                 `json:"model" jsonschema:"enum=brown,enum=universal_omni,enum=kannala_brandt"`
	Observations string                 `json:"observations"`
	Output       string                 `json:"output,omitempty"`
	Attributes   map[string]interface{} `json:"attributes,omitempty"`
}

// ModelAttributes are the optional per model settings of a camera. Unset fields keep the defaults
// of the model.
type ModelAttributes struct {
	ZeroSkew      *bool    `json:"zero_skew,omitempty"`
	NumRadial     *int     `json:"num_radial,omitempty"`
	Tangential    *bool    `json:"tangential,omitempty"`
	MirrorOffset  *float64 `json:"mirror_offset,omitempty" jsonschema:"description=fixed mirror offset, estimated when unset"`
	NumSymmetric  *int     `json:"num_symmetric,omitempty"`
	NumAsymmetric *int     `json:"num_asymmetric,omitempty"`
}

// StereoConfig pairs two cameras of the job. Both cameras must use the same images in the same
// order.
type StereoConfig struct {
	Left       string                 `json:"left"`
	Right      string                 `json:"right"`
	Output     string                 `json:"output,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// SolverConfig overrides the refinement budget.
type SolverConfig struct {
	MaxIterations     int     `json:"max_iterations,omitempty"`
	FunctionTolerance float64 `json:"function_tolerance,omitempty"`
	GradientTolerance float64 `json:"gradient_tolerance,omitempty"`
	StepTolerance     float64 `json:"step_tolerance,omitempty"`
	InitialDamping    float64 `json:"initial_damping,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (c *TargetConfig) Validate(path string) error {
	switch c.Type {
	case ChessboardTarget, SquareGridTarget:
	case "":
		return utils.NewConfigValidationFieldRequiredError(path, "type")
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown target type %q", c.Type))
	}
	if c.Rows <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "rows")
	}
	if c.Cols <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "cols")
	}
	if c.SquareWidth <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "square_width")
	}
	if c.SpaceWidth < 0 {
		return utils.NewConfigValidationError(path, errors.New("space_width cannot be negative"))
	}
	return nil
}

// Layout returns the target points.
func (c *TargetConfig) Layout() (calibration.Layout, error) {
	if c.Type == SquareGridTarget {
		return calibration.NewSquareGridLayout(c.Rows, c.Cols, c.SquareWidth, c.SpaceWidth)
	}
	return calibration.NewChessboardLayout(c.Rows, c.Cols, c.SquareWidth)
}

// Validate ensures all parts of the config are valid.
func (c *CameraConfig) Validate(path string) error {
	if c.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if c.Observations == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "observations")
	}
	if _, err := c.MonoConfig(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// Kind returns the model kind, brown when unset.
func (c *CameraConfig) Kind() calibration.ModelKind {
	if c.Model == "" {
		return calibration.BrownModel
	}
	return calibration.ModelKind(c.Model)
}

// MonoConfig returns the calibration settings of the camera: the defaults of its model with the
// attributes applied.
func (c *CameraConfig) MonoConfig() (calibration.MonoConfig, error) {
	cfg, err := calibration.DefaultConfig(c.Kind())
	if err != nil {
		return calibration.MonoConfig{}, err
	}
	return applyAttributes(cfg, c.Attributes)
}

// Validate ensures all parts of the config are valid.
func (c *StereoConfig) Validate(path string, cameras []*CameraConfig) error {
	if c.Left == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "left")
	}
	if c.Right == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "right")
	}
	if c.Left == c.Right {
		return utils.NewConfigValidationError(path, errors.New("left and right must be different cameras"))
	}
	for _, name := range []string{c.Left, c.Right} {
		cam := findCamera(cameras, name)
		if cam == nil {
			return utils.NewConfigValidationError(path, errors.Errorf("unknown camera %q", name))
		}
		if cam.Kind() != calibration.BrownModel {
			return utils.NewConfigValidationError(path, errors.Errorf("camera %q must use the brown model", name))
		}
	}
	if _, err := c.MonoConfig(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// MonoConfig returns the settings shared by both cameras of the pair.
func (c *StereoConfig) MonoConfig() (calibration.MonoConfig, error) {
	return applyAttributes(calibration.DefaultStereoConfig(), c.Attributes)
}

func findCamera(cameras []*CameraConfig, name string) *CameraConfig {
	for _, cam := range cameras {
		if cam.Name == name {
			return cam
		}
	}
	return nil
}

// applyAttributes decodes attributes into ModelAttributes and sets every given field on cfg.
// Unknown attributes are an error.
func applyAttributes(cfg calibration.MonoConfig, attributes map[string]interface{}) (calibration.MonoConfig, error) {
	var attrs ModelAttributes
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:  "json",
		Result:   &attrs,
		Metadata: &md,
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return cfg, errors.Wrap(err, "error decoding attributes")
	}
	if len(md.Unused) > 0 {
		return cfg, errors.Errorf("unknown attributes %v", md.Unused)
	}

	if attrs.ZeroSkew != nil {
		cfg.ZeroSkew = *attrs.ZeroSkew
	}
	if attrs.NumRadial != nil {
		cfg.NumRadial = *attrs.NumRadial
	}
	if attrs.Tangential != nil {
		cfg.Tangential = *attrs.Tangential
	}
	if attrs.MirrorOffset != nil {
		cfg.MirrorOffset = calibration.FixedMirrorOffset(*attrs.MirrorOffset)
	}
	if attrs.NumSymmetric != nil {
		cfg.NumSymmetric = *attrs.NumSymmetric
	}
	if attrs.NumAsymmetric != nil {
		cfg.NumAsymmetric = *attrs.NumAsymmetric
	}
	if cfg.NumRadial < 0 || cfg.NumSymmetric < 0 || cfg.NumAsymmetric < 0 {
		return cfg, transform.NewInvalidConfigurationError("term counts cannot be negative")
	}
	return cfg, nil
}

// Ensure validates the config and fills in defaults.
func (c *Config) Ensure() error {
	if err := c.Target.Validate("target"); err != nil {
		return err
	}
	if len(c.Cameras) == 0 {
		return utils.NewConfigValidationFieldRequiredError("", "cameras")
	}
	seen := map[string]bool{}
	for idx, cam := range c.Cameras {
		path := fmt.Sprintf("%s.%d", "cameras", idx)
		if err := cam.Validate(path); err != nil {
			return err
		}
		if seen[cam.Name] {
			return utils.NewConfigValidationError(path, errors.Errorf("duplicate camera name %q", cam.Name))
		}
		seen[cam.Name] = true
	}
	if c.Stereo != nil {
		if err := c.Stereo.Validate("stereo", c.Cameras); err != nil {
			return err
		}
	}
	return nil
}

// SolverConfig returns the solver budget of the job.
func (c *Config) SolverConfig() calibration.SolverConfig {
	if c.Solver == nil {
		return calibration.DefaultSolverConfig()
	}
	return calibration.SolverConfig{
		MaxIterations:     c.Solver.MaxIterations,
		FunctionTolerance: c.Solver.FunctionTolerance,
		GradientTolerance: c.Solver.GradientTolerance,
		StepTolerance:     c.Solver.StepTolerance,
		InitialDamping:    c.Solver.InitialDamping,
	}
}

// ResolvePath returns path relative to the directory of the config file.
func (c *Config) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) || c.ConfigFilePath == "" {
		return path
	}
	return filepath.Join(filepath.Dir(c.ConfigFilePath), path)
}

// Read reads a config from the given file. Environment variables in the file are substituted.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf))
}

// FromReader reads a config from the given reader and specifies where, if applicable, the file
// the reader originated from.
func FromReader(originalPath string, r io.Reader) (*Config, error) {
	cfg := Config{ConfigFilePath: originalPath}
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode Config from json")
	}
	if err := cfg.Ensure(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Schema returns the JSON schema of the job file.
func Schema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}

// AttributesSchema returns the JSON schema of the camera attributes.
func AttributesSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&ModelAttributes{})
}
