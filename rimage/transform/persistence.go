package transform

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"gopkg.in/yaml.v3"

	"go.viam.com/lenscal/spatialmath"
)

// Names used in the "model" field of saved camera models.
const (
	PinholeModelName       = "pinhole"
	BrownModelName         = "brown"
	UniversalOmniModelName = "universal_omni"
	KannalaBrandtModelName = "kannala_brandt"
)

// modelDocument is the on disk layout shared by every variant.
type modelDocument struct {
	Model   string `json:"model" yaml:"model"`
	Pinhole `yaml:",inline"`

	Radial       []float64 `json:"radial,omitempty" yaml:"radial,omitempty"`
	T1           float64   `json:"t1,omitempty" yaml:"t1,omitempty"`
	T2           float64   `json:"t2,omitempty" yaml:"t2,omitempty"`
	MirrorOffset float64   `json:"mirror_offset,omitempty" yaml:"mirror_offset,omitempty"`

	Symmetric   []float64 `json:"symmetric,omitempty" yaml:"symmetric,omitempty"`
	RadialTrig  []float64 `json:"radial_trig,omitempty" yaml:"radial_trig,omitempty"`
	Tangent     []float64 `json:"tangent,omitempty" yaml:"tangent,omitempty"`
	TangentTrig []float64 `json:"tangent_trig,omitempty" yaml:"tangent_trig,omitempty"`
}

type poseDocument struct {
	Rotation    []float64 `json:"rotation" yaml:"rotation,flow"`
	Translation []float64 `json:"translation" yaml:"translation,flow"`
}

type stereoDocument struct {
	Left        modelDocument `json:"left" yaml:"left"`
	Right       modelDocument `json:"right" yaml:"right"`
	RightToLeft poseDocument  `json:"right_to_left" yaml:"right_to_left"`
}

func toDocument(model CameraModel) (modelDocument, error) {
	switch m := model.(type) {
	case *Pinhole:
		return modelDocument{Model: PinholeModelName, Pinhole: *m}, nil
	case *Brown:
		return modelDocument{Model: BrownModelName, Pinhole: m.Pinhole, Radial: m.Radial, T1: m.T1, T2: m.T2}, nil
	case *UniversalOmni:
		return modelDocument{
			Model: UniversalOmniModelName, Pinhole: m.Pinhole,
			Radial: m.Radial, T1: m.T1, T2: m.T2, MirrorOffset: m.MirrorOffset,
		}, nil
	case *KannalaBrandt:
		return modelDocument{
			Model: KannalaBrandtModelName, Pinhole: m.Pinhole,
			Symmetric: m.Symmetric, Radial: m.Radial, RadialTrig: m.RadialTrig,
			Tangent: m.Tangent, TangentTrig: m.TangentTrig,
		}, nil
	default:
		return modelDocument{}, NewUnsupportedModelError(fmt.Sprintf("cannot save camera model %T", model))
	}
}

func (doc *modelDocument) toModel() (CameraModel, error) {
	switch doc.Model {
	case PinholeModelName:
		p := doc.Pinhole
		return &p, nil
	case BrownModelName:
		b := &Brown{Pinhole: doc.Pinhole}
		b.SetDistortion(doc.Radial, doc.T1, doc.T2)
		return b, nil
	case UniversalOmniModelName:
		u := &UniversalOmni{Brown: Brown{Pinhole: doc.Pinhole}, MirrorOffset: doc.MirrorOffset}
		u.SetDistortion(doc.Radial, doc.T1, doc.T2)
		return u, nil
	case KannalaBrandtModelName:
		kb := &KannalaBrandt{Pinhole: doc.Pinhole}
		kb.SetCoefficients(doc.Symmetric, doc.Radial, doc.RadialTrig, doc.Tangent, doc.TangentTrig)
		return kb, nil
	default:
		return nil, NewUnsupportedModelError(fmt.Sprintf("do not know how to parse %q camera model", doc.Model))
	}
}

func toPoseDocument(p *spatialmath.Pose) poseDocument {
	return poseDocument{
		Rotation:    p.Rotation.Data(),
		Translation: []float64{p.Translation.X, p.Translation.Y, p.Translation.Z},
	}
}

func (doc *poseDocument) toPose() (*spatialmath.Pose, error) {
	rot, err := spatialmath.NewRotationMatrix(doc.Rotation)
	if err != nil {
		return nil, errors.Wrap(err, "invalid rotation")
	}
	if len(doc.Translation) != 3 {
		return nil, errors.Errorf("translation has %d elements, need exactly 3", len(doc.Translation))
	}
	return spatialmath.NewPose(rot, r3.Vector{X: doc.Translation[0], Y: doc.Translation[1], Z: doc.Translation[2]}), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func readDocument(path string, v interface{}) error {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "error opening file")
	}
	defer utils.UncheckedErrorFunc(f.Close)
	data, err := io.ReadAll(f)
	if err != nil {
		return errors.Wrap(err, "error reading file")
	}
	if isYAML(path) {
		return errors.Wrapf(yaml.Unmarshal(data, v), "error parsing %q", path)
	}
	return errors.Wrapf(json.Unmarshal(data, v), "error parsing %q", path)
}

func writeDocument(path string, v interface{}) (err error) {
	var data []byte
	if isYAML(path) {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return errors.Wrap(err, "error encoding document")
	}
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "error creating file")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	_, err = f.Write(data)
	return err
}

// LoadModel reads a camera model from a .json or .yaml file.
func LoadModel(path string) (CameraModel, error) {
	var doc modelDocument
	if err := readDocument(path, &doc); err != nil {
		return nil, err
	}
	return doc.toModel()
}

// SaveModel writes a camera model to a .json or .yaml file.
func SaveModel(model CameraModel, path string) error {
	doc, err := toDocument(model)
	if err != nil {
		return err
	}
	return writeDocument(path, &doc)
}

// LoadStereo reads stereo parameters from a .json or .yaml file.
func LoadStereo(path string) (*StereoParameters, error) {
	var doc stereoDocument
	if err := readDocument(path, &doc); err != nil {
		return nil, err
	}
	left, err := doc.Left.toModel()
	if err != nil {
		return nil, errors.Wrap(err, "left camera")
	}
	right, err := doc.Right.toModel()
	if err != nil {
		return nil, errors.Wrap(err, "right camera")
	}
	leftBrown, ok := left.(*Brown)
	if !ok {
		return nil, NewUnsupportedModelError(fmt.Sprintf("left camera must be %q, got %q", BrownModelName, doc.Left.Model))
	}
	rightBrown, ok := right.(*Brown)
	if !ok {
		return nil, NewUnsupportedModelError(fmt.Sprintf("right camera must be %q, got %q", BrownModelName, doc.Right.Model))
	}
	pose, err := doc.RightToLeft.toPose()
	if err != nil {
		return nil, err
	}
	return &StereoParameters{Left: leftBrown, Right: rightBrown, RightToLeft: pose}, nil
}

// SaveStereo writes stereo parameters to a .json or .yaml file.
func SaveStereo(params *StereoParameters, path string) error {
	left, err := toDocument(params.Left)
	if err != nil {
		return err
	}
	right, err := toDocument(params.Right)
	if err != nil {
		return err
	}
	return writeDocument(path, &stereoDocument{Left: left, Right: right, RightToLeft: toPoseDocument(params.RightToLeft)})
}
