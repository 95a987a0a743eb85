package transform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/lenscal/spatialmath"
)

func TestModelPersistence(t *testing.T) {
	kb := &KannalaBrandt{Pinhole: *NewPinhole(300, 301, 0, 320, 240, 640, 480)}
	kb.SetCoefficients([]float64{1, 0.1}, []float64{0.01}, []float64{1, 2, 3, 4}, []float64{0.02}, []float64{5, 6, 7, 8})
	models := []CameraModel{
		NewPinhole(500, 510, 0.5, 320, 240, 640, 480),
		testBrown(),
		&Brown{Pinhole: *NewPinhole(500, 510, 0, 320, 240, 640, 480)},
		&UniversalOmni{Brown: *testBrown(), MirrorOffset: 0.75},
		kb,
	}
	dir := t.TempDir()
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		for i, m := range models {
			path := filepath.Join(dir, "model"+string(rune('a'+i))+ext)
			test.That(t, SaveModel(m, path), test.ShouldBeNil)
			loaded, err := LoadModel(path)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, loaded.Equal(m), test.ShouldBeTrue)
		}
	}
}

func TestLoadModelErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadModel(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldBeError)

	path := filepath.Join(dir, "bad.json")
	test.That(t, os.WriteFile(path, []byte(`{"model": "fisheye624", "fx": 1}`), 0o600), test.ShouldBeNil)
	_, err = LoadModel(path)
	test.That(t, errors.Is(err, ErrUnsupportedModel), test.ShouldBeTrue)

	path = filepath.Join(dir, "broken.json")
	test.That(t, os.WriteFile(path, []byte(`{"model": `), 0o600), test.ShouldBeNil)
	_, err = LoadModel(path)
	test.That(t, err, test.ShouldBeError)
}

func TestLoadModelFromHandWrittenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cam.yaml")
	doc := `model: brown
fx: 500
fy: 510
skew: 0
cx: 320
cy: 240
width: 640
height: 480
radial: [-0.2, 0.05]
t1: 0.001
t2: -0.002
`
	test.That(t, os.WriteFile(path, []byte(doc), 0o600), test.ShouldBeNil)
	loaded, err := LoadModel(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loaded.Equal(testBrown()), test.ShouldBeTrue)
}

func TestStereoPersistence(t *testing.T) {
	right := testBrown()
	right.SetMatrix(505, 508, 0, 318, 242)
	params := &StereoParameters{
		Left:        testBrown(),
		Right:       right,
		RightToLeft: spatialmath.NewPoseFromRodrigues(r3.Vector{X: 0.01, Y: -0.02, Z: 0.005}, r3.Vector{X: -0.12}),
	}
	test.That(t, params.Baseline(), test.ShouldAlmostEqual, 0.12)
	test.That(t, params.String(), test.ShouldContainSubstring, "right_to_left=Pose{")

	dir := t.TempDir()
	for _, name := range []string{"stereo.json", "stereo.yaml"} {
		path := filepath.Join(dir, name)
		test.That(t, SaveStereo(params, path), test.ShouldBeNil)
		loaded, err := LoadStereo(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, loaded.Left.Equal(params.Left), test.ShouldBeTrue)
		test.That(t, loaded.Right.Equal(params.Right), test.ShouldBeTrue)
		test.That(t, spatialmath.PoseAlmostEqual(loaded.RightToLeft, params.RightToLeft, 1e-12), test.ShouldBeTrue)
	}

	clone := params.Clone()
	clone.Left.Radial[0] = 3
	test.That(t, params.Left.Radial[0], test.ShouldEqual, -0.2)
}
