package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/lenscal/config"
	"go.viam.com/lenscal/rimage"
	"go.viam.com/lenscal/rimage/calibration"
	"go.viam.com/lenscal/rimage/transform"
	"go.viam.com/lenscal/spatialmath"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run(append([]string{"lenscal"}, args...))
	return out.String(), err
}

func saveTestModel(t *testing.T, path string, model transform.CameraModel) {
	t.Helper()
	test.That(t, transform.SaveModel(model, path), test.ShouldBeNil)
}

func TestCalibrateCommand(t *testing.T) {
	dir := t.TempDir()
	truth := &transform.Brown{Pinhole: *transform.NewPinhole(500, 510, 0, 320, 240, 640, 480)}
	truth.SetDistortion([]float64{-0.2, 0.05}, 0, 0)
	modelPath := filepath.Join(dir, "truth.json")
	saveTestModel(t, modelPath, truth)

	target := []string{"--rows", "7", "--cols", "9", "--square-width", "0.03"}
	obsPath := filepath.Join(dir, "front_obs.json")
	out, err := runApp(t, append([]string{"simulate", "--model", modelPath, "--output", obsPath}, target...)...)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "wrote 6 observations")

	job := config.Config{
		Target: config.TargetConfig{Type: config.ChessboardTarget, Rows: 7, Cols: 9, SquareWidth: 0.03},
		Cameras: []*config.CameraConfig{
			{Name: "front", Observations: "front_obs.json", Output: "front.yaml"},
			{
				Name:         "broken",
				Model:        "kannala_brandt",
				Observations: "front_obs.json",
				Attributes:   map[string]interface{}{"num_symmetric": 0},
			},
		},
	}
	data, err := json.Marshal(job)
	test.That(t, err, test.ShouldBeNil)
	jobPath := filepath.Join(dir, "job.json")
	test.That(t, os.WriteFile(jobPath, data, 0o600), test.ShouldBeNil)

	plotDir := t.TempDir()
	out, err = runApp(t, "calibrate", "--config", jobPath, "--plot-dir", plotDir)
	// a Kannala-Brandt model needs at least one symmetric term
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"broken"`)
	test.That(t, out, test.ShouldContainSubstring, "front: saved")
	test.That(t, out, test.ShouldContainSubstring, "point error histogram")

	model, err := transform.LoadModel(filepath.Join(dir, "front.yaml"))
	test.That(t, err, test.ShouldBeNil)
	found, ok := model.(*transform.Brown)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, found.Fx, test.ShouldAlmostEqual, truth.Fx, 1e-3)
	test.That(t, found.Radial[0], test.ShouldAlmostEqual, truth.Radial[0], 1e-5)
	_, err = os.Stat(filepath.Join(plotDir, "front_residuals.png"))
	test.That(t, err, test.ShouldBeNil)
	_, err = os.Stat(filepath.Join(dir, "broken.json"))
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)

	out, err = runApp(t, "inspect", "--model", filepath.Join(dir, "front.yaml"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "radial")

	out, err = runApp(t, append([]string{"pose", "--model", modelPath, "--observations", obsPath}, target...)...)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, strings.ToLower(out), test.ShouldContainSubstring, "rotation (deg)")

	_, err = runApp(t, "calibrate", "--config", filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRectifyCommand(t *testing.T) {
	dir := t.TempDir()
	model := &transform.Brown{Pinhole: *transform.NewPinhole(60, 60, 0, 32, 24, 64, 48)}
	model.SetDistortion([]float64{-0.1}, 0, 0)
	modelPath := filepath.Join(dir, "model.json")
	saveTestModel(t, modelPath, model)

	img := rimage.NewImage(64, 48, 3)
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, 0, float32(x*4))
			img.Set(x, y, 1, float32(y*5))
		}
	}
	inPath := filepath.Join(dir, "in.png")
	test.That(t, rimage.WriteImageToFile(inPath, img), test.ShouldBeNil)
	outPath := filepath.Join(dir, "out.png")
	undistortedPath := filepath.Join(dir, "undistorted.json")

	out, err := runApp(t, "rectify", "--model", modelPath, "--input", inPath, "--output", outPath,
		"--adjustment", "expand", "--border", "extend", "--model-output", undistortedPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "wrote")

	rectified, err := rimage.ReadImageFromFile(outPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rectified.Width(), test.ShouldEqual, 64)
	test.That(t, rectified.Height(), test.ShouldEqual, 48)
	undistorted, err := transform.LoadModel(undistortedPath)
	test.That(t, err, test.ShouldBeNil)
	_, ok := undistorted.(*transform.Pinhole)
	test.That(t, ok, test.ShouldBeTrue)

	_, err = runApp(t, "rectify", "--model", modelPath, "--input", inPath, "--output", inPath)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = runApp(t, "rectify", "--model", modelPath, "--input", inPath, "--output", outPath, "--border", "wrap")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "wrap")

	small := &transform.Brown{Pinhole: *transform.NewPinhole(60, 60, 0, 16, 12, 32, 24)}
	smallPath := filepath.Join(dir, "small.json")
	saveTestModel(t, smallPath, small)
	_, err = runApp(t, "rectify", "--model", smallPath, "--input", inPath, "--output", outPath)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "32x24")
}

func TestSchemaCommand(t *testing.T) {
	out, err := runApp(t, "schema")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "square_width")

	out, err = runApp(t, "schema", "--attributes")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "num_symmetric")
}

func TestInspectCommand(t *testing.T) {
	_, err := runApp(t, "inspect")
	test.That(t, err, test.ShouldNotBeNil)

	dir := t.TempDir()
	left := &transform.Brown{Pinhole: *transform.NewPinhole(500, 500, 0, 320, 240, 640, 480)}
	right := &transform.Brown{Pinhole: *transform.NewPinhole(505, 505, 0, 318, 242, 640, 480)}
	params := &transform.StereoParameters{Left: left, Right: right, RightToLeft: spatialmath.NewPose(nil, r3.Vector{X: 0.1})}
	path := filepath.Join(dir, "stereo.json")
	test.That(t, transform.SaveStereo(params, path), test.ShouldBeNil)

	out, err := runApp(t, "inspect", "--stereo", path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "baseline: 0.100000")
}

func TestLayoutFlagsValidation(t *testing.T) {
	dir := t.TempDir()
	obsPath := filepath.Join(dir, "obs.json")
	test.That(t, calibration.SaveObservations(nil, obsPath), test.ShouldBeNil)
	_, err := runApp(t, "pose", "--model", "unused.json", "--observations", obsPath,
		"--rows", "7", "--cols", "9", "--square-width", "0.03", "--target-type", "circles")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "circles")
}
