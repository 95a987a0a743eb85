package calibration

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/lenscal/rimage/transform"
)

func TestObservationWireFormat(t *testing.T) {
	var obs Observation
	err := json.Unmarshal([]byte(`{"width": 640, "height": 480, "pixels": [[0, 10.5, 20], [7, 30, 40.25]]}`), &obs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, obs.Width, test.ShouldEqual, 640)
	test.That(t, obs.Height, test.ShouldEqual, 480)
	test.That(t, obs.Points, test.ShouldResemble, []PointIndex2D{{Index: 0, X: 10.5, Y: 20}, {Index: 7, X: 30, Y: 40.25}})

	data, err := json.Marshal(obs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, `{"width":640,"height":480,"pixels":[[0,10.5,20],[7,30,40.25]]}`)

	err = json.Unmarshal([]byte(`{"width": 640, "height": 480, "pixels": [[0.5, 10, 20]]}`), &obs)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not an integer")
}

func TestObservationFiles(t *testing.T) {
	layout := testLayout(t)
	obs := renderTestObservations(t, testBrown(), layout, 2)
	path := filepath.Join(t.TempDir(), "observations.json")
	test.That(t, SaveObservations(obs, path), test.ShouldBeNil)

	loaded, err := LoadObservations(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loaded, test.ShouldResemble, obs)

	_, err = LoadObservations(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestObservationCheckAgainst(t *testing.T) {
	layout := testLayout(t)
	obs := Observation{Points: []PointIndex2D{{Index: len(layout)}}}
	test.That(t, errors.Is(obs.checkAgainst(layout), transform.ErrInvalidConfiguration), test.ShouldBeTrue)
	obs.Points[0].Index = -1
	test.That(t, errors.Is(obs.checkAgainst(layout), transform.ErrInvalidConfiguration), test.ShouldBeTrue)
	obs.Points[0].Index = 0
	test.That(t, obs.checkAgainst(layout), test.ShouldBeNil)
}

func TestImageResults(t *testing.T) {
	// predicted minus observed
	r := newImageResults([]float64{3, 4, 0, 0, -1, 0})
	test.That(t, r.PointError, test.ShouldResemble, []float64{5, 0, 1})
	test.That(t, r.MeanError, test.ShouldAlmostEqual, 2)
	test.That(t, r.MaxError, test.ShouldEqual, 5)
	test.That(t, r.BiasX, test.ShouldAlmostEqual, -2.0/3)
	test.That(t, r.BiasY, test.ShouldAlmostEqual, -4.0/3)
	test.That(t, r.String(), test.ShouldContainSubstring, "mean=2.000000")

	test.That(t, newImageResults(nil), test.ShouldResemble, ImageResults{})
	test.That(t, OverallMeanError([]ImageResults{{MeanError: 1}, {MeanError: 3}}), test.ShouldEqual, 2)
	test.That(t, OverallMeanError(nil), test.ShouldEqual, 0)
}
