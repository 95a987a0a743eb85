package calibration

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/lenscal/rimage/transform"
)

func TestCalibrateBatch(t *testing.T) {
	layout := testLayout(t)
	obs := renderTestObservations(t, testBrown(), layout, 4)

	jobs := []BatchJob{
		{Name: "front", Kind: BrownModel, Observations: obs, Layout: layout, Config: DefaultBrownConfig()},
		{Name: "back", Kind: BrownModel, Observations: obs[:1], Layout: layout, Config: DefaultBrownConfig()},
		{Name: "side", Kind: ModelKind("fisheye"), Observations: obs, Layout: layout},
	}
	results, err := CalibrateBatch(context.Background(), jobs)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, results, test.ShouldHaveLength, 3)

	test.That(t, results[0].Name, test.ShouldEqual, "front")
	test.That(t, results[0].Err, test.ShouldBeNil)
	test.That(t, results[0].Results, test.ShouldHaveLength, 4)
	b, ok := results[0].Model.(*transform.Brown)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, b.Fx, test.ShouldAlmostEqual, 500, 1e-3)

	test.That(t, errors.Is(results[1].Err, ErrInsufficientData), test.ShouldBeTrue)
	test.That(t, results[1].Model, test.ShouldBeNil)
	test.That(t, errors.Is(results[2].Err, transform.ErrUnsupportedModel), test.ShouldBeTrue)

	test.That(t, err.Error(), test.ShouldContainSubstring, `"back"`)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"side"`)
}

func TestCalibrateBatchEmpty(t *testing.T) {
	results, err := CalibrateBatch(context.Background(), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results, test.ShouldBeEmpty)
}

func TestCalibrateBatchCanceled(t *testing.T) {
	layout := testLayout(t)
	obs := renderTestObservations(t, testBrown(), layout, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := CalibrateBatch(ctx, []BatchJob{
		{Name: "front", Kind: BrownModel, Observations: obs, Layout: layout, Config: DefaultBrownConfig()},
	})
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, results, test.ShouldHaveLength, 1)
	test.That(t, results[0].Name, test.ShouldEqual, "front")
	test.That(t, errors.Is(results[0].Err, context.Canceled), test.ShouldBeTrue)
}
