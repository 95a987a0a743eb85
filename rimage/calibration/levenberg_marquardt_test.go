package calibration

import (
	"context"
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/lenscal/logging"
)

// exponentialProblem fits y = a * exp(b * x), one block per sample.
func exponentialProblem(a, b float64) *leastSquares {
	ls := &leastSquares{numParams: 2}
	for i := 0; i < 20; i++ {
		x := float64(i) / 10
		y := a * math.Exp(b*x)
		ls.addBlock(1, []int{0, 1}, func(p, dst []float64) {
			dst[0] = p[0]*math.Exp(p[1]*x) - y
		})
	}
	return ls
}

func TestMinimize(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ls := exponentialProblem(2, 0.5)
	res, err := ls.minimize(context.Background(), []float64{1, 0}, DefaultSolverConfig(), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.x[0], test.ShouldAlmostEqual, 2, 1e-6)
	test.That(t, res.x[1], test.ShouldAlmostEqual, 0.5, 1e-6)
	test.That(t, res.cost, test.ShouldBeLessThan, 1e-12)
	test.That(t, res.iterations, test.ShouldBeGreaterThan, 1)
	test.That(t, res.reason, test.ShouldNotBeEmpty)
}

func TestMinimizeStartsAtSolution(t *testing.T) {
	ls := exponentialProblem(2, 0.5)
	res, err := ls.minimize(context.Background(), []float64{2, 0.5}, DefaultSolverConfig(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.iterations, test.ShouldEqual, 1)
	test.That(t, res.x, test.ShouldResemble, []float64{2, 0.5})
}

func TestMinimizeUnusedParameter(t *testing.T) {
	// the third parameter never reaches the residuals, JᵀJ is singular
	ls := exponentialProblem(2, 0.5)
	ls.numParams = 3
	for i := range ls.blocks {
		ls.blocks[i].deps = append(ls.blocks[i].deps, 2)
	}
	res, err := ls.minimize(context.Background(), []float64{1, 0, 7}, DefaultSolverConfig(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.x[0], test.ShouldAlmostEqual, 2, 1e-6)
	test.That(t, res.x[1], test.ShouldAlmostEqual, 0.5, 1e-6)
	test.That(t, res.x[2], test.ShouldEqual, 7)
}

func TestMinimizeFailures(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ls := exponentialProblem(2, 0.5)

	cfg := DefaultSolverConfig()
	cfg.MaxIterations = 1
	_, err := ls.minimize(context.Background(), []float64{1, 0}, cfg, logger)
	test.That(t, errors.Is(err, ErrConvergence), test.ShouldBeTrue)

	_, err = ls.minimize(context.Background(), []float64{math.NaN(), 0}, DefaultSolverConfig(), logger)
	test.That(t, errors.Is(err, ErrConvergence), test.ShouldBeTrue)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ls.minimize(ctx, []float64{1, 0}, DefaultSolverConfig(), logger)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestJacobian(t *testing.T) {
	ls := exponentialProblem(2, 0.5)
	x := []float64{1.5, 0.3}
	jac := mat.NewDense(ls.numResiduals, ls.numParams, nil)
	test.That(t, ls.jacobian(context.Background(), x, jac), test.ShouldBeNil)
	for i := 0; i < ls.numResiduals; i++ {
		s := float64(i) / 10
		test.That(t, jac.At(i, 0), test.ShouldAlmostEqual, math.Exp(x[1]*s), 1e-6)
		test.That(t, jac.At(i, 1), test.ShouldAlmostEqual, x[0]*s*math.Exp(x[1]*s), 1e-6)
	}
}

func TestSolverConfigDefaults(t *testing.T) {
	cfg := SolverConfig{MaxIterations: 10}.withDefaults()
	def := DefaultSolverConfig()
	test.That(t, cfg.MaxIterations, test.ShouldEqual, 10)
	test.That(t, cfg.FunctionTolerance, test.ShouldEqual, def.FunctionTolerance)
	test.That(t, cfg.InitialDamping, test.ShouldEqual, def.InitialDamping)
}
