package calibration

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/lenscal/logging"
	"go.viam.com/lenscal/utils"
)

// costFloor ends the refinement once the residuals are at floating point noise.
const costFloor = 1e-20

// residualBlock is a contiguous range of residuals which only depends on the parameters in deps.
// For calibration a block is one image, which depends on the intrinsics and its own pose.
type residualBlock struct {
	offset, size int
	deps         []int
	eval         func(x, dst []float64)
}

// leastSquares is a sparse nonlinear least squares problem.
type leastSquares struct {
	numParams    int
	numResiduals int
	blocks       []residualBlock
}

func (ls *leastSquares) addBlock(size int, deps []int, eval func(x, dst []float64)) {
	ls.blocks = append(ls.blocks, residualBlock{offset: ls.numResiduals, size: size, deps: deps, eval: eval})
	ls.numResiduals += size
}

func (ls *leastSquares) residuals(x, dst []float64) {
	for _, b := range ls.blocks {
		b.eval(x, dst[b.offset:b.offset+b.size])
	}
}

func cost(r []float64) float64 {
	return 0.5 * floats.Dot(r, r)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// jacobian fills jac with central differences. Blocks are independent and processed in parallel.
func (ls *leastSquares) jacobian(ctx context.Context, x []float64, jac *mat.Dense) error {
	jac.Zero()
	maxSize := 0
	for _, b := range ls.blocks {
		maxSize = max(maxSize, b.size)
	}
	return utils.GroupWorkParallel(
		ctx,
		len(ls.blocks),
		nil,
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			xp := slices.Clone(x)
			plus := make([]float64, maxSize)
			minus := make([]float64, maxSize)
			return func(memberNum, workNum int) {
				b := ls.blocks[workNum]
				for _, k := range b.deps {
					h := 1e-6 * math.Max(1, math.Abs(x[k]))
					xp[k] = x[k] + h
					b.eval(xp, plus[:b.size])
					xp[k] = x[k] - h
					b.eval(xp, minus[:b.size])
					xp[k] = x[k]
					for i := 0; i < b.size; i++ {
						jac.Set(b.offset+i, k, (plus[i]-minus[i])/(2*h))
					}
				}
			}, nil
		},
	)
}

// lmResult is the outcome of a successful refinement.
type lmResult struct {
	x          []float64
	cost       float64
	iterations int
	reason     string
}

const (
	// maxDamping ends the refinement: no step this short lowers the cost any more.
	maxDamping = 1e16
	// dampingFloor is the smallest damping of a column, relative to the largest diagonal entry
	// of JᵀJ. Columns of parameters the residuals do not depend on stay solvable.
	dampingFloor = 1e-9
)

// dampedStep solves (JᵀJ + λ·D) δ = -Jᵀr, D being diag(JᵀJ) clamped from below.
func dampedStep(jtj, damped *mat.SymDense, negGrad, delta *mat.VecDense, lambda float64) bool {
	n := jtj.SymmetricDim()
	maxDiag := 0.0
	for i := 0; i < n; i++ {
		maxDiag = math.Max(maxDiag, jtj.At(i, i))
	}
	floor := math.Max(dampingFloor*maxDiag, 1e-12)

	damped.CopySym(jtj)
	for i := 0; i < n; i++ {
		d := jtj.At(i, i)
		damped.SetSym(i, i, d+lambda*math.Max(d, floor))
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(damped); !ok {
		return false
	}
	// an ill conditioned system still yields a usable step, the cost test decides on it
	if err := chol.SolveVecTo(delta, negGrad); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return false
		}
	}
	return floats.Count(isFinite, delta.RawVector().Data) == n
}

// minimize runs Levenberg-Marquardt from x0. Every iteration linearizes at the current point and
// retries damped steps until one lowers the cost; rejected steps grow λ and accepted steps shrink
// it. MaxIterations bounds the accepted steps.
func (ls *leastSquares) minimize(ctx context.Context, x0 []float64, cfg SolverConfig, logger logging.Logger) (*lmResult, error) {
	n, m := ls.numParams, ls.numResiduals
	x := slices.Clone(x0)
	r := make([]float64, m)
	ls.residuals(x, r)
	c := cost(r)
	if !isFinite(c) {
		return nil, NewConvergenceError("initial cost is not finite")
	}
	logger.Debugw("starting refinement", "params", n, "residuals", m, "cost", c)

	jac := mat.NewDense(m, n, nil)
	jtj := mat.NewSymDense(n, nil)
	damped := mat.NewSymDense(n, nil)
	var grad, negGrad, delta mat.VecDense
	xNew := make([]float64, n)
	rNew := make([]float64, m)
	lambda := cfg.InitialDamping

	done := func(iter int, reason string) (*lmResult, error) {
		logger.Debugw("refinement finished", "iterations", iter, "cost", c, "reason", reason)
		return &lmResult{x: x, cost: c, iterations: iter, reason: reason}, nil
	}

	for iter := 1; iter <= cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c <= costFloor {
			return done(iter, "cost at floor")
		}
		if err := ls.jacobian(ctx, x, jac); err != nil {
			return nil, err
		}
		jtj.SymOuterK(1, jac.T())
		grad.MulVec(jac.T(), mat.NewVecDense(m, r))
		if floats.Norm(grad.RawVector().Data, math.Inf(1)) <= cfg.GradientTolerance {
			return done(iter, "gradient tolerance")
		}
		negGrad.ScaleVec(-1, &grad)

		for {
			if lambda > maxDamping {
				return done(iter, "damping limit")
			}
			if !dampedStep(jtj, damped, &negGrad, &delta, lambda) {
				lambda *= 10
				continue
			}
			step := delta.RawVector().Data
			if floats.Norm(step, 2) <= cfg.StepTolerance*(floats.Norm(x, 2)+cfg.StepTolerance) {
				return done(iter, "step tolerance")
			}
			floats.AddTo(xNew, x, step)
			ls.residuals(xNew, rNew)
			if cNew := cost(rNew); isFinite(cNew) && cNew < c {
				break
			}
			lambda *= 10
		}

		cNew := cost(rNew)
		reduction := (c - cNew) / c
		copy(x, xNew)
		copy(r, rNew)
		c = cNew
		lambda = math.Max(lambda/10, 1e-15)
		logger.Debugw("accepted step", "iteration", iter, "cost", c, "lambda", lambda)
		if reduction <= cfg.FunctionTolerance {
			return done(iter, "function tolerance")
		}
	}
	return nil, NewConvergenceError(fmt.Sprintf("no convergence after %d iterations, cost %g", cfg.MaxIterations, c))
}
