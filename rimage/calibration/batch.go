package calibration

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/lenscal/rimage/transform"
	"go.viam.com/lenscal/utils"
)

// BatchJob is one independent single camera calibration.
type BatchJob struct {
	Name         string
	Kind         ModelKind
	Observations []Observation
	Layout       Layout
	Config       MonoConfig
}

// BatchResult is the outcome of one BatchJob. Model and Results are unset when Err is not nil.
type BatchResult struct {
	Name    string
	Model   transform.CameraModel
	Results []ImageResults
	Err     error
}

// CalibrateBatch runs the jobs in parallel. A failing job does not stop the others, the returned
// error combines the failures of every job.
func CalibrateBatch(ctx context.Context, jobs []BatchJob) ([]BatchResult, error) {
	results := make([]BatchResult, len(jobs))
	fs := make([]utils.SimpleFunc, len(jobs))
	for i := range jobs {
		i := i
		job := jobs[i]
		results[i].Name = job.Name
		fs[i] = func(ctx context.Context) error {
			sol, err := solveMono(ctx, job.Kind, job.Config, job.Layout, job.Observations)
			if err != nil {
				return errors.Wrapf(err, "calibrating %q", job.Name)
			}
			results[i].Model = sol.model
			results[i].Results = sol.results
			return nil
		}
	}
	errs := utils.RunInParallel(ctx, fs)
	for i, err := range errs {
		results[i].Err = err
	}
	return results, multierr.Combine(errs...)
}
