package calibration

import "github.com/pkg/errors"

var (
	// ErrInsufficientData is returned when the observations cannot constrain every parameter of
	// the requested model.
	ErrInsufficientData = errors.New("insufficient calibration data")
	// ErrConvergence is returned when the nonlinear refinement does not settle within its budget.
	ErrConvergence = errors.New("calibration did not converge")
)

// NewInsufficientDataError is used when there are too few images, points or residuals.
func NewInsufficientDataError(msg string) error {
	return errors.Wrap(ErrInsufficientData, msg)
}

// NewConvergenceError is used when the refinement runs out of iterations or diverges.
func NewConvergenceError(msg string) error {
	return errors.Wrap(ErrConvergence, msg)
}
