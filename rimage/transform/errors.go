package transform

import "github.com/pkg/errors"

// ErrUnsupportedModel is returned when an operation is requested for a camera model that cannot
// provide it, e.g. a narrow field of view transform for a fisheye model.
var ErrUnsupportedModel = errors.New("unsupported camera model")

// ErrInvalidConfiguration is returned for out of range or contradictory settings.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// NewUnsupportedModelError is used when a camera model cannot serve the requested operation.
func NewUnsupportedModelError(msg string) error {
	return errors.Wrap(ErrUnsupportedModel, msg)
}

// NewInvalidConfigurationError is used when the provided settings cannot be used.
func NewInvalidConfigurationError(msg string) error {
	return errors.Wrap(ErrInvalidConfiguration, msg)
}
