package calibration

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/lenscal/rimage/transform"
)

// Layout is the ordered list of calibration target points. The target lies on the z = 0 plane of
// its own frame.
type Layout []r2.Point

// Validate returns an error for an empty layout.
func (l Layout) Validate() error {
	if len(l) == 0 {
		return transform.NewInvalidConfigurationError("target layout has no points")
	}
	return nil
}

// Point3D returns the i'th point in the target frame.
func (l Layout) Point3D(i int) r3.Vector {
	return r3.Vector{X: l[i].X, Y: l[i].Y}
}

// Center returns the centroid of the points.
func (l Layout) Center() r2.Point {
	var c r2.Point
	for _, p := range l {
		c = c.Add(p)
	}
	return c.Mul(1 / float64(len(l)))
}

// NewChessboardLayout returns the interior corners of a chessboard with the given number of
// corner rows and columns, ordered row by row.
func NewChessboardLayout(rows, cols int, squareWidth float64) (Layout, error) {
	if rows < 2 || cols < 2 || squareWidth <= 0 {
		return nil, errors.Wrapf(transform.ErrInvalidConfiguration,
			"invalid chessboard %dx%d with square width %f", rows, cols, squareWidth)
	}
	layout := make(Layout, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			layout = append(layout, r2.Point{X: float64(c) * squareWidth, Y: float64(r) * squareWidth})
		}
	}
	return layout, nil
}

// NewSquareGridLayout returns the four corners of every square in a grid of black squares
// separated by spaceWidth. Corners are ordered clockwise from the top left, square by square, row
// by row.
func NewSquareGridLayout(rows, cols int, squareWidth, spaceWidth float64) (Layout, error) {
	if rows < 1 || cols < 1 || squareWidth <= 0 || spaceWidth < 0 {
		return nil, errors.Wrapf(transform.ErrInvalidConfiguration,
			"invalid square grid %dx%d with square width %f and space %f", rows, cols, squareWidth, spaceWidth)
	}
	step := squareWidth + spaceWidth
	layout := make(Layout, 0, 4*rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x0, y0 := float64(c)*step, float64(r)*step
			layout = append(layout,
				r2.Point{X: x0, Y: y0},
				r2.Point{X: x0 + squareWidth, Y: y0},
				r2.Point{X: x0 + squareWidth, Y: y0 + squareWidth},
				r2.Point{X: x0, Y: y0 + squareWidth},
			)
		}
	}
	return layout, nil
}
