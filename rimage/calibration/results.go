package calibration

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/samber/lo"
)

// ImageResults are the reprojection statistics of one calibration image. Errors are in pixels,
// bias is the mean of observed minus predicted.
type ImageResults struct {
	MeanError  float64   `json:"mean_error"`
	MaxError   float64   `json:"max_error"`
	BiasX      float64   `json:"bias_x"`
	BiasY      float64   `json:"bias_y"`
	PointError []float64 `json:"point_error"`
}

func (ir ImageResults) String() string {
	return fmt.Sprintf("ImageResults{ mean=%f max=%f bias=(%f, %f) }", ir.MeanError, ir.MaxError, ir.BiasX, ir.BiasY)
}

// newImageResults computes statistics from residuals laid out as predicted minus observed pairs.
func newImageResults(residuals []float64) ImageResults {
	n := len(residuals) / 2
	if n == 0 {
		return ImageResults{}
	}
	ex := make(stats.Float64Data, n)
	ey := make(stats.Float64Data, n)
	dist := make(stats.Float64Data, n)
	for j := 0; j < n; j++ {
		ex[j] = -residuals[2*j]
		ey[j] = -residuals[2*j+1]
		dist[j] = math.Hypot(ex[j], ey[j])
	}
	// inputs are non empty so the stats calls can't fail
	mean, _ := dist.Mean()
	maxErr, _ := dist.Max()
	biasX, _ := ex.Mean()
	biasY, _ := ey.Mean()
	return ImageResults{MeanError: mean, MaxError: maxErr, BiasX: biasX, BiasY: biasY, PointError: dist}
}

// OverallMeanError is the mean of the per image mean errors.
func OverallMeanError(results []ImageResults) float64 {
	if len(results) == 0 {
		return 0
	}
	mean, err := stats.Mean(lo.Map(results, func(r ImageResults, _ int) float64 { return r.MeanError }))
	if err != nil {
		return 0
	}
	return mean
}
