package cli

import (
	"fmt"
	"io"
	"math"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.viam.com/lenscal/rimage/calibration"
	"go.viam.com/lenscal/rimage/transform"
	"go.viam.com/lenscal/spatialmath"
	"go.viam.com/lenscal/utils"
)

// outlierFactor flags images whose mean error is this many times the overall mean.
const outlierFactor = 2

var flagged = color.New(color.FgRed, color.Bold)

// resultsTable renders per image statistics. Images well above the overall mean are highlighted.
func resultsTable(results []calibration.ImageResults) string {
	overall := calibration.OverallMeanError(results)
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Mean", "Max", "Bias X", "Bias Y", "Points"})
	for i, r := range results {
		mean := fmt.Sprintf("%.4f", r.MeanError)
		if overall > 0 && r.MeanError > outlierFactor*overall {
			mean = flagged.Sprint(mean)
		}
		t.AppendRow(table.Row{
			i,
			mean,
			fmt.Sprintf("%.4f", r.MaxError),
			fmt.Sprintf("%+.4f", r.BiasX),
			fmt.Sprintf("%+.4f", r.BiasY),
			len(r.PointError),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%.4f", overall), "", "", "", ""})
	return t.Render()
}

// modelTable renders the parameters of a camera model.
func modelTable(model transform.CameraModel) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Parameter", "Value"})
	k := model.Intrinsics()
	t.AppendRows([]table.Row{
		{"fx", k.Fx},
		{"fy", k.Fy},
		{"skew", k.Skew},
		{"cx", k.Cx},
		{"cy", k.Cy},
		{"size", fmt.Sprintf("%dx%d", k.Width, k.Height)},
	})
	switch m := model.(type) {
	case *transform.Pinhole:
		t.SetTitle("pinhole")
	case *transform.Brown:
		t.SetTitle("brown")
		appendBrownRows(t, m)
	case *transform.UniversalOmni:
		t.SetTitle("universal omni")
		appendBrownRows(t, &m.Brown)
		t.AppendRow(table.Row{"mirror offset", m.MirrorOffset})
	case *transform.KannalaBrandt:
		t.SetTitle("kannala brandt")
		t.AppendRows([]table.Row{
			{"symmetric", m.Symmetric},
			{"radial", m.Radial},
			{"radial trig", m.RadialTrig},
			{"tangent", m.Tangent},
			{"tangent trig", m.TangentTrig},
		})
	default:
	}
	return t.Render()
}

func appendBrownRows(t table.Writer, b *transform.Brown) {
	t.AppendRows([]table.Row{
		{"radial", b.Radial},
		{"t1", b.T1},
		{"t2", b.T2},
	})
}

// poseTable renders target poses as rotation vectors in degrees and translations.
func poseTable(poses []*spatialmath.Pose, results []calibration.ImageResults) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Rotation (deg)", "Translation", "Mean error"})
	for i, p := range poses {
		rv := spatialmath.RotationMatrixToRodrigues(p.Rotation)
		t.AppendRow(table.Row{
			i,
			fmt.Sprintf("%.2f, %.2f, %.2f", utils.RadToDeg(rv.X), utils.RadToDeg(rv.Y), utils.RadToDeg(rv.Z)),
			fmt.Sprintf("%.4f, %.4f, %.4f", p.Translation.X, p.Translation.Y, p.Translation.Z),
			fmt.Sprintf("%.4f", results[i].MeanError),
		})
	}
	return t.Render()
}

// printErrorHistogram writes a terminal histogram of every point error.
func printErrorHistogram(w io.Writer, results []calibration.ImageResults) error {
	errs := lo.FlatMap(results, func(r calibration.ImageResults, _ int) []float64 { return r.PointError })
	if len(errs) == 0 {
		return nil
	}
	fmt.Fprintln(w, "point error histogram (pixels)")
	return histogram.Fprint(w, histogram.Hist(10, errs), histogram.Linear(40))
}

// saveResidualPlot writes a scatter plot of point error against the distance from the principal
// point. Growing error towards the border usually means too few distortion terms.
func saveResidualPlot(
	path, title string,
	model transform.CameraModel,
	obs []calibration.Observation,
	results []calibration.ImageResults,
) error {
	k := model.Intrinsics()
	var pts plotter.XYs
	for i, r := range results {
		for j, e := range r.PointError {
			p := obs[i].Points[j]
			pts = append(pts, plotter.XY{X: math.Hypot(p.X-k.Cx, p.Y-k.Cy), Y: e})
		}
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Distance from principal point (px)"
	p.Y.Label.Text = "Error (px)"
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "cannot build residual plot")
	}
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	p.Add(scatter, plotter.NewGrid())
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}
