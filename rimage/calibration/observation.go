package calibration

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/lenscal/rimage/transform"
)

// PointIndex2D is a detected pixel location of the layout point Index.
type PointIndex2D struct {
	Index int
	X, Y  float64
}

// Observation holds the points detected in one calibration image.
type Observation struct {
	Width, Height int
	Points        []PointIndex2D
}

// observationDocument is the wire format, {"width": w, "height": h, "pixels": [[index, x, y], ...]}.
type observationDocument struct {
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Pixels [][3]float64 `json:"pixels"`
}

// MarshalJSON writes the observation in the wire format.
func (o Observation) MarshalJSON() ([]byte, error) {
	return json.Marshal(observationDocument{
		Width:  o.Width,
		Height: o.Height,
		Pixels: lo.Map(o.Points, func(p PointIndex2D, _ int) [3]float64 {
			return [3]float64{float64(p.Index), p.X, p.Y}
		}),
	})
}

// UnmarshalJSON reads the observation from the wire format.
func (o *Observation) UnmarshalJSON(data []byte) error {
	var doc observationDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	o.Width, o.Height = doc.Width, doc.Height
	o.Points = make([]PointIndex2D, 0, len(doc.Pixels))
	for _, px := range doc.Pixels {
		if px[0] != float64(int(px[0])) {
			return errors.Errorf("point index %v is not an integer", px[0])
		}
		o.Points = append(o.Points, PointIndex2D{Index: int(px[0]), X: px[1], Y: px[2]})
	}
	return nil
}

// checkAgainst verifies every point index refers to a layout point.
func (o *Observation) checkAgainst(layout Layout) error {
	for _, p := range o.Points {
		if p.Index < 0 || p.Index >= len(layout) {
			return transform.NewInvalidConfigurationError(
				fmt.Sprintf("point index %d outside of layout with %d points", p.Index, len(layout)))
		}
	}
	return nil
}

// LoadObservations reads a JSON array of observations.
func LoadObservations(path string) ([]Observation, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening observations file")
	}
	defer utils.UncheckedErrorFunc(f.Close)
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "error reading observations file")
	}
	var obs []Observation
	if err := json.Unmarshal(data, &obs); err != nil {
		return nil, errors.Wrapf(err, "error parsing %q", path)
	}
	return obs, nil
}

// SaveObservations writes observations as a JSON array.
func SaveObservations(obs []Observation, path string) (err error) {
	data, err := json.MarshalIndent(obs, "", "  ")
	if err != nil {
		return err
	}
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "error creating observations file")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	_, err = f.Write(data)
	return err
}
