package calibration

import (
	"fmt"
	"math/rand"

	"github.com/golang/geo/r3"

	"go.viam.com/lenscal/rimage/transform"
	"go.viam.com/lenscal/spatialmath"
)

// syntheticViews are target tilts, as rotation vectors, and sideways offsets that together give
// the linear initialization well separated homographies.
var syntheticViews = []struct {
	tilt   r3.Vector
	dx, dy float64
}{
	{r3.Vector{X: 0.3, Y: 0, Z: 0.05}, 0.01, -0.01},
	{r3.Vector{X: -0.3, Y: 0.1, Z: 0}, -0.015, 0.01},
	{r3.Vector{X: 0.1, Y: 0.35, Z: -0.1}, 0.02, 0.015},
	{r3.Vector{X: 0, Y: -0.3, Z: 0.2}, -0.01, -0.02},
	{r3.Vector{X: 0.25, Y: 0.25, Z: 0.1}, 0.015, 0.02},
	{r3.Vector{X: -0.2, Y: -0.25, Z: -0.15}, -0.02, -0.015},
}

// DefaultSyntheticPoses returns n target to camera poses which keep the center of the target at
// roughly the given distance in front of the camera.
func DefaultSyntheticPoses(n int, distance float64, layout Layout) []*spatialmath.Pose {
	c := layout.Center()
	center := r3.Vector{X: c.X, Y: c.Y}
	poses := make([]*spatialmath.Pose, n)
	for i := range poses {
		view := syntheticViews[i%len(syntheticViews)]
		// repeated views are pushed back so every pose stays distinct
		d := distance * (1 + 0.1*float64(i/len(syntheticViews)))
		rot := spatialmath.RodriguesToRotationMatrix(view.tilt)
		t := r3.Vector{X: view.dx, Y: view.dy, Z: d}.Sub(rot.MulVec(center))
		poses[i] = spatialmath.NewPose(rot, t)
	}
	return poses
}

// RenderObservations projects the layout through the model for every pose. Points that land
// outside of the image are dropped. When rng is not nil, gaussian noise with the given standard
// deviation in pixels is added.
func RenderObservations(
	model transform.CameraModel,
	layout Layout,
	poses []*spatialmath.Pose,
	noise float64,
	rng *rand.Rand,
) ([]Observation, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	proj, err := newProjector(model)
	if err != nil {
		return nil, err
	}
	k := model.Intrinsics()
	if k.Width <= 0 || k.Height <= 0 {
		return nil, transform.NewInvalidConfigurationError(
			fmt.Sprintf("model needs an image shape to render observations, got %dx%d", k.Width, k.Height))
	}
	obs := make([]Observation, 0, len(poses))
	for _, pose := range poses {
		o := Observation{Width: k.Width, Height: k.Height}
		for i := range layout {
			u, v := proj(pose.Transform(layout.Point3D(i)))
			if !isFinite(u) || !isFinite(v) {
				continue
			}
			if rng != nil && noise > 0 {
				u += rng.NormFloat64() * noise
				v += rng.NormFloat64() * noise
			}
			if u < 0 || v < 0 || u > float64(k.Width-1) || v > float64(k.Height-1) {
				continue
			}
			o.Points = append(o.Points, PointIndex2D{Index: i, X: u, Y: v})
		}
		obs = append(obs, o)
	}
	return obs, nil
}
