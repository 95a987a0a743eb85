package cli

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/urfave/cli/v2"

	"go.viam.com/lenscal/config"
	"go.viam.com/lenscal/rimage/calibration"
	"go.viam.com/lenscal/rimage/transform"
)

// SimulateAction renders target observations through a known model, useful to check a
// calibration setup before collecting real images.
func SimulateAction(c *cli.Context) error {
	layout, err := layoutFromFlags(c)
	if err != nil {
		return err
	}
	model, err := transform.LoadModel(c.String(flagModel))
	if err != nil {
		return err
	}
	poses := calibration.DefaultSyntheticPoses(c.Int(flagImages), c.Float64(flagDistance), layout)
	//nolint:gosec
	rng := rand.New(rand.NewSource(c.Int64(flagSeed)))
	obs, err := calibration.RenderObservations(model, layout, poses, c.Float64(flagNoise), rng)
	if err != nil {
		return err
	}
	if err := calibration.SaveObservations(obs, c.String(flagOutput)); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %d observations to %s\n", len(obs), c.String(flagOutput))
	return nil
}

// PoseAction estimates the target pose of every observation for a calibrated camera.
func PoseAction(c *cli.Context) error {
	layout, err := layoutFromFlags(c)
	if err != nil {
		return err
	}
	model, err := transform.LoadModel(c.String(flagModel))
	if err != nil {
		return err
	}
	obs, err := calibration.LoadObservations(c.String(flagObservations))
	if err != nil {
		return err
	}
	poses, results, err := calibration.EstimateTargetPoses(model, layout, obs)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, poseTable(poses, results))
	return nil
}

// SchemaAction prints the JSON schema of the job file or of the camera attributes.
func SchemaAction(c *cli.Context) error {
	schema := config.Schema()
	if c.Bool(flagAttributes) {
		schema = config.AttributesSchema()
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}
