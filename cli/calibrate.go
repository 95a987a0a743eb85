package cli

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/lenscal/config"
	"go.viam.com/lenscal/logging"
	"go.viam.com/lenscal/rimage/calibration"
	"go.viam.com/lenscal/rimage/transform"
)

// CalibrateAction runs every camera of a job file in parallel, then the stereo pair if the job
// has one. Models of the cameras that succeed are saved even when others fail.
func CalibrateAction(c *cli.Context) error {
	logger := loggerFromContext(c)
	cfg, err := config.Read(c.String(flagConfig))
	if err != nil {
		return err
	}
	if cfg.Debug {
		logger.SetLevel(logging.DEBUG)
	}
	layout, err := cfg.Target.Layout()
	if err != nil {
		return err
	}

	observations := make(map[string][]calibration.Observation, len(cfg.Cameras))
	jobs := make([]calibration.BatchJob, 0, len(cfg.Cameras))
	for _, cam := range cfg.Cameras {
		obs, err := calibration.LoadObservations(cfg.ResolvePath(cam.Observations))
		if err != nil {
			return errors.Wrapf(err, "camera %q", cam.Name)
		}
		observations[cam.Name] = obs
		monoCfg, err := cam.MonoConfig()
		if err != nil {
			return err
		}
		monoCfg.Solver = cfg.SolverConfig()
		monoCfg.Logger = logger.Sublogger(cam.Name)
		jobs = append(jobs, calibration.BatchJob{
			Name:         cam.Name,
			Kind:         cam.Kind(),
			Observations: obs,
			Layout:       layout,
			Config:       monoCfg,
		})
	}

	results, batchErr := calibration.CalibrateBatch(c.Context, jobs)
	for i, res := range results {
		if res.Err != nil {
			continue
		}
		cam := cfg.Cameras[i]
		path := outputPath(cfg, cam.Output, cam.Name)
		if err := transform.SaveModel(res.Model, path); err != nil {
			batchErr = multierr.Append(batchErr, err)
			continue
		}
		fmt.Fprintf(c.App.Writer, "%s: saved %s\n", cam.Name, path)
		fmt.Fprintln(c.App.Writer, modelTable(res.Model))
		fmt.Fprintln(c.App.Writer, resultsTable(res.Results))
		if err := printErrorHistogram(c.App.Writer, res.Results); err != nil {
			return err
		}
		if dir := c.String(flagPlotDir); dir != "" {
			plotPath := filepath.Join(dir, cam.Name+"_residuals.png")
			if err := saveResidualPlot(plotPath, cam.Name, res.Model, observations[cam.Name], res.Results); err != nil {
				batchErr = multierr.Append(batchErr, err)
			}
		}
	}

	if cfg.Stereo != nil {
		batchErr = multierr.Append(batchErr, runStereo(c, cfg, layout, observations, logger))
	}
	return batchErr
}

func runStereo(
	c *cli.Context,
	cfg *config.Config,
	layout calibration.Layout,
	observations map[string][]calibration.Observation,
	logger logging.Logger,
) error {
	monoCfg, err := cfg.Stereo.MonoConfig()
	if err != nil {
		return err
	}
	monoCfg.Solver = cfg.SolverConfig()
	monoCfg.Logger = logger.Sublogger("stereo")
	params, results, err := calibration.CalibrateStereoContext(
		c.Context, observations[cfg.Stereo.Left], observations[cfg.Stereo.Right], layout, monoCfg)
	if err != nil {
		return errors.Wrap(err, "stereo")
	}
	path := outputPath(cfg, cfg.Stereo.Output, "stereo")
	if err := transform.SaveStereo(params, path); err != nil {
		return err
	}
	printStereo(c, params, results)
	fmt.Fprintf(c.App.Writer, "stereo: saved %s\n", path)
	return nil
}

func printStereo(c *cli.Context, params *transform.StereoParameters, results []calibration.ImageResults) {
	fmt.Fprintln(c.App.Writer, modelTable(params.Left))
	fmt.Fprintln(c.App.Writer, modelTable(params.Right))
	fmt.Fprintf(c.App.Writer, "right to left: %v\nbaseline: %f\n", params.RightToLeft, params.Baseline())
	if len(results) > 0 {
		half := len(results) / 2
		fmt.Fprintln(c.App.Writer, "left")
		fmt.Fprintln(c.App.Writer, resultsTable(results[:half]))
		fmt.Fprintln(c.App.Writer, "right")
		fmt.Fprintln(c.App.Writer, resultsTable(results[half:]))
	}
}

// StereoAction calibrates a stereo pair from two observation files.
func StereoAction(c *cli.Context) error {
	logger := loggerFromContext(c)
	layout, err := layoutFromFlags(c)
	if err != nil {
		return err
	}
	left, err := calibration.LoadObservations(c.String(flagLeft))
	if err != nil {
		return err
	}
	right, err := calibration.LoadObservations(c.String(flagRight))
	if err != nil {
		return err
	}
	cfg := calibration.DefaultStereoConfig()
	cfg.NumRadial = c.Int(flagNumRadial)
	cfg.Tangential = c.Bool(flagTangential)
	cfg.Logger = logger
	params, results, err := calibration.CalibrateStereoContext(c.Context, left, right, layout, cfg)
	if err != nil {
		return err
	}
	if err := transform.SaveStereo(params, c.String(flagOutput)); err != nil {
		return err
	}
	printStereo(c, params, results)
	return nil
}
