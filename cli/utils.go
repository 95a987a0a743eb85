package cli

import (
	"path/filepath"

	"github.com/urfave/cli/v2"

	"go.viam.com/lenscal/config"
	"go.viam.com/lenscal/logging"
	"go.viam.com/lenscal/rimage/calibration"
)

// samePath returns true if abs(path1) and abs(path2) are the same.
func samePath(path1, path2 string) (bool, error) {
	abs1, err := filepath.Abs(path1)
	if err != nil {
		return false, err
	}
	abs2, err := filepath.Abs(path2)
	if err != nil {
		return false, err
	}
	return abs1 == abs2, nil
}

// loggerFromContext returns a logger at the level asked for by the global debug flag.
func loggerFromContext(c *cli.Context) logging.Logger {
	if c.Bool(flagDebug) {
		return logging.NewDebugLogger("lenscal")
	}
	return logging.NewLogger("lenscal")
}

// layoutFromFlags builds the target layout from the target flags.
func layoutFromFlags(c *cli.Context) (calibration.Layout, error) {
	target := config.TargetConfig{
		Type:        c.String(flagTargetType),
		Rows:        c.Int(flagRows),
		Cols:        c.Int(flagCols),
		SquareWidth: c.Float64(flagSquareWidth),
		SpaceWidth:  c.Float64(flagSpaceWidth),
	}
	if err := target.Validate("target"); err != nil {
		return nil, err
	}
	return target.Layout()
}

// outputPath returns the configured output of a camera, or <name>.json next to the job file.
func outputPath(cfg *config.Config, output, name string) string {
	if output == "" {
		output = name + ".json"
	}
	return cfg.ResolvePath(output)
}
