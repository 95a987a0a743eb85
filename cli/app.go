// Package cli contains the lenscal command line application.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	flagDebug        = "debug"
	flagConfig       = "config"
	flagModel        = "model"
	flagStereo       = "stereo"
	flagObservations = "observations"
	flagLeft         = "left"
	flagRight        = "right"
	flagOutput       = "output"
	flagModelOutput  = "model-output"
	flagInput        = "input"
	flagAdjustment   = "adjustment"
	flagBorder       = "border"
	flagPlotDir      = "plot-dir"
	flagTargetType   = "target-type"
	flagRows         = "rows"
	flagCols         = "cols"
	flagSquareWidth  = "square-width"
	flagSpaceWidth   = "space-width"
	flagNumRadial    = "num-radial"
	flagTangential   = "tangential"
	flagImages       = "images"
	flagDistance     = "distance"
	flagNoise        = "noise"
	flagSeed         = "seed"
	flagAttributes   = "attributes"
)

func targetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  flagTargetType,
			Value: "chessboard",
			Usage: "calibration target, chessboard or square_grid",
		},
		&cli.IntFlag{
			Name:     flagRows,
			Usage:    "corner rows of a chessboard or square rows of a grid",
			Required: true,
		},
		&cli.IntFlag{
			Name:     flagCols,
			Usage:    "corner columns of a chessboard or square columns of a grid",
			Required: true,
		},
		&cli.Float64Flag{
			Name:     flagSquareWidth,
			Usage:    "width of a target square",
			Required: true,
		},
		&cli.Float64Flag{
			Name:  flagSpaceWidth,
			Usage: "space between squares of a square grid",
		},
	}
}

var app = &cli.App{
	Name:            "lenscal",
	Usage:           "calibrate camera lenses and remove their distortion",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "calibrate",
			Usage:     "calibrate every camera of a job file",
			UsageText: "lenscal calibrate --config <job.json> [--plot-dir <dir>]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     flagConfig,
					Aliases:  []string{"c"},
					Usage:    "load the job from `FILE`",
					Required: true,
				},
				&cli.StringFlag{
					Name:  flagPlotDir,
					Usage: "write residual plots into `DIR`",
				},
			},
			Action: CalibrateAction,
		},
		{
			Name:  "stereo",
			Usage: "calibrate a stereo pair from observations of the same target",
			Flags: append(targetFlags(),
				&cli.StringFlag{
					Name:     flagLeft,
					Usage:    "left camera observations `FILE`",
					Required: true,
				},
				&cli.StringFlag{
					Name:     flagRight,
					Usage:    "right camera observations `FILE`",
					Required: true,
				},
				&cli.IntFlag{
					Name:  flagNumRadial,
					Value: 4,
					Usage: "number of radial distortion terms",
				},
				&cli.BoolFlag{
					Name:  flagTangential,
					Usage: "estimate tangential distortion",
				},
				&cli.StringFlag{
					Name:     flagOutput,
					Usage:    "write the stereo parameters to `FILE`",
					Required: true,
				},
			),
			Action: StereoAction,
		},
		{
			Name:  "rectify",
			Usage: "remove lens distortion from an image",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     flagModel,
					Usage:    "camera model `FILE`",
					Required: true,
				},
				&cli.StringFlag{
					Name:     flagInput,
					Usage:    "distorted image `FILE`",
					Required: true,
				},
				&cli.StringFlag{
					Name:     flagOutput,
					Usage:    "undistorted image `FILE`",
					Required: true,
				},
				&cli.StringFlag{
					Name:  flagAdjustment,
					Value: "full_view",
					Usage: "how the undistorted view is framed, one of none, full_view, expand",
				},
				&cli.StringFlag{
					Name:  flagBorder,
					Value: "zero",
					Usage: "pixels outside of the distorted image, one of zero, extend, skip",
				},
				&cli.StringFlag{
					Name:  flagModelOutput,
					Usage: "write the undistorted camera model to `FILE`",
				},
			},
			Action: RectifyAction,
		},
		{
			Name:  "inspect",
			Usage: "print a camera model or stereo parameters file",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  flagModel,
					Usage: "camera model `FILE`",
				},
				&cli.StringFlag{
					Name:  flagStereo,
					Usage: "stereo parameters `FILE`",
				},
			},
			Action: InspectAction,
		},
		{
			Name:  "simulate",
			Usage: "render noisy target observations through a camera model",
			Flags: append(targetFlags(),
				&cli.StringFlag{
					Name:     flagModel,
					Usage:    "camera model `FILE`",
					Required: true,
				},
				&cli.IntFlag{
					Name:  flagImages,
					Value: 6,
					Usage: "number of target views",
				},
				&cli.Float64Flag{
					Name:  flagDistance,
					Value: 0.4,
					Usage: "distance from the camera to the target center, in target units",
				},
				&cli.Float64Flag{
					Name:  flagNoise,
					Usage: "standard deviation of the pixel noise",
				},
				&cli.Int64Flag{
					Name:  flagSeed,
					Value: 1,
					Usage: "random seed of the pixel noise",
				},
				&cli.StringFlag{
					Name:     flagOutput,
					Usage:    "write the observations to `FILE`",
					Required: true,
				},
			),
			Action: SimulateAction,
		},
		{
			Name:  "pose",
			Usage: "estimate the target pose in every image for a calibrated camera",
			Flags: append(targetFlags(),
				&cli.StringFlag{
					Name:     flagModel,
					Usage:    "camera model `FILE`",
					Required: true,
				},
				&cli.StringFlag{
					Name:     flagObservations,
					Usage:    "observations `FILE`",
					Required: true,
				},
			),
			Action: PoseAction,
		},
		{
			Name:  "schema",
			Usage: "print the JSON schema of the job file",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  flagAttributes,
					Usage: "print the schema of the camera attributes instead",
				},
			},
			Action: SchemaAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
