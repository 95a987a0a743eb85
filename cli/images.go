package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/lenscal/rimage"
	"go.viam.com/lenscal/rimage/transform"
)

// RectifyAction renders an image as if taken by the same camera without lens distortion.
func RectifyAction(c *cli.Context) error {
	logger := loggerFromContext(c)
	inPath, outPath := c.String(flagInput), c.String(flagOutput)
	same, err := samePath(inPath, outPath)
	if err != nil {
		return err
	}
	if same {
		return errors.New("output must not overwrite the input image")
	}
	adjustment, err := transform.AdjustmentTypeFromString(c.String(flagAdjustment))
	if err != nil {
		return err
	}
	border, ok := rimage.BorderTypeFromString(c.String(flagBorder))
	if !ok {
		return errors.Errorf("unknown border %q", c.String(flagBorder))
	}

	model, err := transform.LoadModel(c.String(flagModel))
	if err != nil {
		return err
	}
	in, err := rimage.ReadImageFromFile(inPath)
	if err != nil {
		return err
	}
	k := model.Intrinsics()
	if in.Width() != k.Width || in.Height() != k.Height {
		return errors.Errorf("image is %dx%d but the camera model is for %dx%d images",
			in.Width(), in.Height(), k.Width, k.Height)
	}

	out := rimage.NewImageLike(in)
	undistorted, err := transform.RemoveDistortion(in, out, model, adjustment, border)
	if err != nil {
		return err
	}
	logger.Debugw("removed distortion", "model", undistorted.String())
	if err := rimage.WriteImageToFile(outPath, out); err != nil {
		return err
	}
	if path := c.String(flagModelOutput); path != "" {
		if err := transform.SaveModel(undistorted, path); err != nil {
			return err
		}
	}
	fmt.Fprintf(c.App.Writer, "wrote %s\n", outPath)
	return nil
}

// InspectAction prints a camera model or stereo parameters file.
func InspectAction(c *cli.Context) error {
	modelPath, stereoPath := c.String(flagModel), c.String(flagStereo)
	if modelPath == "" && stereoPath == "" {
		return errors.Errorf("one of --%s or --%s is required", flagModel, flagStereo)
	}
	if modelPath != "" {
		model, err := transform.LoadModel(modelPath)
		if err != nil {
			return err
		}
		if err := model.Intrinsics().CheckValid(); err != nil {
			fmt.Fprintf(c.App.ErrWriter, "warning: %v\n", err)
		}
		fmt.Fprintln(c.App.Writer, modelTable(model))
	}
	if stereoPath != "" {
		params, err := transform.LoadStereo(stereoPath)
		if err != nil {
			return err
		}
		printStereo(c, params, nil)
	}
	return nil
}
