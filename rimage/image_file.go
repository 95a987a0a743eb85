package rimage

import (
	"bufio"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// ReadImageFromFile reads a raster from disk. The format is picked by extension.
func ReadImageFromFile(path string) (*Image, error) {
	img, err := readStdImage(path)
	if err != nil {
		return nil, err
	}
	return NewImageFromStdImage(img), nil
}

func readStdImage(path string) (image.Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ppm", ".pgm", ".pbm", ".pnm":
		//nolint:gosec
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "error opening image file")
		}
		defer utils.UncheckedErrorFunc(f.Close)
		img, err := ppm.Decode(bufio.NewReader(f))
		return img, errors.Wrapf(err, "error decoding %q", path)
	case ".qoi":
		//nolint:gosec
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "error opening image file")
		}
		defer utils.UncheckedErrorFunc(f.Close)
		img, err := qoi.Decode(bufio.NewReader(f))
		return img, errors.Wrapf(err, "error decoding %q", path)
	default:
		img, err := imaging.Open(path)
		return img, errors.Wrapf(err, "error reading %q", path)
	}
}

// WriteImageToFile writes the image to disk. The format is picked by extension.
func WriteImageToFile(path string, img *Image) error {
	std := img.ToStdImage()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ppm":
		return encodeToFile(path, std, ppm.Encode)
	case ".qoi":
		return encodeToFile(path, std, qoi.Encode)
	default:
		return errors.Wrapf(imaging.Save(std, path), "error writing %q", path)
	}
}

func encodeToFile(path string, img image.Image, encode func(io.Writer, image.Image) error) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "error creating image file")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	w := bufio.NewWriter(f)
	if err := encode(w, img); err != nil {
		return errors.Wrapf(err, "error encoding %q", path)
	}
	return w.Flush()
}
