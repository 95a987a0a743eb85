package rimage

import (
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"
)

// Image is a planar multi-band float32 raster. Band values are kept in the 0-255 range when
// converted from standard images.
type Image struct {
	data          [][]float32
	width, height int
}

// NewImage returns a zeroed image with the given number of bands.
func NewImage(width, height, bands int) *Image {
	if bands < 1 {
		bands = 1
	}
	data := make([][]float32, bands)
	for b := range data {
		data[b] = make([]float32, width*height)
	}
	return &Image{data: data, width: width, height: height}
}

// NewImageFromStdImage copies a standard image into a new three band image, or a single band
// image when the source is grayscale.
func NewImageFromStdImage(img image.Image) *Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	switch src := img.(type) {
	case *image.Gray:
		out := NewImage(w, h, 1)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.data[0][out.kxy(x, y)] = float32(src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
		return out
	default:
		out := NewImage(w, h, 3)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				k := out.kxy(x, y)
				out.data[0][k] = float32(r >> 8)
				out.data[1][k] = float32(g >> 8)
				out.data[2][k] = float32(b >> 8)
			}
		}
		return out
	}
}

// NewImageLike returns a zeroed image with the same shape as other.
func NewImageLike(other *Image) *Image {
	return NewImage(other.width, other.height, other.NumBands())
}

// In returns whether the pixel lies inside the image.
func (i *Image) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < i.width && y < i.height
}

func (i *Image) kxy(x, y int) int {
	return (y * i.width) + x
}

// Bounds returns the image rectangle.
func (i *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.width, i.height)
}

// Width returns the width of the image.
func (i *Image) Width() int {
	return i.width
}

// Height returns the height of the image.
func (i *Image) Height() int {
	return i.height
}

// NumBands returns the number of bands.
func (i *Image) NumBands() int {
	return len(i.data)
}

// Band returns the backing slice of one band in row major order.
func (i *Image) Band(b int) []float32 {
	return i.data[b]
}

// Get returns the value of band b at (x, y).
func (i *Image) Get(x, y, b int) float32 {
	return i.data[b][i.kxy(x, y)]
}

// Set sets the value of band b at (x, y).
func (i *Image) Set(x, y, b int, v float32) {
	i.data[b][i.kxy(x, y)] = v
}

// Fill sets every pixel of every band to v.
func (i *Image) Fill(v float32) {
	for _, band := range i.data {
		for k := range band {
			band[k] = v
		}
	}
}

// CheckSameShape returns an error when the two images differ in size or band count.
func (i *Image) CheckSameShape(other *Image) error {
	if i.width != other.width || i.height != other.height {
		return errors.Errorf("image sizes differ: %dx%d vs %dx%d", i.width, i.height, other.width, other.height)
	}
	if len(i.data) != len(other.data) {
		return errors.Errorf("band counts differ: %d vs %d", len(i.data), len(other.data))
	}
	return nil
}

func clampByte(v float32) uint8 {
	if math.IsNaN(float64(v)) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// ToStdImage converts the image back into a standard image. One band becomes *image.Gray,
// anything else becomes *image.RGBA built from the first three bands.
func (i *Image) ToStdImage() image.Image {
	if len(i.data) == 1 {
		out := image.NewGray(i.Bounds())
		for y := 0; y < i.height; y++ {
			for x := 0; x < i.width; x++ {
				out.SetGray(x, y, color.Gray{Y: clampByte(i.data[0][i.kxy(x, y)])})
			}
		}
		return out
	}
	out := image.NewRGBA(i.Bounds())
	for y := 0; y < i.height; y++ {
		for x := 0; x < i.width; x++ {
			k := i.kxy(x, y)
			c := color.RGBA{A: 255}
			c.R = clampByte(i.data[0][k])
			if len(i.data) > 1 {
				c.G = clampByte(i.data[1][k])
			}
			if len(i.data) > 2 {
				c.B = clampByte(i.data[2][k])
			}
			out.SetRGBA(x, y, c)
		}
	}
	return out
}
