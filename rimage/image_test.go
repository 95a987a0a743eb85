package rimage

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func gradientImage(w, h int) *Image {
	img := NewImage(w, h, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, 0, float32(2*x+3*y))
		}
	}
	return img
}

func TestBilinearInterior(t *testing.T) {
	img := gradientImage(10, 8)
	dst := make([]float32, 1)
	ok := Bilinear(img, 2.5, 3.25, BorderZero, dst)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, dst[0], test.ShouldAlmostEqual, float32(2*2.5+3*3.25), 1e-4)

	ok = Bilinear(img, 9, 7, BorderZero, dst)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, dst[0], test.ShouldAlmostEqual, float32(2*9+3*7), 1e-4)
}

func TestBilinearBorders(t *testing.T) {
	img := gradientImage(10, 8)
	dst := []float32{42}

	test.That(t, Bilinear(img, -1, 2, BorderSkip, dst), test.ShouldBeFalse)
	test.That(t, dst[0], test.ShouldEqual, float32(42))

	test.That(t, Bilinear(img, -1, 2, BorderZero, dst), test.ShouldBeTrue)
	test.That(t, dst[0], test.ShouldEqual, float32(0))

	test.That(t, Bilinear(img, -1, 2, BorderExtend, dst), test.ShouldBeTrue)
	test.That(t, dst[0], test.ShouldAlmostEqual, float32(6), 1e-5)

	test.That(t, Bilinear(img, 20, 20, BorderExtend, dst), test.ShouldBeTrue)
	test.That(t, dst[0], test.ShouldAlmostEqual, float32(2*9+3*7), 1e-5)
}

func TestBorderTypeFromString(t *testing.T) {
	for _, b := range []BorderType{BorderZero, BorderExtend, BorderSkip} {
		parsed, ok := BorderTypeFromString(b.String())
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, parsed, test.ShouldEqual, b)
	}
	_, ok := BorderTypeFromString("mirror")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestStdImageConversion(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 3))
	src.SetRGBA(1, 2, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	img := NewImageFromStdImage(src)
	test.That(t, img.NumBands(), test.ShouldEqual, 3)
	test.That(t, img.Get(1, 2, 0), test.ShouldEqual, float32(10))
	test.That(t, img.Get(1, 2, 1), test.ShouldEqual, float32(20))
	test.That(t, img.Get(1, 2, 2), test.ShouldEqual, float32(30))

	back := img.ToStdImage().(*image.RGBA)
	test.That(t, back.RGBAAt(1, 2), test.ShouldResemble, color.RGBA{R: 10, G: 20, B: 30, A: 255})
}

func TestImageFileRoundTrip(t *testing.T) {
	img := NewImage(6, 5, 3)
	for y := 0; y < 5; y++ {
		for x := 0; x < 6; x++ {
			img.Set(x, y, 0, float32(x*40))
			img.Set(x, y, 1, float32(y*50))
			img.Set(x, y, 2, 7)
		}
	}
	dir := t.TempDir()
	for _, name := range []string{"out.png", "out.ppm", "out.qoi"} {
		path := filepath.Join(dir, name)
		test.That(t, WriteImageToFile(path, img), test.ShouldBeNil)
		read, err := ReadImageFromFile(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, read.Width(), test.ShouldEqual, 6)
		test.That(t, read.Height(), test.ShouldEqual, 5)
		test.That(t, read.Get(3, 4, 0), test.ShouldEqual, float32(120))
		test.That(t, read.Get(3, 4, 1), test.ShouldEqual, float32(200))
		test.That(t, read.Get(3, 4, 2), test.ShouldEqual, float32(7))
	}

	_, err := ReadImageFromFile(filepath.Join(dir, "missing.png"))
	test.That(t, err, test.ShouldNotBeNil)
}
