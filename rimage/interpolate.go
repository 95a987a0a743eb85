package rimage

import "math"

// BorderType decides what happens when an interpolated location falls outside the image.
type BorderType int

const (
	// BorderZero writes zero for samples outside the image.
	BorderZero BorderType = iota
	// BorderExtend clamps samples to the nearest edge pixel.
	BorderExtend
	// BorderSkip leaves the destination pixel untouched.
	BorderSkip
)

func (b BorderType) String() string {
	switch b {
	case BorderZero:
		return "zero"
	case BorderExtend:
		return "extend"
	case BorderSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// BorderTypeFromString parses the names produced by String.
func BorderTypeFromString(s string) (BorderType, bool) {
	switch s {
	case "", "zero":
		return BorderZero, true
	case "extend":
		return BorderExtend, true
	case "skip":
		return BorderSkip, true
	default:
		return BorderZero, false
	}
}

// Bilinear samples every band of img at the sub pixel location (x, y) into dst, which must have
// one slot per band. It returns false when the pixel should be left untouched.
func Bilinear(img *Image, x, y float32, border BorderType, dst []float32) bool {
	if math.IsNaN(float64(x)) || math.IsNaN(float64(y)) {
		if border == BorderSkip {
			return false
		}
		for b := range dst {
			dst[b] = 0
		}
		return true
	}
	w, h := img.width, img.height
	maxX, maxY := float32(w-1), float32(h-1)
	x = snapToEdge(x, maxX)
	y = snapToEdge(y, maxY)
	if x < 0 || y < 0 || x > maxX || y > maxY {
		switch border {
		case BorderSkip:
			return false
		case BorderZero:
			for b := range dst {
				dst[b] = 0
			}
			return true
		case BorderExtend:
			x = float32(math.Max(0, math.Min(float64(x), float64(maxX))))
			y = float32(math.Max(0, math.Min(float64(y), float64(maxY))))
		}
	}

	x0 := int(x)
	y0 := int(y)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 >= w {
		x1 = w - 1
	}
	if y1 >= h {
		y1 = h - 1
	}
	ax := x - float32(x0)
	ay := y - float32(y0)

	k00 := img.kxy(x0, y0)
	k10 := img.kxy(x1, y0)
	k01 := img.kxy(x0, y1)
	k11 := img.kxy(x1, y1)
	for b, band := range img.data {
		top := (1-ax)*band[k00] + ax*band[k10]
		bottom := (1-ax)*band[k01] + ax*band[k11]
		dst[b] = (1-ay)*top + ay*bottom
	}
	return true
}

// samples this close outside the image are treated as lying on the edge
const edgeTolerance = 1e-3

func snapToEdge(v, maxV float32) float32 {
	if v < 0 && v > -edgeTolerance {
		return 0
	}
	if v > maxV && v < maxV+edgeTolerance {
		return maxV
	}
	return v
}
