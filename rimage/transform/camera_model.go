package transform

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// CameraModel is one of *Pinhole, *Brown, *UniversalOmni or *KannalaBrandt. Code that needs
// variant specific behavior switches on the concrete type.
type CameraModel interface {
	fmt.Stringer
	// Intrinsics returns the pinhole block shared by every variant.
	Intrinsics() *Pinhole
	// Clone returns a deep copy of the same variant.
	Clone() CameraModel
	// Equal reports whether other is the same variant with identical values.
	Equal(other CameraModel) bool
	// CopyFrom copies every field other has in common with the receiver.
	CopyFrom(other CameraModel)

	isCameraModel()
}

// Pinhole holds the intrinsic parameters of an ideal pinhole camera.
type Pinhole struct {
	Fx     float64 `json:"fx" yaml:"fx"`
	Fy     float64 `json:"fy" yaml:"fy"`
	Skew   float64 `json:"skew" yaml:"skew"`
	Cx     float64 `json:"cx" yaml:"cx"`
	Cy     float64 `json:"cy" yaml:"cy"`
	Width  int     `json:"width" yaml:"width"`
	Height int     `json:"height" yaml:"height"`
}

// Brown is a pinhole camera with polynomial radial and tangential lens distortion.
type Brown struct {
	Pinhole `yaml:",inline"`
	Radial  []float64 `json:"radial" yaml:"radial"`
	T1      float64   `json:"t1" yaml:"t1"`
	T2      float64   `json:"t2" yaml:"t2"`
}

// UniversalOmni is the unified omnidirectional model: points are projected onto the unit sphere,
// then onto the image plane from a center offset by MirrorOffset along the optical axis, then
// Brown distortion is applied.
type UniversalOmni struct {
	Brown        `yaml:",inline"`
	MirrorOffset float64 `json:"mirror_offset" yaml:"mirror_offset"`
}

// KannalaBrandt is the generic fisheye model which maps the incidence angle of a ray to an image
// radius with odd polynomials, plus optional asymmetric radial and tangential terms.
type KannalaBrandt struct {
	Pinhole     `yaml:",inline"`
	Symmetric   []float64 `json:"symmetric" yaml:"symmetric"`
	Radial      []float64 `json:"radial" yaml:"radial"`
	RadialTrig  []float64 `json:"radial_trig" yaml:"radial_trig"`
	Tangent     []float64 `json:"tangent" yaml:"tangent"`
	TangentTrig []float64 `json:"tangent_trig" yaml:"tangent_trig"`
}

func (*Pinhole) isCameraModel() {}

// NewPinhole returns a pinhole model.
func NewPinhole(fx, fy, skew, cx, cy float64, width, height int) *Pinhole {
	return &Pinhole{Fx: fx, Fy: fy, Skew: skew, Cx: cx, Cy: cy, Width: width, Height: height}
}

// SetMatrix sets the camera matrix elements.
func (p *Pinhole) SetMatrix(fx, fy, skew, cx, cy float64) {
	p.Fx, p.Fy, p.Skew, p.Cx, p.Cy = fx, fy, skew, cx, cy
}

// SetImageShape sets the image size the model describes.
func (p *Pinhole) SetImageShape(width, height int) {
	p.Width, p.Height = width, height
}

// Intrinsics returns the receiver.
func (p *Pinhole) Intrinsics() *Pinhole {
	return p
}

// CameraMatrix creates a new camera matrix and returns it.
// Camera matrix:
// [[fx skew cx]
// [0 fy cy]
// [0 0  1]].
func (p *Pinhole) CameraMatrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		p.Fx, p.Skew, p.Cx,
		0, p.Fy, p.Cy,
		0, 0, 1,
	})
}

// CheckValid checks if the fields of the model have valid inputs.
func (p *Pinhole) CheckValid() error {
	if p == nil {
		return NewInvalidConfigurationError("camera model not provided")
	}
	if p.Width < 0 || p.Height < 0 {
		return NewInvalidConfigurationError(fmt.Sprintf("invalid size (%#v, %#v)", p.Width, p.Height))
	}
	if p.Fx == 0 || p.Fy == 0 {
		return NewInvalidConfigurationError(fmt.Sprintf("invalid focal length (%#v, %#v)", p.Fx, p.Fy))
	}
	return nil
}

// Clone returns a copy of the model.
func (p *Pinhole) Clone() CameraModel {
	c := *p
	return &c
}

// Equal reports whether other is a *Pinhole with the same values.
func (p *Pinhole) Equal(other CameraModel) bool {
	o, ok := other.(*Pinhole)
	return ok && *p == *o
}

// CopyFrom copies the pinhole block of any model.
func (p *Pinhole) CopyFrom(other CameraModel) {
	*p = *other.Intrinsics()
}

func (p *Pinhole) String() string {
	return fmt.Sprintf("Pinhole{ fx=%f fy=%f skew=%f cx=%f cy=%f | width=%d height=%d }",
		p.Fx, p.Fy, p.Skew, p.Cx, p.Cy, p.Width, p.Height)
}

// SetDistortion sets the radial and tangential coefficients. The slice is copied.
func (b *Brown) SetDistortion(radial []float64, t1, t2 float64) {
	b.Radial = slices.Clone(radial)
	b.T1, b.T2 = t1, t2
}

// IsDistorted returns true when any distortion coefficient is present.
func (b *Brown) IsDistorted() bool {
	return len(b.Radial) > 0 || b.T1 != 0 || b.T2 != 0
}

// Clone returns a deep copy of the model.
func (b *Brown) Clone() CameraModel {
	return b.clone()
}

func (b *Brown) clone() *Brown {
	c := *b
	c.Radial = slices.Clone(b.Radial)
	return &c
}

func (b *Brown) equalBrown(o *Brown) bool {
	return b.Pinhole == o.Pinhole && slices.Equal(b.Radial, o.Radial) && b.T1 == o.T1 && b.T2 == o.T2
}

// Equal reports whether other is a *Brown with the same values.
func (b *Brown) Equal(other CameraModel) bool {
	o, ok := other.(*Brown)
	return ok && b.equalBrown(o)
}

// CopyFrom copies the pinhole block of any model. Distortion is copied from a *Brown or
// *UniversalOmni and cleared otherwise.
func (b *Brown) CopyFrom(other CameraModel) {
	b.Pinhole = *other.Intrinsics()
	switch o := other.(type) {
	case *Brown:
		b.SetDistortion(o.Radial, o.T1, o.T2)
	case *UniversalOmni:
		b.SetDistortion(o.Radial, o.T1, o.T2)
	default:
		b.SetDistortion(nil, 0, 0)
	}
}

func (b *Brown) distortionString() string {
	if !b.IsDistorted() {
		return ""
	}
	return fmt.Sprintf(" | radial=%v t1=%f t2=%f", b.Radial, b.T1, b.T2)
}

func (b *Brown) String() string {
	return fmt.Sprintf("Brown{ fx=%f fy=%f skew=%f cx=%f cy=%f | width=%d height=%d%s }",
		b.Fx, b.Fy, b.Skew, b.Cx, b.Cy, b.Width, b.Height, b.distortionString())
}

// SetMirrorOffset sets the mirror offset. 0 is a pinhole camera and 1 a fisheye.
func (u *UniversalOmni) SetMirrorOffset(offset float64) {
	u.MirrorOffset = offset
}

// Clone returns a deep copy of the model.
func (u *UniversalOmni) Clone() CameraModel {
	return &UniversalOmni{Brown: *u.Brown.clone(), MirrorOffset: u.MirrorOffset}
}

// Equal reports whether other is a *UniversalOmni with the same values.
func (u *UniversalOmni) Equal(other CameraModel) bool {
	o, ok := other.(*UniversalOmni)
	return ok && u.equalBrown(&o.Brown) && u.MirrorOffset == o.MirrorOffset
}

// CopyFrom copies the Brown part like (*Brown).CopyFrom and the mirror offset when other is a
// *UniversalOmni.
func (u *UniversalOmni) CopyFrom(other CameraModel) {
	u.Brown.CopyFrom(other)
	if o, ok := other.(*UniversalOmni); ok {
		u.MirrorOffset = o.MirrorOffset
	}
}

func (u *UniversalOmni) String() string {
	return fmt.Sprintf("UniversalOmni{ fx=%f fy=%f skew=%f cx=%f cy=%f | width=%d height=%d | mirror=%f%s }",
		u.Fx, u.Fy, u.Skew, u.Cx, u.Cy, u.Width, u.Height, u.MirrorOffset, u.distortionString())
}

// SetCoefficients sets every coefficient sequence. The slices are copied.
func (k *KannalaBrandt) SetCoefficients(symmetric, radial, radialTrig, tangent, tangentTrig []float64) {
	k.Symmetric = slices.Clone(symmetric)
	k.Radial = slices.Clone(radial)
	k.RadialTrig = slices.Clone(radialTrig)
	k.Tangent = slices.Clone(tangent)
	k.TangentTrig = slices.Clone(tangentTrig)
}

// IsAsymmetric returns true when any of the asymmetric terms can contribute.
func (k *KannalaBrandt) IsAsymmetric() bool {
	return (len(k.Radial) > 0 && len(k.RadialTrig) > 0) || (len(k.Tangent) > 0 && len(k.TangentTrig) > 0)
}

// Clone returns a deep copy of the model.
func (k *KannalaBrandt) Clone() CameraModel {
	c := &KannalaBrandt{Pinhole: k.Pinhole}
	c.SetCoefficients(k.Symmetric, k.Radial, k.RadialTrig, k.Tangent, k.TangentTrig)
	return c
}

// Equal reports whether other is a *KannalaBrandt with the same values.
func (k *KannalaBrandt) Equal(other CameraModel) bool {
	o, ok := other.(*KannalaBrandt)
	return ok && k.Pinhole == o.Pinhole &&
		slices.Equal(k.Symmetric, o.Symmetric) &&
		slices.Equal(k.Radial, o.Radial) &&
		slices.Equal(k.RadialTrig, o.RadialTrig) &&
		slices.Equal(k.Tangent, o.Tangent) &&
		slices.Equal(k.TangentTrig, o.TangentTrig)
}

// CopyFrom copies the pinhole block of any model and the coefficients of a *KannalaBrandt.
func (k *KannalaBrandt) CopyFrom(other CameraModel) {
	k.Pinhole = *other.Intrinsics()
	if o, ok := other.(*KannalaBrandt); ok {
		k.SetCoefficients(o.Symmetric, o.Radial, o.RadialTrig, o.Tangent, o.TangentTrig)
	}
}

func (k *KannalaBrandt) String() string {
	return fmt.Sprintf("KannalaBrandt{ fx=%f fy=%f skew=%f cx=%f cy=%f | width=%d height=%d"+
		" | symmetric=%v radial=%v radialTrig=%v tangent=%v tangentTrig=%v }",
		k.Fx, k.Fy, k.Skew, k.Cx, k.Cy, k.Width, k.Height,
		k.Symmetric, k.Radial, k.RadialTrig, k.Tangent, k.TangentTrig)
}
