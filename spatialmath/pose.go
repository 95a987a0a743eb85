package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// Pose is a rigid body transform, p' = Rotation * p + Translation. In the calibration code a pose
// maps points from the frame named after "to" in its variable name, e.g. rightToLeft maps points in
// the right camera frame into the left camera frame.
type Pose struct {
	Rotation    *RotationMatrix
	Translation r3.Vector
}

// NewZeroPose returns the identity transform.
func NewZeroPose() *Pose {
	return &Pose{Rotation: NewIdentityRotation()}
}

// NewPose builds a pose from its rotation and translation.
func NewPose(rot *RotationMatrix, t r3.Vector) *Pose {
	if rot == nil {
		rot = NewIdentityRotation()
	}
	return &Pose{Rotation: rot, Translation: t}
}

// NewPoseFromRodrigues builds a pose from a rotation vector and a translation.
func NewPoseFromRodrigues(rot, t r3.Vector) *Pose {
	return &Pose{Rotation: RodriguesToRotationMatrix(rot), Translation: t}
}

// Transform applies the pose to a point.
func (p *Pose) Transform(pt r3.Vector) r3.Vector {
	return p.Rotation.MulVec(pt).Add(p.Translation)
}

// Invert returns the inverse transform.
func (p *Pose) Invert() *Pose {
	rt := p.Rotation.Transpose()
	return &Pose{Rotation: rt, Translation: rt.MulVec(p.Translation).Mul(-1)}
}

// Clone returns a deep copy.
func (p *Pose) Clone() *Pose {
	rot := *p.Rotation
	return &Pose{Rotation: &rot, Translation: p.Translation}
}

// Compose returns a∘b, the transform that applies b first and a second.
func Compose(a, b *Pose) *Pose {
	return &Pose{
		Rotation:    a.Rotation.Mul(b.Rotation),
		Translation: a.Rotation.MulVec(b.Translation).Add(a.Translation),
	}
}

// PoseAlmostEqual reports whether both the rotation angle between the poses and the distance
// between their translations are within tol.
func PoseAlmostEqual(a, b *Pose, tol float64) bool {
	return AngleBetween(a.Rotation, b.Rotation) <= tol && a.Translation.Sub(b.Translation).Norm() <= tol
}

func (p *Pose) String() string {
	rv := RotationMatrixToRodrigues(p.Rotation)
	return fmt.Sprintf("Pose{ rodrigues=(%f, %f, %f) translation=(%f, %f, %f) }",
		rv.X, rv.Y, rv.Z, p.Translation.X, p.Translation.Y, p.Translation.Z)
}
