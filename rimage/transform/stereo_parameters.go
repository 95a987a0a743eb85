package transform

import (
	"fmt"

	"go.viam.com/lenscal/spatialmath"
)

// StereoParameters are the intrinsics of both cameras of a stereo pair and the pose of the right
// camera in the left camera frame.
type StereoParameters struct {
	Left  *Brown
	Right *Brown
	// RightToLeft maps points in the right camera frame into the left camera frame.
	RightToLeft *spatialmath.Pose
}

// Baseline returns the distance between the two camera centers.
func (sp *StereoParameters) Baseline() float64 {
	return sp.RightToLeft.Translation.Norm()
}

// Clone returns a deep copy.
func (sp *StereoParameters) Clone() *StereoParameters {
	return &StereoParameters{
		Left:        sp.Left.clone(),
		Right:       sp.Right.clone(),
		RightToLeft: sp.RightToLeft.Clone(),
	}
}

func (sp *StereoParameters) String() string {
	return fmt.Sprintf("StereoParameters{ left=%v right=%v right_to_left=%v }", sp.Left, sp.Right, sp.RightToLeft)
}
