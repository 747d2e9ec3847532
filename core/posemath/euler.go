package posemath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// gimbalLockThreshold is the denominator below which the decomposition falls
// back to the degenerate branch.
const gimbalLockThreshold = 1e-6

// DecomposeEuler returns the XYZ Euler angles of the pose rotation in
// degrees. The matrix is read row-major, so a 30 degree rotation about X
// yields x = 30.
//
// Near gimbal lock the remaining degree of freedom is folded into the x
// angle and z is forced to zero. The decomposition is lossy there; callers
// rely on this exact branch behavior.
func DecomposeEuler(p Pose) (x, y, z float64) {
	r := Rotation(p).Mat4()

	sy := math.Sqrt(r.At(0, 0)*r.At(0, 0) + r.At(1, 0)*r.At(1, 0))
	if sy >= gimbalLockThreshold {
		x = math.Atan2(r.At(2, 1), r.At(2, 2))
		y = math.Atan2(-r.At(2, 0), sy)
		z = math.Atan2(r.At(1, 0), r.At(0, 0))
	} else {
		x = math.Atan2(-r.At(1, 2), r.At(1, 1))
		y = math.Atan2(-r.At(2, 0), sy)
		z = 0
	}

	return mgl64.RadToDeg(x), mgl64.RadToDeg(y), mgl64.RadToDeg(z)
}

// EulerRotation builds the rotation whose DecomposeEuler result outside
// gimbal lock is (x, y, z), all in degrees.
func EulerRotation(x, y, z float64) mgl64.Quat {
	qx := mgl64.QuatRotate(mgl64.DegToRad(x), mgl64.Vec3{1, 0, 0})
	qy := mgl64.QuatRotate(mgl64.DegToRad(y), mgl64.Vec3{0, 1, 0})
	qz := mgl64.QuatRotate(mgl64.DegToRad(z), mgl64.Vec3{0, 0, 1})
	return qz.Mul(qy).Mul(qx)
}
