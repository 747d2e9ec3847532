// Package posemath provides the rigid-transform arithmetic used by the
// tracking pipeline. Poses are 4x4 homogeneous matrices in column-major
// order, translation in meters.
package posemath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Pose is a rigid (optionally uniformly scaled) transform in some named
// coordinate space.
type Pose = mgl64.Mat4

// DefaultTolerance is the comparison tolerance used by tests and by the
// tracker when checking for unchanged inputs.
const DefaultTolerance = 1e-5

func Identity() Pose { return mgl64.Ident4() }

// TranslationOnly returns a pose with identity rotation and the given
// translation.
func TranslationOnly(t mgl64.Vec3) Pose {
	return mgl64.Translate3D(t.X(), t.Y(), t.Z())
}

// Compose returns a∘b: b expressed in a's parent frame.
func Compose(a, b Pose) Pose {
	return a.Mul4(b)
}

// Invert inverts a rigid pose without an iterative solve. The rotation block
// is transposed (and divided by the squared uniform scale, which is 1 for
// pure poses) and the translation is negated and rotated.
func Invert(a Pose) Pose {
	basis := a.Col(0).Vec3()
	scaleSquared := basis.Dot(basis)
	if scaleSquared == 0 {
		scaleSquared = 1
	}

	var inv Pose
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			inv.Set(row, col, a.At(col, row)/scaleSquared)
		}
	}

	t := Translation(a)
	for row := 0; row < 3; row++ {
		inv.Set(row, 3, -(inv.At(row, 0)*t.X() + inv.At(row, 1)*t.Y() + inv.At(row, 2)*t.Z()))
	}
	inv.Set(3, 3, 1)

	return inv
}

// RelativeTransform returns the pose of B expressed in A's frame, given both
// in a common world frame. The result does not depend on world-frame drift.
func RelativeTransform(worldFromA, worldFromB Pose) Pose {
	return Compose(Invert(worldFromA), worldFromB)
}

// Conjugate re-expresses x in a frame related to its own by t: t∘x∘t⁻¹.
func Conjugate(t, x Pose) Pose {
	return Compose(t, Compose(x, Invert(t)))
}

func Translation(p Pose) mgl64.Vec3 {
	return p.Col(3).Vec3()
}

// Scale returns the uniform scale factor of the pose, measured on the first
// basis vector.
func Scale(p Pose) float64 {
	return p.Col(0).Vec3().Len()
}

// Rotation returns the rotation part of the pose as a unit quaternion with
// any uniform scale removed.
func Rotation(p Pose) mgl64.Quat {
	s := Scale(p)
	if s == 0 {
		return mgl64.QuatIdent()
	}

	var r Pose
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			r.Set(row, col, p.At(row, col)/s)
		}
	}
	r.Set(3, 3, 1)

	return mgl64.Mat4ToQuat(r).Normalize()
}

// FromRotationTranslation builds a pose from a rotation and a translation.
func FromRotationTranslation(q mgl64.Quat, t mgl64.Vec3) Pose {
	return Compose(TranslationOnly(t), q.Normalize().Mat4())
}

// WithScale returns p with its rotation block rescaled to the uniform scale s.
func WithScale(p Pose, s float64) Pose {
	current := Scale(p)
	if current == 0 {
		current = 1
	}

	factor := s / current
	out := p
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			out.Set(row, col, p.At(row, col)*factor)
		}
	}
	return out
}

// ApproxEqual compares two poses element-wise.
func ApproxEqual(a, b Pose, tolerance float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > tolerance {
			return false
		}
	}
	return true
}
