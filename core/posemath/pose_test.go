package posemath

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func randomPose(rng *rand.Rand) Pose {
	axis := mgl64.Vec3{rng.Float64() - 0.5, rng.Float64() - 0.5, rng.Float64() - 0.5}
	if axis.Len() < 1e-3 {
		axis = mgl64.Vec3{0, 1, 0}
	}
	angle := (rng.Float64()*2 - 1) * math.Pi
	translation := mgl64.Vec3{rng.Float64()*4 - 2, rng.Float64()*4 - 2, rng.Float64()*4 - 2}

	return FromRotationTranslation(mgl64.QuatRotate(angle, axis.Normalize()), translation)
}

func TestInvertRoundTrips(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 100; i++ {
		pose := randomPose(rng)

		if got := Invert(Invert(pose)); !ApproxEqual(got, pose, DefaultTolerance) {
			t.Fatalf("expected invert(invert(A)) == A, got %v for %v", got, pose)
		}
		if got := Compose(pose, Invert(pose)); !ApproxEqual(got, Identity(), DefaultTolerance) {
			t.Fatalf("expected A*inv(A) == I, got %v", got)
		}
		if got := Compose(Invert(pose), pose); !ApproxEqual(got, Identity(), DefaultTolerance) {
			t.Fatalf("expected inv(A)*A == I, got %v", got)
		}
	}
}

func TestInvertMatchesGeneralInverse(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 20; i++ {
		pose := WithScale(randomPose(rng), 0.5+rng.Float64())

		if got, want := Invert(pose), pose.Inv(); !ApproxEqual(got, want, DefaultTolerance) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestRelativeTransformOfSelfIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 50; i++ {
		pose := randomPose(rng)
		if got := RelativeTransform(pose, pose); !ApproxEqual(got, Identity(), DefaultTolerance) {
			t.Fatalf("expected identity, got %v", got)
		}
	}
}

func TestRelativeTransformIgnoresWorldRebase(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	a, b, world := randomPose(rng), randomPose(rng), randomPose(rng)

	before := RelativeTransform(a, b)
	after := RelativeTransform(Compose(world, a), Compose(world, b))
	if !ApproxEqual(before, after, DefaultTolerance) {
		t.Fatalf("expected relative transform to be unchanged by rebase, got %v and %v", before, after)
	}
}

func TestTranslationOnly(t *testing.T) {
	pose := TranslationOnly(mgl64.Vec3{1, 2, 3})

	if got := Translation(pose); !got.ApproxEqual(mgl64.Vec3{1, 2, 3}) {
		t.Fatalf("expected translation (1,2,3), got %v", got)
	}
	if got := Rotation(pose); !got.ApproxEqual(mgl64.QuatIdent()) {
		t.Fatalf("expected identity rotation, got %v", got)
	}
}

func TestRotationStripsScale(t *testing.T) {
	q := mgl64.QuatRotate(math.Pi/3, mgl64.Vec3{0, 0, 1})
	pose := WithScale(FromRotationTranslation(q, mgl64.Vec3{}), 2)

	if got := Scale(pose); math.Abs(got-2) > DefaultTolerance {
		t.Fatalf("expected scale 2, got %f", got)
	}
	if got := Rotation(pose); !got.ApproxEqualThreshold(q, DefaultTolerance) && !got.ApproxEqualThreshold(q.Scale(-1), DefaultTolerance) {
		t.Fatalf("expected rotation %v, got %v", q, got)
	}
}

func TestDecomposeEuler(t *testing.T) {
	testCases := []struct {
		name    string
		pose    Pose
		x, y, z float64
	}{
		{name: "identity", pose: Identity()},
		{name: "roll", pose: mgl64.HomogRotate3DX(mgl64.DegToRad(30)), x: 30},
		{name: "pitch", pose: mgl64.HomogRotate3DY(mgl64.DegToRad(-45)), y: -45},
		{name: "yaw", pose: mgl64.HomogRotate3DZ(mgl64.DegToRad(60)), z: 60},
		{
			name: "yaw pitch roll",
			pose: mgl64.HomogRotate3DZ(mgl64.DegToRad(20)).
				Mul4(mgl64.HomogRotate3DY(mgl64.DegToRad(10))).
				Mul4(mgl64.HomogRotate3DX(mgl64.DegToRad(5))),
			x: 5, y: 10, z: 20,
		},
		{
			name: "translation is ignored",
			pose: Compose(TranslationOnly(mgl64.Vec3{4, 5, 6}), mgl64.HomogRotate3DX(mgl64.DegToRad(15))),
			x:    15,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			x, y, z := DecomposeEuler(testCase.pose)
			if math.Abs(x-testCase.x) > 1e-4 || math.Abs(y-testCase.y) > 1e-4 || math.Abs(z-testCase.z) > 1e-4 {
				t.Fatalf("expected (%f, %f, %f), got (%f, %f, %f)", testCase.x, testCase.y, testCase.z, x, y, z)
			}
		})
	}
}

func TestDecomposeEulerGimbalLockFoldsYawIntoX(t *testing.T) {
	pose := mgl64.HomogRotate3DZ(mgl64.DegToRad(30)).Mul4(mgl64.HomogRotate3DY(mgl64.DegToRad(90)))

	x, y, z := DecomposeEuler(pose)
	if z != 0 {
		t.Fatalf("expected z forced to 0 at gimbal lock, got %f", z)
	}
	if math.Abs(y-90) > 1e-3 {
		t.Fatalf("expected y 90, got %f", y)
	}
	if math.Abs(x+30) > 1e-3 {
		t.Fatalf("expected yaw folded into x as -30, got %f", x)
	}
}

func TestEulerRotationRoundTrips(t *testing.T) {
	x, y, z := DecomposeEuler(FromRotationTranslation(EulerRotation(5, 10, 20), mgl64.Vec3{1, 2, 3}))
	if math.Abs(x-5) > 1e-6 || math.Abs(y-10) > 1e-6 || math.Abs(z-20) > 1e-6 {
		t.Fatalf("expected (5, 10, 20), got (%f, %f, %f)", x, y, z)
	}
}
