package constraint

import (
	"math"
	"testing"

	"github.com/akmonengine/ballast/actor"
	"github.com/akmonengine/ballast/bundle"
	"github.com/go-gl/mathgl/mgl64"
)

const frameDt = 1.0 / 60.0

func unitInertia() actor.BodyInertia {
	return actor.BodyInertia{InverseInertiaTensor: mgl64.Ident3(), InverseMass: 1}
}

// newPair creates a kinematic body A and a dynamic body B
func newPair(positionA, positionB mgl64.Vec3) *actor.Bodies {
	bodies := actor.NewBodies(2)
	bodies.Add(actor.BodyDescription{Pose: actor.RigidPose{Position: positionA, Orientation: mgl64.QuatIdent()}})
	bodies.Add(actor.BodyDescription{
		Pose:         actor.RigidPose{Position: positionB, Orientation: mgl64.QuatIdent()},
		LocalInertia: unitInertia(),
	})
	return bodies
}

func solveFrame(tb TypeBatch, bodies *actor.Bodies, iterations int) {
	tb.Prestep(bodies, frameDt, 1/frameDt, 0, tb.BundleCount())
	tb.WarmStart(bodies, 0, tb.BundleCount())
	for range iterations {
		tb.SolveIteration(bodies, 0, tb.BundleCount())
	}
}

func applyGravity(bodies *actor.Bodies) {
	bodies.ApplyLinearImpulseVelocity(0, bodies.Count, mgl64.Vec3{0, -10 * frameDt, 0})
}

func restingContact() *Contact1 {
	return &Contact1{
		Normal:                  mgl64.Vec3{0, -1, 0},
		FrictionCoefficient:     1,
		SpringSettings:          SpringSettings{NaturalFrequency: 120 * math.Pi, DampingRatio: 1},
		MaximumRecoveryVelocity: 1,
	}
}

func addConstraint(tb TypeBatch, description Description) int {
	slot := tb.Allocate(tb.ConstraintCount(), []int{0, 1})
	b, lane := bundle.Indices(slot)
	description.ApplyDescription(tb, b, lane)
	return slot
}

// ============================================================================
// Springiness
// ============================================================================

func TestComputeSpringiness(t *testing.T) {
	settings := SpringSettings{NaturalFrequency: 120 * math.Pi, DampingRatio: 1}
	positionErrorToVelocity, effectiveMassCFMScale, softnessImpulseScale := ComputeSpringiness(settings, frameDt)

	frequencyDt := 2 * math.Pi
	extra := 1 / (frequencyDt * (frequencyDt + 2))
	if want := 120 * math.Pi / (frequencyDt + 2); math.Abs(positionErrorToVelocity-want) > 1e-9 {
		t.Errorf("positionErrorToVelocity = %v, want %v", positionErrorToVelocity, want)
	}
	if want := 1 / (1 + extra); math.Abs(effectiveMassCFMScale-want) > 1e-12 {
		t.Errorf("effectiveMassCFMScale = %v, want %v", effectiveMassCFMScale, want)
	}
	if want := extra / (1 + extra); math.Abs(softnessImpulseScale-want) > 1e-12 {
		t.Errorf("softnessImpulseScale = %v, want %v", softnessImpulseScale, want)
	}
	if math.Abs(effectiveMassCFMScale+softnessImpulseScale-1) > 1e-12 {
		t.Errorf("scales should sum to 1, got %v", effectiveMassCFMScale+softnessImpulseScale)
	}
}

func TestComputeSpringinessZeroFrequency(t *testing.T) {
	positionErrorToVelocity, effectiveMassCFMScale, softnessImpulseScale := ComputeSpringiness(SpringSettings{}, frameDt)
	for _, v := range []float64{positionErrorToVelocity, effectiveMassCFMScale, softnessImpulseScale} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("ComputeSpringiness(zero) = %v, %v, %v", positionErrorToVelocity, effectiveMassCFMScale, softnessImpulseScale)
		}
	}
}

// ============================================================================
// Contacts
// ============================================================================

func TestRestingContactConverges(t *testing.T) {
	bodies := newPair(mgl64.Vec3{}, mgl64.Vec3{0, 1, 0})
	tb := NewTypeBatch(Contact1TypeId, 1)
	addConstraint(tb, restingContact())

	for range 200 {
		applyGravity(bodies)
		solveFrame(tb, bodies, 8)
	}

	velocity := bodies.Velocities[1].Linear
	if math.Abs(velocity.Y()) > 1e-2 {
		t.Errorf("resting body Y velocity = %v, want ~0", velocity.Y())
	}
	if bodies.Velocities[0].Linear != (mgl64.Vec3{}) {
		t.Errorf("kinematic body moved: %v", bodies.Velocities[0].Linear)
	}
}

func TestWarmStartIdempotence(t *testing.T) {
	bodies := newPair(mgl64.Vec3{}, mgl64.Vec3{0, 1, 0})
	tb := NewTypeBatch(Contact1TypeId, 1).(*Contact1TypeBatch)
	addConstraint(tb, restingContact())

	for range 200 {
		applyGravity(bodies)
		solveFrame(tb, bodies, 8)
	}

	velocity := bodies.Velocities[1]
	impulses := tb.AccumulatedImpulses[0]
	tb.SolveIteration(bodies, 0, tb.BundleCount())

	if !velocity.Linear.ApproxEqualThreshold(bodies.Velocities[1].Linear, 1e-9) {
		t.Errorf("velocity changed: %v -> %v", velocity.Linear, bodies.Velocities[1].Linear)
	}
	if math.Abs(impulses.Penetration[0]-tb.AccumulatedImpulses[0].Penetration[0]) > 1e-9 {
		t.Errorf("impulse changed: %v -> %v", impulses.Penetration[0], tb.AccumulatedImpulses[0].Penetration[0])
	}
}

// TestPenetratingContactSettles integrates the depth by hand and checks that the
// recovery never injects more than the allowed recovery velocity.
func TestPenetratingContactSettles(t *testing.T) {
	bodies := newPair(mgl64.Vec3{}, mgl64.Vec3{0, 0.9, 0})
	tb := NewTypeBatch(Contact1TypeId, 1)
	description := restingContact()
	description.Contact.Depth = 0.1
	slot := addConstraint(tb, description)
	b, lane := bundle.Indices(slot)

	maximumSpeed := 0.0
	for range 300 {
		applyGravity(bodies)
		solveFrame(tb, bodies, 8)

		// separating velocity along the normal shrinks the depth
		separating := bodies.Velocities[0].Linear.Sub(bodies.Velocities[1].Linear).Dot(description.Normal)
		description.Contact.Depth -= separating * frameDt
		description.ApplyDescription(tb, b, lane)

		maximumSpeed = math.Max(maximumSpeed, bodies.Velocities[1].Linear.Len())
	}

	if maximumSpeed > description.MaximumRecoveryVelocity+10*frameDt {
		t.Errorf("maximum speed %v exceeds the recovery velocity", maximumSpeed)
	}
	if speed := bodies.Velocities[1].Linear.Len(); speed > 1e-2 {
		t.Errorf("body did not settle, speed %v", speed)
	}
	if description.Contact.Depth > 0.02 {
		t.Errorf("depth %v was not recovered", description.Contact.Depth)
	}
}

func TestTangentFrictionDecelerates(t *testing.T) {
	bodies := newPair(mgl64.Vec3{}, mgl64.Vec3{0, 1, 0})
	bodies.Velocities[1].Linear = mgl64.Vec3{10, 0, 0}
	tb := NewTypeBatch(Contact1TypeId, 1)
	description := restingContact()
	description.FrictionCoefficient = 0.5
	addConstraint(tb, description)

	for range 60 {
		applyGravity(bodies)
		solveFrame(tb, bodies, 8)
	}

	// Coulomb friction: 10 - μ g t
	if got := bodies.Velocities[1].Linear.X(); math.Abs(got-5) > 0.3 {
		t.Errorf("sliding velocity = %v, want ~5", got)
	}
	if got := bodies.Velocities[1].Angular; !got.ApproxEqualThreshold(mgl64.Vec3{}, 1e-9) {
		t.Errorf("friction at the center of mass should not spin the body, got %v", got)
	}
}

func TestKinematicPairIsGuarded(t *testing.T) {
	bodies := actor.NewBodies(2)
	bodies.Add(actor.BodyDescription{Pose: actor.NewRigidPose(), Velocity: actor.BodyVelocity{Linear: mgl64.Vec3{0, 1, 0}}})
	bodies.Add(actor.BodyDescription{Pose: actor.NewRigidPose()})

	for _, description := range []Description{
		&Contact1{Normal: mgl64.Vec3{0, 1, 0}, FrictionCoefficient: 1, SpringSettings: SpringSettings{NaturalFrequency: 30, DampingRatio: 1}, MaximumRecoveryVelocity: 1},
		&Contact4{Normal: mgl64.Vec3{0, 1, 0}, FrictionCoefficient: 1, SpringSettings: SpringSettings{NaturalFrequency: 30, DampingRatio: 1}, MaximumRecoveryVelocity: 1},
		&BallSocket{LocalOffsetA: mgl64.Vec3{1, 0, 0}, SpringSettings: SpringSettings{NaturalFrequency: 30, DampingRatio: 1}},
	} {
		tb := NewTypeBatch(description.ConstraintTypeId(), 1)
		addConstraint(tb, description)
		solveFrame(tb, bodies, 4)

		for i := 0; i < 2; i++ {
			v := bodies.Velocities[i]
			for _, x := range append(v.Linear[:], v.Angular[:]...) {
				if math.IsNaN(x) || math.IsInf(x, 0) {
					t.Fatalf("type %d produced %v", description.ConstraintTypeId(), v)
				}
			}
		}
		if got := bodies.Velocities[0].Linear; got != (mgl64.Vec3{0, 1, 0}) {
			t.Errorf("type %d changed a kinematic velocity to %v", description.ConstraintTypeId(), got)
		}
	}
}

func manifold() *Contact4 {
	description := &Contact4{
		Normal:                  mgl64.Vec3{0, -1, 0},
		FrictionCoefficient:     1,
		SpringSettings:          SpringSettings{NaturalFrequency: 120 * math.Pi, DampingRatio: 1},
		MaximumRecoveryVelocity: 1,
	}
	corners := []mgl64.Vec3{{0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5}, {-0.5, 0.5, -0.5}, {0.5, 0.5, -0.5}}
	for i, corner := range corners {
		// A at the origin, B at (0, 1, 0)
		description.Contacts[i] = ContactPoint{OffsetA: corner, OffsetB: corner.Sub(mgl64.Vec3{0, 1, 0})}
	}
	return description
}

func TestContact4RestingManifold(t *testing.T) {
	bodies := newPair(mgl64.Vec3{}, mgl64.Vec3{0, 1, 0})
	tb := NewTypeBatch(Contact4TypeId, 1).(*Contact4TypeBatch)
	addConstraint(tb, manifold())

	for range 200 {
		applyGravity(bodies)
		solveFrame(tb, bodies, 8)
	}

	velocity := bodies.Velocities[1]
	if math.Abs(velocity.Linear.Y()) > 1e-2 {
		t.Errorf("Y velocity = %v, want ~0", velocity.Linear.Y())
	}
	if velocity.Angular.Len() > 1e-3 {
		t.Errorf("symmetric manifold should not spin the body, got %v", velocity.Angular)
	}
	// The four contacts carry the weight together.
	var total float64
	for i := range tb.AccumulatedImpulses[0].Penetration {
		impulse := tb.AccumulatedImpulses[0].Penetration[i][0]
		if impulse < 0 {
			t.Errorf("contact %d impulse = %v, want >= 0", i, impulse)
		}
		total += impulse
	}
	if math.Abs(total-10*frameDt) > 1e-3 {
		t.Errorf("total impulse = %v, want ~%v", total, 10*frameDt)
	}
}

func TestContact4TwistFriction(t *testing.T) {
	bodies := newPair(mgl64.Vec3{}, mgl64.Vec3{0, 1, 0})
	tb := NewTypeBatch(Contact4TypeId, 1).(*Contact4TypeBatch)
	addConstraint(tb, manifold())

	// Settle the weight first so the twist limit is known.
	for range 60 {
		applyGravity(bodies)
		solveFrame(tb, bodies, 8)
	}
	bodies.Velocities[1].Angular = mgl64.Vec3{0, 2, 0}

	previous := 2.0
	for range 10 {
		applyGravity(bodies)
		solveFrame(tb, bodies, 8)

		spin := bodies.Velocities[1].Angular.Y()
		if spin > previous+1e-9 {
			t.Fatalf("twist friction accelerated the spin: %v -> %v", previous, spin)
		}
		previous = spin
	}
	if previous >= 2 || previous < 0 {
		t.Errorf("spin after friction = %v, want in [0, 2)", previous)
	}
	if limit := tb.AccumulatedImpulses[0].Twist[0]; math.Abs(limit) > 10*frameDt*math.Sqrt(0.5)+1e-6 {
		t.Errorf("twist impulse %v exceeds μ times the lever weighted normal impulse", limit)
	}
}

// ============================================================================
// Ball socket
// ============================================================================

func TestBallSocketClosesError(t *testing.T) {
	bodies := newPair(mgl64.Vec3{}, mgl64.Vec3{0, -2.5, 0})
	tb := NewTypeBatch(BallSocketTypeId, 1)
	addConstraint(tb, &BallSocket{
		LocalOffsetA:   mgl64.Vec3{0, -1, 0},
		LocalOffsetB:   mgl64.Vec3{0, 1, 0},
		SpringSettings: SpringSettings{NaturalFrequency: 30, DampingRatio: 1},
	})

	for range 120 {
		solveFrame(tb, bodies, 8)
		bodies.IntegratePoses(0, bodies.Count, frameDt, 0, 0)
	}

	poseA, poseB := bodies.Poses[0], bodies.Poses[1]
	anchorA := poseA.Position.Add(poseA.Orientation.Rotate(mgl64.Vec3{0, -1, 0}))
	anchorB := poseB.Position.Add(poseB.Orientation.Rotate(mgl64.Vec3{0, 1, 0}))
	if distance := anchorA.Sub(anchorB).Len(); distance > 1e-3 {
		t.Errorf("anchors are %v apart", distance)
	}
}

func TestBallSocketPendulumHoldsLength(t *testing.T) {
	bodies := newPair(mgl64.Vec3{}, mgl64.Vec3{2, 0, 0})
	tb := NewTypeBatch(BallSocketTypeId, 1)
	addConstraint(tb, &BallSocket{
		LocalOffsetA:   mgl64.Vec3{0, 0, 0},
		LocalOffsetB:   mgl64.Vec3{-2, 0, 0},
		SpringSettings: SpringSettings{NaturalFrequency: 60, DampingRatio: 1},
	})

	for range 60 {
		applyGravity(bodies)
		solveFrame(tb, bodies, 8)
		bodies.IntegratePoses(0, bodies.Count, frameDt, 0, 0)
	}

	poseB := bodies.Poses[1]
	anchorB := poseB.Position.Add(poseB.Orientation.Rotate(mgl64.Vec3{-2, 0, 0}))
	if distance := anchorB.Len(); distance > 5e-2 {
		t.Errorf("pendulum anchor drifted %v from the pivot", distance)
	}
	if poseB.Position.Y() > -1 {
		t.Errorf("pendulum did not swing down, position %v", poseB.Position)
	}
}

// ============================================================================
// Descriptions
// ============================================================================

func TestDescriptionRoundTrip(t *testing.T) {
	tb := NewTypeBatch(Contact4TypeId, 8)
	for i := 0; i < 6; i++ {
		tb.Allocate(i, []int{2 * i, 2*i + 1})
	}
	want := manifold()
	want.FrictionCoefficient = 0.3
	want.Contacts[2].Depth = 0.05
	want.ApplyDescription(tb, 1, 1)

	var got Contact4
	got.BuildDescription(tb, 1, 1)
	if got != *want {
		t.Errorf("BuildDescription() = %+v, want %+v", got, want)
	}
}

func TestCombineFriction(t *testing.T) {
	tests := []struct {
		name     string
		a, b     float64
		expected float64
	}{
		{"both zero", 0, 0, 0},
		{"one zero", 0, 0.8, 0},
		{"same", 0.5, 0.5, 0.5},
		{"different", 0.2, 0.8, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CombineFriction(tt.a, tt.b); math.Abs(got-tt.expected) > 1e-10 {
				t.Errorf("CombineFriction() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func BenchmarkContact4Solve(b *testing.B) {
	const count = 1024
	bodies := actor.NewBodies(2 * count)
	for i := 0; i < 2*count; i++ {
		bodies.Add(actor.BodyDescription{Pose: actor.NewRigidPose(), LocalInertia: unitInertia()})
	}
	tb := NewTypeBatch(Contact4TypeId, count)
	description := manifold()
	for i := 0; i < count; i++ {
		slot := tb.Allocate(i, []int{2 * i, 2*i + 1})
		bundleIndex, lane := bundle.Indices(slot)
		description.ApplyDescription(tb, bundleIndex, lane)
	}
	tb.Prestep(bodies, frameDt, 1/frameDt, 0, tb.BundleCount())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tb.SolveIteration(bodies, 0, tb.BundleCount())
	}
}
