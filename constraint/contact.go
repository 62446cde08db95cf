package constraint

import (
	"math"

	"github.com/akmonengine/ballast/actor"
	"github.com/akmonengine/ballast/bundle"
	"github.com/go-gl/mathgl/mgl64"
)

// ContactPoint is one point of a contact manifold.
// Offsets are from each body center to the contact, Depth is positive when penetrating.
type ContactPoint struct {
	OffsetA mgl64.Vec3
	OffsetB mgl64.Vec3
	Depth   float64
}

type ContactPointBundle struct {
	OffsetA bundle.Vec3
	OffsetB bundle.Vec3
	Depth   bundle.Scalar
}

func (c *ContactPointBundle) Get(lane int) ContactPoint {
	return ContactPoint{OffsetA: c.OffsetA.Get(lane), OffsetB: c.OffsetB.Get(lane), Depth: c.Depth[lane]}
}

func (c *ContactPointBundle) Set(lane int, point ContactPoint) {
	c.OffsetA.Set(lane, point.OffsetA)
	c.OffsetB.Set(lane, point.OffsetB)
	c.Depth[lane] = point.Depth
}

func (c *ContactPointBundle) CopyLane(lane int, source *ContactPointBundle, sourceLane int) {
	c.OffsetA.CopyLane(lane, &source.OffsetA, sourceLane)
	c.OffsetB.CopyLane(lane, &source.OffsetB, sourceLane)
	c.Depth.CopyLane(lane, &source.Depth, sourceLane)
}

func (c *ContactPointBundle) ClearLane(lane int) {
	c.OffsetA.ClearLane(lane)
	c.OffsetB.ClearLane(lane)
	c.Depth.ClearLane(lane)
}

// ========== Penetration limit ==========

// penetrationProjection is the solver state of one contact point along the shared normal
type penetrationProjection struct {
	AngularA      bundle.Vec3
	AngularB      bundle.Vec3
	EffectiveMass bundle.Scalar
	BiasVelocity  bundle.Scalar
}

func (p *penetrationProjection) CopyLane(lane int, source *penetrationProjection, sourceLane int) {
	p.AngularA.CopyLane(lane, &source.AngularA, sourceLane)
	p.AngularB.CopyLane(lane, &source.AngularB, sourceLane)
	p.EffectiveMass.CopyLane(lane, &source.EffectiveMass, sourceLane)
	p.BiasVelocity.CopyLane(lane, &source.BiasVelocity, sourceLane)
}

func (p *penetrationProjection) ClearLane(lane int) {
	p.AngularA.ClearLane(lane)
	p.AngularB.ClearLane(lane)
	p.EffectiveMass.ClearLane(lane)
	p.BiasVelocity.ClearLane(lane)
}

// prestepPenetration fills lane of p. The normal points from B to A.
func (p *penetrationProjection) prestep(lane int, inertiaA, inertiaB actor.BodyInertia, normal mgl64.Vec3, point ContactPoint,
	positionErrorToVelocity, effectiveMassCFMScale, maximumRecoveryVelocity float64) {
	angularA := point.OffsetA.Cross(normal)
	angularB := normal.Cross(point.OffsetB)
	p.AngularA.Set(lane, angularA)
	p.AngularB.Set(lane, angularB)

	inverseEffectiveMass := inverseEffectiveMass1(inertiaA, inertiaB, normal, angularA, angularB)
	if inverseEffectiveMass > 0 {
		p.EffectiveMass[lane] = effectiveMassCFMScale / inverseEffectiveMass
	} else {
		p.EffectiveMass[lane] = 0
	}
	p.BiasVelocity[lane] = math.Min(point.Depth*positionErrorToVelocity, maximumRecoveryVelocity)
}

func (p *penetrationProjection) warmStart(lane int, velocityA, velocityB *actor.BodyVelocity, inertiaA, inertiaB actor.BodyInertia, normal mgl64.Vec3, accumulated float64) {
	applyImpulse(velocityA, velocityB, inertiaA, inertiaB, normal, p.AngularA.Get(lane), p.AngularB.Get(lane), accumulated)
}

// solve pushes the bodies apart, the accumulated impulse never becomes negative
func (p *penetrationProjection) solve(lane int, velocityA, velocityB *actor.BodyVelocity, inertiaA, inertiaB actor.BodyInertia, normal mgl64.Vec3,
	softnessImpulseScale float64, accumulated *float64) {
	angularA, angularB := p.AngularA.Get(lane), p.AngularB.Get(lane)
	csv := constraintVelocity(*velocityA, *velocityB, normal, angularA, angularB)
	negatedCSI := *accumulated*softnessImpulseScale + (csv-p.BiasVelocity[lane])*p.EffectiveMass[lane]

	previous := *accumulated
	*accumulated = math.Max(0, previous-negatedCSI)
	applyImpulse(velocityA, velocityB, inertiaA, inertiaB, normal, angularA, angularB, *accumulated-previous)
}

// ========== Tangent friction ==========

// tangentFrictionProjection resists sliding along the two tangents of the normal
type tangentFrictionProjection struct {
	TangentX      bundle.Vec3
	TangentY      bundle.Vec3
	AngularAX     bundle.Vec3
	AngularAY     bundle.Vec3
	AngularBX     bundle.Vec3
	AngularBY     bundle.Vec3
	EffectiveMass bundle.Symmetric2
}

func (p *tangentFrictionProjection) CopyLane(lane int, source *tangentFrictionProjection, sourceLane int) {
	p.TangentX.CopyLane(lane, &source.TangentX, sourceLane)
	p.TangentY.CopyLane(lane, &source.TangentY, sourceLane)
	p.AngularAX.CopyLane(lane, &source.AngularAX, sourceLane)
	p.AngularAY.CopyLane(lane, &source.AngularAY, sourceLane)
	p.AngularBX.CopyLane(lane, &source.AngularBX, sourceLane)
	p.AngularBY.CopyLane(lane, &source.AngularBY, sourceLane)
	p.EffectiveMass.CopyLane(lane, &source.EffectiveMass, sourceLane)
}

func (p *tangentFrictionProjection) ClearLane(lane int) {
	p.TangentX.ClearLane(lane)
	p.TangentY.ClearLane(lane)
	p.AngularAX.ClearLane(lane)
	p.AngularAY.ClearLane(lane)
	p.AngularBX.ClearLane(lane)
	p.AngularBY.ClearLane(lane)
	p.EffectiveMass.ClearLane(lane)
}

// prestep builds the friction jacobians at the given offsets from each body center
func (p *tangentFrictionProjection) prestep(lane int, inertiaA, inertiaB actor.BodyInertia, normal, offsetA, offsetB mgl64.Vec3) {
	tangentX, tangentY := TangentBasis(normal)
	angularAX, angularAY := offsetA.Cross(tangentX), offsetA.Cross(tangentY)
	angularBX, angularBY := tangentX.Cross(offsetB), tangentY.Cross(offsetB)
	p.TangentX.Set(lane, tangentX)
	p.TangentY.Set(lane, tangentY)
	p.AngularAX.Set(lane, angularAX)
	p.AngularAY.Set(lane, angularAY)
	p.AngularBX.Set(lane, angularBX)
	p.AngularBY.Set(lane, angularBY)

	// Tangents are orthonormal, so the linear part is (mA + mB) I.
	IA_inv, IB_inv := inertiaA.InverseInertiaTensor, inertiaB.InverseInertiaTensor
	linear := inertiaA.InverseMass + inertiaB.InverseMass
	xx := linear + angularAX.Dot(IA_inv.Mul3x1(angularAX)) + angularBX.Dot(IB_inv.Mul3x1(angularBX))
	yx := angularAY.Dot(IA_inv.Mul3x1(angularAX)) + angularBY.Dot(IB_inv.Mul3x1(angularBX))
	yy := linear + angularAY.Dot(IA_inv.Mul3x1(angularAY)) + angularBY.Dot(IB_inv.Mul3x1(angularBY))
	// Inv returns a zero matrix when both bodies are kinematic
	p.EffectiveMass.Set(lane, mgl64.Mat2{xx, yx, yx, yy}.Inv())
}

func (p *tangentFrictionProjection) apply(lane int, velocityA, velocityB *actor.BodyVelocity, inertiaA, inertiaB actor.BodyInertia, impulse mgl64.Vec2) {
	applyImpulse(velocityA, velocityB, inertiaA, inertiaB, p.TangentX.Get(lane), p.AngularAX.Get(lane), p.AngularBX.Get(lane), impulse[0])
	applyImpulse(velocityA, velocityB, inertiaA, inertiaB, p.TangentY.Get(lane), p.AngularAY.Get(lane), p.AngularBY.Get(lane), impulse[1])
}

// solve drives the tangential velocity to zero, clamping the impulse magnitude to maximumImpulse
func (p *tangentFrictionProjection) solve(lane int, velocityA, velocityB *actor.BodyVelocity, inertiaA, inertiaB actor.BodyInertia,
	maximumImpulse float64, accumulated *mgl64.Vec2) {
	csv := mgl64.Vec2{
		constraintVelocity(*velocityA, *velocityB, p.TangentX.Get(lane), p.AngularAX.Get(lane), p.AngularBX.Get(lane)),
		constraintVelocity(*velocityA, *velocityB, p.TangentY.Get(lane), p.AngularAY.Get(lane), p.AngularBY.Get(lane)),
	}
	negatedCSI := p.EffectiveMass.Get(lane).Mul2x1(csv)

	previous := *accumulated
	next := previous.Sub(negatedCSI)
	if length := next.Len(); length > maximumImpulse {
		next = next.Mul(maximumImpulse / length)
	}
	*accumulated = next
	p.apply(lane, velocityA, velocityB, inertiaA, inertiaB, next.Sub(previous))
}

// ========== Twist friction ==========

// twistFrictionProjection resists spinning about the normal
type twistFrictionProjection struct {
	EffectiveMass bundle.Scalar
}

func (p *twistFrictionProjection) CopyLane(lane int, source *twistFrictionProjection, sourceLane int) {
	p.EffectiveMass.CopyLane(lane, &source.EffectiveMass, sourceLane)
}

func (p *twistFrictionProjection) ClearLane(lane int) {
	p.EffectiveMass.ClearLane(lane)
}

func (p *twistFrictionProjection) prestep(lane int, inertiaA, inertiaB actor.BodyInertia, normal mgl64.Vec3) {
	inverseEffectiveMass := normal.Dot(inertiaA.InverseInertiaTensor.Mul3x1(normal)) + normal.Dot(inertiaB.InverseInertiaTensor.Mul3x1(normal))
	if inverseEffectiveMass > 0 {
		p.EffectiveMass[lane] = 1 / inverseEffectiveMass
	} else {
		p.EffectiveMass[lane] = 0
	}
}

func applyTwistImpulse(velocityA, velocityB *actor.BodyVelocity, inertiaA, inertiaB actor.BodyInertia, normal mgl64.Vec3, impulse float64) {
	applyImpulse(velocityA, velocityB, inertiaA, inertiaB, mgl64.Vec3{}, normal, normal.Mul(-1), impulse)
}

// solve clamps the accumulated twist impulse to [-maximumImpulse, maximumImpulse]
func (p *twistFrictionProjection) solve(lane int, velocityA, velocityB *actor.BodyVelocity, inertiaA, inertiaB actor.BodyInertia, normal mgl64.Vec3,
	maximumImpulse float64, accumulated *float64) {
	csv := normal.Dot(velocityA.Angular) - normal.Dot(velocityB.Angular)
	negatedCSI := csv * p.EffectiveMass[lane]

	previous := *accumulated
	*accumulated = mgl64.Clamp(previous-negatedCSI, -maximumImpulse, maximumImpulse)
	applyTwistImpulse(velocityA, velocityB, inertiaA, inertiaB, normal, *accumulated-previous)
}
