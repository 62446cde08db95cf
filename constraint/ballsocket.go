package constraint

import (
	"github.com/akmonengine/ballast/actor"
	"github.com/akmonengine/ballast/bundle"
	"github.com/go-gl/mathgl/mgl64"
)

// BallSocket keeps an anchor of body A on an anchor of body B
type BallSocket struct {
	// Anchors in the local space of each body
	LocalOffsetA   mgl64.Vec3
	LocalOffsetB   mgl64.Vec3
	SpringSettings SpringSettings
}

type BallSocketPrestep struct {
	LocalOffsetA   bundle.Vec3
	LocalOffsetB   bundle.Vec3
	SpringSettings SpringSettingsBundle
}

func (p *BallSocketPrestep) CopyLane(lane int, source *BallSocketPrestep, sourceLane int) {
	p.LocalOffsetA.CopyLane(lane, &source.LocalOffsetA, sourceLane)
	p.LocalOffsetB.CopyLane(lane, &source.LocalOffsetB, sourceLane)
	p.SpringSettings.CopyLane(lane, &source.SpringSettings, sourceLane)
}

func (p *BallSocketPrestep) ClearLane(lane int) {
	p.LocalOffsetA.ClearLane(lane)
	p.LocalOffsetB.ClearLane(lane)
	p.SpringSettings.ClearLane(lane)
}

type BallSocketProjection struct {
	InertiaA             actor.BodyInertias
	InertiaB             actor.BodyInertias
	OffsetA              bundle.Vec3
	OffsetB              bundle.Vec3
	BiasVelocity         bundle.Vec3
	EffectiveMass        bundle.Symmetric3
	SoftnessImpulseScale bundle.Scalar
}

func (p *BallSocketProjection) CopyLane(lane int, source *BallSocketProjection, sourceLane int) {
	p.InertiaA.CopyLane(lane, &source.InertiaA, sourceLane)
	p.InertiaB.CopyLane(lane, &source.InertiaB, sourceLane)
	p.OffsetA.CopyLane(lane, &source.OffsetA, sourceLane)
	p.OffsetB.CopyLane(lane, &source.OffsetB, sourceLane)
	p.BiasVelocity.CopyLane(lane, &source.BiasVelocity, sourceLane)
	p.EffectiveMass.CopyLane(lane, &source.EffectiveMass, sourceLane)
	p.SoftnessImpulseScale.CopyLane(lane, &source.SoftnessImpulseScale, sourceLane)
}

func (p *BallSocketProjection) ClearLane(lane int) {
	p.InertiaA.ClearLane(lane)
	p.InertiaB.ClearLane(lane)
	p.OffsetA.ClearLane(lane)
	p.OffsetB.ClearLane(lane)
	p.BiasVelocity.ClearLane(lane)
	p.EffectiveMass.ClearLane(lane)
	p.SoftnessImpulseScale.ClearLane(lane)
}

type BallSocketTypeBatch = TwoBodyTypeBatch[BallSocketPrestep, BallSocketProjection, bundle.Vec3, *BallSocketPrestep, *BallSocketProjection, *bundle.Vec3]

type ballSocketKernel struct{}

func (ballSocketKernel) Prestep(bodies *actor.Bodies, references *TwoBodyReferences, count int, dt, inverseDt float64, prestep *BallSocketPrestep, projection *BallSocketProjection) {
	var poseA, poseB actor.BodyPoses
	bodies.GatherPoses(&references.IndexA, &references.IndexB, count, &poseA, &poseB)
	bodies.GatherInertia(&references.IndexA, &references.IndexB, count, &projection.InertiaA, &projection.InertiaB)

	for lane := 0; lane < count; lane++ {
		inertiaA := projection.InertiaA.Get(lane)
		inertiaB := projection.InertiaB.Get(lane)

		// ========== 1. World space anchors ==========
		offsetA := poseA.Orientation.Get(lane).Rotate(prestep.LocalOffsetA.Get(lane))
		offsetB := poseB.Orientation.Get(lane).Rotate(prestep.LocalOffsetB.Get(lane))
		projection.OffsetA.Set(lane, offsetA)
		projection.OffsetB.Set(lane, offsetB)

		// ========== 2. Effective mass ==========
		positionErrorToVelocity, effectiveMassCFMScale, softnessImpulseScale := ComputeSpringiness(prestep.SpringSettings.Get(lane), dt)
		inverseEffectiveMass := skewSandwich(offsetA, inertiaA.InverseInertiaTensor).
			Add(skewSandwich(offsetB, inertiaB.InverseInertiaTensor)).
			Add(mgl64.Ident3().Mul(inertiaA.InverseMass + inertiaB.InverseMass))
		// Inv returns a zero matrix when both bodies are kinematic
		projection.EffectiveMass.Set(lane, inverseEffectiveMass.Inv().Mul(effectiveMassCFMScale))
		projection.SoftnessImpulseScale[lane] = softnessImpulseScale

		// ========== 3. Bias velocity ==========
		anchorA := poseA.Position.Get(lane).Add(offsetA)
		anchorB := poseB.Position.Get(lane).Add(offsetB)
		projection.BiasVelocity.Set(lane, anchorB.Sub(anchorA).Mul(positionErrorToVelocity))
	}
}

func applyBallSocketImpulse(velocityA, velocityB *actor.BodyVelocity, inertiaA, inertiaB actor.BodyInertia, offsetA, offsetB, impulse mgl64.Vec3) {
	velocityA.Linear = velocityA.Linear.Add(impulse.Mul(inertiaA.InverseMass))
	velocityA.Angular = velocityA.Angular.Add(inertiaA.InverseInertiaTensor.Mul3x1(offsetA.Cross(impulse)))
	velocityB.Linear = velocityB.Linear.Sub(impulse.Mul(inertiaB.InverseMass))
	velocityB.Angular = velocityB.Angular.Add(inertiaB.InverseInertiaTensor.Mul3x1(impulse.Cross(offsetB)))
}

func (ballSocketKernel) WarmStart(velocityA, velocityB *actor.BodyVelocities, count int, projection *BallSocketProjection, accumulatedImpulses *bundle.Vec3) {
	for lane := 0; lane < count; lane++ {
		vA, vB := velocityA.Get(lane), velocityB.Get(lane)
		applyBallSocketImpulse(&vA, &vB, projection.InertiaA.Get(lane), projection.InertiaB.Get(lane),
			projection.OffsetA.Get(lane), projection.OffsetB.Get(lane), accumulatedImpulses.Get(lane))
		velocityA.Set(lane, vA)
		velocityB.Set(lane, vB)
	}
}

func (ballSocketKernel) Solve(velocityA, velocityB *actor.BodyVelocities, count int, projection *BallSocketProjection, accumulatedImpulses *bundle.Vec3) {
	for lane := 0; lane < count; lane++ {
		vA, vB := velocityA.Get(lane), velocityB.Get(lane)
		offsetA, offsetB := projection.OffsetA.Get(lane), projection.OffsetB.Get(lane)
		accumulated := accumulatedImpulses.Get(lane)

		// Velocity of anchor A relative to anchor B
		csv := vA.Linear.Add(vA.Angular.Cross(offsetA)).Sub(vB.Linear).Sub(vB.Angular.Cross(offsetB))
		csi := projection.EffectiveMass.Get(lane).Mul3x1(projection.BiasVelocity.Get(lane).Sub(csv)).
			Sub(accumulated.Mul(projection.SoftnessImpulseScale[lane]))
		accumulatedImpulses.Set(lane, accumulated.Add(csi))

		applyBallSocketImpulse(&vA, &vB, projection.InertiaA.Get(lane), projection.InertiaB.Get(lane), offsetA, offsetB, csi)
		velocityA.Set(lane, vA)
		velocityB.Set(lane, vB)
	}
}

func (BallSocket) ConstraintTypeId() int {
	return BallSocketTypeId
}

func (d BallSocket) ApplyDescription(batch TypeBatch, bundleIndex, innerIndex int) {
	prestep := &batch.(*BallSocketTypeBatch).PrestepData[bundleIndex]
	prestep.LocalOffsetA.Set(innerIndex, d.LocalOffsetA)
	prestep.LocalOffsetB.Set(innerIndex, d.LocalOffsetB)
	prestep.SpringSettings.Set(innerIndex, d.SpringSettings)
}

func (d *BallSocket) BuildDescription(batch TypeBatch, bundleIndex, innerIndex int) {
	prestep := &batch.(*BallSocketTypeBatch).PrestepData[bundleIndex]
	d.LocalOffsetA = prestep.LocalOffsetA.Get(innerIndex)
	d.LocalOffsetB = prestep.LocalOffsetB.Get(innerIndex)
	d.SpringSettings = prestep.SpringSettings.Get(innerIndex)
}
