package constraint

import (
	"github.com/akmonengine/ballast/actor"
	"github.com/akmonengine/ballast/bundle"
	"github.com/go-gl/mathgl/mgl64"
)

// Contact1 is a single contact point with friction
type Contact1 struct {
	Contact ContactPoint
	// Normal points from B to A
	Normal                  mgl64.Vec3
	FrictionCoefficient     float64
	SpringSettings          SpringSettings
	MaximumRecoveryVelocity float64
}

type Contact1Prestep struct {
	Contact                 ContactPointBundle
	Normal                  bundle.Vec3
	FrictionCoefficient     bundle.Scalar
	SpringSettings          SpringSettingsBundle
	MaximumRecoveryVelocity bundle.Scalar
}

func (p *Contact1Prestep) CopyLane(lane int, source *Contact1Prestep, sourceLane int) {
	p.Contact.CopyLane(lane, &source.Contact, sourceLane)
	p.Normal.CopyLane(lane, &source.Normal, sourceLane)
	p.FrictionCoefficient.CopyLane(lane, &source.FrictionCoefficient, sourceLane)
	p.SpringSettings.CopyLane(lane, &source.SpringSettings, sourceLane)
	p.MaximumRecoveryVelocity.CopyLane(lane, &source.MaximumRecoveryVelocity, sourceLane)
}

func (p *Contact1Prestep) ClearLane(lane int) {
	p.Contact.ClearLane(lane)
	p.Normal.ClearLane(lane)
	p.FrictionCoefficient.ClearLane(lane)
	p.SpringSettings.ClearLane(lane)
	p.MaximumRecoveryVelocity.ClearLane(lane)
}

type Contact1Projection struct {
	InertiaA             actor.BodyInertias
	InertiaB             actor.BodyInertias
	Normal               bundle.Vec3
	Penetration          penetrationProjection
	SoftnessImpulseScale bundle.Scalar
	FrictionCoefficient  bundle.Scalar
	Tangent              tangentFrictionProjection
}

func (p *Contact1Projection) CopyLane(lane int, source *Contact1Projection, sourceLane int) {
	p.InertiaA.CopyLane(lane, &source.InertiaA, sourceLane)
	p.InertiaB.CopyLane(lane, &source.InertiaB, sourceLane)
	p.Normal.CopyLane(lane, &source.Normal, sourceLane)
	p.Penetration.CopyLane(lane, &source.Penetration, sourceLane)
	p.SoftnessImpulseScale.CopyLane(lane, &source.SoftnessImpulseScale, sourceLane)
	p.FrictionCoefficient.CopyLane(lane, &source.FrictionCoefficient, sourceLane)
	p.Tangent.CopyLane(lane, &source.Tangent, sourceLane)
}

func (p *Contact1Projection) ClearLane(lane int) {
	p.InertiaA.ClearLane(lane)
	p.InertiaB.ClearLane(lane)
	p.Normal.ClearLane(lane)
	p.Penetration.ClearLane(lane)
	p.SoftnessImpulseScale.ClearLane(lane)
	p.FrictionCoefficient.ClearLane(lane)
	p.Tangent.ClearLane(lane)
}

type Contact1Impulses struct {
	Penetration bundle.Scalar
	Tangent     bundle.Vec2
}

func (a *Contact1Impulses) CopyLane(lane int, source *Contact1Impulses, sourceLane int) {
	a.Penetration.CopyLane(lane, &source.Penetration, sourceLane)
	a.Tangent.CopyLane(lane, &source.Tangent, sourceLane)
}

func (a *Contact1Impulses) ClearLane(lane int) {
	a.Penetration.ClearLane(lane)
	a.Tangent.ClearLane(lane)
}

type Contact1TypeBatch = TwoBodyTypeBatch[Contact1Prestep, Contact1Projection, Contact1Impulses, *Contact1Prestep, *Contact1Projection, *Contact1Impulses]

type contact1Kernel struct{}

func (contact1Kernel) Prestep(bodies *actor.Bodies, references *TwoBodyReferences, count int, dt, inverseDt float64, prestep *Contact1Prestep, projection *Contact1Projection) {
	bodies.GatherInertia(&references.IndexA, &references.IndexB, count, &projection.InertiaA, &projection.InertiaB)

	for lane := 0; lane < count; lane++ {
		inertiaA, inertiaB := projection.InertiaA.Get(lane), projection.InertiaB.Get(lane)
		normal := prestep.Normal.Get(lane)
		contact := prestep.Contact.Get(lane)
		projection.Normal.Set(lane, normal)

		positionErrorToVelocity, effectiveMassCFMScale, softnessImpulseScale := ComputeSpringiness(prestep.SpringSettings.Get(lane), dt)
		projection.SoftnessImpulseScale[lane] = softnessImpulseScale
		projection.Penetration.prestep(lane, inertiaA, inertiaB, normal, contact,
			positionErrorToVelocity, effectiveMassCFMScale, prestep.MaximumRecoveryVelocity[lane])

		projection.FrictionCoefficient[lane] = prestep.FrictionCoefficient[lane]
		projection.Tangent.prestep(lane, inertiaA, inertiaB, normal, contact.OffsetA, contact.OffsetB)
	}
}

func (contact1Kernel) WarmStart(velocityA, velocityB *actor.BodyVelocities, count int, projection *Contact1Projection, accumulatedImpulses *Contact1Impulses) {
	for lane := 0; lane < count; lane++ {
		vA, vB := velocityA.Get(lane), velocityB.Get(lane)
		inertiaA, inertiaB := projection.InertiaA.Get(lane), projection.InertiaB.Get(lane)

		projection.Tangent.apply(lane, &vA, &vB, inertiaA, inertiaB, accumulatedImpulses.Tangent.Get(lane))
		projection.Penetration.warmStart(lane, &vA, &vB, inertiaA, inertiaB, projection.Normal.Get(lane), accumulatedImpulses.Penetration[lane])

		velocityA.Set(lane, vA)
		velocityB.Set(lane, vB)
	}
}

func (contact1Kernel) Solve(velocityA, velocityB *actor.BodyVelocities, count int, projection *Contact1Projection, accumulatedImpulses *Contact1Impulses) {
	for lane := 0; lane < count; lane++ {
		vA, vB := velocityA.Get(lane), velocityB.Get(lane)
		inertiaA, inertiaB := projection.InertiaA.Get(lane), projection.InertiaB.Get(lane)

		// Friction first, the penetration limit gets the last word.
		tangent := accumulatedImpulses.Tangent.Get(lane)
		maximumTangentImpulse := projection.FrictionCoefficient[lane] * accumulatedImpulses.Penetration[lane]
		projection.Tangent.solve(lane, &vA, &vB, inertiaA, inertiaB, maximumTangentImpulse, &tangent)
		accumulatedImpulses.Tangent.Set(lane, tangent)

		projection.Penetration.solve(lane, &vA, &vB, inertiaA, inertiaB, projection.Normal.Get(lane),
			projection.SoftnessImpulseScale[lane], &accumulatedImpulses.Penetration[lane])

		velocityA.Set(lane, vA)
		velocityB.Set(lane, vB)
	}
}

func (Contact1) ConstraintTypeId() int {
	return Contact1TypeId
}

func (d Contact1) ApplyDescription(batch TypeBatch, bundleIndex, innerIndex int) {
	prestep := &batch.(*Contact1TypeBatch).PrestepData[bundleIndex]
	prestep.Contact.Set(innerIndex, d.Contact)
	prestep.Normal.Set(innerIndex, d.Normal)
	prestep.FrictionCoefficient[innerIndex] = d.FrictionCoefficient
	prestep.SpringSettings.Set(innerIndex, d.SpringSettings)
	prestep.MaximumRecoveryVelocity[innerIndex] = d.MaximumRecoveryVelocity
}

func (d *Contact1) BuildDescription(batch TypeBatch, bundleIndex, innerIndex int) {
	prestep := &batch.(*Contact1TypeBatch).PrestepData[bundleIndex]
	d.Contact = prestep.Contact.Get(innerIndex)
	d.Normal = prestep.Normal.Get(innerIndex)
	d.FrictionCoefficient = prestep.FrictionCoefficient[innerIndex]
	d.SpringSettings = prestep.SpringSettings.Get(innerIndex)
	d.MaximumRecoveryVelocity = prestep.MaximumRecoveryVelocity[innerIndex]
}
