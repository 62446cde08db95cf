package constraint

import (
	"github.com/akmonengine/ballast/actor"
	"github.com/akmonengine/ballast/bundle"
	"github.com/go-gl/mathgl/mgl64"
)

// ManifoldSize is the number of contact points of a Contact4
const ManifoldSize = 4

// Contact4 is a convex four point manifold sharing one normal, with friction
// applied at the manifold center and twist friction about the normal.
type Contact4 struct {
	Contacts [ManifoldSize]ContactPoint
	// Normal points from B to A
	Normal                  mgl64.Vec3
	FrictionCoefficient     float64
	SpringSettings          SpringSettings
	MaximumRecoveryVelocity float64
}

type Contact4Prestep struct {
	Contacts                [ManifoldSize]ContactPointBundle
	Normal                  bundle.Vec3
	FrictionCoefficient     bundle.Scalar
	SpringSettings          SpringSettingsBundle
	MaximumRecoveryVelocity bundle.Scalar
}

func (p *Contact4Prestep) CopyLane(lane int, source *Contact4Prestep, sourceLane int) {
	for i := range p.Contacts {
		p.Contacts[i].CopyLane(lane, &source.Contacts[i], sourceLane)
	}
	p.Normal.CopyLane(lane, &source.Normal, sourceLane)
	p.FrictionCoefficient.CopyLane(lane, &source.FrictionCoefficient, sourceLane)
	p.SpringSettings.CopyLane(lane, &source.SpringSettings, sourceLane)
	p.MaximumRecoveryVelocity.CopyLane(lane, &source.MaximumRecoveryVelocity, sourceLane)
}

func (p *Contact4Prestep) ClearLane(lane int) {
	for i := range p.Contacts {
		p.Contacts[i].ClearLane(lane)
	}
	p.Normal.ClearLane(lane)
	p.FrictionCoefficient.ClearLane(lane)
	p.SpringSettings.ClearLane(lane)
	p.MaximumRecoveryVelocity.ClearLane(lane)
}

type Contact4Projection struct {
	InertiaA             actor.BodyInertias
	InertiaB             actor.BodyInertias
	Normal               bundle.Vec3
	Penetration          [ManifoldSize]penetrationProjection
	SoftnessImpulseScale bundle.Scalar
	// FrictionCoefficient / ManifoldSize
	PremultipliedFrictionCoefficient bundle.Scalar
	// Distance from each contact to the manifold center
	LeverArms [ManifoldSize]bundle.Scalar
	Tangent   tangentFrictionProjection
	Twist     twistFrictionProjection
}

func (p *Contact4Projection) CopyLane(lane int, source *Contact4Projection, sourceLane int) {
	p.InertiaA.CopyLane(lane, &source.InertiaA, sourceLane)
	p.InertiaB.CopyLane(lane, &source.InertiaB, sourceLane)
	p.Normal.CopyLane(lane, &source.Normal, sourceLane)
	for i := range p.Penetration {
		p.Penetration[i].CopyLane(lane, &source.Penetration[i], sourceLane)
		p.LeverArms[i].CopyLane(lane, &source.LeverArms[i], sourceLane)
	}
	p.SoftnessImpulseScale.CopyLane(lane, &source.SoftnessImpulseScale, sourceLane)
	p.PremultipliedFrictionCoefficient.CopyLane(lane, &source.PremultipliedFrictionCoefficient, sourceLane)
	p.Tangent.CopyLane(lane, &source.Tangent, sourceLane)
	p.Twist.CopyLane(lane, &source.Twist, sourceLane)
}

func (p *Contact4Projection) ClearLane(lane int) {
	p.InertiaA.ClearLane(lane)
	p.InertiaB.ClearLane(lane)
	p.Normal.ClearLane(lane)
	for i := range p.Penetration {
		p.Penetration[i].ClearLane(lane)
		p.LeverArms[i].ClearLane(lane)
	}
	p.SoftnessImpulseScale.ClearLane(lane)
	p.PremultipliedFrictionCoefficient.ClearLane(lane)
	p.Tangent.ClearLane(lane)
	p.Twist.ClearLane(lane)
}

type Contact4Impulses struct {
	Penetration [ManifoldSize]bundle.Scalar
	Tangent     bundle.Vec2
	Twist       bundle.Scalar
}

func (a *Contact4Impulses) CopyLane(lane int, source *Contact4Impulses, sourceLane int) {
	for i := range a.Penetration {
		a.Penetration[i].CopyLane(lane, &source.Penetration[i], sourceLane)
	}
	a.Tangent.CopyLane(lane, &source.Tangent, sourceLane)
	a.Twist.CopyLane(lane, &source.Twist, sourceLane)
}

func (a *Contact4Impulses) ClearLane(lane int) {
	for i := range a.Penetration {
		a.Penetration[i].ClearLane(lane)
	}
	a.Tangent.ClearLane(lane)
	a.Twist.ClearLane(lane)
}

type Contact4TypeBatch = TwoBodyTypeBatch[Contact4Prestep, Contact4Projection, Contact4Impulses, *Contact4Prestep, *Contact4Projection, *Contact4Impulses]

type contact4Kernel struct{}

func (contact4Kernel) Prestep(bodies *actor.Bodies, references *TwoBodyReferences, count int, dt, inverseDt float64, prestep *Contact4Prestep, projection *Contact4Projection) {
	bodies.GatherInertia(&references.IndexA, &references.IndexB, count, &projection.InertiaA, &projection.InertiaB)

	for lane := 0; lane < count; lane++ {
		inertiaA, inertiaB := projection.InertiaA.Get(lane), projection.InertiaB.Get(lane)
		normal := prestep.Normal.Get(lane)
		projection.Normal.Set(lane, normal)

		// ========== 1. Penetration ==========
		positionErrorToVelocity, effectiveMassCFMScale, softnessImpulseScale := ComputeSpringiness(prestep.SpringSettings.Get(lane), dt)
		projection.SoftnessImpulseScale[lane] = softnessImpulseScale

		var centerA, centerB mgl64.Vec3
		for i := range prestep.Contacts {
			contact := prestep.Contacts[i].Get(lane)
			projection.Penetration[i].prestep(lane, inertiaA, inertiaB, normal, contact,
				positionErrorToVelocity, effectiveMassCFMScale, prestep.MaximumRecoveryVelocity[lane])
			centerA = centerA.Add(contact.OffsetA)
			centerB = centerB.Add(contact.OffsetB)
		}
		centerA = centerA.Mul(1.0 / ManifoldSize)
		centerB = centerB.Mul(1.0 / ManifoldSize)

		// ========== 2. Friction at the manifold center ==========
		// Lever arms measured on A are assumed to hold for B.
		for i := range prestep.Contacts {
			projection.LeverArms[i][lane] = prestep.Contacts[i].OffsetA.Get(lane).Sub(centerA).Len()
		}
		projection.PremultipliedFrictionCoefficient[lane] = prestep.FrictionCoefficient[lane] / ManifoldSize
		projection.Tangent.prestep(lane, inertiaA, inertiaB, normal, centerA, centerB)
		projection.Twist.prestep(lane, inertiaA, inertiaB, normal)
	}
}

func (contact4Kernel) WarmStart(velocityA, velocityB *actor.BodyVelocities, count int, projection *Contact4Projection, accumulatedImpulses *Contact4Impulses) {
	for lane := 0; lane < count; lane++ {
		vA, vB := velocityA.Get(lane), velocityB.Get(lane)
		inertiaA, inertiaB := projection.InertiaA.Get(lane), projection.InertiaB.Get(lane)
		normal := projection.Normal.Get(lane)

		projection.Tangent.apply(lane, &vA, &vB, inertiaA, inertiaB, accumulatedImpulses.Tangent.Get(lane))
		for i := range projection.Penetration {
			projection.Penetration[i].warmStart(lane, &vA, &vB, inertiaA, inertiaB, normal, accumulatedImpulses.Penetration[i][lane])
		}
		applyTwistImpulse(&vA, &vB, inertiaA, inertiaB, normal, accumulatedImpulses.Twist[lane])

		velocityA.Set(lane, vA)
		velocityB.Set(lane, vB)
	}
}

func (contact4Kernel) Solve(velocityA, velocityB *actor.BodyVelocities, count int, projection *Contact4Projection, accumulatedImpulses *Contact4Impulses) {
	for lane := 0; lane < count; lane++ {
		vA, vB := velocityA.Get(lane), velocityB.Get(lane)
		inertiaA, inertiaB := projection.InertiaA.Get(lane), projection.InertiaB.Get(lane)
		normal := projection.Normal.Get(lane)
		friction := projection.PremultipliedFrictionCoefficient[lane]

		// ========== 1. Tangent friction ==========
		var totalPenetrationImpulse float64
		for i := range accumulatedImpulses.Penetration {
			totalPenetrationImpulse += accumulatedImpulses.Penetration[i][lane]
		}
		tangent := accumulatedImpulses.Tangent.Get(lane)
		projection.Tangent.solve(lane, &vA, &vB, inertiaA, inertiaB, friction*totalPenetrationImpulse, &tangent)
		accumulatedImpulses.Tangent.Set(lane, tangent)

		// ========== 2. Penetration ==========
		softnessImpulseScale := projection.SoftnessImpulseScale[lane]
		for i := range projection.Penetration {
			projection.Penetration[i].solve(lane, &vA, &vB, inertiaA, inertiaB, normal, softnessImpulseScale, &accumulatedImpulses.Penetration[i][lane])
		}

		// ========== 3. Twist friction ==========
		var twistLimit float64
		for i := range accumulatedImpulses.Penetration {
			twistLimit += accumulatedImpulses.Penetration[i][lane] * projection.LeverArms[i][lane]
		}
		projection.Twist.solve(lane, &vA, &vB, inertiaA, inertiaB, normal, friction*twistLimit, &accumulatedImpulses.Twist[lane])

		velocityA.Set(lane, vA)
		velocityB.Set(lane, vB)
	}
}

func (Contact4) ConstraintTypeId() int {
	return Contact4TypeId
}

func (d Contact4) ApplyDescription(batch TypeBatch, bundleIndex, innerIndex int) {
	prestep := &batch.(*Contact4TypeBatch).PrestepData[bundleIndex]
	for i := range d.Contacts {
		prestep.Contacts[i].Set(innerIndex, d.Contacts[i])
	}
	prestep.Normal.Set(innerIndex, d.Normal)
	prestep.FrictionCoefficient[innerIndex] = d.FrictionCoefficient
	prestep.SpringSettings.Set(innerIndex, d.SpringSettings)
	prestep.MaximumRecoveryVelocity[innerIndex] = d.MaximumRecoveryVelocity
}

func (d *Contact4) BuildDescription(batch TypeBatch, bundleIndex, innerIndex int) {
	prestep := &batch.(*Contact4TypeBatch).PrestepData[bundleIndex]
	for i := range d.Contacts {
		d.Contacts[i] = prestep.Contacts[i].Get(innerIndex)
	}
	d.Normal = prestep.Normal.Get(innerIndex)
	d.FrictionCoefficient = prestep.FrictionCoefficient[innerIndex]
	d.SpringSettings = prestep.SpringSettings.Get(innerIndex)
	d.MaximumRecoveryVelocity = prestep.MaximumRecoveryVelocity[innerIndex]
}
