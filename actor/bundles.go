package actor

import "github.com/akmonengine/ballast/bundle"

// BodyVelocities holds the velocities of one body per lane
type BodyVelocities struct {
	Linear  bundle.Vec3
	Angular bundle.Vec3
}

func (v *BodyVelocities) Get(lane int) BodyVelocity {
	return BodyVelocity{Linear: v.Linear.Get(lane), Angular: v.Angular.Get(lane)}
}

func (v *BodyVelocities) Set(lane int, velocity BodyVelocity) {
	v.Linear.Set(lane, velocity.Linear)
	v.Angular.Set(lane, velocity.Angular)
}

// BodyInertias holds the world inverse inertia of one body per lane
type BodyInertias struct {
	InverseInertiaTensor bundle.Symmetric3
	InverseMass          bundle.Scalar
}

func (b *BodyInertias) Get(lane int) BodyInertia {
	return BodyInertia{InverseInertiaTensor: b.InverseInertiaTensor.Get(lane), InverseMass: b.InverseMass[lane]}
}

func (b *BodyInertias) Set(lane int, inertia BodyInertia) {
	b.InverseInertiaTensor.Set(lane, inertia.InverseInertiaTensor)
	b.InverseMass[lane] = inertia.InverseMass
}

func (b *BodyInertias) CopyLane(lane int, source *BodyInertias, sourceLane int) {
	b.InverseInertiaTensor.CopyLane(lane, &source.InverseInertiaTensor, sourceLane)
	b.InverseMass.CopyLane(lane, &source.InverseMass, sourceLane)
}

func (b *BodyInertias) ClearLane(lane int) {
	b.InverseInertiaTensor.ClearLane(lane)
	b.InverseMass.ClearLane(lane)
}

type BodyPoses struct {
	Position    bundle.Vec3
	Orientation bundle.Quat
}

// GatherVelocities loads the velocities of the first count lanes of body references
func (b *Bodies) GatherVelocities(indexA, indexB *bundle.Ints, count int, velocityA, velocityB *BodyVelocities) {
	for lane := 0; lane < count; lane++ {
		velocityA.Set(lane, b.Velocities[indexA[lane]])
		velocityB.Set(lane, b.Velocities[indexB[lane]])
	}
}

// ScatterVelocities writes the first count lanes back to the bodies
func (b *Bodies) ScatterVelocities(indexA, indexB *bundle.Ints, count int, velocityA, velocityB *BodyVelocities) {
	for lane := 0; lane < count; lane++ {
		b.Velocities[indexA[lane]] = velocityA.Get(lane)
		b.Velocities[indexB[lane]] = velocityB.Get(lane)
	}
}

func (b *Bodies) GatherInertia(indexA, indexB *bundle.Ints, count int, inertiaA, inertiaB *BodyInertias) {
	for lane := 0; lane < count; lane++ {
		inertiaA.Set(lane, b.Inertias[indexA[lane]])
		inertiaB.Set(lane, b.Inertias[indexB[lane]])
	}
}

func (b *Bodies) GatherPoses(indexA, indexB *bundle.Ints, count int, poseA, poseB *BodyPoses) {
	for lane := 0; lane < count; lane++ {
		a, c := &b.Poses[indexA[lane]], &b.Poses[indexB[lane]]
		poseA.Position.Set(lane, a.Position)
		poseA.Orientation.Set(lane, a.Orientation)
		poseB.Position.Set(lane, c.Position)
		poseB.Orientation.Set(lane, c.Orientation)
	}
}
