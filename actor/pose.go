package actor

import "github.com/go-gl/mathgl/mgl64"

// RigidPose is the position and orientation of a body in world space
type RigidPose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

// NewRigidPose creates an identity pose
func NewRigidPose() RigidPose {
	return RigidPose{
		Position:    mgl64.Vec3{0, 0, 0},
		Orientation: mgl64.QuatIdent(),
	}
}

// BodyVelocity holds the linear (m/s) and angular (rad/s) velocity of a body
type BodyVelocity struct {
	Linear  mgl64.Vec3
	Angular mgl64.Vec3
}

// BodyInertia holds inverse mass properties. A zero inverse mass marks a kinematic body.
type BodyInertia struct {
	InverseInertiaTensor mgl64.Mat3
	InverseMass          float64
}

// IsKinematic reports whether the body ignores impulses
func (inertia BodyInertia) IsKinematic() bool {
	return inertia.InverseMass == 0
}

// BodyDescription is everything needed to add a body
type BodyDescription struct {
	Pose         RigidPose
	Velocity     BodyVelocity
	LocalInertia BodyInertia
}
