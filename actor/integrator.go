package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// IntegratePoses advances the poses of bodies [start, end) by their velocities
// and refreshes their world inertia.
func (b *Bodies) IntegratePoses(start, end int, dt, linearDamping, angularDamping float64) {
	linearScale := math.Exp(-linearDamping * dt)
	angularScale := math.Exp(-angularDamping * dt)

	for i := start; i < end; i++ {
		velocity := &b.Velocities[i]
		pose := &b.Poses[i]

		if !b.LocalInertias[i].IsKinematic() {
			velocity.Linear = velocity.Linear.Mul(linearScale)
			velocity.Angular = velocity.Angular.Mul(angularScale)
		}

		// ========== LINEAR ==========
		pose.Position = pose.Position.Add(velocity.Linear.Mul(dt))

		// ========== ANGULAR ==========
		omegaQuat := mgl64.Quat{V: velocity.Angular, W: 0}
		qDot := omegaQuat.Mul(pose.Orientation).Scale(0.5)
		pose.Orientation = pose.Orientation.Add(qDot.Scale(dt)).Normalize()

		b.UpdateInertia(i)
	}
}
