package constraint

import (
	"math"

	"github.com/akmonengine/ballast/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// TangentBasis returns two unit tangents orthogonal to normal and to each other
func TangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var tangent1 mgl64.Vec3
	if math.Abs(normal.X()) > 0.9 {
		tangent1 = mgl64.Vec3{0, 1, 0}
	} else {
		tangent1 = mgl64.Vec3{1, 0, 0}
	}

	tangent1 = tangent1.Sub(normal.Mul(tangent1.Dot(normal))).Normalize()
	tangent2 := normal.Cross(tangent1).Normalize()

	return tangent1, tangent2
}

// skew returns the matrix [r] such that [r]v = r × v
func skew(r mgl64.Vec3) mgl64.Mat3 {
	// column major
	return mgl64.Mat3{
		0, r.Z(), -r.Y(),
		-r.Z(), 0, r.X(),
		r.Y(), -r.X(), 0,
	}
}

// skewSandwich returns [r] I [r]ᵀ, the angular part of a point constraint's inverse effective mass
func skewSandwich(r mgl64.Vec3, inverseInertia mgl64.Mat3) mgl64.Mat3 {
	s := skew(r)
	return s.Mul3(inverseInertia).Mul3(s.Transpose())
}

// inverseEffectiveMass1 is J M⁻¹ Jᵀ for a one dimensional jacobian
func inverseEffectiveMass1(inertiaA, inertiaB actor.BodyInertia, linear, angularA, angularB mgl64.Vec3) float64 {
	linearContribution := linear.Dot(linear) * (inertiaA.InverseMass + inertiaB.InverseMass)
	angularContributionA := angularA.Dot(inertiaA.InverseInertiaTensor.Mul3x1(angularA))
	angularContributionB := angularB.Dot(inertiaB.InverseInertiaTensor.Mul3x1(angularB))

	return linearContribution + angularContributionA + angularContributionB
}

// applyImpulse applies impulse along a jacobian whose linear part for B is -linear
func applyImpulse(velocityA, velocityB *actor.BodyVelocity, inertiaA, inertiaB actor.BodyInertia, linear, angularA, angularB mgl64.Vec3, impulse float64) {
	velocityA.Linear = velocityA.Linear.Add(linear.Mul(impulse * inertiaA.InverseMass))
	velocityA.Angular = velocityA.Angular.Add(inertiaA.InverseInertiaTensor.Mul3x1(angularA.Mul(impulse)))
	velocityB.Linear = velocityB.Linear.Sub(linear.Mul(impulse * inertiaB.InverseMass))
	velocityB.Angular = velocityB.Angular.Add(inertiaB.InverseInertiaTensor.Mul3x1(angularB.Mul(impulse)))
}

// constraintVelocity is J v for a jacobian whose linear part for B is -linear
func constraintVelocity(velocityA, velocityB actor.BodyVelocity, linear, angularA, angularB mgl64.Vec3) float64 {
	return linear.Dot(velocityA.Linear) - linear.Dot(velocityB.Linear) +
		angularA.Dot(velocityA.Angular) + angularB.Dot(velocityB.Angular)
}
