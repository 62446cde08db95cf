package constraint

import (
	"github.com/akmonengine/ballast/actor"
	"github.com/akmonengine/ballast/bundle"
)

// Prestep builds the projection of bundles [bundleStart, bundleEnd) from the prestep data and body state
func (tb *TwoBodyTypeBatch[P, X, A, PP, XP, AP]) Prestep(bodies *actor.Bodies, dt, inverseDt float64, bundleStart, bundleEnd int) {
	for b := bundleStart; b < bundleEnd; b++ {
		count := bundle.LaneCount(b, tb.constraintCount)
		tb.kernel.Prestep(bodies, &tb.BodyReferences[b], count, dt, inverseDt, &tb.PrestepData[b], &tb.Projection[b])
	}
}

// WarmStart applies the accumulated impulses of bundles [bundleStart, bundleEnd) to the bodies
func (tb *TwoBodyTypeBatch[P, X, A, PP, XP, AP]) WarmStart(bodies *actor.Bodies, bundleStart, bundleEnd int) {
	var velocityA, velocityB actor.BodyVelocities
	for b := bundleStart; b < bundleEnd; b++ {
		count := bundle.LaneCount(b, tb.constraintCount)
		references := &tb.BodyReferences[b]
		bodies.GatherVelocities(&references.IndexA, &references.IndexB, count, &velocityA, &velocityB)
		tb.kernel.WarmStart(&velocityA, &velocityB, count, &tb.Projection[b], &tb.AccumulatedImpulses[b])
		bodies.ScatterVelocities(&references.IndexA, &references.IndexB, count, &velocityA, &velocityB)
	}
}

func (tb *TwoBodyTypeBatch[P, X, A, PP, XP, AP]) SolveIteration(bodies *actor.Bodies, bundleStart, bundleEnd int) {
	var velocityA, velocityB actor.BodyVelocities
	for b := bundleStart; b < bundleEnd; b++ {
		count := bundle.LaneCount(b, tb.constraintCount)
		references := &tb.BodyReferences[b]
		bodies.GatherVelocities(&references.IndexA, &references.IndexB, count, &velocityA, &velocityB)
		tb.kernel.Solve(&velocityA, &velocityB, count, &tb.Projection[b], &tb.AccumulatedImpulses[b])
		bodies.ScatterVelocities(&references.IndexA, &references.IndexB, count, &velocityA, &velocityB)
	}
}
