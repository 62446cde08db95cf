// Package constraint stores constraints by type in bundled structure of arrays batches
// and solves them with soft sequential impulses.
package constraint

import (
	"github.com/akmonengine/ballast/actor"
	"github.com/akmonengine/ballast/bundle"
	"github.com/akmonengine/ballast/internal/debug"
	"github.com/akmonengine/ballast/pool"
)

// Relocated is called whenever a live constraint lands in a new slot of its type batch,
// so the owner of the handle table can follow it.
type Relocated func(handle, slot int)

// TypeBatch stores every constraint of one type inside one constraint batch.
type TypeBatch interface {
	TypeId() int
	ConstraintCount() int
	BundleCount() int
	// Handle returns the constraint handle stored at slot
	Handle(slot int) int

	Allocate(handle int, bodyIndices []int) int
	Remove(slot int, relocated Relocated)
	TransferConstraint(slot int, target TypeBatch, relocated Relocated) int

	EnumerateConnectedBodyIndices(slot int, fn func(bodyIndex int))
	UpdateForBodyMemoryMove(slot, bodyIndexInConstraint, newBodyLocation int)
	SortByBodyLocation(bundleStart, bundleCount, bodyCount int, scratch pool.Pool[int], relocated Relocated)

	Prestep(bodies *actor.Bodies, dt, inverseDt float64, bundleStart, bundleEnd int)
	WarmStart(bodies *actor.Bodies, bundleStart, bundleEnd int)
	SolveIteration(bodies *actor.Bodies, bundleStart, bundleEnd int)
}

// Lanes is implemented by the pointer of every bundle type stored in a type batch.
type Lanes[T any] interface {
	*T
	CopyLane(lane int, source *T, sourceLane int)
	ClearLane(lane int)
}

// TwoBodyReferences holds the body indices of one bundle of two body constraints
type TwoBodyReferences struct {
	IndexA bundle.Ints
	IndexB bundle.Ints
}

func (r *TwoBodyReferences) CopyLane(lane int, source *TwoBodyReferences, sourceLane int) {
	r.IndexA.CopyLane(lane, &source.IndexA, sourceLane)
	r.IndexB.CopyLane(lane, &source.IndexB, sourceLane)
}

func (r *TwoBodyReferences) ClearLane(lane int) {
	r.IndexA.ClearLane(lane)
	r.IndexB.ClearLane(lane)
}

// Kernel holds the per bundle math of a two body constraint type.
// count is the number of live lanes in the bundle.
type Kernel[P, X, A any] interface {
	Prestep(bodies *actor.Bodies, references *TwoBodyReferences, count int, dt, inverseDt float64, prestep *P, projection *X)
	WarmStart(velocityA, velocityB *actor.BodyVelocities, count int, projection *X, accumulatedImpulses *A)
	Solve(velocityA, velocityB *actor.BodyVelocities, count int, projection *X, accumulatedImpulses *A)
}

// TwoBodyTypeBatch is the structure of arrays storage shared by every two body constraint type.
// P is the prestep data, X the projection and A the accumulated impulses, one bundle per element.
type TwoBodyTypeBatch[P, X, A any, PP Lanes[P], XP Lanes[X], AP Lanes[A]] struct {
	BodyReferences      []TwoBodyReferences
	PrestepData         []P
	Projection          []X
	AccumulatedImpulses []A
	IndexToHandle       []int

	typeId          int
	constraintCount int
	kernel          Kernel[P, X, A]

	sortCache struct {
		references []TwoBodyReferences
		prestep    []P
		projection []X
		impulses   []A
	}
}

func newTwoBodyTypeBatch[P, X, A any, PP Lanes[P], XP Lanes[X], AP Lanes[A]](typeId int, kernel Kernel[P, X, A], initialCapacity int) *TwoBodyTypeBatch[P, X, A, PP, XP, AP] {
	tb := &TwoBodyTypeBatch[P, X, A, PP, XP, AP]{
		typeId: typeId,
		kernel: kernel,
	}
	tb.resize(max(bundle.Width, initialCapacity))

	return tb
}

func (tb *TwoBodyTypeBatch[P, X, A, PP, XP, AP]) TypeId() int {
	return tb.typeId
}

func (tb *TwoBodyTypeBatch[P, X, A, PP, XP, AP]) ConstraintCount() int {
	return tb.constraintCount
}

func (tb *TwoBodyTypeBatch[P, X, A, PP, XP, AP]) BundleCount() int {
	return bundle.Count(tb.constraintCount)
}

func (tb *TwoBodyTypeBatch[P, X, A, PP, XP, AP]) Handle(slot int) int {
	return tb.IndexToHandle[slot]
}

// resize reallocates every table to hold capacity constraints, rounded up to whole bundles
func (tb *TwoBodyTypeBatch[P, X, A, PP, XP, AP]) resize(capacity int) {
	bundleCount := bundle.Count(capacity)
	used := bundle.Count(tb.constraintCount)

	tb.BodyReferences = append(make([]TwoBodyReferences, 0, bundleCount), tb.BodyReferences[:used]...)[:bundleCount]
	tb.PrestepData = append(make([]P, 0, bundleCount), tb.PrestepData[:used]...)[:bundleCount]
	tb.Projection = append(make([]X, 0, bundleCount), tb.Projection[:used]...)[:bundleCount]
	tb.AccumulatedImpulses = append(make([]A, 0, bundleCount), tb.AccumulatedImpulses[:used]...)[:bundleCount]

	handles := make([]int, bundleCount<<bundle.Shift)
	copy(handles, tb.IndexToHandle[:tb.constraintCount])
	for i := tb.constraintCount; i < len(handles); i++ {
		handles[i] = -1
	}
	tb.IndexToHandle = handles
}

// Allocate reserves the next slot for handle, connected to the two bodies at bodyIndices
func (tb *TwoBodyTypeBatch[P, X, A, PP, XP, AP]) Allocate(handle int, bodyIndices []int) int {
	debug.Assert(len(bodyIndices) == 2, "two body constraint given %d bodies", len(bodyIndices))

	if tb.constraintCount == len(tb.IndexToHandle) {
		tb.resize(tb.constraintCount * 2)
	}
	slot := tb.constraintCount
	tb.constraintCount++

	b, lane := bundle.Indices(slot)
	references := &tb.BodyReferences[b]
	references.IndexA[lane] = bodyIndices[0]
	references.IndexB[lane] = bodyIndices[1]
	tb.IndexToHandle[slot] = handle

	return slot
}

// moveLane copies all four tables of one slot into another
func (tb *TwoBodyTypeBatch[P, X, A, PP, XP, AP]) moveLane(sourceBundle, sourceLane, targetBundle, targetLane int) {
	tb.BodyReferences[targetBundle].CopyLane(targetLane, &tb.BodyReferences[sourceBundle], sourceLane)
	PP(&tb.PrestepData[targetBundle]).CopyLane(targetLane, &tb.PrestepData[sourceBundle], sourceLane)
	XP(&tb.Projection[targetBundle]).CopyLane(targetLane, &tb.Projection[sourceBundle], sourceLane)
	AP(&tb.AccumulatedImpulses[targetBundle]).CopyLane(targetLane, &tb.AccumulatedImpulses[sourceBundle], sourceLane)
}

// Remove frees slot. The last constraint is moved into the hole and reported through relocated.
func (tb *TwoBodyTypeBatch[P, X, A, PP, XP, AP]) Remove(slot int, relocated Relocated) {
	debug.Assert(slot >= 0 && slot < tb.constraintCount, "slot %d out of range [0, %d)", slot, tb.constraintCount)

	last := tb.constraintCount - 1
	lastBundle, lastLane := bundle.Indices(last)
	if slot != last {
		b, lane := bundle.Indices(slot)
		tb.moveLane(lastBundle, lastLane, b, lane)
		handle := tb.IndexToHandle[last]
		tb.IndexToHandle[slot] = handle
		relocated(handle, slot)
	}

	// A later allocation starts from zeroed parameters and no warm start guess.
	PP(&tb.PrestepData[lastBundle]).ClearLane(lastLane)
	XP(&tb.Projection[lastBundle]).ClearLane(lastLane)
	AP(&tb.AccumulatedImpulses[lastBundle]).ClearLane(lastLane)
	tb.BodyReferences[lastBundle].ClearLane(lastLane)
	tb.IndexToHandle[last] = -1
	tb.constraintCount--
}

// TransferConstraint moves slot into target, which must be a type batch of the same type.
// Projection data is not carried over, the next prestep rebuilds it.
func (tb *TwoBodyTypeBatch[P, X, A, PP, XP, AP]) TransferConstraint(slot int, target TypeBatch, relocated Relocated) int {
	destination := target.(*TwoBodyTypeBatch[P, X, A, PP, XP, AP])
	debug.Assert(destination != tb, "transfer into the same type batch")

	b, lane := bundle.Indices(slot)
	references := &tb.BodyReferences[b]
	targetSlot := destination.Allocate(tb.IndexToHandle[slot], []int{references.IndexA[lane], references.IndexB[lane]})

	targetBundle, targetLane := bundle.Indices(targetSlot)
	PP(&destination.PrestepData[targetBundle]).CopyLane(targetLane, &tb.PrestepData[b], lane)
	AP(&destination.AccumulatedImpulses[targetBundle]).CopyLane(targetLane, &tb.AccumulatedImpulses[b], lane)

	tb.Remove(slot, relocated)

	return targetSlot
}

func (tb *TwoBodyTypeBatch[P, X, A, PP, XP, AP]) EnumerateConnectedBodyIndices(slot int, fn func(bodyIndex int)) {
	b, lane := bundle.Indices(slot)
	fn(tb.BodyReferences[b].IndexA[lane])
	fn(tb.BodyReferences[b].IndexB[lane])
}

// UpdateForBodyMemoryMove points body bodyIndexInConstraint (0 for A, 1 for B) of slot at its new index
func (tb *TwoBodyTypeBatch[P, X, A, PP, XP, AP]) UpdateForBodyMemoryMove(slot, bodyIndexInConstraint, newBodyLocation int) {
	b, lane := bundle.Indices(slot)
	if bodyIndexInConstraint == 0 {
		tb.BodyReferences[b].IndexA[lane] = newBodyLocation
	} else {
		tb.BodyReferences[b].IndexB[lane] = newBodyLocation
	}
}
