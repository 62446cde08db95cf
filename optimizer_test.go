package ballast

import (
	"math/rand"
	"testing"

	"github.com/akmonengine/ballast/bundle"
	"github.com/akmonengine/ballast/constraint"
)

// ============================================================================
// Batch compressor
// ============================================================================

func TestBatchCompressorMovesConstraintsBack(t *testing.T) {
	solver := newTestSolver(t, newBodies(3))
	first := solver.Add([]int{0, 1}, contact(1))
	handle := solver.Add([]int{0, 2}, contact(2))
	if got := solver.HandleToConstraint[handle].BatchIndex; got != 1 {
		t.Fatalf("batch index = %d, want 1", got)
	}
	typeBatch, slot := solver.GetTypeBatchAndSlot(handle)
	b, lane := bundle.Indices(slot)
	typeBatch.(*constraint.Contact1TypeBatch).AccumulatedImpulses[b].Penetration[lane] = 0.5

	solver.Remove(first)
	compressor := NewBatchCompressor()
	if moved := compressor.Compress(solver); moved != 1 {
		t.Fatalf("Compress() moved %d constraints, want 1", moved)
	}

	if len(solver.Batches) != 1 {
		t.Errorf("len(Batches) = %d, want 1", len(solver.Batches))
	}
	typeBatch, slot = solver.GetTypeBatchAndSlot(handle)
	b, lane = bundle.Indices(slot)
	if got := typeBatch.(*constraint.Contact1TypeBatch).AccumulatedImpulses[b].Penetration[lane]; got != 0.5 {
		t.Errorf("impulse after compression = %v, want 0.5", got)
	}
	if compressor.Compress(solver) != 0 {
		t.Error("a single batch has nothing to compress")
	}
}

func TestBatchCompressorRespectsLimit(t *testing.T) {
	const pairs = 40
	solver := newTestSolver(t, newBodies(2*pairs))
	// A first constraint per pair pushes the second one into batch 1.
	var blockers []int
	for i := 0; i < pairs; i++ {
		blockers = append(blockers, solver.Add([]int{2 * i, 2*i + 1}, contact(0)))
		solver.Add([]int{2*i + 1, 2 * i}, contact(1))
	}
	for _, handle := range blockers {
		solver.Remove(handle)
	}

	compressor := NewBatchCompressor()
	compressor.MaximumCompressionCount = 16
	total := 0
	for i := 0; i < 10 && len(solver.Batches) > 1; i++ {
		moved := compressor.Compress(solver)
		if moved > 16 {
			t.Fatalf("Compress() moved %d constraints, limit is 16", moved)
		}
		total += moved
		checkNoSharedBody(t, solver)
		checkLocations(t, solver)
	}

	if total != pairs || len(solver.Batches) != 1 {
		t.Errorf("moved %d constraints into %d batches, want %d into 1", total, len(solver.Batches), pairs)
	}
}

func TestBatchCompressorSkipsConflicts(t *testing.T) {
	solver := newTestSolver(t, newBodies(4))
	solver.Add([]int{0, 1}, contact(1))
	solver.Add([]int{1, 2}, contact(2))
	solver.Add([]int{0, 3}, contact(3))

	if moved := NewBatchCompressor().Compress(solver); moved != 0 {
		t.Errorf("Compress() moved %d constraints, want 0", moved)
	}
	if len(solver.Batches) != 2 {
		t.Errorf("len(Batches) = %d, want 2", len(solver.Batches))
	}
}

func TestBatchCompressorRevisitsSwappedConstraints(t *testing.T) {
	solver := newTestSolver(t, newBodies(15))
	for _, pair := range [][]int{{0, 1}, {2, 3}, {4, 5}} {
		solver.Add(pair, contact(0))
	}
	blockerA := solver.Add([]int{6, 7}, contact(0))
	blockerB := solver.Add([]int{8, 9}, contact(0))

	// Batch 1 in slot order: stuck, stuck, movable, stuck, movable.
	stuck := []int{
		solver.Add([]int{0, 10}, contact(1)),
		solver.Add([]int{2, 11}, contact(2)),
	}
	movableA := solver.Add([]int{6, 12}, contact(3))
	stuck = append(stuck, solver.Add([]int{4, 13}, contact(4)))
	movableB := solver.Add([]int{8, 14}, contact(5))
	solver.Remove(blockerA)
	solver.Remove(blockerB)

	compressor := NewBatchCompressor()
	compressor.WindowSize = 2
	total := 0
	// Moving movableA pulls movableB from the end of the type batch into the window.
	for range 4 {
		total += compressor.Compress(solver)
		checkLocations(t, solver)
	}

	if total != 2 {
		t.Errorf("moved %d constraints, want 2", total)
	}
	for _, handle := range []int{movableA, movableB} {
		if got := solver.HandleToConstraint[handle].BatchIndex; got != 0 {
			t.Errorf("constraint %d is in batch %d, want 0", handle, got)
		}
	}
	for _, handle := range stuck {
		if got := solver.HandleToConstraint[handle].BatchIndex; got != 1 {
			t.Errorf("constraint %d is in batch %d, want 1", handle, got)
		}
	}
}

func TestBatchCompressorWalksEveryTypeBatch(t *testing.T) {
	solver := newTestSolver(t, newBodies(4))
	blocker := solver.Add([]int{0, 1}, contact(0))
	solver.Add([]int{0, 2}, &constraint.BallSocket{})
	solver.Add([]int{1, 3}, contact(1))
	if got := len(solver.Batches[1].TypeBatches); got != 2 {
		t.Fatalf("batch 1 holds %d type batches, want 2", got)
	}
	solver.Remove(blocker)

	compressor := NewBatchCompressor()
	compressor.WindowSize = 1
	for i := 0; i < 4 && len(solver.Batches) > 1; i++ {
		compressor.Compress(solver)
		checkLocations(t, solver)
	}

	if len(solver.Batches) != 1 {
		t.Errorf("len(Batches) = %d, want 1", len(solver.Batches))
	}
	checkNoSharedBody(t, solver)
}

// ============================================================================
// Constraint layout
// ============================================================================

func TestConstraintLayoutOptimizerSortsTypeBatch(t *testing.T) {
	const count = 200
	rng := rand.New(rand.NewSource(3))
	bodies := newBodies(2 * count)
	solver := newTestSolver(t, bodies)
	solver.Workers = 3

	depths := make(map[int]float64)
	for i, body := range rng.Perm(count) {
		// Disjoint pairs keep every constraint in the first batch.
		handle := solver.Add([]int{2*body + 1, 2 * body}, contact(float64(i)))
		depths[handle] = float64(i)
	}
	if len(solver.Batches) != 1 {
		t.Fatalf("len(Batches) = %d, want 1", len(solver.Batches))
	}

	optimizer := NewConstraintLayoutOptimizer()
	optimizer.RegionSizeInBundles = 4
	// Constraints cross half a region per sweep, so a few dozen sweeps sort everything.
	for range 400 {
		optimizer.Update(solver, bodies.Count)
	}

	typeBatch := solver.Batches[0].TypeBatch(constraint.Contact1TypeId)
	previous := -1
	for slot := 0; slot < typeBatch.ConstraintCount(); slot++ {
		lowest := bodies.Count
		typeBatch.EnumerateConnectedBodyIndices(slot, func(bodyIndex int) {
			lowest = min(lowest, bodyIndex)
		})
		if lowest <= previous {
			t.Fatalf("slot %d has key %d after key %d", slot, lowest, previous)
		}
		previous = lowest
	}
	checkLocations(t, solver)
	for handle, depth := range depths {
		var description constraint.Contact1
		solver.GetDescription(handle, &description)
		if description.Contact.Depth != depth {
			t.Errorf("handle %d depth = %v, want %v", handle, description.Contact.Depth, depth)
		}
	}
}

func TestConstraintLayoutOptimizerWalksEveryTypeBatch(t *testing.T) {
	scene := newChainScene(t, 64, 9)
	solver := scene.world.Solver
	solver.Workers = 2
	optimizer := NewConstraintLayoutOptimizer()
	optimizer.RegionSizeInBundles = 1

	for range 500 {
		optimizer.Update(solver, scene.world.Bodies.Count)
		checkLocations(t, solver)
	}
	checkNoSharedBody(t, solver)
	checkGraph(t, scene.world)
}

// ============================================================================
// Body layout
// ============================================================================

func TestBodyLayoutOptimizerPullsNeighboursTogether(t *testing.T) {
	scene := newChainScene(t, 64, 4)
	world := scene.world

	spread := func() int {
		total := 0
		for i := 1; i < len(scene.links); i++ {
			total += abs(world.Bodies.HandleToIndex[scene.links[i]] - world.Bodies.HandleToIndex[scene.links[i-1]])
		}
		return total
	}
	before := spread()

	optimizer := NewBodyLayoutOptimizer()
	for range 20 {
		optimizer.Update(world.Bodies, world.Graph, world.Solver)
	}

	if after := spread(); after >= before {
		t.Errorf("chain spread went from %d to %d", before, after)
	}
	checkGraph(t, world)
	checkNoSharedBody(t, world.Solver)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ============================================================================
// Results
// ============================================================================

func TestLayoutOptimizersDoNotChangeResults(t *testing.T) {
	reference := newChainScene(t, 48, 6)
	optimized := newChainScene(t, 48, 6)
	optimized.world.Workers = 3
	optimized.world.ConstraintOptimizer = NewConstraintLayoutOptimizer()
	optimized.world.ConstraintOptimizer.RegionSizeInBundles = 2
	optimized.world.BodyOptimizer = NewBodyLayoutOptimizer()

	for frame := 0; frame < 60; frame++ {
		if err := reference.world.Step(1.0 / 60.0); err != nil {
			t.Fatal(err)
		}
		if err := optimized.world.Step(1.0 / 60.0); err != nil {
			t.Fatal(err)
		}

		for _, handle := range reference.links {
			want, got := reference.world.Bodies.GetPose(handle), optimized.world.Bodies.GetPose(handle)
			if want != got {
				t.Fatalf("frame %d body %d: pose %v, want %v", frame, handle, got, want)
			}
			if a, b := reference.world.Bodies.GetVelocity(handle), optimized.world.Bodies.GetVelocity(handle); a != b {
				t.Fatalf("frame %d body %d: velocity %v, want %v", frame, handle, b, a)
			}
		}
	}
}
