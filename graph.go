package ballast

import (
	"github.com/akmonengine/ballast/actor"
)

// ConstraintReference is one constraint attached to a body
type ConstraintReference struct {
	ConstraintHandle int
	// IndexInConstraint is the position of the body in the constraint, 0 for A and 1 for B
	IndexInConstraint int
}

// ConstraintGraph lists the constraints attached to every body, by body index.
// It must follow every body swap and removal.
type ConstraintGraph struct {
	constraints [][]ConstraintReference
}

func NewConstraintGraph(initialBodyCapacity int) *ConstraintGraph {
	return &ConstraintGraph{constraints: make([][]ConstraintReference, 0, initialBodyCapacity)}
}

func (g *ConstraintGraph) ensure(bodyIndex int) {
	for bodyIndex >= len(g.constraints) {
		g.constraints = append(g.constraints, nil)
	}
}

func (g *ConstraintGraph) AddConstraint(bodyIndex, constraintHandle, indexInConstraint int) {
	g.ensure(bodyIndex)
	g.constraints[bodyIndex] = append(g.constraints[bodyIndex], ConstraintReference{
		ConstraintHandle:  constraintHandle,
		IndexInConstraint: indexInConstraint,
	})
}

// RemoveConstraint detaches a constraint from a body, reporting whether it was attached
func (g *ConstraintGraph) RemoveConstraint(bodyIndex, constraintHandle int) bool {
	if bodyIndex >= len(g.constraints) {
		return false
	}
	list := g.constraints[bodyIndex]
	for i, reference := range list {
		if reference.ConstraintHandle == constraintHandle {
			last := len(list) - 1
			list[i] = list[last]
			g.constraints[bodyIndex] = list[:last]
			return true
		}
	}

	return false
}

// Constraints returns the constraints attached to a body. The slice is owned by the graph.
func (g *ConstraintGraph) Constraints(bodyIndex int) []ConstraintReference {
	if bodyIndex >= len(g.constraints) {
		return nil
	}
	return g.constraints[bodyIndex]
}

func (g *ConstraintGraph) ConstraintCount(bodyIndex int) int {
	return len(g.Constraints(bodyIndex))
}

// EnumerateConnectedBodies calls fn with the index of every body sharing a constraint with bodyIndex.
// A body connected through several constraints is reported once per constraint.
func (g *ConstraintGraph) EnumerateConnectedBodies(bodyIndex int, solver *Solver, fn func(connectedBodyIndex int)) {
	for _, reference := range g.Constraints(bodyIndex) {
		solver.EnumerateConnectedBodyIndices(reference.ConstraintHandle, func(index int) {
			if index != bodyIndex {
				fn(index)
			}
		})
	}
}

func (g *ConstraintGraph) SwapBodies(a, b int) {
	g.ensure(max(a, b))
	g.constraints[a], g.constraints[b] = g.constraints[b], g.constraints[a]
}

// MoveBody moves the list of source to target, which must have no constraints
func (g *ConstraintGraph) MoveBody(source, target int) {
	g.ensure(max(source, target))
	g.constraints[target] = g.constraints[source]
	g.constraints[source] = nil
}

// swapBodies exchanges two bodies in memory and points their constraints at the new indices
func swapBodies(bodies *actor.Bodies, graph *ConstraintGraph, solver *Solver, a, b int) {
	bodies.Swap(a, b)
	graph.SwapBodies(a, b)
	updateConstraintsForBodyMove(graph, solver, a)
	updateConstraintsForBodyMove(graph, solver, b)
}

func updateConstraintsForBodyMove(graph *ConstraintGraph, solver *Solver, bodyIndex int) {
	for _, reference := range graph.Constraints(bodyIndex) {
		solver.UpdateForBodyMemoryMove(reference.ConstraintHandle, reference.IndexInConstraint, bodyIndex)
	}
}
