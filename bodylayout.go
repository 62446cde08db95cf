package ballast

import (
	"github.com/akmonengine/ballast/actor"
)

const DEFAULT_BODY_OPTIMIZATIONS_PER_FRAME = 32

// BodyLayoutOptimizer walks the bodies and pulls the bodies connected to the current one
// right behind it in memory. Only storage moves; handles and results are unchanged.
type BodyLayoutOptimizer struct {
	OptimizationsPerFrame int

	nextBodyIndex int
	connected     []int
}

func NewBodyLayoutOptimizer() *BodyLayoutOptimizer {
	return &BodyLayoutOptimizer{OptimizationsPerFrame: DEFAULT_BODY_OPTIMIZATIONS_PER_FRAME}
}

// Update visits the next OptimizationsPerFrame bodies
func (o *BodyLayoutOptimizer) Update(bodies *actor.Bodies, graph *ConstraintGraph, solver *Solver) {
	if bodies.Count < 3 {
		return
	}

	for range o.OptimizationsPerFrame {
		if o.nextBodyIndex >= bodies.Count-1 {
			o.nextBodyIndex = 0
		}
		index := o.nextBodyIndex
		o.nextBodyIndex++

		// Collect handles first, swapping changes the indices reported by the graph.
		o.connected = o.connected[:0]
		graph.EnumerateConnectedBodies(index, solver, func(connectedBodyIndex int) {
			o.connected = append(o.connected, bodies.IndexToHandle[connectedBodyIndex])
		})

		target := index + 1
		for _, handle := range o.connected {
			current := bodies.HandleToIndex[handle]
			if current < target {
				// Already placed, or before the body being optimized.
				continue
			}
			if current > target {
				swapBodies(bodies, graph, solver, current, target)
			}
			target++
			if target >= bodies.Count {
				break
			}
		}
	}
}
