package ballast

import (
	"log/slog"

	"github.com/akmonengine/ballast/actor"
	"github.com/akmonengine/ballast/constraint"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

var (
	ErrUnknownBody        = errors.New("unknown body handle")
	ErrBodyHasConstraints = errors.New("body still has constraints")
	ErrUnknownConstraint  = errors.New("unknown constraint handle")
)

// World is the host loop around the solver: it owns the bodies, keeps the constraint
// graph in sync and integrates the bodies after every solve.
type World struct {
	Bodies *actor.Bodies
	Solver *Solver
	Graph  *ConstraintGraph

	// Gravity acceleration (m/s², or N/kg)
	Gravity        mgl64.Vec3
	Workers        int
	LinearDamping  float64
	AngularDamping float64

	// Optional between-frame passes, nil disables them
	Compressor          *BatchCompressor
	ConstraintOptimizer *ConstraintLayoutOptimizer
	BodyOptimizer       *BodyLayoutOptimizer

	Logger *slog.Logger
}

func NewWorld(initialBodyCapacity, iterationCount int) (*World, error) {
	bodies := actor.NewBodies(initialBodyCapacity)
	solver, err := NewSolver(bodies, iterationCount)
	if err != nil {
		return nil, errors.Wrap(err, "new world")
	}

	return &World{
		Bodies:              bodies,
		Solver:              solver,
		Graph:               NewConstraintGraph(initialBodyCapacity),
		Compressor:          NewBatchCompressor(),
		ConstraintOptimizer: NewConstraintLayoutOptimizer(),
		BodyOptimizer:       NewBodyLayoutOptimizer(),
	}, nil
}

func (w *World) logger() *slog.Logger {
	if w.Logger == nil {
		return discardLogger
	}
	return w.Logger
}

// AddBody adds a body to the world and returns its handle
func (w *World) AddBody(description actor.BodyDescription) int {
	return w.Bodies.Add(description)
}

// RemoveBody removes a body without constraints. The last body takes its storage slot.
func (w *World) RemoveBody(handle int) error {
	if !w.Bodies.Contains(handle) {
		return errors.Wrapf(ErrUnknownBody, "remove body %d", handle)
	}
	index := w.Bodies.HandleToIndex[handle]
	if count := w.Graph.ConstraintCount(index); count > 0 {
		return errors.Wrapf(ErrBodyHasConstraints, "remove body %d with %d constraints", handle, count)
	}

	removedIndex, movedBodyOriginalIndex, moved := w.Bodies.Remove(handle)
	if moved {
		w.Graph.MoveBody(movedBodyOriginalIndex, removedIndex)
		updateConstraintsForBodyMove(w.Graph, w.Solver, removedIndex)
	}
	w.logger().Debug("body removed", "handle", handle, "index", removedIndex, "moved", moved)

	return nil
}

// AddConstraint creates a constraint between the bodies and returns its handle
func (w *World) AddConstraint(bodyHandles []int, description constraint.Description) (int, error) {
	for _, bodyHandle := range bodyHandles {
		if !w.Bodies.Contains(bodyHandle) {
			return -1, errors.Wrapf(ErrUnknownBody, "add constraint on body %d", bodyHandle)
		}
	}

	handle := w.Solver.Add(bodyHandles, description)
	for indexInConstraint, bodyHandle := range bodyHandles {
		w.Graph.AddConstraint(w.Bodies.HandleToIndex[bodyHandle], handle, indexInConstraint)
	}

	return handle, nil
}

// RemoveConstraint destroys a constraint
func (w *World) RemoveConstraint(handle int) error {
	if !w.Solver.Contains(handle) {
		return errors.Wrapf(ErrUnknownConstraint, "remove constraint %d", handle)
	}

	w.Solver.EnumerateConnectedBodyIndices(handle, func(bodyIndex int) {
		w.Graph.RemoveConstraint(bodyIndex, handle)
	})
	w.Solver.Remove(handle)

	return nil
}

// Step advances the simulation by dt
func (w *World) Step(dt float64) error {
	if dt <= 0 {
		return errors.Wrapf(ErrInvalidTimestep, "world step with dt %v", dt)
	}
	w.Workers = max(DEFAULT_WORKERS, w.Workers)
	w.Solver.Workers = w.Workers

	w.integrateVelocities(dt)

	if err := w.Solver.Update(dt); err != nil {
		return errors.Wrap(err, "world step")
	}

	w.integratePoses(dt)
	w.optimize()

	return nil
}

func (w *World) integrateVelocities(dt float64) {
	gravity := w.Gravity.Mul(dt)
	task(w.Workers, w.Bodies.Count, func(start, end int) {
		w.Bodies.ApplyLinearImpulseVelocity(start, end, gravity)
	})
}

func (w *World) integratePoses(dt float64) {
	task(w.Workers, w.Bodies.Count, func(start, end int) {
		w.Bodies.IntegratePoses(start, end, dt, w.LinearDamping, w.AngularDamping)
	})
}

// optimize runs the layout passes between frames, never during a solve
func (w *World) optimize() {
	if w.Compressor != nil {
		w.Compressor.Compress(w.Solver)
	}
	if w.BodyOptimizer != nil {
		w.BodyOptimizer.Update(w.Bodies, w.Graph, w.Solver)
	}
	if w.ConstraintOptimizer != nil {
		w.ConstraintOptimizer.Update(w.Solver, w.Bodies.Count)
	}
}
