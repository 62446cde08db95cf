package ballast

import (
	"log/slog"

	"github.com/akmonengine/ballast/actor"
	"github.com/akmonengine/ballast/bundle"
	"github.com/akmonengine/ballast/constraint"
	"github.com/akmonengine/ballast/internal/debug"
	"github.com/akmonengine/ballast/pool"
	"github.com/pkg/errors"
)

const (
	DEFAULT_WORKERS    = 1
	DEFAULT_ITERATIONS = 8
	// DEFAULT_TYPE_BATCH_CAPACITY is the number of constraints a new type batch is sized for
	DEFAULT_TYPE_BATCH_CAPACITY = 64
	// DEFAULT_BUNDLES_PER_BLOCK is the size of the bundle ranges handed to the workers
	DEFAULT_BUNDLES_PER_BLOCK = 16
)

var (
	ErrInvalidIterationCount = errors.New("iteration count must be at least 1")
	ErrInvalidTimestep       = errors.New("timestep must be positive")
)

var discardLogger = slog.New(slog.DiscardHandler)

// ConstraintLocation is where the data of a constraint handle currently lives.
// BatchIndex is -1 for free handles.
type ConstraintLocation struct {
	BatchIndex       int
	TypeId           int
	IndexInTypeBatch int
}

// Solver owns the constraint batches and runs the prestep, warm start and
// solve iterations over them every frame.
type Solver struct {
	Batches            []*ConstraintBatch
	HandleToConstraint []ConstraintLocation
	HandlePool         *pool.IdPool
	// BufferPool is shared by the structural passes that need scratch memory
	BufferPool *pool.LockingBufferPool[int]

	Workers         int
	BundlesPerBlock int
	Logger          *slog.Logger

	bodies         *actor.Bodies
	iterationCount int
	blocks         []workBlock
	batchBlocks    []int
}

func NewSolver(bodies *actor.Bodies, iterationCount int) (*Solver, error) {
	if iterationCount < 1 {
		return nil, errors.Wrapf(ErrInvalidIterationCount, "new solver with %d iterations", iterationCount)
	}

	return &Solver{
		HandlePool:     pool.NewIdPool(DEFAULT_TYPE_BATCH_CAPACITY),
		BufferPool:     &pool.LockingBufferPool[int]{},
		bodies:         bodies,
		iterationCount: iterationCount,
	}, nil
}

func (s *Solver) IterationCount() int {
	return s.iterationCount
}

func (s *Solver) SetIterationCount(iterationCount int) error {
	if iterationCount < 1 {
		return errors.Wrapf(ErrInvalidIterationCount, "set %d iterations", iterationCount)
	}
	s.iterationCount = iterationCount

	return nil
}

func (s *Solver) logger() *slog.Logger {
	if s.Logger == nil {
		return discardLogger
	}
	return s.Logger
}

// ConstraintCount is the number of live constraints
func (s *Solver) ConstraintCount() int {
	count := 0
	for _, batch := range s.Batches {
		count += batch.ConstraintCount()
	}

	return count
}

// Contains reports whether handle is a live constraint
func (s *Solver) Contains(handle int) bool {
	return handle >= 0 && handle < len(s.HandleToConstraint) && s.HandleToConstraint[handle].BatchIndex >= 0
}

// relocate follows a constraint moved inside its type batch
func (s *Solver) relocate(handle, slot int) {
	s.HandleToConstraint[handle].IndexInTypeBatch = slot
}

// findBatch returns the first batch the bodies fit in, opening a new one when none does
func (s *Solver) findBatch(bodyHandles []int) int {
	for i, batch := range s.Batches {
		if batch.CanFit(bodyHandles) {
			return i
		}
	}
	s.Batches = append(s.Batches, NewConstraintBatch())
	s.logger().Debug("constraint batch opened", "batch", len(s.Batches)-1)

	return len(s.Batches) - 1
}

// Allocate reserves storage for a constraint of typeId between the bodies and returns its handle.
// The constraint parameters are left zeroed, see ApplyDescription.
func (s *Solver) Allocate(bodyHandles []int, typeId int) int {
	if debug.Enabled {
		for _, bodyHandle := range bodyHandles {
			debug.Assert(s.bodies.Contains(bodyHandle), "body %d does not exist", bodyHandle)
		}
	}

	handle := s.HandlePool.Take()
	for handle >= len(s.HandleToConstraint) {
		s.HandleToConstraint = append(s.HandleToConstraint, ConstraintLocation{BatchIndex: -1})
	}
	debug.Assert(s.HandleToConstraint[handle].BatchIndex < 0, "constraint handle %d allocated twice", handle)

	batchIndex := s.findBatch(bodyHandles)
	slot := s.Batches[batchIndex].Allocate(handle, bodyHandles, s.bodies, typeId, DEFAULT_TYPE_BATCH_CAPACITY)
	s.HandleToConstraint[handle] = ConstraintLocation{
		BatchIndex:       batchIndex,
		TypeId:           typeId,
		IndexInTypeBatch: slot,
	}

	return handle
}

// Add allocates a constraint between the bodies and applies description to it
func (s *Solver) Add(bodyHandles []int, description constraint.Description) int {
	handle := s.Allocate(bodyHandles, description.ConstraintTypeId())
	s.ApplyDescription(handle, description)

	return handle
}

// GetTypeBatchAndSlot resolves a constraint handle to its storage
func (s *Solver) GetTypeBatchAndSlot(handle int) (constraint.TypeBatch, int) {
	if debug.Enabled {
		debug.Assert(s.Contains(handle), "constraint %d does not exist", handle)
	}

	location := s.HandleToConstraint[handle]
	return s.Batches[location.BatchIndex].TypeBatch(location.TypeId), location.IndexInTypeBatch
}

// ApplyDescription overwrites the parameters of a constraint. Its accumulated impulse is kept.
func (s *Solver) ApplyDescription(handle int, description constraint.Description) {
	typeBatch, slot := s.GetTypeBatchAndSlot(handle)
	if debug.Enabled {
		debug.Assert(typeBatch.TypeId() == description.ConstraintTypeId(), "description of type %d applied to constraint %d of type %d",
			description.ConstraintTypeId(), handle, typeBatch.TypeId())
	}

	bundleIndex, innerIndex := bundle.Indices(slot)
	description.ApplyDescription(typeBatch, bundleIndex, innerIndex)
}

// GetDescription fills description with the parameters of a constraint
func (s *Solver) GetDescription(handle int, description constraint.Description) {
	typeBatch, slot := s.GetTypeBatchAndSlot(handle)
	if debug.Enabled {
		debug.Assert(typeBatch.TypeId() == description.ConstraintTypeId(), "description of type %d read from constraint %d of type %d",
			description.ConstraintTypeId(), handle, typeBatch.TypeId())
	}

	bundleIndex, innerIndex := bundle.Indices(slot)
	description.BuildDescription(typeBatch, bundleIndex, innerIndex)
}

// EnumerateConnectedBodyIndices calls fn with the index of every body of a constraint, in constraint order
func (s *Solver) EnumerateConnectedBodyIndices(handle int, fn func(bodyIndex int)) {
	typeBatch, slot := s.GetTypeBatchAndSlot(handle)
	typeBatch.EnumerateConnectedBodyIndices(slot, fn)
}

// UpdateForBodyMemoryMove points body indexInConstraint of a constraint at its new storage index
func (s *Solver) UpdateForBodyMemoryMove(handle, indexInConstraint, newBodyLocation int) {
	typeBatch, slot := s.GetTypeBatchAndSlot(handle)
	typeBatch.UpdateForBodyMemoryMove(slot, indexInConstraint, newBodyLocation)
}

// Remove destroys a constraint and recycles its handle
func (s *Solver) Remove(handle int) {
	if debug.Enabled {
		debug.Assert(s.Contains(handle), "constraint %d does not exist", handle)
	}

	location := s.HandleToConstraint[handle]
	s.Batches[location.BatchIndex].Remove(location.TypeId, location.IndexInTypeBatch, s.bodies, s.relocate)
	s.HandleToConstraint[handle] = ConstraintLocation{BatchIndex: -1}
	s.HandlePool.Return(handle)
	s.releaseEmptyBatches()
}

// Transfer moves a constraint into another batch, which must not reference any of its bodies.
// The prestep data and accumulated impulse travel with it.
func (s *Solver) Transfer(handle, targetBatchIndex int) {
	if debug.Enabled {
		debug.Assert(s.Contains(handle), "constraint %d does not exist", handle)
	}

	location := s.HandleToConstraint[handle]
	if location.BatchIndex == targetBatchIndex {
		return
	}
	source, target := s.Batches[location.BatchIndex], s.Batches[targetBatchIndex]
	slot := source.Transfer(location.TypeId, location.IndexInTypeBatch, target, s.bodies, DEFAULT_TYPE_BATCH_CAPACITY, s.relocate)
	s.HandleToConstraint[handle] = ConstraintLocation{
		BatchIndex:       targetBatchIndex,
		TypeId:           location.TypeId,
		IndexInTypeBatch: slot,
	}
	s.releaseEmptyBatches()
}

// releaseEmptyBatches drops empty batches from the end of the list.
// Earlier empty batches stay so the batch index of every location remains valid.
func (s *Solver) releaseEmptyBatches() {
	for n := len(s.Batches); n > 0 && len(s.Batches[n-1].TypeBatches) == 0; n-- {
		s.Batches[n-1] = nil
		s.Batches = s.Batches[:n-1]
		s.logger().Debug("constraint batch released", "batch", n-1)
	}
}

// buildBlocks cuts every batch into work blocks; batchBlocks[i] is the first block of batch i
func (s *Solver) buildBlocks() {
	bundlesPerBlock := s.BundlesPerBlock
	if bundlesPerBlock <= 0 {
		bundlesPerBlock = DEFAULT_BUNDLES_PER_BLOCK
	}

	s.blocks = s.blocks[:0]
	s.batchBlocks = s.batchBlocks[:0]
	for _, batch := range s.Batches {
		s.batchBlocks = append(s.batchBlocks, len(s.blocks))
		s.blocks = appendBlocks(s.blocks, batch, bundlesPerBlock)
	}
	s.batchBlocks = append(s.batchBlocks, len(s.blocks))
}

// Update solves every constraint for a timestep of dt:
// prestep everything, then warm start and iterate batch after batch.
func (s *Solver) Update(dt float64) error {
	if dt <= 0 {
		return errors.Wrapf(ErrInvalidTimestep, "solver update with dt %v", dt)
	}
	inverseDt := 1 / dt
	workers := max(DEFAULT_WORKERS, s.Workers)
	s.buildBlocks()

	// Prestep reads bodies and writes only its own projections, every block can run at once.
	dispatch(workers, s.blocks, func(block workBlock) {
		block.typeBatch.Prestep(s.bodies, dt, inverseDt, block.bundleStart, block.bundleEnd)
	})

	for i := range s.Batches {
		dispatch(workers, s.blocks[s.batchBlocks[i]:s.batchBlocks[i+1]], func(block workBlock) {
			block.typeBatch.WarmStart(s.bodies, block.bundleStart, block.bundleEnd)
		})
	}

	for range s.iterationCount {
		for i := range s.Batches {
			dispatch(workers, s.blocks[s.batchBlocks[i]:s.batchBlocks[i+1]], func(block workBlock) {
				block.typeBatch.SolveIteration(s.bodies, block.bundleStart, block.bundleEnd)
			})
		}
	}

	return nil
}
