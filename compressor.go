package ballast

import (
	"log/slog"

	"github.com/akmonengine/ballast/constraint"
)

const (
	DEFAULT_MAXIMUM_COMPRESSION_COUNT = 64
	DEFAULT_COMPRESSION_WINDOW        = 256
)

// BatchCompressor moves constraints into earlier batches once their bodies fit there,
// so the batch count shrinks back after conflicts disappear. Each call inspects at most
// WindowSize constraints of one type batch, round robin over the batches after the first.
type BatchCompressor struct {
	MaximumCompressionCount int
	WindowSize              int
	Logger                  *slog.Logger

	// cursor: batch, then type id inside the batch, then slot inside the type batch
	nextBatchIndex int
	nextTypeId     int
	nextConstraint int

	candidates  []compression
	bodyHandles []int
}

type compression struct {
	handle      int
	targetBatch int
}

func NewBatchCompressor() *BatchCompressor {
	return &BatchCompressor{
		MaximumCompressionCount: DEFAULT_MAXIMUM_COMPRESSION_COUNT,
		WindowSize:              DEFAULT_COMPRESSION_WINDOW,
	}
}

func (c *BatchCompressor) logger() *slog.Logger {
	if c.Logger == nil {
		return discardLogger
	}
	return c.Logger
}

// nextTypeBatch moves the cursor to the first type batch of the current batch with constraints
// left to inspect. It returns nil and moves on to the next batch when there is none.
func (c *BatchCompressor) nextTypeBatch(batch *ConstraintBatch) constraint.TypeBatch {
	for ; c.nextTypeId < constraint.TypeCount; c.nextTypeId++ {
		typeBatch := batch.TypeBatch(c.nextTypeId)
		if typeBatch != nil && c.nextConstraint < typeBatch.ConstraintCount() {
			return typeBatch
		}
		c.nextConstraint = 0
	}
	c.nextBatchIndex++
	c.nextTypeId, c.nextConstraint = 0, 0

	return nil
}

// Compress runs one incremental pass and returns the number of constraints moved
func (c *BatchCompressor) Compress(solver *Solver) int {
	if len(solver.Batches) <= 1 {
		return 0
	}
	if c.nextBatchIndex < 1 || c.nextBatchIndex >= len(solver.Batches) {
		c.nextBatchIndex, c.nextTypeId, c.nextConstraint = 1, 0, 0
	}

	batchIndex := c.nextBatchIndex
	typeBatch := c.nextTypeBatch(solver.Batches[batchIndex])
	if typeBatch == nil {
		return 0
	}
	windowEnd := min(c.nextConstraint+max(1, c.WindowSize), typeBatch.ConstraintCount())

	// ========== 1. Find candidates ==========
	c.candidates = c.candidates[:0]
	slot := c.nextConstraint
	for ; slot < windowEnd && len(c.candidates) < c.MaximumCompressionCount; slot++ {
		c.bodyHandles = c.bodyHandles[:0]
		typeBatch.EnumerateConnectedBodyIndices(slot, func(bodyIndex int) {
			c.bodyHandles = append(c.bodyHandles, solver.bodies.IndexToHandle[bodyIndex])
		})
		for target := 0; target < batchIndex; target++ {
			if solver.Batches[target].CanFit(c.bodyHandles) {
				c.candidates = append(c.candidates, compression{handle: typeBatch.Handle(slot), targetBatch: target})
				break
			}
		}
	}

	// ========== 2. Apply ==========
	// Two candidates may target the same batch with a shared body, so each move is checked again.
	moved := 0
	for _, candidate := range c.candidates {
		c.bodyHandles = c.bodyHandles[:0]
		solver.EnumerateConnectedBodyIndices(candidate.handle, func(bodyIndex int) {
			c.bodyHandles = append(c.bodyHandles, solver.bodies.IndexToHandle[bodyIndex])
		})
		if !solver.Batches[candidate.targetBatch].CanFit(c.bodyHandles) {
			continue
		}
		solver.Transfer(candidate.handle, candidate.targetBatch)
		moved++
	}

	// ========== 3. Advance ==========
	// Every move fills its hole with the last constraint of the type batch, possibly one from
	// past the window, so a window that lost constraints is inspected again.
	if moved == 0 {
		c.nextConstraint = slot
	} else {
		c.logger().Debug("constraints compressed", "batch", batchIndex, "type", c.nextTypeId, "moved", moved, "batches", len(solver.Batches))
	}

	return moved
}
