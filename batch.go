package ballast

import (
	"github.com/akmonengine/ballast/actor"
	"github.com/akmonengine/ballast/constraint"
	"github.com/akmonengine/ballast/internal/debug"
)

const (
	handleShift = 6
	handleMask  = 1<<handleShift - 1
)

// ConstraintBatch groups type batches whose constraints never share a body,
// so every bundle of the batch can be solved concurrently.
type ConstraintBatch struct {
	// BodyHandles has one bit set per body handle referenced by the batch
	BodyHandles []uint64
	// TypeIndexToTypeBatchIndex is -1 for types without a type batch
	TypeIndexToTypeBatchIndex [constraint.TypeCount]int
	TypeBatches               []constraint.TypeBatch
}

func NewConstraintBatch() *ConstraintBatch {
	batch := &ConstraintBatch{}
	for i := range batch.TypeIndexToTypeBatchIndex {
		batch.TypeIndexToTypeBatchIndex[i] = -1
	}

	return batch
}

func (b *ConstraintBatch) referencesHandle(handle int) bool {
	word := handle >> handleShift
	return word < len(b.BodyHandles) && b.BodyHandles[word]&(1<<(handle&handleMask)) != 0
}

func (b *ConstraintBatch) addHandle(handle int) {
	word := handle >> handleShift
	for word >= len(b.BodyHandles) {
		b.BodyHandles = append(b.BodyHandles, 0)
	}
	if debug.Enabled {
		debug.Assert(!b.referencesHandle(handle), "body %d is already referenced by the batch", handle)
	}
	b.BodyHandles[word] |= 1 << (handle & handleMask)
}

func (b *ConstraintBatch) removeHandle(handle int) {
	if debug.Enabled {
		debug.Assert(b.referencesHandle(handle), "body %d is not referenced by the batch", handle)
	}
	b.BodyHandles[handle>>handleShift] &^= 1 << (handle & handleMask)
}

// CanFit reports whether none of the bodies is referenced by the batch yet
func (b *ConstraintBatch) CanFit(bodyHandles []int) bool {
	for _, handle := range bodyHandles {
		if b.referencesHandle(handle) {
			return false
		}
	}

	return true
}

// TypeBatch returns the type batch of typeId, nil if the batch holds no such constraint
func (b *ConstraintBatch) TypeBatch(typeId int) constraint.TypeBatch {
	index := b.TypeIndexToTypeBatchIndex[typeId]
	if index < 0 {
		return nil
	}

	return b.TypeBatches[index]
}

func (b *ConstraintBatch) GetOrCreateTypeBatch(typeId, initialCapacity int) constraint.TypeBatch {
	if typeBatch := b.TypeBatch(typeId); typeBatch != nil {
		return typeBatch
	}
	typeBatch := constraint.NewTypeBatch(typeId, initialCapacity)
	b.TypeIndexToTypeBatchIndex[typeId] = len(b.TypeBatches)
	b.TypeBatches = append(b.TypeBatches, typeBatch)

	return typeBatch
}

// ConstraintCount is the number of constraints across every type batch
func (b *ConstraintBatch) ConstraintCount() int {
	count := 0
	for _, typeBatch := range b.TypeBatches {
		count += typeBatch.ConstraintCount()
	}

	return count
}

// Allocate reserves a slot for handle in the type batch of typeId and claims its bodies.
func (b *ConstraintBatch) Allocate(handle int, bodyHandles []int, bodies *actor.Bodies, typeId, initialCapacity int) int {
	var indices [2]int
	bodyIndices := indices[:0]
	for _, bodyHandle := range bodyHandles {
		b.addHandle(bodyHandle)
		bodyIndices = append(bodyIndices, bodies.HandleToIndex[bodyHandle])
	}

	return b.GetOrCreateTypeBatch(typeId, initialCapacity).Allocate(handle, bodyIndices)
}

// Remove frees slot of the type batch of typeId and releases its bodies.
func (b *ConstraintBatch) Remove(typeId, slot int, bodies *actor.Bodies, relocated constraint.Relocated) {
	typeBatch := b.TypeBatch(typeId)
	typeBatch.EnumerateConnectedBodyIndices(slot, func(bodyIndex int) {
		b.removeHandle(bodies.IndexToHandle[bodyIndex])
	})
	typeBatch.Remove(slot, relocated)
	b.removeTypeBatchIfEmpty(typeId)
}

// Transfer moves slot of the type batch of typeId into target, which must be able to fit its bodies.
func (b *ConstraintBatch) Transfer(typeId, slot int, target *ConstraintBatch, bodies *actor.Bodies, initialCapacity int, relocated constraint.Relocated) int {
	typeBatch := b.TypeBatch(typeId)
	typeBatch.EnumerateConnectedBodyIndices(slot, func(bodyIndex int) {
		handle := bodies.IndexToHandle[bodyIndex]
		b.removeHandle(handle)
		target.addHandle(handle)
	})
	targetSlot := typeBatch.TransferConstraint(slot, target.GetOrCreateTypeBatch(typeId, initialCapacity), relocated)
	b.removeTypeBatchIfEmpty(typeId)

	return targetSlot
}

func (b *ConstraintBatch) removeTypeBatchIfEmpty(typeId int) {
	index := b.TypeIndexToTypeBatchIndex[typeId]
	if b.TypeBatches[index].ConstraintCount() > 0 {
		return
	}

	last := len(b.TypeBatches) - 1
	if index != last {
		b.TypeBatches[index] = b.TypeBatches[last]
		b.TypeIndexToTypeBatchIndex[b.TypeBatches[index].TypeId()] = index
	}
	b.TypeBatches[last] = nil
	b.TypeBatches = b.TypeBatches[:last]
	b.TypeIndexToTypeBatchIndex[typeId] = -1
}
