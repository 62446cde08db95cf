package actor

import (
	"github.com/akmonengine/ballast/internal/debug"
	"github.com/akmonengine/ballast/pool"
	"github.com/go-gl/mathgl/mgl64"
)

// Bodies stores every body in dense arrays indexed by body index.
// Handles stay valid while indices move when bodies are removed or swapped.
type Bodies struct {
	// HandleToIndex maps a body handle to its current index, -1 when the handle is free
	HandleToIndex []int
	IndexToHandle []int

	Poses         []RigidPose
	Velocities    []BodyVelocity
	LocalInertias []BodyInertia
	// Inertias are in world space, refreshed by the pose integrator
	Inertias []BodyInertia

	Count int

	handlePool *pool.IdPool
}

func NewBodies(initialCapacity int) *Bodies {
	initialCapacity = max(1, initialCapacity)
	bodies := &Bodies{
		handlePool: pool.NewIdPool(initialCapacity),
	}
	bodies.resize(initialCapacity)
	bodies.HandleToIndex = make([]int, initialCapacity)
	for i := range bodies.HandleToIndex {
		bodies.HandleToIndex[i] = -1
	}

	return bodies
}

func (b *Bodies) resize(capacity int) {
	b.IndexToHandle = append(make([]int, 0, capacity), b.IndexToHandle[:b.Count]...)[:capacity]
	b.Poses = append(make([]RigidPose, 0, capacity), b.Poses[:b.Count]...)[:capacity]
	b.Velocities = append(make([]BodyVelocity, 0, capacity), b.Velocities[:b.Count]...)[:capacity]
	b.LocalInertias = append(make([]BodyInertia, 0, capacity), b.LocalInertias[:b.Count]...)[:capacity]
	b.Inertias = append(make([]BodyInertia, 0, capacity), b.Inertias[:b.Count]...)[:capacity]
}

// Add stores a new body and returns its handle
func (b *Bodies) Add(description BodyDescription) int {
	if b.Count == len(b.IndexToHandle) {
		b.resize(b.Count * 2)
	}
	handle := b.handlePool.Take()
	for handle >= len(b.HandleToIndex) {
		b.HandleToIndex = append(b.HandleToIndex, -1)
	}

	index := b.Count
	b.Count++
	b.HandleToIndex[handle] = index
	b.IndexToHandle[index] = handle
	b.setDescription(index, description)

	return handle
}

// RemoveAt removes the body at index by moving the last body into its slot.
// When a body was moved, its previous index is returned and every constraint
// referencing that index must be pointed at index.
func (b *Bodies) RemoveAt(index int) (movedBodyOriginalIndex int, moved bool) {
	debug.Assert(index >= 0 && index < b.Count, "body index %d out of range [0, %d)", index, b.Count)

	handle := b.IndexToHandle[index]
	last := b.Count - 1
	if index != last {
		b.copyBody(last, index)
		b.HandleToIndex[b.IndexToHandle[index]] = index
		movedBodyOriginalIndex, moved = last, true
	}
	b.HandleToIndex[handle] = -1
	b.handlePool.Return(handle)
	b.IndexToHandle[last] = -1
	b.Count--

	return movedBodyOriginalIndex, moved
}

// Remove removes the body behind handle, see RemoveAt
func (b *Bodies) Remove(handle int) (removedIndex, movedBodyOriginalIndex int, moved bool) {
	removedIndex = b.HandleToIndex[handle]
	movedBodyOriginalIndex, moved = b.RemoveAt(removedIndex)

	return removedIndex, movedBodyOriginalIndex, moved
}

// Swap exchanges the storage of two bodies and fixes their handles
func (b *Bodies) Swap(a, c int) {
	debug.Assert(a >= 0 && a < b.Count && c >= 0 && c < b.Count, "swap %d, %d out of range [0, %d)", a, c, b.Count)

	b.IndexToHandle[a], b.IndexToHandle[c] = b.IndexToHandle[c], b.IndexToHandle[a]
	b.Poses[a], b.Poses[c] = b.Poses[c], b.Poses[a]
	b.Velocities[a], b.Velocities[c] = b.Velocities[c], b.Velocities[a]
	b.LocalInertias[a], b.LocalInertias[c] = b.LocalInertias[c], b.LocalInertias[a]
	b.Inertias[a], b.Inertias[c] = b.Inertias[c], b.Inertias[a]
	b.HandleToIndex[b.IndexToHandle[a]] = a
	b.HandleToIndex[b.IndexToHandle[c]] = c
}

func (b *Bodies) copyBody(source, target int) {
	b.IndexToHandle[target] = b.IndexToHandle[source]
	b.Poses[target] = b.Poses[source]
	b.Velocities[target] = b.Velocities[source]
	b.LocalInertias[target] = b.LocalInertias[source]
	b.Inertias[target] = b.Inertias[source]
}

func (b *Bodies) setDescription(index int, description BodyDescription) {
	b.Poses[index] = description.Pose
	b.Velocities[index] = description.Velocity
	b.LocalInertias[index] = description.LocalInertia
	b.UpdateInertia(index)
}

func (b *Bodies) Contains(handle int) bool {
	return handle >= 0 && handle < len(b.HandleToIndex) && b.HandleToIndex[handle] >= 0
}

func (b *Bodies) GetDescription(handle int) BodyDescription {
	index := b.HandleToIndex[handle]
	return BodyDescription{
		Pose:         b.Poses[index],
		Velocity:     b.Velocities[index],
		LocalInertia: b.LocalInertias[index],
	}
}

func (b *Bodies) ApplyDescription(handle int, description BodyDescription) {
	b.setDescription(b.HandleToIndex[handle], description)
}

func (b *Bodies) GetPose(handle int) RigidPose {
	return b.Poses[b.HandleToIndex[handle]]
}

func (b *Bodies) SetPose(handle int, pose RigidPose) {
	index := b.HandleToIndex[handle]
	b.Poses[index] = pose
	b.UpdateInertia(index)
}

func (b *Bodies) GetVelocity(handle int) BodyVelocity {
	return b.Velocities[b.HandleToIndex[handle]]
}

func (b *Bodies) SetVelocity(handle int, velocity BodyVelocity) {
	b.Velocities[b.HandleToIndex[handle]] = velocity
}

// UpdateInertia recomputes the world space inverse inertia of the body at index
func (b *Bodies) UpdateInertia(index int) {
	local := b.LocalInertias[index]
	if local.IsKinematic() {
		b.Inertias[index] = BodyInertia{}
		return
	}

	// I_world^(-1) = R * I_local^(-1) * R^T
	R := b.Poses[index].Orientation.Mat4().Mat3()
	b.Inertias[index] = BodyInertia{
		InverseInertiaTensor: R.Mul3(local.InverseInertiaTensor).Mul3(R.Transpose()),
		InverseMass:          local.InverseMass,
	}
}

// ApplyLinearImpulseVelocity adds a velocity change to every dynamic body in [start, end)
func (b *Bodies) ApplyLinearImpulseVelocity(start, end int, velocityChange mgl64.Vec3) {
	for i := start; i < end; i++ {
		if b.LocalInertias[i].IsKinematic() {
			continue
		}
		b.Velocities[i].Linear = b.Velocities[i].Linear.Add(velocityChange)
	}
}
