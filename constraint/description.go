package constraint

import (
	"fmt"
	"math"

	"github.com/akmonengine/ballast/bundle"
)

// Constraint type ids, one type batch kind each
const (
	BallSocketTypeId = iota
	Contact1TypeId
	Contact4TypeId

	TypeCount
)

// Description is the flat, user facing form of a constraint.
// ApplyDescription writes it into a type batch lane, BuildDescription reads it back.
type Description interface {
	ConstraintTypeId() int
	ApplyDescription(batch TypeBatch, bundleIndex, innerIndex int)
	BuildDescription(batch TypeBatch, bundleIndex, innerIndex int)
}

// NewTypeBatch creates an empty type batch for typeId
func NewTypeBatch(typeId, initialCapacity int) TypeBatch {
	switch typeId {
	case BallSocketTypeId:
		return newTwoBodyTypeBatch[BallSocketPrestep, BallSocketProjection, bundle.Vec3](typeId, ballSocketKernel{}, initialCapacity)
	case Contact1TypeId:
		return newTwoBodyTypeBatch[Contact1Prestep, Contact1Projection, Contact1Impulses](typeId, contact1Kernel{}, initialCapacity)
	case Contact4TypeId:
		return newTwoBodyTypeBatch[Contact4Prestep, Contact4Projection, Contact4Impulses](typeId, contact4Kernel{}, initialCapacity)
	}
	panic(fmt.Sprintf("unknown constraint type id %d", typeId))
}

// CombineFriction mixes the friction coefficients of two materials (geometric mean)
func CombineFriction(frictionA, frictionB float64) float64 {
	return math.Sqrt(frictionA * frictionB)
}
