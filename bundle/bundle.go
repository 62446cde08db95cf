// Package bundle maps linear indices onto fixed-width bundles of lanes and
// provides the lane containers used by the structure-of-arrays tables.
package bundle

const (
	// Width is the number of lanes in a bundle
	Width = 4
	Shift = 2
	Mask  = Width - 1
)

// Width must be 1<<Shift
var _ [0]struct{} = [Width - 1<<Shift]struct{}{}

// Indices splits a linear index into its bundle index and lane index
func Indices(index int) (bundleIndex, lane int) {
	return index >> Shift, index & Mask
}

// Index composes a linear index from a bundle index and a lane index
func Index(bundleIndex, lane int) int {
	return bundleIndex<<Shift | lane
}

// Count returns the number of bundles required to hold count elements
func Count(count int) int {
	return (count + Mask) >> Shift
}

// LaneCount returns how many lanes of the given bundle hold one of the count elements
func LaneCount(bundleIndex, count int) int {
	return max(0, min(Width, count-bundleIndex<<Shift))
}
