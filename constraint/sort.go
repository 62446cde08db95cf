package constraint

import (
	"github.com/akmonengine/ballast/bundle"
	"github.com/akmonengine/ballast/pool"
)

// sortKey is the lowest body index referenced by slot
func (tb *TwoBodyTypeBatch[P, X, A, PP, XP, AP]) sortKey(slot int) int {
	b, lane := bundle.Indices(slot)
	return min(tb.BodyReferences[b].IndexA[lane], tb.BodyReferences[b].IndexB[lane])
}

// SortByBodyLocation orders the constraints of [bundleStart, bundleStart+bundleCount) by their
// lowest referenced body index. Keys are counting-sorted over bodyCount buckets and the
// permutation is applied in one pass from a cached copy of the range.
func (tb *TwoBodyTypeBatch[P, X, A, PP, XP, AP]) SortByBodyLocation(bundleStart, bundleCount, bodyCount int, scratch pool.Pool[int], relocated Relocated) {
	start := bundleStart << bundle.Shift
	count := min(tb.constraintCount-start, bundleCount<<bundle.Shift)
	if count <= 1 {
		return
	}

	// ========== 1. Counting sort of the keys ==========
	keys := scratch.Take(count)
	order := scratch.Take(count)
	buckets := scratch.Take(bodyCount + 1)
	defer scratch.Return(keys)
	defer scratch.Return(order)
	defer scratch.Return(buckets)
	clear(buckets)

	for i := 0; i < count; i++ {
		keys[i] = tb.sortKey(start + i)
		buckets[keys[i]+1]++
	}
	for key := 1; key <= bodyCount; key++ {
		buckets[key] += buckets[key-1]
	}
	// buckets[key] is now the first sorted position of key; filling in index order keeps it stable
	for i := 0; i < count; i++ {
		order[buckets[keys[i]]] = i
		buckets[keys[i]]++
	}

	// ========== 2. Cache the range ==========
	firstBundle := bundleStart
	lastBundle := bundle.Count(start + count)
	cache := &tb.sortCache
	cache.references = append(cache.references[:0], tb.BodyReferences[firstBundle:lastBundle]...)
	cache.prestep = append(cache.prestep[:0], tb.PrestepData[firstBundle:lastBundle]...)
	cache.projection = append(cache.projection[:0], tb.Projection[firstBundle:lastBundle]...)
	cache.impulses = append(cache.impulses[:0], tb.AccumulatedImpulses[firstBundle:lastBundle]...)
	handles := scratch.Take(count)
	defer scratch.Return(handles)
	copy(handles, tb.IndexToHandle[start:start+count])

	// ========== 3. Scatter into sorted order ==========
	for i := 0; i < count; i++ {
		source := order[i]
		if source == i {
			continue
		}
		sourceBundle, sourceLane := bundle.Indices(source)
		targetBundle, targetLane := bundle.Indices(start + i)
		tb.BodyReferences[targetBundle].CopyLane(targetLane, &cache.references[sourceBundle], sourceLane)
		PP(&tb.PrestepData[targetBundle]).CopyLane(targetLane, &cache.prestep[sourceBundle], sourceLane)
		XP(&tb.Projection[targetBundle]).CopyLane(targetLane, &cache.projection[sourceBundle], sourceLane)
		AP(&tb.AccumulatedImpulses[targetBundle]).CopyLane(targetLane, &cache.impulses[sourceBundle], sourceLane)

		handle := handles[source]
		tb.IndexToHandle[start+i] = handle
		relocated(handle, start+i)
	}
}
