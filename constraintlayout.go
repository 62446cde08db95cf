package ballast

import (
	"github.com/akmonengine/ballast/constraint"
	"github.com/akmonengine/ballast/pool"
	"golang.org/x/sync/errgroup"
)

const DEFAULT_REGION_SIZE_IN_BUNDLES = 8

// ConstraintLayoutOptimizer sorts bounded regions of the type batches by body location,
// one region per worker and call. Region boundaries are shifted by half a region every other
// sweep so constraints can migrate between neighbouring regions.
// Sorting inside a constraint batch never changes the solve result.
type ConstraintLayoutOptimizer struct {
	RegionSizeInBundles int

	batchIndex     int
	typeBatchIndex int
	bundleIndex    int
	offset         bool

	jobs  []sortJob
	pools []*pool.BufferPool[int]
}

// sortJob holds the regions of one type batch; a type batch is only ever sorted by one goroutine
type sortJob struct {
	typeBatch    constraint.TypeBatch
	bundleStarts []int
}

func NewConstraintLayoutOptimizer() *ConstraintLayoutOptimizer {
	return &ConstraintLayoutOptimizer{RegionSizeInBundles: DEFAULT_REGION_SIZE_IN_BUNDLES}
}

func (o *ConstraintLayoutOptimizer) regionSize() int {
	return max(1, o.RegionSizeInBundles)
}

// firstBundle is where the regions of a type batch start during the current sweep
func (o *ConstraintLayoutOptimizer) firstBundle() int {
	if o.offset {
		return o.regionSize() / 2
	}
	return 0
}

// advance moves the cursor to the next type batch, starting a new sweep after the last one
func (o *ConstraintLayoutOptimizer) advance(solver *Solver) {
	o.typeBatchIndex++
	for o.batchIndex < len(solver.Batches) && o.typeBatchIndex >= len(solver.Batches[o.batchIndex].TypeBatches) {
		o.batchIndex++
		o.typeBatchIndex = 0
	}
	if o.batchIndex >= len(solver.Batches) {
		o.batchIndex, o.typeBatchIndex = 0, 0
		o.offset = !o.offset
	}
	o.bundleIndex = o.firstBundle()
}

func (o *ConstraintLayoutOptimizer) addRegion(typeBatch constraint.TypeBatch, bundleStart int) {
	for i := range o.jobs {
		if o.jobs[i].typeBatch == typeBatch {
			o.jobs[i].bundleStarts = append(o.jobs[i].bundleStarts, bundleStart)
			return
		}
	}
	o.jobs = append(o.jobs, sortJob{typeBatch: typeBatch, bundleStarts: []int{bundleStart}})
}

// Update sorts the next regions. bodyCount bounds every body index referenced by a constraint.
func (o *ConstraintLayoutOptimizer) Update(solver *Solver, bodyCount int) {
	if solver.ConstraintCount() == 0 {
		return
	}
	workers := max(DEFAULT_WORKERS, solver.Workers)
	regionSize := o.regionSize()

	// ========== 1. Collect one region per worker ==========
	o.jobs = o.jobs[:0]
	if o.batchIndex >= len(solver.Batches) || o.typeBatchIndex >= len(solver.Batches[o.batchIndex].TypeBatches) {
		o.batchIndex, o.typeBatchIndex = 0, -1
		o.advance(solver)
	}
	startBatch, startTypeBatch := o.batchIndex, o.typeBatchIndex
	for regions := 0; regions < workers; {
		typeBatch := solver.Batches[o.batchIndex].TypeBatches[o.typeBatchIndex]
		if o.bundleIndex < typeBatch.BundleCount() {
			o.addRegion(typeBatch, o.bundleIndex)
			o.bundleIndex += regionSize
			regions++
			continue
		}
		o.advance(solver)
		if o.batchIndex == startBatch && o.typeBatchIndex == startTypeBatch {
			// Every type batch was visited during this call.
			break
		}
	}

	// ========== 2. Sort ==========
	for len(o.pools) < len(o.jobs) {
		o.pools = append(o.pools, &pool.BufferPool[int]{})
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, job := range o.jobs {
		scratch := o.pools[i]
		g.Go(func() error {
			for _, bundleStart := range job.bundleStarts {
				job.typeBatch.SortByBodyLocation(bundleStart, regionSize, bodyCount, scratch, solver.relocate)
			}
			return nil
		})
	}
	_ = g.Wait()
}
