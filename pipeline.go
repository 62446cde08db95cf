package ballast

import (
	"sync"

	"github.com/akmonengine/ballast/constraint"
	"golang.org/x/sync/errgroup"
)

// task splits [0, count) into one contiguous chunk per worker
func task(workersCount, count int, fn func(start, end int)) {
	var wg sync.WaitGroup
	chunkSize := (count + workersCount - 1) / workersCount

	for workerID := 0; workerID < workersCount; workerID++ {
		start, end := workerID*chunkSize, min((workerID+1)*chunkSize, count)
		if start >= end {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}
	wg.Wait()
}

// workBlock is a contiguous bundle range of one type batch
type workBlock struct {
	typeBatch   constraint.TypeBatch
	bundleStart int
	bundleEnd   int
}

// appendBlocks cuts every type batch of batch into blocks of at most bundlesPerBlock bundles
func appendBlocks(blocks []workBlock, batch *ConstraintBatch, bundlesPerBlock int) []workBlock {
	for _, typeBatch := range batch.TypeBatches {
		bundleCount := typeBatch.BundleCount()
		for start := 0; start < bundleCount; start += bundlesPerBlock {
			blocks = append(blocks, workBlock{
				typeBatch:   typeBatch,
				bundleStart: start,
				bundleEnd:   min(start+bundlesPerBlock, bundleCount),
			})
		}
	}

	return blocks
}

// dispatch runs fn over blocks on at most workersCount goroutines and waits for all of them.
// Blocks must not share bodies.
func dispatch(workersCount int, blocks []workBlock, fn func(block workBlock)) {
	if workersCount <= 1 || len(blocks) <= 1 {
		for _, block := range blocks {
			fn(block)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(workersCount)
	for _, block := range blocks {
		g.Go(func() error {
			fn(block)
			return nil
		})
	}
	_ = g.Wait()
}
