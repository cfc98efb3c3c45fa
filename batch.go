package omr

import (
	"context"
	"runtime"
	"sync"
)

// BatchItem is the per-sheet outcome of a batch evaluation. Exactly one of
// Result and Err is set, except for sheets skipped by cancellation, where
// Err carries the context error.
type BatchItem struct {
	// Path is the sheet image the item refers to.
	Path string

	// Result is the evaluation outcome, nil when the sheet failed.
	Result *EvaluationResult

	// Err is the per-sheet failure, nil on success.
	Err error
}

// EvaluateBatch scores many sheet images against one answer key.
//
// Sheets are independent, so they are processed by a pool of workers;
// workers controls the pool size, with values below 1 defaulting to the CPU
// count. Items are returned in input order regardless of completion order,
// and one sheet failing does not stop the others.
//
// Cancelling ctx stops the batch between sheets: pending paths get the
// context error as their item's Err, and in-flight sheets finish normally.
// Each decoded image is evicted from the cache once its sheet is scored.
func (d *Detector) EvaluateBatch(ctx context.Context, paths []string, key map[int]string, expectedOptions, workers int) []BatchItem {
	items := make([]BatchItem, len(paths))
	if len(paths) == 0 {
		return items
	}

	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				path := paths[i]
				items[i].Path = path

				if err := ctx.Err(); err != nil {
					items[i].Err = err
					continue
				}

				result, err := d.EvaluateFile(path, key, expectedOptions)
				d.cache.Evict(path)
				if err != nil {
					items[i].Err = err
					continue
				}
				items[i].Result = result
			}
		}()
	}

	for i := range paths {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return items
}
