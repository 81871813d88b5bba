// Package bulk runs one function over many IDs, sequentially or on a worker pool.
package bulk

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
)

// Operation configures a bulk run.
type Operation struct {
	// Jobs is the worker count. Zero means one per CPU.
	Jobs            int
	ContinueOnError bool
	// Ordered forces items to run one at a time in the order given.
	// Board edits need it, since each one builds on the previous ETag.
	Ordered bool
	// Progress receives one line per item when set.
	Progress io.Writer
}

// Result summarizes a bulk run.
type Result struct {
	TotalItems int
	Succeeded  int
	Failed     int
	Errors     []ItemError
}

// ItemError pairs a failed item with its error.
type ItemError struct {
	Item  string
	Error error
}

// ItemFunc is called once per item.
type ItemFunc func(item string) error

// Execute runs fn for every item.
func (op *Operation) Execute(items []string, fn ItemFunc) *Result {
	result := &Result{TotalItems: len(items)}
	if len(items) == 0 {
		return result
	}

	jobs := op.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if jobs > len(items) {
		jobs = len(items)
	}

	if op.Ordered || jobs == 1 {
		return op.executeSequential(items, fn)
	}
	return op.executeParallel(items, fn, jobs)
}

func (op *Operation) executeSequential(items []string, fn ItemFunc) *Result {
	result := &Result{TotalItems: len(items)}

	for _, item := range items {
		if err := fn(item); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ItemError{Item: item, Error: err})
			op.report(item, err)
			if !op.ContinueOnError {
				return result
			}
			continue
		}
		result.Succeeded++
		op.report(item, nil)
	}
	return result
}

func (op *Operation) executeParallel(items []string, fn ItemFunc, workers int) *Result {
	result := &Result{TotalItems: len(items)}

	workQueue := make(chan string, len(items))
	for _, item := range items {
		workQueue <- item
	}
	close(workQueue)

	var (
		succeeded int32
		failed    int32
		stop      atomic.Bool
		mu        sync.Mutex
	)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workQueue {
				if !op.ContinueOnError && stop.Load() {
					return
				}
				err := fn(item)
				mu.Lock()
				if err != nil {
					failed++
					result.Errors = append(result.Errors, ItemError{Item: item, Error: err})
					if !op.ContinueOnError {
						stop.Store(true)
					}
				} else {
					succeeded++
				}
				op.report(item, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	result.Succeeded = int(succeeded)
	result.Failed = int(failed)
	return result
}

func (op *Operation) report(item string, err error) {
	if op.Progress == nil {
		return
	}
	if err != nil {
		fmt.Fprintf(op.Progress, "%s: error: %v\n", item, err)
		return
	}
	fmt.Fprintf(op.Progress, "%s: ok\n", item)
}

// Err returns nil when every item succeeded.
func (r *Result) Err() error {
	switch {
	case r.Failed == 0:
		return nil
	case r.Failed == 1 && r.Succeeded == 0:
		return r.Errors[0].Error
	case r.Succeeded > 0:
		return fmt.Errorf("partial success: %d succeeded, %d failed", r.Succeeded, r.Failed)
	}
	return fmt.Errorf("all %d operations failed", r.Failed)
}

// PrintSummary prints a human-readable summary of the result
func (r *Result) PrintSummary(w io.Writer) {
	if r.Failed == 0 {
		fmt.Fprintf(w, "All %d operations succeeded\n", r.TotalItems)
	} else if r.Succeeded == 0 {
		fmt.Fprintf(w, "All %d operations failed\n", r.Failed)
	} else {
		fmt.Fprintf(w, "Partial success: %d succeeded, %d failed (out of %d)\n",
			r.Succeeded, r.Failed, r.TotalItems)
	}

	shown := r.Errors
	if len(shown) > 10 {
		fmt.Fprintf(w, "Showing first 10 errors (of %d):\n", len(shown))
		shown = shown[:10]
	}
	for _, e := range shown {
		fmt.Fprintf(w, "  %s: %v\n", e.Item, e.Error)
	}
}
