package calc

import (
	"fmt"
	"runtime"
	"sync"
	"time"
)

// PipeLine represents a compute pipeline
type PipeLine struct {
	numWorker int
	popCnt    int64
	popLock   sync.RWMutex
	debug     bool
}

// Init returns a compute PipeLine with numWorker workers.
// A non-positive numWorker uses one worker per CPU.
func Init(numWorker int, debug bool) *PipeLine {
	if numWorker <= 0 {
		numWorker = runtime.NumCPU()
	}

	return &PipeLine{
		numWorker: numWorker,
		debug:     debug,
	}
}

// Workers returns the number of workers
func (p *PipeLine) Workers() int {
	return p.numWorker
}

// Count returns the number of jobs evaluated so far
func (p *PipeLine) Count() int64 {
	p.popLock.RLock()
	defer p.popLock.RUnlock()

	return p.popCnt
}

func (p *PipeLine) pop(n int) {
	p.popLock.Lock()
	p.popCnt += int64(n)
	p.popLock.Unlock()
}

func mapper[T any](xs []float64, out []T, errs []error, fn func(float64) (T, error), order <-chan int, wg *sync.WaitGroup) {
	for {
		i, ok := <-order
		if ok {
			out[i], errs[i] = fn(xs[i])
			wg.Done()
		} else {
			break
		}
	}

	return
}

// Map evaluates fn at every x on the pipeline workers and returns the
// results in input order. The returned error is the one of the smallest
// failing index.
func Map[T any](p *PipeLine, xs []float64, fn func(x float64) (T, error)) ([]T, error) {
	out := make([]T, len(xs))
	errs := make([]error, len(xs))
	if len(xs) == 0 {
		return out, nil
	}

	start := time.Now()
	workers := min(p.numWorker, len(xs))

	order := make(chan int, workers)
	var wg sync.WaitGroup

	wg.Add(len(xs))

	for i := 0; i < workers; i++ {
		go mapper(xs, out, errs, fn, order, &wg)
	}

	for i := range xs {
		order <- i
	}

	wg.Wait()
	close(order)

	p.pop(len(xs))

	if p.debug {
		fmt.Printf("[Map] %d jobs on %d workers in %s\n", len(xs), workers, time.Since(start))
	}

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("job %d (x = %g): %w", i, xs[i], err)
		}
	}

	return out, nil
}
