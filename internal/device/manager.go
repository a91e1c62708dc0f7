// Package device runs per-device tasks, such as capability probes, across
// several connected devices at once.
package device

import (
	"context"
	"runtime"
	"sync"
)

// TaskFunc is run once for each device serial.
type TaskFunc[T any] func(ctx context.Context, serial string) (T, error)

// Result is the outcome of a task for one device.
type Result[T any] struct {
	Serial string
	Value  T
	Err    error
}

// Manager bounds how many device tasks run concurrently.
type Manager[T any] struct {
	workerLimit int
}

// Option configures a Manager.
type Option[T any] func(*Manager[T])

// WithWorkerLimit sets the maximum number of concurrent workers.
func WithWorkerLimit[T any](limit int) Option[T] {
	return func(m *Manager[T]) {
		m.workerLimit = limit
	}
}

// NewManager creates a Manager. The worker limit defaults to the CPU count.
func NewManager[T any](opts ...Option[T]) *Manager[T] {
	m := &Manager[T]{
		workerLimit: runtime.NumCPU(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.workerLimit <= 0 {
		m.workerLimit = runtime.NumCPU()
	}

	return m
}

// Run executes task for every serial and returns one result per serial, in
// the order the serials were given. Serials that were not started before ctx
// was canceled get ctx's error.
func (m *Manager[T]) Run(ctx context.Context, serials []string, task TaskFunc[T]) []Result[T] {
	results := make([]Result[T], len(serials))
	if len(serials) == 0 {
		return results
	}
	for i, serial := range serials {
		results[i].Serial = serial
	}

	workerCount := m.workerLimit
	if workerCount > len(serials) {
		workerCount = len(serials)
	}

	indexCh := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexCh {
				results[i].Value, results[i].Err = task(ctx, serials[i])
			}
		}()
	}

	next := 0
feed:
	for ; next < len(serials); next++ {
		select {
		case <-ctx.Done():
			break feed
		case indexCh <- next:
		}
	}
	close(indexCh)
	wg.Wait()

	for i := next; i < len(serials); i++ {
		results[i].Err = ctx.Err()
	}
	return results
}
