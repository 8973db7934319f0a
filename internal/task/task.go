// Package task runs writes the caller does not wait for, keeping their
// failures observable.
package task

import (
	"context"
	"log"
	"sync"
	"time"
)

const defaultTimeout = 10 * time.Second

// Failure is reported once per failed task.
type Failure struct {
	Name string
	Err  error
}

type Runner struct {
	wg      sync.WaitGroup
	timeout time.Duration
	onFail  func(Failure)

	mu       sync.Mutex
	failures []Failure
}

func NewRunner() *Runner {
	return &Runner{timeout: defaultTimeout}
}

// OnFailure installs a hook called after the failure is logged.
func (r *Runner) OnFailure(fn func(Failure)) {
	r.mu.Lock()
	r.onFail = fn
	r.mu.Unlock()
}

// Go runs fn in the background with its own deadline. The caller's context
// is not inherited so the task outlives the request that started it.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("[task] name=%s err=%v", name, err)
			f := Failure{Name: name, Err: err}
			r.mu.Lock()
			r.failures = append(r.failures, f)
			hook := r.onFail
			r.mu.Unlock()
			if hook != nil {
				hook(f)
			}
		}
	}()
}

// Wait blocks until every started task has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) Failures() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Failure, len(r.failures))
	copy(out, r.failures)
	return out
}
