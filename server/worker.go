package server

import (
	"context"
	"fmt"
)

// request is a unit of work to be executed on the worker goroutine.
type request struct {
	fn   func() any
	done chan result
}

// result holds the return value from a worker job.
type result struct {
	value any
	err   error
}

// Worker serializes interpreter runs through a single goroutine so that
// concurrent requests never interleave VM output or logging.
type Worker struct {
	requests chan request
	quit     chan struct{}
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker() *Worker {
	w := &Worker{
		requests: make(chan request, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics.
func (w *Worker) execute(fn func() any) result {
	var res result
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("worker job panicked: %v", r)
				res.err = fmt.Errorf("%v", r)
			}
		}()
		res.value = fn()
	}()
	return res
}

// Do submits fn for execution on the worker goroutine and blocks until it
// completes or ctx is done. A panic inside fn is returned as an error.
func (w *Worker) Do(ctx context.Context, fn func() any) (any, error) {
	req := request{
		fn:   fn,
		done: make(chan result, 1),
	}
	select {
	case w.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop shuts down the worker goroutine.
func (w *Worker) Stop() {
	close(w.quit)
}
