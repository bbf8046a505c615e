// Package concurrency provides a small worker pool used to spread the
// SHA-256 evaluations of cascade construction across goroutines.
package concurrency

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// Task is a unit of work submitted to a Pool. ID correlates a Result back
// to the task that produced it so ExecuteAll can return results in the
// same order tasks were submitted.
type Task interface {
	Execute(ctx context.Context) (interface{}, error)
	ID() string
}

// Result is the outcome of running a Task.
type Result struct {
	TaskID string
	Value  interface{}
	Error  error
}

// Config configures a Pool. A zero Config is valid; WorkerCount and
// BufferSize default to runtime.NumCPU() and WorkerCount*2 respectively.
type Config struct {
	WorkerCount int
	BufferSize  int
}

// Pool runs submitted Tasks across a fixed number of worker goroutines.
type Pool struct {
	config  Config
	tasks   chan Task
	results chan Result
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	submitted int64
	completed int64

	mu       sync.RWMutex
	started  bool
	shutdown bool
}

// NewPool creates a pool ready for Start.
func NewPool(config Config) *Pool {
	if config.WorkerCount <= 0 {
		config.WorkerCount = runtime.NumCPU()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = config.WorkerCount * 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		config:  config,
		tasks:   make(chan Task, config.BufferSize),
		results: make(chan Result, config.BufferSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start spawns the worker goroutines. Must be called before ExecuteAll.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("concurrency: pool already started")
	}
	if p.shutdown {
		return fmt.Errorf("concurrency: pool has been shut down")
	}

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	p.started = true
	return nil
}

// ExecuteAll submits every task and blocks until all of them complete,
// returning results in the same order as tasks. A task whose Execute
// returns an error still produces a Result — the error is surfaced in
// Result.Error, not as ExecuteAll's return error, except when submission
// itself fails (pool not started, or context cancelled).
func (p *Pool) ExecuteAll(ctx context.Context, tasks []Task) ([]*Result, error) {
	if len(tasks) == 0 {
		return []*Result{}, nil
	}

	// Submission and result collection must run concurrently: both p.tasks
	// and p.results are bounded, so a worker blocked on a full p.results
	// stops draining p.tasks, which would deadlock the submit loop below if
	// it ran to completion before any result was read.
	submitCtx, cancelSubmit := context.WithCancel(ctx)
	defer cancelSubmit()
	submitErr := make(chan error, 1)
	go func() {
		for _, task := range tasks {
			if err := p.submit(submitCtx, task); err != nil {
				submitErr <- fmt.Errorf("concurrency: failed to submit task %s: %w", task.ID(), err)
				return
			}
		}
		submitErr <- nil
	}()

	resultByID := make(map[string]*Result, len(tasks))
	for i := 0; i < len(tasks); i++ {
		select {
		case result := <-p.results:
			r := result
			resultByID[r.TaskID] = &r
		case err := <-submitErr:
			if err != nil {
				return nil, err
			}
			// Submission finished cleanly; this branch only fires once
			// since submitErr is only ever sent to a single time, so
			// subsequent iterations always take the p.results/ctx cases.
			i--
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.ctx.Done():
			return nil, fmt.Errorf("concurrency: pool context cancelled")
		}
	}

	ordered := make([]*Result, len(tasks))
	for i, task := range tasks {
		r, ok := resultByID[task.ID()]
		if !ok {
			return nil, fmt.Errorf("concurrency: missing result for task %s", task.ID())
		}
		ordered[i] = r
	}
	return ordered, nil
}

func (p *Pool) submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started {
		return fmt.Errorf("pool not started")
	}
	if p.shutdown {
		return fmt.Errorf("pool is shutting down")
	}

	select {
	case p.tasks <- task:
		atomic.AddInt64(&p.submitted, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return fmt.Errorf("pool context cancelled")
	}
}

// Shutdown stops accepting work, waits for in-flight tasks to finish, and
// releases the worker goroutines.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.shutdown || !p.started {
		p.shutdown = true
		p.mu.Unlock()
		return
	}
	p.shutdown = true
	p.mu.Unlock()

	close(p.tasks)
	p.wg.Wait()
	close(p.results)
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		value, err := task.Execute(p.ctx)
		result := Result{TaskID: task.ID(), Value: value, Error: err}
		select {
		case p.results <- result:
		case <-p.ctx.Done():
			return
		}
		atomic.AddInt64(&p.completed, 1)
	}
}
