// Package worker runs background tasks off the request path.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrQueueFull  = errors.New("worker: queue full")
	ErrPoolClosed = errors.New("worker: pool closed")
)

// Task is one unit of background work. UID is used for logging only.
type Task struct {
	Name string
	UID  string
	Run  func(ctx context.Context) error
}

// FailureHook receives every task that returned an error or panicked.
type FailureHook func(t Task, err error)

type Stats struct {
	Workers   int   `json:"workers"`
	Queued    int   `json:"queued"`
	Submitted int64 `json:"submitted"`
	Rejected  int64 `json:"rejected"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Panicked  int64 `json:"panicked"`
}

// Pool is a fixed set of goroutines draining a bounded queue. Tasks run with
// a context detached from the submitter, bounded by the task timeout.
type Pool struct {
	logger    zerolog.Logger
	workers   int
	timeout   time.Duration
	onFailure FailureHook

	mu     sync.RWMutex
	closed bool
	queue  chan Task
	g      errgroup.Group

	submitted atomic.Int64
	rejected  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	panicked  atomic.Int64
}

type Options struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
	OnFailure   FailureHook
}

// NewPool starts the workers immediately.
func NewPool(logger zerolog.Logger, opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}
	p := &Pool{
		logger:    logger.With().Str("component", "worker").Logger(),
		workers:   opts.Workers,
		timeout:   opts.TaskTimeout,
		onFailure: opts.OnFailure,
		queue:     make(chan Task, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		p.g.Go(p.loop)
	}
	return p
}

// Submit enqueues t without blocking.
func (p *Pool) Submit(t Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- t:
		p.submitted.Add(1)
		return nil
	default:
		p.rejected.Add(1)
		p.logger.Warn().Str("task", t.Name).Str("uid", t.UID).Msg("task queue full, dropping task")
		return ErrQueueFull
	}
}

func (p *Pool) loop() error {
	for t := range p.queue {
		p.run(t)
	}
	return nil
}

func (p *Pool) run(t Task) {
	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	err := p.safeRun(ctx, t)
	if err == nil {
		p.completed.Add(1)
		p.logger.Debug().Str("task", t.Name).Str("uid", t.UID).Dur("duration", time.Since(start)).Msg("task completed")
		return
	}

	p.failed.Add(1)
	p.logger.Error().Err(err).Str("task", t.Name).Str("uid", t.UID).Msg("background task failed")
	if p.onFailure != nil {
		p.onFailure(t, err)
	}
}

func (p *Pool) safeRun(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			p.logger.Error().Bytes("stack", debug.Stack()).Str("task", t.Name).Msg("task panicked")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.Run(ctx)
}

// Close stops accepting tasks and waits for queued ones to finish or for ctx
// to end.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = p.g.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		Queued:    len(p.queue),
		Submitted: p.submitted.Load(),
		Rejected:  p.rejected.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Panicked:  p.panicked.Load(),
	}
}
