// Package workerpool runs bounded background work on ants pools.
package workerpool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pitabwire/util"
)

const releaseTimeout = 5 * time.Second

// ErrPoolClosed is returned when submitting to a shut down pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// WorkerPool defines the common methods for worker pool operations.
// It holds either a single ants.Pool or an ants.MultiPool.
type WorkerPool interface {
	Submit(ctx context.Context, task func()) error
	Running() int
	Shutdown()
}

// Options defines configurable options for a worker pool.
type Options struct {
	PoolCount          int
	SinglePoolCapacity int
	Nonblocking        bool
	PanicHandler       func(any)
	Logger             *util.LogEntry
}

// Option defines a function that configures worker pool options.
type Option func(*Options)

// WithPoolCount sets the number of worker pools.
func WithPoolCount(count int) Option {
	return func(opts *Options) {
		opts.PoolCount = count
	}
}

// WithSinglePoolCapacity sets the capacity for a single worker pool.
func WithSinglePoolCapacity(capacity int) Option {
	return func(opts *Options) {
		opts.SinglePoolCapacity = capacity
	}
}

// WithPoolNonblocking makes Submit fail instead of waiting for a free worker.
func WithPoolNonblocking(nonblocking bool) Option {
	return func(opts *Options) {
		opts.Nonblocking = nonblocking
	}
}

// WithPoolPanicHandler sets a panic handler for the pool.
func WithPoolPanicHandler(handler func(any)) Option {
	return func(opts *Options) {
		opts.PanicHandler = handler
	}
}

// WithPoolLogger sets a logger for the pool.
func WithPoolLogger(logger *util.LogEntry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// New creates a pool. Without options it is a single blocking pool with
// one worker.
func New(ctx context.Context, opts ...Option) (WorkerPool, error) {
	wopts := &Options{
		PoolCount:          1,
		SinglePoolCapacity: 1,
		Logger:             util.Log(ctx),
	}
	for _, opt := range opts {
		opt(wopts)
	}
	if wopts.SinglePoolCapacity <= 0 {
		wopts.SinglePoolCapacity = 1
	}

	antsOpts := []ants.Option{ants.WithNonblocking(wopts.Nonblocking)}
	if wopts.Logger != nil {
		antsOpts = append(antsOpts, ants.WithLogger(wopts.Logger))
	}
	if wopts.PanicHandler != nil {
		antsOpts = append(antsOpts, ants.WithPanicHandler(wopts.PanicHandler))
	}

	if wopts.PoolCount <= 1 {
		p, err := ants.NewPool(wopts.SinglePoolCapacity, antsOpts...)
		if err != nil {
			return nil, err
		}
		return &singlePoolWrapper{pool: p}, nil
	}

	mp, err := ants.NewMultiPool(wopts.PoolCount, wopts.SinglePoolCapacity, ants.LeastTasks, antsOpts...)
	if err != nil {
		return nil, err
	}
	return &multiPoolWrapper{multiPool: mp}, nil
}

// singlePoolWrapper adapts *ants.Pool to the WorkerPool interface.
type singlePoolWrapper struct {
	pool *ants.Pool
}

func (w *singlePoolWrapper) Submit(ctx context.Context, task func()) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return translate(w.pool.Submit(task))
}

func (w *singlePoolWrapper) Running() int {
	return w.pool.Running()
}

func (w *singlePoolWrapper) Shutdown() {
	w.pool.Release()
}

// multiPoolWrapper adapts *ants.MultiPool to the WorkerPool interface.
type multiPoolWrapper struct {
	multiPool *ants.MultiPool
}

func (w *multiPoolWrapper) Submit(ctx context.Context, task func()) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return translate(w.multiPool.Submit(task))
}

func (w *multiPoolWrapper) Running() int {
	return w.multiPool.Running()
}

func (w *multiPoolWrapper) Shutdown() {
	_ = w.multiPool.ReleaseTimeout(releaseTimeout)
}

func translate(err error) error {
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrPoolClosed
	}
	return err
}

// Group runs tasks on a pool and collects their errors.
type Group struct {
	pool WorkerPool
	wg   sync.WaitGroup
	mu   sync.Mutex
	errs []error
}

func NewGroup(pool WorkerPool) *Group {
	return &Group{pool: pool}
}

// Go submits task. A submission failure is recorded like a task error.
func (g *Group) Go(ctx context.Context, task func(ctx context.Context) error) {
	g.wg.Add(1)
	err := g.pool.Submit(ctx, func() {
		defer g.wg.Done()
		if taskErr := task(ctx); taskErr != nil {
			g.record(taskErr)
		}
	})
	if err != nil {
		g.wg.Done()
		g.record(err)
	}
}

// Wait blocks until every submitted task finished and joins their errors.
func (g *Group) Wait() error {
	g.wg.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}

func (g *Group) record(err error) {
	g.mu.Lock()
	g.errs = append(g.errs, err)
	g.mu.Unlock()
}
