package queue

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/petfarm/identity-api/internal/core/service"
)

const channelBuffer = 256

// Gauge receives the queue depth; prometheus.Gauge satisfies it.
type Gauge interface {
	Set(float64)
}

// ErrPoolClosed is returned for work submitted after the pool stopped.
var ErrPoolClosed = errors.New("hash pool closed")

type job struct {
	ctx  context.Context
	run  func(context.Context)
	err  error // set when the job was dropped without running
	done chan struct{}
}

// HashPool bounds the number of password hashes computed at once. bcrypt is
// CPU bound, so a burst of logins would otherwise starve the request
// handlers. It implements service.PasswordHasher by delegating to inner on a
// fixed set of workers.
type HashPool struct {
	inner   service.PasswordHasher
	workers int
	jobs    chan *job
	closed  chan struct{}
	depth   Gauge
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewHashPool creates a pool with numWorkers workers. If numWorkers <= 0,
// runtime.NumCPU() is used. depth may be nil.
func NewHashPool(numWorkers int, inner service.PasswordHasher, depth Gauge, log zerolog.Logger) *HashPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &HashPool{
		inner:   inner,
		workers: numWorkers,
		jobs:    make(chan *job, channelBuffer),
		closed:  make(chan struct{}),
		depth:   depth,
		log:     log,
	}
}

// Start launches all worker goroutines. When ctx is cancelled the workers
// finish the jobs already queued, then exit; later submissions fail with
// ErrPoolClosed. ctx should outlive the callers, so cancel it only after the
// HTTP server has drained.
func (p *HashPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}
	go func() {
		<-ctx.Done()
		p.wg.Wait()
		close(p.closed)
		p.log.Info().Int("workers", p.workers).Msg("hash pool stopped")
	}()
	p.log.Info().Int("workers", p.workers).Msg("hash pool started")
}

// Done is closed once every worker has exited.
func (p *HashPool) Done() <-chan struct{} {
	return p.closed
}

func (p *HashPool) Hash(ctx context.Context, password string) (string, error) {
	var hash string
	var err error
	if serr := p.submit(ctx, func(ctx context.Context) {
		hash, err = p.inner.Hash(ctx, password)
	}); serr != nil {
		return "", serr
	}
	return hash, err
}

func (p *HashPool) Compare(ctx context.Context, hash, password string) (bool, error) {
	var ok bool
	var err error
	if serr := p.submit(ctx, func(ctx context.Context) {
		ok, err = p.inner.Compare(ctx, hash, password)
	}); serr != nil {
		return false, serr
	}
	return ok, err
}

// submit blocks until run has finished on a worker, ctx is cancelled or the
// pool stops. Results written by run are only safe to read on a nil return.
func (p *HashPool) submit(ctx context.Context, run func(context.Context)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j := &job{ctx: ctx, run: run, done: make(chan struct{})}

	select {
	case p.jobs <- j:
		p.observeDepth()
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closed:
		return ErrPoolClosed
	}

	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closed:
		// workers close done before exiting, so a drained job is visible here
		select {
		case <-j.done:
			return j.err
		default:
			return ErrPoolClosed
		}
	}
}

func (p *HashPool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			p.drain(id)
			return
		case j := <-p.jobs:
			p.process(id, j)
		}
	}
}

// drain runs the jobs already queued when the pool context ends.
func (p *HashPool) drain(id int) {
	for {
		select {
		case j := <-p.jobs:
			p.process(id, j)
		default:
			return
		}
	}
}

func (p *HashPool) process(id int, j *job) {
	p.observeDepth()
	if err := j.ctx.Err(); err != nil {
		p.log.Debug().Int("worker_id", id).Msg("skipping cancelled hash job")
		j.err = err
		close(j.done)
		return
	}
	j.run(j.ctx)
	close(j.done)
}

func (p *HashPool) observeDepth() {
	if p.depth != nil {
		p.depth.Set(float64(len(p.jobs)))
	}
}
