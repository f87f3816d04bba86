package base

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var poolLogger = logger.GetLogger("pool")

// ErrPoolClosed is returned when a task is submitted after shutdown started
var ErrPoolClosed = errors.New("worker pool is closed")

// -----------------------------------------------------------
// Task and saturation handling
// -----------------------------------------------------------

// Task is a unit of work executed by the WorkerPool
type Task interface {
	// Run executes the task, it may block for a long time
	Run()
	// Cancel aborts a running or queued task, it must make Run return soon.
	// Cancel may be called concurrently with Run.
	Cancel()
}

// SaturationHandler is called when a task is submitted while every executor is
// busy and the backlog is full. It decides what happens with the task.
type SaturationHandler func(p *WorkerPool, task Task) error

// CallerRuns executes the task on the submitting goroutine. A listener using this
// handler stops accepting while it serves the connection itself.
func CallerRuns(p *WorkerPool, task Task) error {
	return p.runInline(task)
}

// BlockUntilFree blocks the submitting goroutine until the backlog has room or
// shutdown begins.
func BlockUntilFree(p *WorkerPool, task Task) error {
	return p.enqueueWait(task)
}

// SaturationHandlerFor maps a configured policy name to its handler
func SaturationHandlerFor(policy string) (SaturationHandler, error) {
	switch policy {
	case "", "caller-runs":
		return CallerRuns, nil
	case "block":
		return BlockUntilFree, nil
	default:
		return nil, fmt.Errorf("unknown saturation policy: %s", policy)
	}
}

// -----------------------------------------------------------
// Worker Pool
// -----------------------------------------------------------

// PoolConfig configures a WorkerPool
type PoolConfig struct {
	// Workers is the number of executors (at least one is started)
	Workers int
	// Backlog is the capacity of the queue in front of the executors.
	// With a backlog of 0 a task is only accepted if an executor is idle.
	Backlog int
	// OnSaturated is called when executors and backlog are full, defaults to CallerRuns
	OnSaturated SaturationHandler
}

// WorkerPool is a fixed set of executors fed by a bounded queue
type WorkerPool struct {
	config PoolConfig
	tasks  chan Task

	// mu guards closed; submitters hold the read lock while sending on tasks
	mu     sync.RWMutex
	closed bool

	quit     chan struct{} // closed first on shutdown, wakes blocked submitters
	stop     chan struct{} // closed after closed is set, workers drain and exit
	quitOnce sync.Once
	stopOnce sync.Once

	workers sync.WaitGroup
	inline  sync.WaitGroup

	running *xsync.MapOf[uint64, Task]
	nextID  atomic.Uint64
	forced  atomic.Bool

	busy        atomic.Int64
	completed   atomic.Uint64
	saturations atomic.Uint64
	callerRuns  atomic.Uint64
}

// NewWorkerPool creates the pool and starts its executors
func NewWorkerPool(config PoolConfig) *WorkerPool {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.Backlog < 0 {
		config.Backlog = 0
	}
	if config.OnSaturated == nil {
		config.OnSaturated = CallerRuns
	}

	p := &WorkerPool{
		config:  config,
		tasks:   make(chan Task, config.Backlog),
		quit:    make(chan struct{}),
		stop:    make(chan struct{}),
		running: xsync.NewMapOf[uint64, Task](),
	}

	p.workers.Add(config.Workers)
	for i := 0; i < config.Workers; i++ {
		go p.worker()
	}

	poolLogger.Debugf("Started worker pool with %d workers and a backlog of %d", config.Workers, config.Backlog)
	return p
}

// Submit hands a task to the pool. An idle executor picks it up immediately,
// otherwise it is queued; if the backlog is full the saturation handler decides.
// It returns ErrPoolClosed once Shutdown was called.
func (p *WorkerPool) Submit(task Task) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		p.mu.RUnlock()
		return nil
	default:
	}
	p.mu.RUnlock()

	p.saturations.Add(1)
	poolLogger.Debugf("Worker pool saturated (%d busy, %d queued)", p.busy.Load(), len(p.tasks))
	return p.config.OnSaturated(p, task)
}

// Shutdown stops accepting tasks and waits until all queued and running tasks
// have finished. If ctx expires first, every running task is cancelled (and
// tasks still in the backlog are cancelled instead of run) and an error is returned.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	p.quitOnce.Do(func() { close(p.quit) })

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.stopOnce.Do(func() { close(p.stop) })

	done := make(chan struct{})
	go func() {
		p.workers.Wait()
		p.inline.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}

	p.forced.Store(true)
	cancelled := 0
	p.running.Range(func(_ uint64, task Task) bool {
		task.Cancel()
		cancelled++
		return true
	})
	poolLogger.Warningf("Shutdown grace period expired, cancelled %d running task(s)", cancelled)

	<-done
	return fmt.Errorf("worker pool shutdown: %w (%d task(s) cancelled)", ctx.Err(), cancelled)
}

// PoolStats is a snapshot of the pool counters
type PoolStats struct {
	Workers     int
	Busy        int
	Queued      int
	Completed   uint64
	Saturations uint64
	CallerRuns  uint64
}

// Stats returns the current counters of the pool
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Workers:     p.config.Workers,
		Busy:        int(p.busy.Load()),
		Queued:      len(p.tasks),
		Completed:   p.completed.Load(),
		Saturations: p.saturations.Load(),
		CallerRuns:  p.callerRuns.Load(),
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (p *WorkerPool) worker() {
	defer p.workers.Done()
	for {
		select {
		case task := <-p.tasks:
			p.execute(task)
		case <-p.stop:
			// no sends can happen anymore, drain what is left
			for {
				select {
				case task := <-p.tasks:
					p.execute(task)
				default:
					return
				}
			}
		}
	}
}

// runInline executes a task on the calling goroutine, Shutdown waits for it
func (p *WorkerPool) runInline(task Task) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	p.inline.Add(1)
	p.mu.RUnlock()
	defer p.inline.Done()

	p.callerRuns.Add(1)
	p.execute(task)
	return nil
}

// enqueueWait blocks until the task fits into the backlog or shutdown begins
func (p *WorkerPool) enqueueWait(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	}
}

// execute runs a single task, tracks it for forced cancellation and recovers panics
func (p *WorkerPool) execute(task Task) {
	defer p.completed.Add(1)

	if p.forced.Load() {
		task.Cancel()
		return
	}

	id := p.nextID.Add(1)
	p.running.Store(id, task)
	p.busy.Add(1)
	defer func() {
		p.busy.Add(-1)
		p.running.Delete(id)
		if r := recover(); r != nil {
			poolLogger.Errorf("Task panicked: %v\n%s", r, debug.Stack())
			task.Cancel()
		}
	}()

	// shutdown may have been forced between the check above and Store
	if p.forced.Load() {
		task.Cancel()
		return
	}
	task.Run()
}
