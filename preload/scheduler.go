// Package preload prepares pages the reader is likely to turn to next, on a
// small pool of background workers.
package preload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Scheduler defaults.
const (
	DefaultWorkers   = 2
	DefaultQueueSize = 64
)

var (
	// ErrQueueFull is returned when a task is submitted to a full queue.
	ErrQueueFull = errors.New("preload queue full")
	// ErrClosed is returned when a task is submitted after Shutdown.
	ErrClosed = errors.New("preload scheduler closed")
)

// TaskFunc is the body of a task. ctx is cancelled when the task is
// superseded; long tasks should check it between units of work.
type TaskFunc func(ctx context.Context) error

type task struct {
	id   string
	name string
	ctx  context.Context
	fn   TaskFunc
}

// Scheduler runs tasks on a fixed pool of workers fed by a bounded queue.
//
// Tasks belong to a generation. Supersede cancels every task of the current
// generation, queued or running, and starts a new one. A failing or
// panicking task is logged and never affects the pool.
type Scheduler struct {
	logger    *log.Logger
	workers   int
	queueSize int

	queue chan *task
	group errgroup.Group

	mu     sync.Mutex
	closed bool
	gen    context.Context
	cancel context.CancelFunc

	inFlight atomic.Int32
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWorkers sets the number of worker goroutines.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithQueueSize sets how many tasks may wait for a worker.
func WithQueueSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler starts a scheduler and its workers. Call Shutdown to stop it.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:    log.Default(),
		workers:   DefaultWorkers,
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithPrefix("preload")
	s.queue = make(chan *task, s.queueSize)
	s.gen, s.cancel = context.WithCancel(context.Background())

	for i := range s.workers {
		s.group.Go(func() error {
			s.worker(i)
			return nil
		})
	}
	s.logger.Debug("scheduler started", "workers", s.workers, "queue", s.queueSize)
	return s
}

// Submit queues fn in the current generation and returns its id. It never
// blocks.
func (s *Scheduler) Submit(name string, fn TaskFunc) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrClosed
	}
	t := &task{
		id:   uuid.New().String(),
		name: name,
		ctx:  s.gen,
		fn:   fn,
	}
	select {
	case s.queue <- t:
		s.logger.Debug("task queued", "task", name, "id", t.id, "queue_len", len(s.queue))
		return t.id, nil
	default:
		s.logger.Warn("queue full", "task", name)
		return "", fmt.Errorf("%w: %s", ErrQueueFull, name)
	}
}

// Supersede cancels every queued and running task and starts a new
// generation for tasks submitted afterwards.
func (s *Scheduler) Supersede() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancel()
	if s.closed {
		return
	}
	s.gen, s.cancel = context.WithCancel(context.Background())
}

// Pending returns the number of queued and running tasks.
func (s *Scheduler) Pending() int {
	return len(s.queue) + int(s.inFlight.Load())
}

// Shutdown stops accepting tasks, runs what is already queued and waits for
// the workers to exit. It is safe to call more than once.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	_ = s.group.Wait()

	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
}

func (s *Scheduler) worker(id int) {
	for t := range s.queue {
		s.inFlight.Add(1)
		s.run(id, t)
		s.inFlight.Add(-1)
	}
}

func (s *Scheduler) run(worker int, t *task) {
	if t.ctx.Err() != nil {
		s.logger.Debug("skipping superseded task", "task", t.name, "id", t.id)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panicked", "task", t.name, "id", t.id, "worker", worker, "panic", r)
		}
	}()

	if err := t.fn(t.ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Debug("task cancelled", "task", t.name, "id", t.id)
			return
		}
		s.logger.Warn("task failed", "task", t.name, "id", t.id, "worker", worker, "err", err)
	}
}
