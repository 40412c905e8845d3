// Package scheduler serializes calls to rate-limited services.
//
// A Scheduler is a single FIFO lane: submitted operations run strictly one at
// a time in submission order, and after each operation finishes the lane
// waits a fixed interval before looking at the queue again. The wait also
// happens after the last queued operation, so the lane only goes idle one
// interval after it drains. There is no retry and no cancellation of queued
// work.
package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultInterval is the inter-start delay used when Config.Interval is zero.
const DefaultInterval = 4 * time.Second

// ErrTaskPanicked wraps a panic recovered from an operation.
var ErrTaskPanicked = errors.New("scheduler: operation panicked")

// Operation is a unit of work. Its result or error is delivered to the
// Handle returned by Submit.
type Operation func() (any, error)

// Observer receives lane events, typically to export metrics.
type Observer interface {
	QueueDepth(lane string, depth int)
	TaskFinished(lane string, took time.Duration, err error)
}

// Config configures a Scheduler.
type Config struct {
	Name     string        // lane name used in logs and metrics
	Interval time.Duration // minimum delay between one outcome and the next start
	Logger   *slog.Logger
	Observer Observer
}

// Scheduler is a single-lane, interval-paced FIFO queue.
type Scheduler struct {
	name     string
	interval time.Duration
	log      *slog.Logger
	obs      Observer

	mu      sync.Mutex
	queue   []*task
	running bool
}

type task struct {
	op     Operation
	handle *Handle
}

// New creates an idle Scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{
		name:     cfg.Name,
		interval: cfg.Interval,
		log:      cfg.Logger.With(slog.String("component", "scheduler"), slog.String("lane", cfg.Name)),
		obs:      cfg.Observer,
	}
}

// Name returns the lane name.
func (s *Scheduler) Name() string { return s.name }

// Interval returns the configured minimum interval.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Submit appends op to the queue and returns its handle. It never blocks on
// the operation. The drain loop is started if it is not already active.
func (s *Scheduler) Submit(op Operation) *Handle {
	h := newHandle()
	t := &task{op: op, handle: h}

	s.mu.Lock()
	s.queue = append(s.queue, t)
	depth := len(s.queue)
	start := !s.running
	if start {
		s.running = true
	}
	s.mu.Unlock()

	s.observeDepth(depth)
	s.log.Debug("task queued", "task_id", h.id, "depth", depth)

	if start {
		go s.drain()
	}
	return h
}

// Pending returns the number of queued tasks not yet started.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Active reports whether a drain loop is running.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			s.log.Debug("lane idle")
			return
		}
		t := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		depth := len(s.queue)
		s.mu.Unlock()

		s.observeDepth(depth)
		s.execute(t)

		// Paced after every task, including the last one.
		time.Sleep(s.interval)
	}
}

func (s *Scheduler) execute(t *task) {
	h := t.handle
	h.start()
	s.log.Debug("task started", "task_id", h.id)

	value, err := safeCall(t.op)
	took := time.Since(h.Started())

	if err != nil {
		s.log.Warn("task failed", "task_id", h.id, "took", took, "error", err)
	} else {
		s.log.Debug("task resolved", "task_id", h.id, "took", took)
	}
	if s.obs != nil {
		s.obs.TaskFinished(s.name, took, err)
	}
	h.finish(value, err)
}

func (s *Scheduler) observeDepth(depth int) {
	if s.obs != nil {
		s.obs.QueueDepth(s.name, depth)
	}
}

func safeCall(op Operation) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	return op()
}

func newTaskID() string { return uuid.NewString() }
