// Package schedule runs deferred one-shot tasks, such as invite expiry notices,
// on a small worker pool. Tasks are never retried: a failure is logged and counted.
package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/invitebot/core/logger"
)

// ErrClosed is returned when a task is scheduled after Close.
var ErrClosed = errors.New("schedule: scheduler closed")

// Task is the deferred unit of work. ctx carries the request logging metadata
// and is bounded by Options.MaxDuration.
type Task func(ctx context.Context) error

// Options controls the scheduler.
type Options struct {
	Workers   int
	QueueSize int
	// MaxDuration bounds a single task run.
	MaxDuration time.Duration
}

type job struct {
	id   string
	name string
	ctx  context.Context
	run  Task
}

// Scheduler fires tasks after a delay. There is no per-task cancellation;
// Close drops whatever has not fired yet.
type Scheduler struct {
	opts Options
	jobs chan job
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
	errs atomic.Uint64

	mu     sync.Mutex
	closed bool
	timers map[string]*time.Timer
}

// New starts a scheduler with sane defaults if options are zeroed.
func New(opts Options) *Scheduler {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 15 * time.Second
	}

	s := &Scheduler{
		opts:   opts,
		jobs:   make(chan job, opts.QueueSize),
		stop:   make(chan struct{}),
		timers: make(map[string]*time.Timer),
	}
	s.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go s.worker()
	}
	return s
}

// After schedules run to fire once delay has elapsed and returns the task id.
// Cancellation of ctx does not cancel the task; only its values are kept.
func (s *Scheduler) After(ctx context.Context, delay time.Duration, name string, run Task) (string, error) {
	if run == nil {
		return "", errors.New("schedule: nil task")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	j := job{
		id:   uuid.NewString(),
		name: name,
		ctx:  context.WithoutCancel(ctx),
		run:  run,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	s.timers[j.id] = time.AfterFunc(delay, func() { s.fire(j) })

	logger.Debug(ctx, "schedule", "task.scheduled",
		slog.String("task_id", j.id),
		slog.String("op", j.name),
		slog.Duration("delay", delay),
	)
	return j.id, nil
}

// Pending reports the number of tasks whose delay has not elapsed yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// ErrorCount returns the number of failed task runs.
func (s *Scheduler) ErrorCount() uint64 {
	return s.errs.Load()
}

// Close drops pending tasks and waits for running ones to finish.
func (s *Scheduler) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		dropped := 0
		for id, t := range s.timers {
			if t.Stop() {
				dropped++
			}
			delete(s.timers, id)
		}
		s.mu.Unlock()

		close(s.stop)
		s.wg.Wait()
		logger.Info(context.Background(), "schedule", "scheduler.closed",
			slog.Int("count", dropped),
		)
	})
}

func (s *Scheduler) fire(j job) {
	s.mu.Lock()
	delete(s.timers, j.id)
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	select {
	case s.jobs <- j:
	case <-s.stop:
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		select {
		case j := <-s.jobs:
			s.handle(j)
		case <-s.stop:
			return
		}
	}
}

func (s *Scheduler) handle(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, s.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	err := j.run(ctx)
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("task_id", j.id),
		slog.String("op", j.name),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		s.errs.Add(1)
		attrs = append(attrs, slog.String("err", logger.RedactToken(err.Error())))
		logger.LogEvent(ctx, logger.Component("schedule"), slog.LevelError, "task.run", attrs...)
		return
	}
	logger.LogEvent(ctx, logger.Component("schedule"), slog.LevelDebug, "task.run", attrs...)
}
