package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quilldocs/quill-api/internal/domain"
	"github.com/quilldocs/quill-api/internal/store"
)

// hardTimeoutMessage is the error message persisted when the watchdog
// force-fails a task whose pipeline never returned.
const hardTimeoutMessage = "Task exceeded the hard time limit."

// forceFailTimeout bounds the terminal write issued by the watchdog.
const forceFailTimeout = 30 * time.Second

// Processor drives one queued task to a terminal state.
type Processor interface {
	Process(ctx context.Context, task *domain.Task) error
}

// RunnerConfig tunes the worker pool.
type RunnerConfig struct {
	// WorkerCount is the number of concurrent workers.
	WorkerCount int

	// QueueSize is the capacity of the submission queue. Enqueue fails
	// fast when it is full.
	QueueSize int

	// SoftTimeLimit cancels the task's context, giving the pipeline a
	// chance to stop cleanly and record a timeout failure.
	SoftTimeLimit time.Duration

	// HardTimeLimit is the point at which the watchdog stops waiting
	// for the pipeline and force-fails the task.
	HardTimeLimit time.Duration

	// MaxTasksPerWorker recycles a worker goroutine after it has
	// handled this many tasks.
	MaxTasksPerWorker int

	// StuckAge is how old a pending or processing row must be before
	// the periodic sweep requeues it.
	StuckAge time.Duration

	// StuckCheckInterval is how often the sweep runs.
	StuckCheckInterval time.Duration
}

// DefaultRunnerConfig returns the production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:        4,
		QueueSize:          100,
		SoftTimeLimit:      25 * time.Minute,
		HardTimeLimit:      30 * time.Minute,
		MaxTasksPerWorker:  50,
		StuckAge:           30 * time.Minute,
		StuckCheckInterval: 5 * time.Minute,
	}
}

// normalize replaces non-positive fields with their defaults.
func (c RunnerConfig) normalize() RunnerConfig {
	def := DefaultRunnerConfig()
	if c.WorkerCount <= 0 {
		c.WorkerCount = def.WorkerCount
	}
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	if c.SoftTimeLimit <= 0 {
		c.SoftTimeLimit = def.SoftTimeLimit
	}
	if c.HardTimeLimit <= 0 {
		c.HardTimeLimit = def.HardTimeLimit
	}
	if c.HardTimeLimit < c.SoftTimeLimit {
		c.HardTimeLimit = c.SoftTimeLimit
	}
	if c.MaxTasksPerWorker <= 0 {
		c.MaxTasksPerWorker = def.MaxTasksPerWorker
	}
	if c.StuckAge <= 0 {
		c.StuckAge = def.StuckAge
	}
	if c.StuckCheckInterval <= 0 {
		c.StuckCheckInterval = def.StuckCheckInterval
	}
	return c
}

// Runner owns the submission queue and the pool of workers that drain
// it. It also runs the periodic sweep that requeues stalled tasks and
// the startup recovery that resubmits work a previous process left
// behind.
type Runner struct {
	store     store.TaskStore
	processor Processor
	config    RunnerConfig
	logger    *slog.Logger

	taskChan chan *domain.Task
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	workerID atomic.Int64
}

// NewRunner creates a Runner, validating its collaborators and filling
// in defaults for any unset config fields.
func NewRunner(taskStore store.TaskStore, processor Processor, cfg RunnerConfig, log *slog.Logger) (*Runner, error) {
	if taskStore == nil {
		return nil, ErrNilTaskStore
	}
	if processor == nil {
		return nil, ErrNilProcessor
	}
	if log == nil {
		return nil, ErrNilLogger
	}

	cfg = cfg.normalize()
	return &Runner{
		store:     taskStore,
		processor: processor,
		config:    cfg,
		logger:    log.With(slog.String("component", "task_runner")),
		taskChan:  make(chan *domain.Task, cfg.QueueSize),
	}, nil
}

// Start recovers work left behind by a previous process, then launches
// the workers and the stalled-task sweep. It must be called once.
func (r *Runner) Start() {
	r.ctx, r.cancel = context.WithCancel(context.Background())

	// Recovery runs before any worker exists so the reset cannot catch
	// a row claimed by this process.
	r.recoverTasks()

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.runWorker(r.workerID.Add(1))
	}

	r.wg.Add(1)
	go r.watchStuck()

	r.logger.Info("task runner started",
		slog.Int("worker_count", r.config.WorkerCount),
		slog.Int("queue_size", r.config.QueueSize),
	)
}

// Stop cancels in-flight work and waits for every worker to exit.
// Tasks interrupted mid-pipeline stay in processing and are requeued by
// the next startup recovery.
func (r *Runner) Stop() {
	r.cancel()
	r.wg.Wait()
	r.logger.Info("task runner stopped")
}

// Enqueue hands a pending task to the pool without blocking. When the
// queue is full it returns ErrQueueFull; the row stays pending and the
// periodic sweep resubmits it once it is old enough.
func (r *Runner) Enqueue(task *domain.Task) error {
	select {
	case r.taskChan <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// recoverTasks requeues rows stranded by a previous process: pending
// rows that never reached a worker and processing rows whose worker
// died. Anything that does not fit in the queue stays put for the
// sweep.
func (r *Runner) recoverTasks() {
	pending, err := r.store.ListPending(r.ctx, 0)
	if err != nil {
		r.logger.Error("failed to list pending tasks for recovery", slog.String("error", err.Error()))
	}
	requeued := 0
	for _, t := range pending {
		if r.Enqueue(t) == nil {
			requeued++
		}
	}

	// Every row still in processing at startup is orphaned, so reset
	// them all regardless of age.
	reset, err := r.store.ResetStuck(r.ctx, time.Now().UTC())
	if err != nil {
		r.logger.Error("failed to reset interrupted tasks", slog.String("error", err.Error()))
	}
	for _, t := range reset {
		if r.Enqueue(t) == nil {
			requeued++
		}
	}

	if requeued > 0 {
		r.logger.Info("recovered unfinished tasks", slog.Int("count", requeued))
	}
}

// runWorker drains the queue until the runner stops, recycling itself
// after MaxTasksPerWorker tasks.
func (r *Runner) runWorker(id int64) {
	defer r.wg.Done()

	log := r.logger.With(slog.Int64("worker_id", id))
	log.Debug("worker started")

	handled := 0
	for {
		select {
		case <-r.ctx.Done():
			log.Debug("worker stopping")
			return
		case task := <-r.taskChan:
			r.runTask(task)
			handled++
			if handled >= r.config.MaxTasksPerWorker {
				log.Debug("worker recycling", slog.Int("tasks_handled", handled))
				r.spawnReplacement()
				return
			}
		}
	}
}

// spawnReplacement starts a fresh worker in place of a recycled one.
// The caller has not released its own WaitGroup slot yet, so adding
// here never races with Stop.
func (r *Runner) spawnReplacement() {
	if r.ctx.Err() != nil {
		return
	}
	r.wg.Add(1)
	go r.runWorker(r.workerID.Add(1))
}

// runTask executes one task under the soft time limit while the
// watchdog enforces the hard one.
func (r *Runner) runTask(task *domain.Task) {
	softCtx, cancel := context.WithTimeout(r.ctx, r.config.SoftTimeLimit)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- r.processor.Process(softCtx, task)
	}()

	hardTimer := time.NewTimer(r.config.HardTimeLimit)
	defer hardTimer.Stop()

	select {
	case err := <-done:
		if err != nil {
			r.logger.Error("task processing failed",
				slog.String("task_id", task.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	case <-hardTimer.C:
		cancel()
		r.forceFail(task)
	}
}

// forceFail records the hard-limit failure for a task whose pipeline
// never returned. The pipeline goroutine may still be running; its late
// terminal write is rejected by the processing-status guard.
func (r *Runner) forceFail(task *domain.Task) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), forceFailTimeout)
	defer cancel()

	if err := r.store.MarkFailed(ctx, task.ID, hardTimeoutMessage); err != nil && !errors.Is(err, store.ErrTaskNotProcessing) {
		r.logger.Error("failed to record hard timeout",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	r.logger.Error("task exceeded hard time limit", slog.String("task_id", task.ID.String()))
}

// watchStuck periodically requeues stalled tasks until the runner
// stops.
func (r *Runner) watchStuck() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.sweepStalled()
		}
	}
}

// sweepStalled requeues two kinds of stalled work: processing rows
// older than StuckAge, whose worker likely died, and pending rows older
// than StuckAge, which were submitted while the queue was full. A row
// requeued twice is handled once; the claim update skips duplicates.
func (r *Runner) sweepStalled() {
	cutoff := time.Now().UTC().Add(-r.config.StuckAge)

	reset, err := r.store.ResetStuck(r.ctx, cutoff)
	if err != nil {
		r.logger.Error("failed to reset stuck tasks", slog.String("error", err.Error()))
	}
	requeued := 0
	for _, t := range reset {
		if r.Enqueue(t) == nil {
			requeued++
		}
	}

	pending, err := r.store.ListPending(r.ctx, r.config.QueueSize)
	if err != nil {
		r.logger.Error("failed to list pending tasks for sweep", slog.String("error", err.Error()))
	}
	for _, t := range pending {
		if t.CreatedAt.After(cutoff) {
			continue
		}
		if r.Enqueue(t) == nil {
			requeued++
		}
	}

	if requeued > 0 {
		r.logger.Warn("requeued stalled tasks", slog.Int("count", requeued))
	}
}
