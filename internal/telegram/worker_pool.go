package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/hamyon/hamyon/internal/logger"
	"github.com/hamyon/hamyon/internal/metrics"
)

var (
	ErrQueueFull      = errors.New("worker queue full")
	ErrPoolNotStarted = errors.New("worker pool not started")
)

// UpdateHandler processes one update.
type UpdateHandler func(ctx context.Context, update tgbotapi.Update) error

// WorkerPool runs updates concurrently. Every user is pinned to one worker,
// so a user's updates are handled in the order they arrived.
type WorkerPool struct {
	handler UpdateHandler
	metrics *metrics.MetricsCollector
	queues  []chan job

	// Concurrency control
	maxConcurrentOps int
	ops              *semaphore.Weighted
	jobTimeout       time.Duration

	// Lifecycle management
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.RWMutex
}

type job struct {
	update   tgbotapi.Update
	traceID  string
	queuedAt time.Time
}

// WorkerPoolConfig holds configuration for the worker pool
type WorkerPoolConfig struct {
	Workers          int           // Number of shards, one goroutine each
	QueueSize        int           // Buffered updates per shard
	MaxConcurrentOps int           // Updates allowed to run at once across shards
	JobTimeout       time.Duration // Deadline for a single update
}

// DefaultWorkerPoolConfig returns a sensible default configuration
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		Workers:          8,
		QueueSize:        100,
		MaxConcurrentOps: 20,
		JobTimeout:       2 * time.Minute,
	}
}

func NewWorkerPool(handler UpdateHandler, config WorkerPoolConfig, collector *metrics.MetricsCollector) *WorkerPool {
	defaults := DefaultWorkerPoolConfig()
	if config.Workers < 1 {
		config.Workers = defaults.Workers
	}
	if config.QueueSize < 1 {
		config.QueueSize = defaults.QueueSize
	}
	if config.MaxConcurrentOps < 1 {
		config.MaxConcurrentOps = defaults.MaxConcurrentOps
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaults.JobTimeout
	}

	queues := make([]chan job, config.Workers)
	for i := range queues {
		queues[i] = make(chan job, config.QueueSize)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		handler:          handler,
		metrics:          collector,
		queues:           queues,
		maxConcurrentOps: config.MaxConcurrentOps,
		ops:              semaphore.NewWeighted(int64(config.MaxConcurrentOps)),
		jobTimeout:       config.JobTimeout,
		ctx:              ctx,
		cancel:           cancel,
	}
}

// Start initializes and starts all worker goroutines
func (wp *WorkerPool) Start() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return fmt.Errorf("worker pool already started")
	}

	logger.Info("Starting worker pool", logger.Fields{
		"workers":            len(wp.queues),
		"queue_size":         cap(wp.queues[0]),
		"max_concurrent_ops": wp.maxConcurrentOps,
	})

	for i, q := range wp.queues {
		wp.wg.Add(1)
		go wp.worker(i, q)
	}

	wp.started = true
	return nil
}

// Stop closes the queues and waits for queued updates to finish. In-flight
// handlers are cancelled if they outlive the shutdown timeout. The lock is
// released before draining so GetStats stays responsive.
func (wp *WorkerPool) Stop() error {
	wp.mu.Lock()
	if !wp.started {
		wp.mu.Unlock()
		return ErrPoolNotStarted
	}
	wp.started = false

	logger.InfoMsg("Stopping worker pool...")

	for _, q := range wp.queues {
		close(q)
	}
	wp.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	defer wp.cancel()
	select {
	case <-done:
		logger.InfoMsg("Worker pool stopped gracefully")
		return nil
	case <-time.After(30 * time.Second):
		logger.Warn("Worker pool shutdown timed out", nil)
		return fmt.Errorf("worker pool shutdown timed out")
	}
}

// Submit queues an update on its user's shard. It never blocks; a full
// shard returns ErrQueueFull.
func (wp *WorkerPool) Submit(update tgbotapi.Update) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if !wp.started {
		return ErrPoolNotStarted
	}

	j := job{update: update, traceID: uuid.NewString(), queuedAt: time.Now()}
	q := wp.queues[wp.shard(updateUserID(update))]

	select {
	case q <- j:
		logger.Debug("Update queued", logger.Fields{
			"trace_id":   j.traceID,
			"user_id":    updateUserID(update),
			"kind":       updateKind(update),
			"queue_size": len(q),
		})
		wp.metrics.UpdateWorkerQueueDepth(wp.queued())
		return nil
	default:
		return ErrQueueFull
	}
}

func (wp *WorkerPool) shard(userID int64) int {
	if userID < 0 {
		userID = -userID
	}
	return int(userID % int64(len(wp.queues)))
}

func (wp *WorkerPool) queued() int {
	n := 0
	for _, q := range wp.queues {
		n += len(q)
	}
	return n
}

func (wp *WorkerPool) worker(workerID int, queue <-chan job) {
	defer wp.wg.Done()

	for j := range queue {
		wp.process(workerID, j)
		wp.metrics.UpdateWorkerQueueDepth(wp.queued())
	}

	logger.Debug("Worker stopping", logger.Fields{
		"worker_id": workerID,
	})
}

// process runs one update under the concurrency limit. A panic is logged
// and the worker keeps going.
func (wp *WorkerPool) process(workerID int, j job) {
	kind := updateKind(j.update)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Update handler panic recovered", logger.Fields{
				"worker_id": workerID,
				"trace_id":  j.traceID,
				"panic":     fmt.Sprint(r),
			})
			wp.metrics.RecordUpdate(kind, metrics.StatusPanic, time.Since(start))
		}
	}()

	if err := wp.ops.Acquire(wp.ctx, 1); err != nil {
		return
	}
	defer wp.ops.Release(1)

	ctx, cancel := context.WithTimeout(withTraceID(wp.ctx, j.traceID), wp.jobTimeout)
	defer cancel()

	err := wp.handler(ctx, j.update)

	status := metrics.StatusOK
	fields := logger.Fields{
		"worker_id": workerID,
		"trace_id":  j.traceID,
		"user_id":   updateUserID(j.update),
		"kind":      kind,
		"waited":    start.Sub(j.queuedAt).String(),
		"duration":  time.Since(start).String(),
	}
	if err != nil {
		status = metrics.StatusError
		fields["error"] = err.Error()
		logger.Error("Error processing update", fields)
	} else {
		logger.Debug("Update processed", fields)
	}
	wp.metrics.RecordUpdate(kind, status, time.Since(start))
}

// GetStats returns current worker pool statistics
func (wp *WorkerPool) GetStats() map[string]interface{} {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	return map[string]interface{}{
		"started":            wp.started,
		"workers":            len(wp.queues),
		"queued":             wp.queued(),
		"queue_capacity":     len(wp.queues) * cap(wp.queues[0]),
		"max_concurrent_ops": wp.maxConcurrentOps,
	}
}

type traceKey struct{}

func withTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// traceID returns the ID attached to the update being handled.
func traceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

func updateUserID(update tgbotapi.Update) int64 {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	}
	return 0
}

// updateKind labels an update for metrics.
func updateKind(update tgbotapi.Update) string {
	switch {
	case update.CallbackQuery != nil:
		return "callback"
	case update.Message == nil:
		return "other"
	case update.Message.Voice != nil:
		return "voice"
	case update.Message.IsCommand():
		return "command"
	default:
		return "message"
	}
}
