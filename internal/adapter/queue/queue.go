package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var logger = log.WithField("package", "queue")

const (
	defaultMaxAttempts = 3
	defaultSoftTimeout = 5 * time.Minute
	defaultHardTimeout = 6 * time.Minute

	pollInterval = 500 * time.Millisecond
)

// Handler processes one dequeued task. Returning an error that implements
// Retryable() bool controls whether another attempt is scheduled; errors
// without that method are treated as retryable.
type Handler func(ctx context.Context, task Task) error

// retryClassifier mirrors the error capability the handlers attach to
// permanent failures.
type retryClassifier interface {
	Retryable() bool
}

// Options tune the queue. Zero values fall back to the defaults.
type Options struct {
	MaxAttempts int
	SoftTimeout time.Duration
	HardTimeout time.Duration
	Retry       RetryConfig
}

// Queue is a durable FIFO work queue backed by SQLite. A single worker
// drains it, so two reviews never run concurrently and ordering follows
// insertion order.
type Queue struct {
	db      *gorm.DB
	handler Handler

	maxAttempts int
	softTimeout time.Duration
	hardTimeout time.Duration
	retry       RetryConfig

	now func() time.Time
}

// Open creates or opens the task database at path and prepares the schema.
func Open(path string, handler Handler, opts Options) (*Queue, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open task database: %w", err)
	}
	if err := db.AutoMigrate(&Task{}); err != nil {
		return nil, fmt.Errorf("migrate task schema: %w", err)
	}
	return New(db, handler, opts), nil
}

// New builds a Queue on an existing gorm handle.
func New(db *gorm.DB, handler Handler, opts Options) *Queue {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.SoftTimeout <= 0 {
		opts.SoftTimeout = defaultSoftTimeout
	}
	if opts.HardTimeout <= 0 {
		opts.HardTimeout = defaultHardTimeout
	}
	if opts.Retry == (RetryConfig{}) {
		opts.Retry = DefaultRetryConfig()
	}
	return &Queue{
		db:          db,
		handler:     handler,
		maxAttempts: opts.MaxAttempts,
		softTimeout: opts.SoftTimeout,
		hardTimeout: opts.HardTimeout,
		retry:       opts.Retry,
		now:         time.Now,
	}
}

// SetNowFunc replaces the clock, for tests.
func (q *Queue) SetNowFunc(now func() time.Time) {
	q.now = now
}

// Enqueue persists a task and returns its id. The task becomes visible to
// the worker immediately.
func (q *Queue) Enqueue(ctx context.Context, kind string, payload []byte) (string, error) {
	task := Task{
		ID:      uuid.NewString(),
		Kind:    kind,
		Payload: payload,
		Status:  StatusPending,
	}
	if err := q.db.WithContext(ctx).Create(&task).Error; err != nil {
		return "", fmt.Errorf("enqueue %s task: %w", kind, err)
	}
	logger.WithFields(log.Fields{"task": task.ID, "kind": kind}).Info("task enqueued")
	return task.ID, nil
}

// Run drains the queue until the context is cancelled. It first requeues
// tasks left in running state by a previous crash: work is acknowledged
// only after the handler returns, so an interrupted task runs again.
func (q *Queue) Run(ctx context.Context) error {
	if err := q.requeueStale(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				processed, err := q.ProcessNext(ctx)
				if err != nil {
					logger.WithError(err).Error("queue processing error")
					break
				}
				if !processed {
					break
				}
			}
		}
	}
}

// requeueStale returns tasks stuck in running state to the queue.
func (q *Queue) requeueStale(ctx context.Context) error {
	result := q.db.WithContext(ctx).Model(&Task{}).
		Where("status = ?", StatusRunning).
		Updates(map[string]any{"status": StatusPending, "next_retry_at": nil})
	if result.Error != nil {
		return fmt.Errorf("requeue stale tasks: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		logger.WithField("count", result.RowsAffected).
			Warn("requeued tasks interrupted by previous shutdown")
	}
	return nil
}

// ProcessNext takes the oldest due task and runs it through the handler.
// It reports whether a task was processed.
func (q *Queue) ProcessNext(ctx context.Context) (bool, error) {
	var task Task
	err := q.db.WithContext(ctx).
		Where("status = ?", StatusPending).
		Where("next_retry_at IS NULL OR next_retry_at <= ?", q.now()).
		Order("created_at asc").
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fetch next task: %w", err)
	}

	task.Status = StatusRunning
	task.Attempts++
	if err := q.db.WithContext(ctx).Save(&task).Error; err != nil {
		return false, fmt.Errorf("claim task %s: %w", task.ID, err)
	}

	handlerErr := q.execute(ctx, task)
	if handlerErr == nil {
		task.Status = StatusSucceeded
		task.LastError = ""
		task.NextRetryAt = nil
		if err := q.db.WithContext(ctx).Save(&task).Error; err != nil {
			return false, fmt.Errorf("ack task %s: %w", task.ID, err)
		}
		logger.WithField("task", task.ID).Info("task succeeded")
		return true, nil
	}

	return true, q.recordFailure(ctx, task, handlerErr)
}

// execute runs the handler under the hard timeout, logging a warning when
// the soft timeout passes.
func (q *Queue) execute(ctx context.Context, task Task) error {
	runCtx, cancel := context.WithTimeout(ctx, q.hardTimeout)
	defer cancel()

	softTimer := time.AfterFunc(q.softTimeout, func() {
		logger.WithFields(log.Fields{
			"task":    task.ID,
			"elapsed": q.softTimeout,
		}).Warn("task exceeded soft time limit")
	})
	defer softTimer.Stop()

	return q.handler(runCtx, task)
}

// recordFailure schedules a retry or marks the task failed for good.
func (q *Queue) recordFailure(ctx context.Context, task Task, handlerErr error) error {
	retryable := true
	var rc retryClassifier
	if errors.As(handlerErr, &rc) {
		retryable = rc.Retryable()
	}

	task.LastError = handlerErr.Error()

	if !retryable || task.Attempts >= q.maxAttempts {
		task.Status = StatusFailed
		task.NextRetryAt = nil
		if err := q.db.WithContext(ctx).Save(&task).Error; err != nil {
			return fmt.Errorf("mark task %s failed: %w", task.ID, err)
		}
		logger.WithFields(log.Fields{
			"task":      task.ID,
			"attempts":  task.Attempts,
			"retryable": retryable,
		}).WithError(handlerErr).Error("task failed permanently")
		return nil
	}

	delay := Backoff(task.Attempts-1, q.retry)
	next := q.now().Add(delay)
	task.Status = StatusPending
	task.NextRetryAt = &next
	if err := q.db.WithContext(ctx).Save(&task).Error; err != nil {
		return fmt.Errorf("schedule retry for task %s: %w", task.ID, err)
	}
	logger.WithFields(log.Fields{
		"task":    task.ID,
		"attempt": task.Attempts,
		"delay":   delay,
	}).WithError(handlerErr).Warn("task failed, retry scheduled")
	return nil
}
