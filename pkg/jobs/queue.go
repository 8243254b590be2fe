package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when the buffer has no room for another job.
	ErrQueueFull = errors.New("queue full")
	// ErrQueueStopped is returned by Enqueue before Start or after Stop.
	ErrQueueStopped = errors.New("queue stopped")
)

// Handler processes one payload.
type Handler[T any] func(ctx context.Context, payload T) error

// Config configures worker pool behaviour.
type Config struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	// HandlerTimeout bounds a single attempt.
	HandlerTimeout time.Duration
	Logger         *zap.Logger
}

type job[T any] struct {
	payload T
	attempt int
}

// Queue is an in-memory dispatcher for fire-and-forget work. Enqueue never
// blocks; Stop drains whatever is buffered before returning.
type Queue[T any] struct {
	name    string
	handler Handler[T]
	cfg     Config
	logger  *zap.Logger

	jobs chan job[T]
	wg   sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool
}

// NewQueue builds a queue that hands payloads to handler.
func NewQueue[T any](name string, handler Handler[T], cfg Config) *Queue[T] {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 64
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue[T]{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.String("queue", name)),
		jobs:    make(chan job[T], cfg.BufferSize),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (q *Queue[T]) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.stopped {
		return
	}
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop refuses new payloads, processes the buffered ones and waits for the
// workers, or gives up when ctx ends first.
func (q *Queue[T]) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.stopped = true
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.logger.Info("queue stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue %s: %w", q.name, ctx.Err())
	}
}

// Enqueue buffers payload for the workers.
func (q *Queue[T]) Enqueue(payload T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.started || q.stopped {
		return ErrQueueStopped
	}
	select {
	case q.jobs <- job[T]{payload: payload}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Len reports the number of buffered payloads.
func (q *Queue[T]) Len() int {
	return len(q.jobs)
}

func (q *Queue[T]) worker() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.process(j)
	}
}

// process retries inline so that Stop can account for every attempt.
func (q *Queue[T]) process(j job[T]) {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), q.cfg.HandlerTimeout)
		err := q.handler(ctx, j.payload)
		cancel()
		if err == nil {
			return
		}
		j.attempt++
		if j.attempt > q.cfg.MaxRetries {
			q.logger.Error("job exceeded retries", zap.Int("attempts", j.attempt), zap.Error(err))
			return
		}
		q.logger.Warn("job failed, retrying", zap.Int("attempt", j.attempt), zap.Error(err))
		time.Sleep(q.cfg.RetryDelay)
	}
}
