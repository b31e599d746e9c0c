package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

var (
	ErrOutboxFull   = errors.New("notification outbox is full")
	ErrOutboxClosed = errors.New("notification outbox is closed")
)

// Job is a queued notice.
type Job struct {
	ID         string
	Type       NoticeType
	Data       NotificationData
	EnqueuedAt time.Time
}

// ResultFunc observes the final outcome of a job. err is nil on delivery.
type ResultFunc func(job Job, attempts int, err error)

// Outbox delivers notices in the background so callers never wait on the
// email provider. Failed sends are retried with exponential backoff.
type Outbox struct {
	manager         *NotificationManager
	jobs            chan Job
	workers         int
	maxRetries      uint64
	initialInterval time.Duration
	sendTimeout     time.Duration
	onResult        ResultFunc

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

type OutboxOption func(*Outbox)

func WithWorkers(n int) OutboxOption {
	return func(o *Outbox) {
		if n > 0 {
			o.workers = n
		}
	}
}

func WithQueueSize(n int) OutboxOption {
	return func(o *Outbox) {
		if n > 0 {
			o.jobs = make(chan Job, n)
		}
	}
}

// WithRetry sets how many times a failed send is retried and the first delay.
func WithRetry(maxRetries uint64, initialInterval time.Duration) OutboxOption {
	return func(o *Outbox) {
		o.maxRetries = maxRetries
		if initialInterval > 0 {
			o.initialInterval = initialInterval
		}
	}
}

func WithSendTimeout(d time.Duration) OutboxOption {
	return func(o *Outbox) {
		if d > 0 {
			o.sendTimeout = d
		}
	}
}

func WithResultHook(fn ResultFunc) OutboxOption {
	return func(o *Outbox) {
		o.onResult = fn
	}
}

// NewOutbox starts the delivery workers.
func NewOutbox(manager *NotificationManager, opts ...OutboxOption) *Outbox {
	o := &Outbox{
		manager:         manager,
		jobs:            make(chan Job, 256),
		workers:         2,
		maxRetries:      4,
		initialInterval: 500 * time.Millisecond,
		sendTimeout:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.ctx, o.cancel = context.WithCancel(context.Background())

	for i := 0; i < o.workers; i++ {
		o.wg.Add(1)
		go o.run()
	}
	return o
}

// Enqueue schedules a notice and returns its job id. It never blocks.
func (o *Outbox) Enqueue(noticeType NoticeType, data NotificationData) (string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return "", ErrOutboxClosed
	}

	job := Job{
		ID:         uuid.NewString(),
		Type:       noticeType,
		Data:       data,
		EnqueuedAt: time.Now().UTC(),
	}
	select {
	case o.jobs <- job:
		slog.Debug("Notice queued", "job_id", job.ID, "type", noticeType, "to", data.To)
		return job.ID, nil
	default:
		return "", ErrOutboxFull
	}
}

// Close stops accepting jobs and waits for queued ones to finish. If ctx ends
// first, in-flight retries are abandoned.
func (o *Outbox) Close(ctx context.Context) error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.jobs)
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.cancel()
		return nil
	case <-ctx.Done():
		o.cancel()
		<-done
		return ctx.Err()
	}
}

func (o *Outbox) run() {
	defer o.wg.Done()
	for job := range o.jobs {
		attempts, err := o.deliver(job)
		if err != nil {
			slog.Error("Notice delivery failed", "job_id", job.ID, "type", job.Type, "to", job.Data.To, "attempts", attempts, "err", err)
		} else {
			slog.Info("Notice delivered", "job_id", job.ID, "type", job.Type, "to", job.Data.To, "attempts", attempts)
		}
		if o.onResult != nil {
			o.onResult(job, attempts, err)
		}
	}
}

func (o *Outbox) deliver(job Job) (int, error) {
	email, err := o.manager.Render(job.Type, job.Data)
	if err != nil {
		return 0, fmt.Errorf("render: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.initialInterval
	b.MaxElapsedTime = 0

	attempts := 0
	op := func() error {
		attempts++
		ctx, cancel := context.WithTimeout(o.ctx, o.sendTimeout)
		defer cancel()
		if err := o.manager.notifier.Send(ctx, email); err != nil {
			if o.ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			slog.Warn("Notice send attempt failed", "job_id", job.ID, "attempt", attempts, "err", err)
			return err
		}
		return nil
	}

	err = backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, o.maxRetries), o.ctx))
	return attempts, err
}
