package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/worker/domain"
)

// Handler runs one job message
type Handler func(ctx context.Context, msg *domain.JobMessage) error

// Pool is a fixed set of goroutines reading job messages from a buffered channel
type Pool struct {
	id          string
	concurrency int
	jobsChan    chan *domain.JobMessage
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	logger      *slog.Logger
}

// NewPool creates a pool; nothing runs until Start
func NewPool(id string, concurrency, queueSize int, logger *slog.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	return &Pool{
		id:          id,
		concurrency: concurrency,
		jobsChan:    make(chan *domain.JobMessage, queueSize),
		stopChan:    make(chan struct{}),
		logger:      logger,
	}
}

// Start spawns the worker goroutines
func (p *Pool) Start(ctx context.Context, handler Handler) {
	p.logger.Info("Spawning worker pool",
		slog.Int("concurrency", p.concurrency),
		slog.String("pool_id", p.id),
	)

	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.workerLoop(ctx, i, handler)
	}
}

// Submit hands msg to the pool, blocking while the buffer is full
func (p *Pool) Submit(ctx context.Context, msg *domain.JobMessage) error {
	select {
	case <-p.stopChan:
		return domain.ErrPoolStopped
	default:
	}

	select {
	case p.jobsChan <- msg:
		return nil
	case <-p.stopChan:
		return domain.ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue hands msg to the pool without blocking the caller. When the buffer
// is full the send is parked on its own goroutine until a worker frees a slot.
func (p *Pool) Enqueue(msg *domain.JobMessage) error {
	select {
	case <-p.stopChan:
		return domain.ErrPoolStopped
	case p.jobsChan <- msg:
		return nil
	default:
	}

	p.logger.Warn("Worker pool buffer full, parking job",
		slog.String("job_id", msg.JobID),
	)

	go func() {
		select {
		case p.jobsChan <- msg:
		case <-p.stopChan:
			p.logger.Warn("Parked job dropped - pool stopped",
				slog.String("job_id", msg.JobID),
			)
		}
	}()

	return nil
}

// Stop signals workers to exit and waits up to timeout for in-flight jobs
func (p *Pool) Stop(timeout time.Duration) error {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Worker pool stopped", slog.String("pool_id", p.id))
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("worker pool did not stop within %s", timeout)
	}
}

// Drain stops the pool and waits up to timeout for in-flight runs, which keep
// their context meanwhile. Runs still going after that get abort called.
func (p *Pool) Drain(timeout time.Duration, abort context.CancelFunc) error {
	err := p.Stop(timeout)
	if err != nil && abort != nil {
		abort()
	}
	return err
}

// workerLoop is the main processing loop for each worker goroutine
func (p *Pool) workerLoop(ctx context.Context, workerNum int, handler Handler) {
	defer p.wg.Done()

	workerName := fmt.Sprintf("%s-%d", p.id, workerNum)
	p.logger.Debug("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-p.stopChan:
			p.logger.Debug("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			p.logger.Debug("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case msg := <-p.jobsChan:
			p.logger.Info("Worker received job",
				slog.String("worker_name", workerName),
				slog.String("job_id", msg.JobID),
			)

			start := time.Now()
			if err := handler(ctx, msg); err != nil {
				p.logger.Error("Job handler failed",
					slog.String("worker_name", workerName),
					slog.String("job_id", msg.JobID),
					slog.Any("error", err),
				)
				continue
			}

			p.logger.Info("Job finished",
				slog.String("worker_name", workerName),
				slog.String("job_id", msg.JobID),
				slog.Duration("elapsed", time.Since(start)),
			)
		}
	}
}
