package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/worker/domain"
)

// Dispatcher schedules a created job for background advancement
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID string) error
}

// LocalDispatcher runs jobs on an in-process pool
type LocalDispatcher struct {
	pool *Pool
}

func NewLocalDispatcher(pool *Pool) *LocalDispatcher {
	return &LocalDispatcher{pool: pool}
}

func (d *LocalDispatcher) Dispatch(_ context.Context, jobID string) error {
	return d.pool.Enqueue(&domain.JobMessage{JobID: jobID})
}

// Publisher is the RabbitMQ side of QueueDispatcher
type Publisher interface {
	Publish(ctx context.Context, body []byte, contentType string) error
}

// QueueDispatcher hands jobs to the worker service through RabbitMQ
type QueueDispatcher struct {
	publisher Publisher
}

func NewQueueDispatcher(publisher Publisher) *QueueDispatcher {
	return &QueueDispatcher{publisher: publisher}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, jobID string) error {
	body, err := json.Marshal(domain.JobMessage{JobID: jobID})
	if err != nil {
		return fmt.Errorf("failed to encode job message: %w", err)
	}

	if err := d.publisher.Publish(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}

	return nil
}
