package worker

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Task is one running job
type Task struct {
	JobID     string
	StartedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// Done is closed when the run finishes
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Registry tracks running jobs by id so they can be inspected or canceled
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*Task
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]*Task),
		now:   time.Now,
	}
}

// Start registers jobID and returns a context canceled by Cancel(jobID)
func (r *Registry) Start(ctx context.Context, jobID string) (context.Context, *Task) {
	ctx, cancel := context.WithCancel(ctx)
	task := &Task{
		JobID:     jobID,
		StartedAt: r.now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	r.mu.Lock()
	r.tasks[jobID] = task
	r.mu.Unlock()

	return ctx, task
}

// Finish releases the task; a newer task registered under the same id is kept
func (r *Registry) Finish(task *Task) {
	r.mu.Lock()
	if current, ok := r.tasks[task.JobID]; ok && current == task {
		delete(r.tasks, task.JobID)
	}
	r.mu.Unlock()

	task.cancel()
	close(task.done)
}

// Cancel stops the run of jobID, reporting whether one was running
func (r *Registry) Cancel(jobID string) bool {
	r.mu.Lock()
	task, ok := r.tasks[jobID]
	r.mu.Unlock()

	if !ok {
		return false
	}
	task.cancel()
	return true
}

// Get returns the running task for jobID
func (r *Registry) Get(jobID string) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[jobID]
	return task, ok
}

// Running lists the ids of running jobs, sorted
func (r *Registry) Running() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.tasks))
	for id := range r.tasks {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	sort.Strings(ids)
	return ids
}
