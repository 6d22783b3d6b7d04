// Package tasks runs fire-and-forget writes off the request path. Secondary
// persistence (weight preferences, note autosave, progression evaluation) is
// enqueued here so a slow or failing write never blocks or rolls back the
// primary operation. Delivery is at-least-once with bounded retry; terminal
// failures are logged and dropped.
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultAttemptTimeout = 10 * time.Second
)

// Task is one unit of background work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Queue is a bounded background task queue with worker goroutines.
type Queue struct {
	tasks       chan Task
	wg          sync.WaitGroup
	maxAttempts int
	retryDelay  time.Duration

	mu      sync.Mutex
	stopped bool
}

// NewQueue creates a queue with the given buffer size and worker count and
// starts the workers. maxAttempts includes the first try; retryDelay separates
// attempts.
func NewQueue(buffer, workers, maxAttempts int, retryDelay time.Duration) *Queue {
	if buffer <= 0 {
		buffer = 64
	}
	if workers <= 0 {
		workers = 1
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	q := &Queue{
		tasks:       make(chan Task, buffer),
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Enqueue submits a task without blocking. It returns false when the queue is
// full or already stopped; the caller logs and moves on, because background
// work is best-effort.
func (q *Queue) Enqueue(name string, run func(ctx context.Context) error) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return false
	}
	select {
	case q.tasks <- Task{Name: name, Run: run}:
		return true
	default:
		logrus.WithField("task", name).Warn("background queue full, dropping task")
		return false
	}
}

// Close stops accepting new tasks and waits for the workers to drain what is
// already queued, up to the context deadline.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	close(q.tasks)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for task := range q.tasks {
		q.execute(task)
	}
}

func (q *Queue) execute(task Task) {
	var err error
	for attempt := 1; attempt <= q.maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), defaultAttemptTimeout)
		err = task.Run(ctx)
		cancel()
		if err == nil {
			return
		}
		if attempt < q.maxAttempts {
			logrus.WithFields(logrus.Fields{
				"task":    task.Name,
				"attempt": attempt,
			}).WithError(err).Debug("background task failed, retrying")
			time.Sleep(q.retryDelay)
		}
	}
	logrus.WithFields(logrus.Fields{
		"task":     task.Name,
		"attempts": q.maxAttempts,
	}).WithError(err).Error("background task failed permanently")
}
