// Package trigger drives the dispatcher from its three entry points:
// interactive turns, inbound push notifications, and the periodic
// heartbeat with its scheduled tasks. All trigger work funnels through one
// bounded queue so a burst of webhooks cannot starve the heartbeat loop,
// and a failure inside any job never reaches the loop driver.
package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Job is one unit of trigger work. Jobs in the same lane run strictly in
// order; the semaphore bounds parallelism across lanes.
type Job struct {
	ID      string
	Lane    string
	Do      func(ctx context.Context) error
	OnError func(message string)
}

// NewJob creates a job in the given lane.
func NewJob(lane string, do func(ctx context.Context) error) *Job {
	return &Job{ID: uuid.NewString(), Lane: lane, Do: do}
}

// Queue manages per-lane FIFO channels with a global concurrency
// semaphore. Lanes keep each trigger type sequential with itself
// (interactive turns process in arrival order) while different trigger
// types may overlap in time.
type Queue struct {
	lanes     map[string]chan *Job
	semaphore *semaphore.Weighted
	active    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewQueue creates a Queue allowing up to maxConcurrent jobs across all
// lanes.
func NewQueue(maxConcurrent int64) *Queue {
	return &Queue{
		lanes:     make(map[string]chan *Job),
		semaphore: semaphore.NewWeighted(maxConcurrent),
	}
}

// Start initialises the queue's context. Must be called before Enqueue.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
}

// Stop cancels the queue context, closes all lanes, and waits for
// in-flight jobs to finish.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Lock()
	for _, lane := range q.lanes {
		close(lane)
	}
	q.lanes = make(map[string]chan *Job)
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue adds a job to its lane, creating the lane on first use.
// Returns an error if the lane's buffer is full.
func (q *Queue) Enqueue(job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	lane, exists := q.lanes[job.Lane]
	if !exists {
		lane = make(chan *Job, 100)
		q.lanes[job.Lane] = lane
		q.wg.Add(1)
		go q.drainLane(lane)
	}

	select {
	case lane <- job:
		return nil
	default:
		return fmt.Errorf("queue full for lane %s", job.Lane)
	}
}

// drainLane processes one lane's jobs sequentially, acquiring a semaphore
// slot per job. A job error is logged and reported through the job's
// OnError hook; it never escapes the lane goroutine.
func (q *Queue) drainLane(lane chan *Job) {
	defer q.wg.Done()
	for {
		select {
		case job, ok := <-lane:
			if !ok {
				return
			}
			if err := q.semaphore.Acquire(q.ctx, 1); err != nil {
				return
			}
			q.active.Add(1)
			if err := job.Do(q.ctx); err != nil {
				slog.Error("trigger job failed", "job_id", job.ID, "lane", job.Lane, "error", err)
				if job.OnError != nil {
					job.OnError("Sorry, something went wrong handling that. Please try again.")
				}
			}
			q.active.Add(-1)
			q.semaphore.Release(1)
		case <-q.ctx.Done():
			return
		}
	}
}

// WaitIdle blocks until no jobs are being processed, or the timeout
// expires. Returns true if idle, false if timed out.
func (q *Queue) WaitIdle(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if q.active.Load() == 0 {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}
