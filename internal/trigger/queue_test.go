package trigger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestQueueRunsJobs(t *testing.T) {
	q := NewQueue(2)
	q.Start(context.Background())
	defer q.Stop()

	var mu sync.Mutex
	var ran []string
	job := func(name string) *Job {
		return NewJob("interactive", func(context.Context) error {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
			return nil
		})
	}

	for _, name := range []string{"a", "b", "c"} {
		if err := q.Enqueue(job(name)); err != nil {
			t.Fatal(err)
		}
	}
	if !q.WaitIdle(2 * time.Second) {
		t.Fatal("queue did not drain")
	}

	mu.Lock()
	defer mu.Unlock()
	// Same lane: strict FIFO.
	if len(ran) != 3 || ran[0] != "a" || ran[1] != "b" || ran[2] != "c" {
		t.Errorf("unexpected execution order: %v", ran)
	}
}

func TestQueueJobErrorIsContained(t *testing.T) {
	q := NewQueue(1)
	q.Start(context.Background())
	defer q.Stop()

	var apology string
	done := make(chan struct{})
	failing := NewJob("interactive", func(context.Context) error {
		return fmt.Errorf("boom")
	})
	failing.OnError = func(message string) {
		apology = message
		close(done)
	}

	if err := q.Enqueue(failing); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("OnError was never called")
	}
	if apology == "" || len(apology) > 200 {
		t.Errorf("expected a short generic apology, got %q", apology)
	}

	// The lane keeps working after a failure.
	ok := make(chan struct{})
	next := NewJob("interactive", func(context.Context) error {
		close(ok)
		return nil
	})
	if err := q.Enqueue(next); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ok:
	case <-time.After(2 * time.Second):
		t.Fatal("lane stopped processing after a job failure")
	}
}

func TestQueueLanesRunIndependently(t *testing.T) {
	q := NewQueue(2)
	q.Start(context.Background())
	defer q.Stop()

	blocked := make(chan struct{})
	release := make(chan struct{})
	slow := NewJob("interactive", func(context.Context) error {
		close(blocked)
		<-release
		return nil
	})
	if err := q.Enqueue(slow); err != nil {
		t.Fatal(err)
	}
	<-blocked

	// A heartbeat job runs even while the interactive lane is busy.
	heartbeatRan := make(chan struct{})
	hb := NewJob("heartbeat", func(context.Context) error {
		close(heartbeatRan)
		return nil
	})
	if err := q.Enqueue(hb); err != nil {
		t.Fatal(err)
	}
	select {
	case <-heartbeatRan:
	case <-time.After(2 * time.Second):
		t.Fatal("heartbeat lane blocked behind interactive lane")
	}
	close(release)
}

func TestRetryPolicy(t *testing.T) {
	p := &RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: 10 * time.Millisecond}

	// Transient errors are retried until success.
	attempts := 0
	err := p.Execute(func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("connection refused")
		}
		return nil
	})
	if err != nil || attempts != 3 {
		t.Errorf("expected success on attempt 3, got err=%v attempts=%d", err, attempts)
	}

	// Permanent errors fail immediately.
	attempts = 0
	err = p.Execute(func() error {
		attempts++
		return fmt.Errorf("unauthorized")
	})
	if err == nil || attempts != 1 {
		t.Errorf("expected immediate failure, got err=%v attempts=%d", err, attempts)
	}
}

func TestRetryPolicyBackoffCapped(t *testing.T) {
	p := &RetryPolicy{MaxAttempts: 10, InitialDelay: time.Second, Multiplier: 2, MaxDelay: 5 * time.Second}
	if d := p.NextDelay(1); d != time.Second {
		t.Errorf("first delay = %v", d)
	}
	if d := p.NextDelay(2); d != 2*time.Second {
		t.Errorf("second delay = %v", d)
	}
	if d := p.NextDelay(6); d != 5*time.Second {
		t.Errorf("capped delay = %v", d)
	}
}
