package schedule

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// CronRunner drives entries whose recurrence is a cron expression. Daily
// time-of-day entries stay with Checker; this covers everything the
// five-field syntax can express (weekdays only, every N hours, and so on).
type CronRunner struct {
	cron *cron.Cron
}

// NewCronRunner creates a runner evaluating expressions in loc.
func NewCronRunner(loc *time.Location) *CronRunner {
	if loc == nil {
		loc = time.Local
	}
	return &CronRunner{cron: cron.New(cron.WithLocation(loc))}
}

// Add registers a cron entry. run is invoked on the runner's own
// goroutine at each firing; it must do its own error handling.
func (r *CronRunner) Add(e Entry, run func(Entry)) error {
	if !e.IsCron() {
		return fmt.Errorf("entry %s: recurrence %q is not a cron expression", e.TaskID, e.Recurrence)
	}
	_, err := r.cron.AddFunc(e.Recurrence, func() {
		slog.Info("cron entry firing", "task_id", e.TaskID)
		run(e)
	})
	if err != nil {
		return fmt.Errorf("entry %s: %w", e.TaskID, err)
	}
	return nil
}

// Start begins firing entries in the background.
func (r *CronRunner) Start() {
	r.cron.Start()
}

// Stop stops the runner and waits for in-flight jobs to finish.
func (r *CronRunner) Stop() {
	<-r.cron.Stop().Done()
}
