package scheduler

import (
	"fmt"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// Trigger fires cycle attempts. Implementations own their timing
// goroutine; the callback passed to Start must return promptly — the
// scheduler's gate walk is quick and an admitted cycle runs on its own
// goroutine, so a trigger never waits on pipeline work.
type Trigger interface {
	// Start begins firing. The callback is invoked once per scheduled
	// firing, from the trigger's goroutine.
	Start(fire func())

	// Stop halts firing and waits for the timing goroutine to exit.
	Stop()

	// Next reports the next firing time, or the zero time when the
	// trigger is stopped or cannot predict one.
	Next() time.Time
}

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
// Exposed so config validation can reject bad expressions at startup
// rather than at first fire.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

// CronTrigger fires on a cron schedule evaluated in UTC. The zero value
// is not usable; construct with NewCronTrigger.
type CronTrigger struct {
	schedule cronlib.Schedule

	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	next    time.Time
}

// NewCronTrigger builds a trigger from a 5-field cron expression or a
// descriptor ("@every 30m", "@daily"). Times are evaluated in UTC to
// match the run-hours window and quota day boundary.
func NewCronTrigger(expr string) (*CronTrigger, error) {
	sched, err := ParseSchedule(expr)
	if err != nil {
		return nil, fmt.Errorf("scheduler: parse cron %q: %w", expr, err)
	}
	return &CronTrigger{
		schedule: sched,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start launches the timer goroutine. Calling Start twice is a no-op.
func (t *CronTrigger) Start(fire func()) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.mu.Unlock()

	t.wg.Add(1)
	go t.loop(fire)
}

// Stop halts the timer goroutine and waits for it to exit. The trigger
// cannot be restarted after Stop.
func (t *CronTrigger) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.mu.Unlock()

	close(t.stopCh)
	t.wg.Wait()
}

// Next returns the next firing time, or the zero time before Start and
// after Stop.
func (t *CronTrigger) Next() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return time.Time{}
	}
	return t.next
}

func (t *CronTrigger) loop(fire func()) {
	defer t.wg.Done()

	for {
		now := time.Now().UTC()
		next := t.schedule.Next(now)
		if next.IsZero() {
			// No future occurrence; nothing left to do.
			return
		}
		t.mu.Lock()
		t.next = next
		t.mu.Unlock()

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-t.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			fire()
		}
	}
}
