package scheduler

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseSchedule_FiveField(t *testing.T) {
	t.Parallel()

	sched, err := ParseSchedule("30 2 * * *")
	if err != nil {
		t.Fatalf("ParseSchedule: %v", err)
	}

	from := time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC)
	next := sched.Next(from)
	want := time.Date(2026, 3, 15, 2, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Next(%v) = %v, want %v", from, next, want)
	}
}

func TestParseSchedule_Descriptor(t *testing.T) {
	t.Parallel()

	sched, err := ParseSchedule("@every 15m")
	if err != nil {
		t.Fatalf("ParseSchedule: %v", err)
	}

	from := time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)
	if got := sched.Next(from).Sub(from); got != 15*time.Minute {
		t.Errorf("Next spacing = %v, want 15m", got)
	}
}

func TestParseSchedule_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := ParseSchedule("every day at noon"); err == nil {
		t.Fatal("ParseSchedule accepted a malformed expression")
	}
}

func TestNewCronTrigger_BadExpression(t *testing.T) {
	t.Parallel()

	_, err := NewCronTrigger("61 * * * *")
	if err == nil {
		t.Fatal("NewCronTrigger accepted an out-of-range minute field")
	}
	if !strings.Contains(err.Error(), "parse cron") {
		t.Errorf("error = %q, want mention of parse cron", err)
	}
}

func TestCronTrigger_FiresOnSchedule(t *testing.T) {
	t.Parallel()

	trig, err := NewCronTrigger("@every 10ms")
	if err != nil {
		t.Fatalf("NewCronTrigger: %v", err)
	}

	var fires atomic.Int32
	trig.Start(func() { fires.Add(1) })
	defer trig.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for fires.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := fires.Load(); got < 2 {
		t.Fatalf("got %d fires within 2s, want at least 2", got)
	}
}

func TestCronTrigger_StopHaltsFiring(t *testing.T) {
	t.Parallel()

	trig, err := NewCronTrigger("@every 5ms")
	if err != nil {
		t.Fatalf("NewCronTrigger: %v", err)
	}

	var fires atomic.Int32
	trig.Start(func() { fires.Add(1) })

	deadline := time.Now().Add(2 * time.Second)
	for fires.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	trig.Stop()

	after := fires.Load()
	if after == 0 {
		t.Fatal("trigger never fired before Stop")
	}
	time.Sleep(50 * time.Millisecond)
	if got := fires.Load(); got != after {
		t.Errorf("fires went from %d to %d after Stop", after, got)
	}
}

func TestCronTrigger_NextReportsUpcomingFire(t *testing.T) {
	t.Parallel()

	trig, err := NewCronTrigger("@every 1h")
	if err != nil {
		t.Fatalf("NewCronTrigger: %v", err)
	}

	if got := trig.Next(); !got.IsZero() {
		t.Errorf("Next() before Start = %v, want zero", got)
	}

	trig.Start(func() {})

	var next time.Time
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if next = trig.Next(); !next.IsZero() {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if next.IsZero() {
		t.Fatal("Next() stayed zero after Start")
	}
	if until := time.Until(next); until <= 0 || until > time.Hour {
		t.Errorf("Next() = %v away, want within the coming hour", until)
	}

	trig.Stop()
	if got := trig.Next(); !got.IsZero() {
		t.Errorf("Next() after Stop = %v, want zero", got)
	}
}

func TestCronTrigger_StartTwiceIsNoOp(t *testing.T) {
	t.Parallel()

	trig, err := NewCronTrigger("@every 10ms")
	if err != nil {
		t.Fatalf("NewCronTrigger: %v", err)
	}

	var fires atomic.Int32
	trig.Start(func() { fires.Add(1) })
	trig.Start(func() { fires.Add(100) })

	deadline := time.Now().Add(2 * time.Second)
	for fires.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	trig.Stop()

	// The second Start must not have armed a second loop: only the
	// first callback increments by one, so any +100 jump betrays it.
	if got := fires.Load(); got == 0 {
		t.Error("trigger never fired")
	} else if got >= 100 {
		t.Errorf("fires = %d, second Start callback ran", got)
	}
}
