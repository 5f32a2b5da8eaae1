package station

import (
	"context"
	"time"
)

// Clock is the loop's source of time. Tests substitute a simulated clock.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// SystemClock is the wall clock.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Deadline is a repeating timer that advances from its previous mark, never
// from the current time, so slow iterations do not push the schedule back.
type Deadline struct {
	mark     time.Time
	interval time.Duration
}

// NewDeadline starts counting at start; the first Due is start+interval.
func NewDeadline(start time.Time, interval time.Duration) Deadline {
	return Deadline{mark: start, interval: interval}
}

// Due reports whether at least one interval has passed since the mark.
func (d Deadline) Due(now time.Time) bool {
	return now.Sub(d.mark) >= d.interval
}

// Advance moves the mark forward by exactly one interval.
func (d *Deadline) Advance() {
	d.mark = d.mark.Add(d.interval)
}

// Next is the earliest time Due turns true.
func (d Deadline) Next() time.Time {
	return d.mark.Add(d.interval)
}
