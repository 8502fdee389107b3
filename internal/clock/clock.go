// Package clock provides the single time abstraction every other
// component reads through, so a replay run is driven by the same code
// path as a live run and nothing reaches for time.Now() directly.
package clock

import (
	"context"
	"sync"
	"time"
)

// IST is the exchange timezone. Every cutover and session boundary in
// probedge is expressed in it.
var IST *time.Location

func init() {
	var err error
	IST, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		IST = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// Clock is the abstraction all time-gated logic reads through.
type Clock interface {
	// Now returns the current time in IST.
	Now() time.Time
	// WaitUntil blocks until t, or the context is cancelled.
	WaitUntil(ctx context.Context, t time.Time) error
}

// WallClock is the production Clock: real wall time.
type WallClock struct{}

// NewWallClock returns a Clock backed by the system clock.
func NewWallClock() *WallClock { return &WallClock{} }

// Now returns time.Now() in IST.
func (WallClock) Now() time.Time { return time.Now().In(IST) }

// WaitUntil sleeps until t or ctx is done, whichever comes first.
func (WallClock) WaitUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReplayClock is a monotonically advancing virtual clock driven by the
// replay tick stream. Virtual time is the max tick timestamp observed so
// far; it never runs ahead of the data, which is what makes replay
// deterministic regardless of how fast the host processes ticks.
type ReplayClock struct {
	mu  sync.Mutex
	now time.Time

	advanced chan struct{}
}

// NewReplayClock creates a ReplayClock pinned to start until the first
// tick arrives.
func NewReplayClock(start time.Time) *ReplayClock {
	return &ReplayClock{
		now:      start.In(IST),
		advanced: make(chan struct{}, 1),
	}
}

// Now returns the current virtual time.
func (c *ReplayClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the virtual clock forward if t is later than the current
// virtual time; it never moves backward. Called by the runtime's tick
// loop as each replayed tick is consumed.
func (c *ReplayClock) Advance(t time.Time) {
	t = t.In(IST)
	c.mu.Lock()
	if t.After(c.now) {
		c.now = t
		select {
		case c.advanced <- struct{}{}:
		default:
		}
	}
	c.mu.Unlock()
}

// WaitUntil blocks until the virtual clock reaches t, or ctx is done.
// Unlike WallClock it does not sleep; it waits for Advance calls driven
// by the replay stream.
func (c *ReplayClock) WaitUntil(ctx context.Context, t time.Time) error {
	for {
		if !c.Now().Before(t) {
			return nil
		}
		select {
		case <-c.advanced:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// AtCutover parses an "HH:MM:SS" string against the IST calendar date of
// ref, returning the absolute time of that cutover on that day.
func AtCutover(ref time.Time, hhmmss string) (time.Time, error) {
	ref = ref.In(IST)
	t, err := time.ParseInLocation("15:04:05", hhmmss, IST)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour(), t.Minute(), t.Second(), 0, IST), nil
}

// DateString returns the IST calendar date of t as YYYY-MM-DD, the key
// used for snapshot filenames and day-boundary resets.
func DateString(t time.Time) string {
	return t.In(IST).Format("2006-01-02")
}
