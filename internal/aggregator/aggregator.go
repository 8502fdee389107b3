// Package aggregator converts a per-symbol tick stream into canonical
// 5-minute OHLCV bars. It is the one place a tick's timestamp decides
// which window it belongs to; everything downstream consumes closed
// Bars or the in-progress bucket, never raw ticks.
package aggregator

import (
	"sync"
	"time"

	"probedge/internal/clock"
	"probedge/internal/models"
)

const windowSize = 5 * time.Minute

// windowStart aligns ts down to the 5-minute grid in IST.
func windowStart(ts time.Time) time.Time {
	ts = ts.In(clock.IST)
	minute := (ts.Minute() / 5) * 5
	return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), minute, 0, 0, clock.IST)
}

type bucket struct {
	start   time.Time
	open    float64
	high    float64
	low     float64
	close   float64
	volume  int64
	lastTS  time.Time
	hasTick bool
}

// Aggregator holds the in-progress bucket for every symbol that has seen
// at least one tick today.
type Aggregator struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	onClose func(models.Bar)
}

// New creates an Aggregator. onClose is invoked synchronously, from
// whichever of Ingest, Flush or Close happens to close a window; callers
// that need concurrency should make it non-blocking themselves.
func New(onClose func(models.Bar)) *Aggregator {
	return &Aggregator{
		buckets: make(map[string]*bucket),
		onClose: onClose,
	}
}

// Ingest folds one tick into its symbol's current window. Ticks whose
// timestamp equals a window's end belong to the next window, not the one
// that just closed. Out-of-order ticks within the same window extend
// high/low but never move the recorded open; close always reflects the
// tick with the latest timestamp seen so far.
//
// If this tick rolls the symbol into a later window, the prior bucket is
// closed and emitted right here, before it is replaced. Bar emission
// must not depend on a separate time-driven Flush catching the rollover
// first: in replay, virtual time can jump straight from one tick's
// timestamp to the next with nothing polling in between, so a bucket
// that Ingest silently discarded would never be emitted at all.
func (a *Aggregator) Ingest(tick models.RawTick) {
	ws := windowStart(tick.Timestamp)
	if tick.Timestamp.Equal(ws.Add(windowSize)) {
		ws = ws.Add(windowSize)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.buckets[tick.Symbol]
	if ok && b.start.Before(ws) {
		a.closeLocked(tick.Symbol, b)
		ok = false
	}
	if !ok {
		b = &bucket{start: ws}
		a.buckets[tick.Symbol] = b
	}
	if b.start.After(ws) {
		// A tick arrived for a window that has already rolled past; it
		// cannot retroactively affect a newer bucket.
		return
	}

	if !b.hasTick {
		b.open = tick.LTP
		b.high = tick.LTP
		b.low = tick.LTP
		b.close = tick.LTP
		b.hasTick = true
		b.lastTS = tick.Timestamp
	} else {
		if tick.LTP > b.high {
			b.high = tick.LTP
		}
		if tick.LTP < b.low {
			b.low = tick.LTP
		}
		if !tick.Timestamp.Before(b.lastTS) {
			b.close = tick.LTP
			b.lastTS = tick.Timestamp
		}
	}
	b.volume += tick.Volume
}

// Flush closes every symbol's bucket whose window has ended as of now,
// emitting exactly one Bar per closed window via onClose. A symbol with
// no ticks in a window never gets a bucket for it, so it is silently
// absent from this Flush — consumers must treat that as "no data", not
// "zero", per spec. This only catches a symbol that has gone quiet with
// its window already elapsed; a symbol that keeps ticking has its
// buckets closed by Ingest itself as it rolls forward.
func (a *Aggregator) Flush(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for symbol, b := range a.buckets {
		windowEnd := b.start.Add(windowSize)
		if !b.hasTick || now.Before(windowEnd) {
			continue
		}
		a.closeLocked(symbol, b)
	}
}

// Close force-closes and emits every remaining bucket regardless of
// whether its window has formally elapsed. Used once the tick source
// itself has ended: no further tick or clock advance will ever come
// along to close a trailing bucket through the normal passage of time.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for symbol, b := range a.buckets {
		a.closeLocked(symbol, b)
	}
}

// closeLocked emits b as a Bar (if it ever saw a tick) and removes it
// from buckets. Callers must hold a.mu.
func (a *Aggregator) closeLocked(symbol string, b *bucket) {
	delete(a.buckets, symbol)
	if !b.hasTick || a.onClose == nil {
		return
	}
	a.onClose(models.Bar{
		Symbol: symbol,
		Start:  b.start,
		Open:   b.open,
		High:   b.high,
		Low:    b.low,
		Close:  b.close,
		Volume: b.volume,
	})
}

// InProgress returns the live, not-yet-closed bucket for a symbol, for
// publishing today_open/running_high/running_low/last_close into State.
func (a *Aggregator) InProgress(symbol string) (models.InProgressBar, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.buckets[symbol]
	if !ok || !b.hasTick {
		return models.InProgressBar{}, false
	}
	return models.InProgressBar{
		Symbol:      symbol,
		Start:       b.start,
		TodayOpen:   b.open,
		RunningHigh: b.high,
		RunningLow:  b.low,
		LastClose:   b.close,
		Volume:      b.volume,
	}, true
}
