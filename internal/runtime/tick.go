package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"probedge/internal/clock"
	"probedge/internal/logging"
	"probedge/internal/models"
	"probedge/internal/statestore"
	"probedge/internal/ticksource"
)

// barHistory keeps the first five 5-minute bars (09:15-09:40) per symbol,
// the only window internal/classifier.OT needs. Later bars are dropped
// rather than accumulated, since nothing downstream of the 09:40 plan
// lock reads a symbol's bar history again.
type barHistory struct {
	mu   sync.Mutex
	bars map[string][]models.Bar
}

func newBarHistory() *barHistory {
	return &barHistory{bars: make(map[string][]models.Bar)}
}

func (h *barHistory) add(bar models.Bar) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.bars[bar.Symbol]) >= 5 {
		return
	}
	h.bars[bar.Symbol] = append(h.bars[bar.Symbol], bar)
}

func (h *barHistory) get(symbol string) []models.Bar {
	h.mu.Lock()
	defer h.mu.Unlock()
	bars := h.bars[symbol]
	out := make([]models.Bar, len(bars))
	copy(out, bars)
	return out
}

// onBarClose is the aggregator's onClose callback: record the bar for OT.
// It records no heartbeat for the aggregator.
func (r *Runtime) onBarClose(bar models.Bar) {
	r.bars.add(bar)
}

// runTicks drains the tick source into the aggregator and the quotes
// field family until the source ends (Replay) or ctx is cancelled.
//
// Tag cutovers are polled off the same virtual-time advance each tick
// produces, not only off tags.go's wall-clock ticker: in replay, Next
// returns an entire day's ticks with no real-time pacing, so a 1s wall
// ticker fires at most once or twice for the whole run and cannot be
// relied on to ever observe a cutover. Bar closing is handled inline by
// Ingest itself as a symbol's window rolls forward (see aggregator.go);
// once the stream ends, Close force-closes whatever bucket is left,
// since no further tick or clock advance will ever come along to close
// it through the normal passage of time.
func (r *Runtime) runTicks(ctx context.Context) {
	log := logging.WithComponent(r.logger, "ticksource")
	for {
		tick, err := r.src.Next(ctx)
		if err != nil {
			if errors.Is(err, ticksource.ErrEndOfStream) {
				r.agg.Close()
				log.Info().Msg("tick stream ended")
				return
			}
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Msg("tick source error; continuing")
			continue
		}

		if rc, ok := r.clk.(*clock.ReplayClock); ok {
			rc.Advance(tick.Timestamp)
		}
		now := r.clk.Now()

		r.agg.Ingest(tick)
		r.updateQuote(tick, now)
		r.pollTags(now)
		r.health.heartbeat("ticksource", now)
	}
}

// updateQuote folds one tick into the quotes field family: today_open is
// latched on the first tick of the day and never overwritten, high/low
// track the session extremes, and change_pct is derived from the
// previous session's close looked up at startup.
func (r *Runtime) updateQuote(tick models.RawTick, now time.Time) {
	prevClose, hasPrev := r.prevOHLC[tick.Symbol]

	r.store.Apply(func(s *statestore.State) {
		q := s.Quotes[tick.Symbol]
		q.Symbol = tick.Symbol
		q.LTP = tick.LTP
		q.LastUpdateTS = now
		q.Volume += tick.Volume
		if q.TodayOpen == 0 {
			q.TodayOpen = tick.LTP
		}
		if q.High == 0 || tick.LTP > q.High {
			q.High = tick.LTP
		}
		if q.Low == 0 || tick.LTP < q.Low {
			q.Low = tick.LTP
		}
		q.Close = tick.LTP
		if hasPrev && prevClose.Close != 0 {
			q.ChangePercent = 100 * (tick.LTP - prevClose.Close) / prevClose.Close
		}
		s.Quotes[tick.Symbol] = q
	})
}

// runBars periodically closes any bucket whose 5-minute window has
// elapsed. Flush invokes onBarClose synchronously for every bar it
// closes, so no separate fan-out is needed here.
func (r *Runtime) runBars(ctx context.Context) {
	ticker := time.NewTicker(barFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.agg.Flush(r.clk.Now())
		}
	}
}
