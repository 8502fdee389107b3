package runtime

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"

	"probedge/internal/classifier"
	"probedge/internal/logging"
	"probedge/internal/models"
	"probedge/internal/statestore"
	"probedge/internal/timeline"
)

// maxTagConcurrency bounds the per-symbol classifier fan-out so a large
// universe crossing a cutover at the same instant still finishes well
// inside the 1s tag-poll interval.
const maxTagConcurrency = 8

// tagResult is one symbol's outcome from a single classifier fan-out
// round; at most one of the three pointers is set, matching which field
// this round is resolving.
type tagResult struct {
	symbol string
	pdc    *models.PrevDayContext
	ol     *models.OpenLocation
	ot     *models.OpeningTrend
}

// runTags polls the timeline gate once a second and, for each tag whose
// cutover has passed, fans out the classifier over every symbol still
// missing that tag. This wall-clock poll is the live-mode path; in
// replay, virtual time can advance far between two 1s wall ticks, so
// runTicks also calls pollTags directly off the virtual clock after
// every tick (see tick.go) — pollTags is idempotent either way, since
// resolveTag only acts on symbols still missing the tag.
func (r *Runtime) runTags(ctx context.Context) {
	ticker := time.NewTicker(tagPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pollTags(r.clk.Now())
		}
	}
}

// pollTags resolves every tag whose cutover is now due.
func (r *Runtime) pollTags(now time.Time) {
	if r.gate.RevealTag(timeline.FieldTagPDC, now) {
		r.resolveTag(timeline.FieldTagPDC, now)
	}
	if r.gate.RevealTag(timeline.FieldTagOL, now) {
		r.resolveTag(timeline.FieldTagOL, now)
	}
	if r.gate.RevealTag(timeline.FieldTagOT, now) {
		r.resolveTag(timeline.FieldTagOT, now)
	}
}

func (r *Runtime) resolveTag(field timeline.Field, now time.Time) {
	snap := r.store.Snapshot()

	var pending []string
	for _, symbol := range r.universe {
		t := snap.Tags[symbol]
		switch field {
		case timeline.FieldTagPDC:
			if t.PDC == nil {
				pending = append(pending, symbol)
			}
		case timeline.FieldTagOL:
			if t.OL == nil {
				pending = append(pending, symbol)
			}
		case timeline.FieldTagOT:
			if t.OT == nil {
				pending = append(pending, symbol)
			}
		}
	}
	if len(pending) == 0 {
		return
	}

	p := pool.NewWithResults[tagResult]().WithMaxGoroutines(maxTagConcurrency)
	for _, symbol := range pending {
		symbol := symbol
		p.Go(func() tagResult {
			return r.classifyOne(field, symbol, snap)
		})
	}
	results := p.Wait()

	log := logging.WithComponent(r.logger, "classifier")
	r.store.Apply(func(s *statestore.State) {
		for _, res := range results {
			t := s.Tags[res.symbol]
			t.Symbol = res.symbol
			switch {
			case res.pdc != nil:
				t.PDC = res.pdc
				t.PDCComputed = now
				logging.LogTagComputed(log, res.symbol, "PDC", string(*res.pdc))
			case res.ol != nil:
				t.OL = res.ol
				t.OLComputed = now
				logging.LogTagComputed(log, res.symbol, "OL", string(*res.ol))
			case res.ot != nil:
				t.OT = res.ot
				t.OTComputed = now
				logging.LogTagComputed(log, res.symbol, "OT", string(*res.ot))
			}
			s.Tags[res.symbol] = t
		}
	})
	r.health.heartbeat("classifier", now)
}

// classifyOne computes a single tag for a single symbol. A missing input
// (no master history, no today's open yet, fewer than 5 bars) leaves the
// result's pointer nil, which resolveTag leaves un-set so the symbol
// stays pending for the next poll rather than gets a fabricated value.
func (r *Runtime) classifyOne(field timeline.Field, symbol string, snap *statestore.State) tagResult {
	switch field {
	case timeline.FieldTagPDC:
		prev, ok := r.prevOHLC[symbol]
		if !ok {
			return tagResult{symbol: symbol}
		}
		v := classifier.PDC(prev)
		return tagResult{symbol: symbol, pdc: &v}

	case timeline.FieldTagOL:
		prev, ok := r.prevOHLC[symbol]
		q := snap.Quotes[symbol]
		if !ok || q.TodayOpen == 0 {
			return tagResult{symbol: symbol}
		}
		v := classifier.OL(q.TodayOpen, prev)
		return tagResult{symbol: symbol, ol: &v}

	case timeline.FieldTagOT:
		bars := r.bars.get(symbol)
		if len(bars) < 5 {
			return tagResult{symbol: symbol}
		}
		v := classifier.OT(bars, r.cfg.Picker.OpeningTrendThreshPct)
		return tagResult{symbol: symbol, ot: &v}

	default:
		return tagResult{symbol: symbol}
	}
}
