package runtime

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"

	"probedge/internal/clock"
	"probedge/internal/logging"
	"probedge/internal/planner"
	"probedge/internal/statestore"
)

// maxPlanGatherConcurrency bounds the per-symbol SymbolInput fan-out at
// the 09:40 cutover: spec.md §5 requires this CPU-heavy pass to finish
// well inside 1s even for a large universe.
const maxPlanGatherConcurrency = 8

// runPlan waits for the OT cutover and builds the locked daily plan
// exactly once. On a restart after the plan has already locked for
// today (and without RESET_STATE), the locked plan_snapshot_{date}.json
// is loaded into the store instead of being rebuilt, so the file first
// written at the lock is never overwritten.
func (r *Runtime) runPlan(ctx context.Context) {
	cutover, err := r.gate.PlanCutoverAt(r.clk.Now())
	if err != nil {
		r.logger.Error().Err(err).Msg("could not resolve plan cutover time")
		return
	}
	if err := r.clk.WaitUntil(ctx, cutover); err != nil {
		return
	}
	now := r.clk.Now()
	if !r.cfg.ResetState {
		if existing, err := statestore.ReadPlanSnapshot(r.cfg.Paths.State, clock.DateString(now)); err == nil && existing.Locked {
			r.store.Apply(func(s *statestore.State) {
				s.Plan = existing
			})
			r.health.heartbeat("batch_agent", now)
			return
		}
	}
	r.buildPlan(now)
}

func (r *Runtime) buildPlan(now time.Time) {
	snap := r.store.Snapshot()

	inputs := make([]planner.SymbolInput, len(r.universe))
	p := pool.New().WithMaxGoroutines(maxPlanGatherConcurrency)
	for i, symbol := range r.universe {
		i, symbol := i, symbol
		p.Go(func() {
			inputs[i] = planner.SymbolInput{
				Symbol: symbol,
				Tags:   snap.Tags[symbol],
				Bars:   r.bars.get(symbol),
				Prev:   r.prevOHLC[symbol],
			}
		})
	}
	p.Wait()

	date := clock.DateString(now)
	result := planner.BuildPlan(date, r.src.Mode(), now, inputs, r.freqTable, r.cfg.Risk, r.cfg.Picker)

	if err := statestore.WritePlanSnapshot(r.cfg.Paths.State, result); err != nil {
		r.logger.Error().Err(err).Str("date", date).Msg("failed to persist plan snapshot")
	}

	r.store.Apply(func(s *statestore.State) {
		s.Plan = result
	})

	log := logging.WithComponent(r.logger, "planner")
	for symbol, row := range result.PortfolioPlan.Plans {
		logging.LogPlanBuilt(log, symbol, string(row.Pick), row.Confidence, string(row.Level))
	}
	log.Info().
		Str("status", string(result.Status)).
		Int("active_trades", result.PortfolioPlan.ActiveTrades).
		Msg("plan built")

	r.health.heartbeat("batch_agent", now)
}
