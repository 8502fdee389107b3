package runtime

import (
	"context"
	"time"

	"probedge/internal/logging"
	"probedge/internal/models"
	"probedge/internal/statestore"
)

// runExecution drives the paper engine at executionCadence: seed
// positions once the plan locks, evaluate the daily risk latch, and
// advance every tracked position by one cycle against the latest quotes.
func (r *Runtime) runExecution(ctx context.Context) {
	ticker := time.NewTicker(executionCadence)
	defer ticker.Stop()

	seeded := false
	log := logging.WithComponent(r.logger, "paperengine")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := r.clk.Now()
			snap := r.store.Snapshot()

			if !snap.Plan.Locked || (snap.Plan.Status != models.SnapshotReady && snap.Plan.Status != models.SnapshotReadyPartial) {
				continue
			}
			if !seeded {
				r.engine.SeedFromPlan(snap.Plan.PortfolioPlan)
				seeded = true
			}

			killSwitch := r.ks.Tripped()
			positions := r.engine.Positions()
			riskState := r.risk.Evaluate(positionValues(positions), r.cfg.Risk.DailyRs, killSwitch)

			eodFlattenAt, err := r.gate.EODFlattenAt(now)
			if err != nil {
				log.Error().Err(err).Msg("could not resolve EOD flatten cutover")
				continue
			}

			fills := r.engine.Tick(now, snap.Quotes, riskState.CanOpenNewTrades, killSwitch, eodFlattenAt)
			for _, fill := range fills {
				if err := r.journal.RecordFill(ctx, fill); err != nil {
					log.Error().Err(err).Str("fill_id", fill.ID).Msg("failed to journal fill")
				}
				logging.LogFill(log, fill.Symbol, string(fill.Side), fill.Qty, fill.Price, string(fill.Reason))
			}

			r.store.Apply(func(s *statestore.State) {
				s.Positions = r.engine.Positions()
				s.Risk = riskState
			})

			if riskState.Status != models.RiskNormal {
				logging.LogRiskState(log, string(riskState.Status), riskState.DayPnLRs)
			}
			r.health.heartbeat("paperengine", now)
		}
	}
}

func positionValues(positions map[string]models.Position) []models.Position {
	out := make([]models.Position, 0, len(positions))
	for _, p := range positions {
		out = append(out, p)
	}
	return out
}
