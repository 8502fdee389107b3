package riskengine

import (
	"testing"

	"probedge/internal/models"
)

func position(status models.PositionStatus, realized, open float64) models.Position {
	return models.Position{Status: status, RealizedPnL: realized, OpenPnL: open}
}

func TestEvaluate_NormalWhenPositive(t *testing.T) {
	e := New()
	e.Reset("2026-08-06")
	state := e.Evaluate([]models.Position{position(models.PositionOpen, 500, 200)}, 10000, false)
	if state.Status != models.RiskNormal || !state.CanOpenNewTrades {
		t.Fatalf("got %+v, want NORMAL and open", state)
	}
}

func TestEvaluate_WarnWhenNegativeButAboveCap(t *testing.T) {
	e := New()
	e.Reset("2026-08-06")
	state := e.Evaluate([]models.Position{position(models.PositionClosed, -2000, 0)}, 10000, false)
	if state.Status != models.RiskWarn || !state.CanOpenNewTrades {
		t.Fatalf("got %+v, want WARN but still able to open trades", state)
	}
}

func TestEvaluate_HaltsAtLossCapAndLatches(t *testing.T) {
	e := New()
	e.Reset("2026-08-06")

	state := e.Evaluate([]models.Position{
		position(models.PositionClosed, -4500, 0),
		position(models.PositionClosed, -3000, 0),
		position(models.PositionClosed, -3200, 0),
	}, 10000, false)
	if state.Status != models.RiskHalted || state.Reason != reasonLossCap {
		t.Fatalf("got %+v, want HALTED via loss cap", state)
	}

	// Even if positions subsequently show a recovered P&L, the latch
	// keeps the engine halted for the rest of the day.
	recovered := e.Evaluate([]models.Position{position(models.PositionOpen, 0, 50000)}, 10000, false)
	if recovered.Status != models.RiskHalted || recovered.CanOpenNewTrades {
		t.Fatalf("got %+v, want the latch to stay HALTED despite recovered P&L", recovered)
	}
}

func TestEvaluate_ManualKillOverridesEverything(t *testing.T) {
	e := New()
	e.Reset("2026-08-06")
	state := e.Evaluate([]models.Position{position(models.PositionOpen, 5000, 1000)}, 10000, true)
	if state.Status != models.RiskHalted || state.Reason != reasonManualKill {
		t.Fatalf("got %+v, want HALTED via manual kill", state)
	}
}

func TestReset_ClearsLatchOnNewDay(t *testing.T) {
	e := New()
	e.Reset("2026-08-06")
	e.Evaluate([]models.Position{position(models.PositionClosed, -20000, 0)}, 10000, false)

	e.Reset("2026-08-07")
	state := e.Evaluate([]models.Position{position(models.PositionOpen, 0, 0)}, 10000, false)
	if state.Status != models.RiskNormal {
		t.Fatalf("got %+v, want NORMAL after resetting to a new day", state)
	}
}

func TestReset_SameDateIsNoOp(t *testing.T) {
	e := New()
	e.Reset("2026-08-06")
	e.Evaluate([]models.Position{position(models.PositionClosed, -20000, 0)}, 10000, false)

	e.Reset("2026-08-06") // same day again, e.g. a mid-day restart
	state := e.Evaluate([]models.Position{position(models.PositionOpen, 0, 0)}, 10000, false)
	if state.Status != models.RiskHalted {
		t.Fatalf("got %+v, want the latch preserved across a same-day Reset", state)
	}
}
