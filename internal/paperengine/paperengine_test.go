package paperengine

import (
	"testing"
	"time"

	"probedge/internal/models"
)

func ts(h, m, s int) time.Time {
	return time.Date(2026, 8, 6, h, m, s, 0, time.UTC)
}

func quote(symbol string, ltp float64) models.Quote {
	return models.Quote{Symbol: symbol, LTP: ltp}
}

func bullPlan(symbol string, entry, stop, tp1, tp2 float64, qty int) models.PortfolioPlan {
	return models.PortfolioPlan{Plans: map[string]models.PlanRow{
		symbol: {Symbol: symbol, Pick: models.Bull, Entry: entry, Stop: stop, TP1: tp1, TP2: tp2, Qty: qty, RiskPerShare: entry - stop},
	}}
}

var farEOD = ts(15, 5, 0)

func TestSeedFromPlan_SkipsAbstainAndIsIdempotent(t *testing.T) {
	e := New()
	plan := models.PortfolioPlan{Plans: map[string]models.PlanRow{
		"TCS":  {Symbol: "TCS", Pick: models.Bull, Entry: 100, Stop: 98, TP1: 102, TP2: 104, Qty: 10},
		"INFY": {Symbol: "INFY", Pick: models.Abstain},
	}}
	e.SeedFromPlan(plan)
	positions := e.Positions()
	if _, ok := positions["INFY"]; ok {
		t.Fatal("an abstained row must not seed a position")
	}
	if positions["TCS"].Status != models.PositionPending {
		t.Fatalf("got %+v, want PENDING", positions["TCS"])
	}

	e.positions["TCS"].Status = models.PositionOpen // simulate in-flight state
	e.SeedFromPlan(plan)                             // re-seeding the same plan must not reset it
	if e.Positions()["TCS"].Status != models.PositionOpen {
		t.Fatal("re-seeding must not clobber an in-flight position")
	}
}

func TestRestore_ThenSeedFromPlanDoesNotReplaceTheRestoredPosition(t *testing.T) {
	e := New()
	e.Restore(map[string]models.Position{
		"TCS": {Symbol: "TCS", Direction: models.Bull, Qty: 10, RemainingQty: 5, EntryPrice: 100, Stop: 100, TP1: 102, TP2: 104, TP1Done: true, Status: models.PositionOpen, RealizedPnL: 50},
	})

	e.SeedFromPlan(bullPlan("TCS", 100, 98, 102, 104, 10))

	pos := e.Positions()["TCS"]
	if pos.Status != models.PositionOpen || pos.RemainingQty != 5 || !pos.TP1Done || pos.RealizedPnL != 50 {
		t.Fatalf("got %+v, want the restored in-flight position left untouched by SeedFromPlan", pos)
	}
}

func TestRestore_DoesNotOverrideAnAlreadyTrackedSymbol(t *testing.T) {
	e := New()
	e.SeedFromPlan(bullPlan("TCS", 100, 98, 102, 104, 10))
	e.positions["TCS"].Status = models.PositionOpen

	e.Restore(map[string]models.Position{
		"TCS": {Symbol: "TCS", Status: models.PositionClosed},
	})

	if e.Positions()["TCS"].Status != models.PositionOpen {
		t.Fatal("Restore must not clobber a position the engine already tracks")
	}
}

func TestTick_PendingCrossesIntoOpenAtEntry(t *testing.T) {
	e := New()
	e.SeedFromPlan(bullPlan("TCS", 100, 95, 105, 110, 10))

	fills := e.Tick(ts(9, 41, 0), map[string]models.Quote{"TCS": quote("TCS", 100.5)}, true, false, farEOD)
	if len(fills) != 1 || fills[0].Price != 100 || fills[0].Side != models.OrderSideBuy {
		t.Fatalf("got %+v, want one BUY fill at entry 100", fills)
	}
	if e.Positions()["TCS"].Status != models.PositionOpen {
		t.Fatal("expected position to move to OPEN")
	}
}

func TestTick_SLHitClosesAtStop(t *testing.T) {
	e := New()
	e.SeedFromPlan(bullPlan("TCS", 500, 496, 504, 508, 250))
	e.Tick(ts(9, 41, 0), map[string]models.Quote{"TCS": quote("TCS", 500)}, true, false, farEOD)

	fills := e.Tick(ts(9, 42, 0), map[string]models.Quote{"TCS": quote("TCS", 490)}, true, false, farEOD)
	if len(fills) != 1 || fills[0].Reason != models.ExitSL {
		t.Fatalf("got %+v, want a single SL exit", fills)
	}
	pos := e.Positions()["TCS"]
	if pos.Status != models.PositionClosed || pos.RealizedPnL != 250*(496-500) {
		t.Fatalf("got %+v", pos)
	}
}

func TestTick_TP1PartialExitTrailsStopToBreakeven(t *testing.T) {
	e := New()
	e.SeedFromPlan(bullPlan("TCS", 500, 496, 504, 508, 250))
	e.Tick(ts(9, 41, 0), map[string]models.Quote{"TCS": quote("TCS", 500)}, true, false, farEOD)

	fills := e.Tick(ts(10, 0, 0), map[string]models.Quote{"TCS": quote("TCS", 504)}, true, false, farEOD)
	if len(fills) != 1 || fills[0].Reason != models.ExitTP1 || fills[0].Qty != 125 {
		t.Fatalf("got %+v, want a TP1 partial exit of 125", fills)
	}
	pos := e.Positions()["TCS"]
	if pos.Status != models.PositionOpen {
		t.Fatal("position should remain OPEN after a partial TP1 exit")
	}
	if pos.Stop != 500 {
		t.Fatalf("stop = %v, want trailed to entry 500", pos.Stop)
	}
	if pos.RemainingQty != 125 {
		t.Fatalf("remaining qty = %d, want 125", pos.RemainingQty)
	}

	// remainder should now exit at TP2
	fills = e.Tick(ts(10, 5, 0), map[string]models.Quote{"TCS": quote("TCS", 508)}, true, false, farEOD)
	if len(fills) != 1 || fills[0].Reason != models.ExitTP2 || fills[0].Qty != 125 {
		t.Fatalf("got %+v, want the remainder exit at TP2", fills)
	}
	if e.Positions()["TCS"].Status != models.PositionClosed {
		t.Fatal("position should be CLOSED after the TP2 exit")
	}
}

func TestTick_EODForceFlattensOpenPosition(t *testing.T) {
	e := New()
	e.SeedFromPlan(bullPlan("TCS", 500, 496, 504, 508, 100))
	e.Tick(ts(9, 41, 0), map[string]models.Quote{"TCS": quote("TCS", 500)}, true, false, farEOD)

	fills := e.Tick(ts(15, 5, 0), map[string]models.Quote{"TCS": quote("TCS", 501)}, true, false, ts(15, 5, 0))
	if len(fills) != 1 || fills[0].Reason != models.ExitTime {
		t.Fatalf("got %+v, want a TIME exit at 15:05", fills)
	}
}

func TestTick_PendingNeverCrossedIsCancelledAtEOD(t *testing.T) {
	e := New()
	e.SeedFromPlan(bullPlan("TCS", 500, 496, 504, 508, 100))

	fills := e.Tick(ts(15, 5, 0), map[string]models.Quote{"TCS": quote("TCS", 480)}, true, false, ts(15, 5, 0))
	if len(fills) != 0 {
		t.Fatalf("got %+v, want no fill for a PENDING position cancelled before ever filling", fills)
	}
	pos := e.Positions()["TCS"]
	if pos.Status != models.PositionClosed || pos.ExitReason != models.ExitTime {
		t.Fatalf("got %+v, want PENDING cancelled at EOD with exit_reason=TIME", pos)
	}
	if pos.RealizedPnL != 0 {
		t.Fatalf("a never-filled position must realize zero P&L, got %v", pos.RealizedPnL)
	}
}

func TestTick_KillSwitchFlattensOpenAndCancelsPending(t *testing.T) {
	e := New()
	e.SeedFromPlan(bullPlan("TCS", 500, 496, 504, 508, 100))
	e.SeedFromPlan(bullPlan("INFY", 200, 195, 210, 220, 50))
	e.Tick(ts(9, 41, 0), map[string]models.Quote{"TCS": quote("TCS", 500)}, true, false, farEOD)

	fills := e.Tick(ts(11, 0, 0), map[string]models.Quote{
		"TCS":  quote("TCS", 501),
		"INFY": quote("INFY", 199),
	}, true, true, farEOD)

	if len(fills) != 1 || fills[0].Symbol != "TCS" || fills[0].Reason != models.ExitKill {
		t.Fatalf("got %+v, want one KILL fill for the OPEN TCS position", fills)
	}
	infy := e.Positions()["INFY"]
	if infy.Status != models.PositionClosed || infy.ExitReason != models.ExitKill {
		t.Fatalf("got %+v, want the PENDING INFY position cancelled via kill switch", infy)
	}
}

func TestTick_RiskHaltCancelsPendingButLeavesOpenAlone(t *testing.T) {
	e := New()
	e.SeedFromPlan(bullPlan("TCS", 500, 496, 504, 508, 100))
	e.SeedFromPlan(bullPlan("INFY", 200, 195, 210, 220, 50))
	e.Tick(ts(9, 41, 0), map[string]models.Quote{"TCS": quote("TCS", 500)}, true, false, farEOD)

	e.Tick(ts(11, 0, 0), map[string]models.Quote{
		"TCS":  quote("TCS", 501),
		"INFY": quote("INFY", 199),
	}, false, false, farEOD)

	if e.Positions()["TCS"].Status != models.PositionOpen {
		t.Fatal("an already-OPEN position must not be touched by the risk halt")
	}
	infy := e.Positions()["INFY"]
	if infy.Status != models.PositionClosed || infy.ExitReason != models.ExitRiskHalt {
		t.Fatalf("got %+v, want PENDING cancelled via risk halt", infy)
	}
}
