package planner

import (
	"testing"
	"time"

	"probedge/internal/config"
	"probedge/internal/freqtable"
	"probedge/internal/models"
)

func bullTags() models.Tags {
	pdc, ol, ot := models.PDCBull, models.OAR, models.OTBull
	return models.Tags{Symbol: "TCS", PDC: &pdc, OL: &ol, OT: &ot}
}

func fiveBars(opens, highs, lows, closes []float64) []models.Bar {
	bars := make([]models.Bar, 5)
	base := time.Date(2026, 8, 6, 9, 15, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		bars[i] = models.Bar{
			Symbol: "TCS",
			Start:  base.Add(time.Duration(i) * 5 * time.Minute),
			Open:   opens[i], High: highs[i], Low: lows[i], Close: closes[i],
		}
	}
	return bars
}

func defaultRisk() config.RiskConfig {
	return config.RiskConfig{DailyRs: 10000, PerTradeRs: 2000, RATRMult: 1.0}
}

func defaultPicker() config.PickerConfig {
	return config.PickerConfig{NminL3: 8, NminL2: 12, NminL1: 20, ConfMin: 0.55, TRGuardConf: 0.65}
}

func TestBuildPlan_BullPickProducesEntryStopTargets(t *testing.T) {
	table := freqtable.New([]models.FreqRow{
		{Symbol: "TCS", Level: models.LevelL3, Key: []string{"BULL", "OAR", "BULL"}, Bull: 9, Bear: 1},
	})
	bars := fiveBars(
		[]float64{100, 101, 102, 103, 104},
		[]float64{102, 103, 104, 105, 106},
		[]float64{99, 100, 101, 102, 103},
		[]float64{101, 102, 103, 104, 105},
	)
	universe := []SymbolInput{{
		Symbol: "TCS", Tags: bullTags(), Bars: bars,
		Prev: models.PrevDayOHLC{Open: 95, High: 100, Low: 90, Close: 98},
	}}

	snap := BuildPlan("2026-08-06", models.ModePaper, time.Now(), universe, table, defaultRisk(), defaultPicker())
	if snap.Status != models.SnapshotReady {
		t.Fatalf("status = %v, want READY", snap.Status)
	}
	if !snap.Locked {
		t.Fatal("expected snapshot to be locked")
	}
	row := snap.PortfolioPlan.Plans["TCS"]
	if row.Pick != models.Bull {
		t.Fatalf("pick = %v, want BULL", row.Pick)
	}
	if row.Entry != 105 {
		t.Fatalf("entry = %v, want 105 (close of last bar)", row.Entry)
	}
	if row.Qty <= 0 {
		t.Fatalf("expected a positive quantity, got %d", row.Qty)
	}
	if row.TP1 != row.Entry+row.RiskPerShare || row.TP2 != row.Entry+2*row.RiskPerShare {
		t.Fatalf("targets inconsistent with R: %+v", row)
	}
	if snap.PortfolioPlan.ActiveTrades != 1 {
		t.Fatalf("active_trades = %d, want 1", snap.PortfolioPlan.ActiveTrades)
	}
}

func TestBuildPlan_AbstainPickSkipsSizing(t *testing.T) {
	table := freqtable.New([]models.FreqRow{
		{Symbol: "TCS", Level: models.LevelL3, Key: []string{"BULL", "OAR", "BULL"}, Bull: 5, Bear: 5},
	})
	bars := fiveBars(
		[]float64{100, 101, 102, 103, 104},
		[]float64{102, 103, 104, 105, 106},
		[]float64{99, 100, 101, 102, 103},
		[]float64{101, 102, 103, 104, 105},
	)
	universe := []SymbolInput{{
		Symbol: "TCS", Tags: bullTags(), Bars: bars,
		Prev: models.PrevDayOHLC{Open: 95, High: 100, Low: 90, Close: 98},
	}}

	snap := BuildPlan("2026-08-06", models.ModePaper, time.Now(), universe, table, defaultRisk(), defaultPicker())
	row := snap.PortfolioPlan.Plans["TCS"]
	if row.Pick != models.Abstain {
		t.Fatalf("pick = %v, want ABSTAIN", row.Pick)
	}
	if row.Qty != 0 || row.Entry != 0 {
		t.Fatalf("abstained row should carry no sizing, got %+v", row)
	}
	if snap.PortfolioPlan.ActiveTrades != 0 {
		t.Fatalf("active_trades = %d, want 0", snap.PortfolioPlan.ActiveTrades)
	}
}

func TestBuildPlan_TightStopAbstains(t *testing.T) {
	table := freqtable.New([]models.FreqRow{
		{Symbol: "TCS", Level: models.LevelL3, Key: []string{"BULL", "OAR", "BULL"}, Bull: 9, Bear: 1},
	})
	// Flat, barely-moving bars: ATR and first-5 range will both be tiny
	// relative to price, so R should fall below 0.2% of entry.
	bars := fiveBars(
		[]float64{100, 100.01, 100.02, 100.01, 100.02},
		[]float64{100.02, 100.02, 100.03, 100.02, 100.03},
		[]float64{99.99, 100.0, 100.0, 100.0, 100.01},
		[]float64{100.01, 100.02, 100.01, 100.02, 100.02},
	)
	universe := []SymbolInput{{
		Symbol: "TCS", Tags: bullTags(), Bars: bars,
		Prev: models.PrevDayOHLC{Open: 100, High: 100.05, Low: 99.95, Close: 100.02},
	}}

	snap := BuildPlan("2026-08-06", models.ModePaper, time.Now(), universe, table, defaultRisk(), defaultPicker())
	row := snap.PortfolioPlan.Plans["TCS"]
	if row.Pick != models.Abstain || row.AbstainReason != tightStopReason {
		t.Fatalf("got %+v, want ABSTAIN via tight_stop", row)
	}
}

func TestBuildPlan_PartialUniverseYieldsReadyPartial(t *testing.T) {
	table := freqtable.New(nil)
	bars := fiveBars(
		[]float64{100, 101, 102, 103, 104},
		[]float64{102, 103, 104, 105, 106},
		[]float64{99, 100, 101, 102, 103},
		[]float64{101, 102, 103, 104, 105},
	)
	universe := []SymbolInput{
		{Symbol: "TCS", Tags: bullTags(), Bars: bars, Prev: models.PrevDayOHLC{Close: 98}},
		{Symbol: "INFY", Tags: models.Tags{Symbol: "INFY"}}, // no tags resolved
	}

	snap := BuildPlan("2026-08-06", models.ModePaper, time.Now(), universe, table, defaultRisk(), defaultPicker())
	if snap.Status != models.SnapshotReadyPartial {
		t.Fatalf("status = %v, want READY_PARTIAL", snap.Status)
	}
	if _, ok := snap.PortfolioPlan.Plans["INFY"]; ok {
		t.Fatal("a symbol with unresolved tags must not appear in the plan")
	}
}

func TestBuildPlan_ZeroResolvedSymbolsFails(t *testing.T) {
	table := freqtable.New(nil)
	universe := []SymbolInput{
		{Symbol: "TCS", Tags: models.Tags{Symbol: "TCS"}},
	}

	snap := BuildPlan("2026-08-06", models.ModePaper, time.Now(), universe, table, defaultRisk(), defaultPicker())
	if snap.Status != models.SnapshotFailed {
		t.Fatalf("status = %v, want FAILED", snap.Status)
	}
	if snap.Locked {
		t.Fatal("a FAILED snapshot must not be locked")
	}
	if len(snap.PortfolioPlan.Plans) != 0 {
		t.Fatal("a FAILED snapshot must contain no plan rows")
	}
}
