package freqtable

import (
	"testing"

	"probedge/internal/config"
	"probedge/internal/models"
)

func defaultPickerConfig() config.PickerConfig {
	return config.PickerConfig{
		NminL3:      8,
		NminL2:      12,
		NminL1:      20,
		ConfMin:     0.55,
		TRGuardConf: 0.65,
	}
}

func TestPick_L3Confident(t *testing.T) {
	table := New([]models.FreqRow{
		{Symbol: "TCS", Level: models.LevelL3, Key: []string{"BULL", "OAR", "BULL"}, Bull: 9, Bear: 1},
	})
	got := Pick("TCS", models.PDCBull, models.OAR, models.OTBull, table, defaultPickerConfig())
	if got.Pick != models.Bull || got.Level != models.LevelL3 {
		t.Fatalf("got %+v, want BULL at L3", got)
	}
	if got.Confidence < 89 || got.Confidence > 91 {
		t.Fatalf("confidence = %v, want ~90", got.Confidence)
	}
}

func TestPick_FallsBackWhenL3Undersized(t *testing.T) {
	table := New([]models.FreqRow{
		{Symbol: "TCS", Level: models.LevelL3, Key: []string{"BULL", "OAR", "BULL"}, Bull: 3, Bear: 1}, // total 4 < Nmin 8
		{Symbol: "TCS", Level: models.LevelL2, Key: []string{"OAR", "BULL"}, Bull: 10, Bear: 2},
	})
	got := Pick("TCS", models.PDCBull, models.OAR, models.OTBull, table, defaultPickerConfig())
	if got.Level != models.LevelL2 || got.Pick != models.Bull {
		t.Fatalf("got %+v, want BULL at L2", got)
	}
}

func TestPick_AbstainsBelowConfidenceFloor(t *testing.T) {
	table := New([]models.FreqRow{
		{Symbol: "TCS", Level: models.LevelL3, Key: []string{"BULL", "OAR", "BULL"}, Bull: 6, Bear: 5},
	})
	got := Pick("TCS", models.PDCBull, models.OAR, models.OTBull, table, defaultPickerConfig())
	if got.Pick != models.Abstain {
		t.Fatalf("got %+v, want ABSTAIN", got)
	}
}

func TestPick_TrendRangeGuard(t *testing.T) {
	table := New([]models.FreqRow{
		{Symbol: "TCS", Level: models.LevelL3, Key: []string{"BULL", "OAR", "TR"}, Bull: 6, Bear: 4},
	})
	got := Pick("TCS", models.PDCBull, models.OAR, models.OTTR, table, defaultPickerConfig())
	if got.Pick != models.Abstain || got.Reason != "trend-range guard" {
		t.Fatalf("got %+v, want ABSTAIN via trend-range guard", got)
	}
}

func TestPick_NoDataAbstains(t *testing.T) {
	table := New(nil)
	got := Pick("TCS", models.PDCBull, models.OAR, models.OTBull, table, defaultPickerConfig())
	if got.Pick != models.Abstain {
		t.Fatalf("got %+v, want ABSTAIN", got)
	}
}
