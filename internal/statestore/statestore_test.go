package statestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"probedge/internal/clock"
	"probedge/internal/models"
)

func testClock() clock.Clock {
	return clock.NewReplayClock(time.Date(2026, 8, 6, 9, 41, 0, 0, clock.IST))
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestApply_PublishesIndependentSnapshot(t *testing.T) {
	store := New(models.ModePaper, "2026-08-06", false, t.TempDir(), testClock(), testLogger())

	before := store.Snapshot()
	store.Apply(func(s *State) {
		s.Quotes["TCS"] = models.Quote{Symbol: "TCS", LTP: 100}
	})
	after := store.Snapshot()

	if _, ok := before.Quotes["TCS"]; ok {
		t.Fatal("the snapshot captured before Apply must not observe the mutation")
	}
	if after.Quotes["TCS"].LTP != 100 {
		t.Fatalf("got %+v, want the new snapshot to carry the applied quote", after.Quotes["TCS"])
	}
}

func TestFlush_WritesLiveStateJSON(t *testing.T) {
	dir := t.TempDir()
	store := New(models.ModePaper, "2026-08-06", false, dir, testClock(), testLogger())

	store.Apply(func(s *State) {
		s.Quotes["TCS"] = models.Quote{Symbol: "TCS", LTP: 101.5, High: 102, Low: 99, TodayOpen: 100, Volume: 5000}
		s.Positions["TCS"] = models.Position{Symbol: "TCS", Direction: models.Bull, Qty: 10, Status: models.PositionOpen, EntryPrice: 100, OpenPnL: 15}
		s.Risk = models.RiskState{Status: models.RiskNormal, CanOpenNewTrades: true}
	})
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush returned %v", err)
	}

	path := filepath.Join(dir, "live_state.json")
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("live_state.json was not written: %v", err)
	}

	var doc liveStateDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("live_state.json is not valid JSON: %v", err)
	}
	if doc.Quotes["TCS"].LTP != 101.5 {
		t.Fatalf("got %+v, want LTP 101.5", doc.Quotes["TCS"])
	}
	if doc.Positions["TCS"].Status != models.PositionOpen {
		t.Fatalf("got %+v, want OPEN", doc.Positions["TCS"])
	}
	if doc.Meta.PnL.Open != 15 {
		t.Fatalf("got %+v, want aggregated open P&L of 15", doc.Meta.PnL)
	}
	if doc.Meta.ActiveTrades != 1 {
		t.Fatalf("got %d active trades, want 1", doc.Meta.ActiveTrades)
	}
}

func TestFlush_IsAtomicAndNeverLeavesATempFile(t *testing.T) {
	dir := t.TempDir()
	store := New(models.ModePaper, "2026-08-06", false, dir, testClock(), testLogger())
	store.Apply(func(s *State) { s.Quotes["TCS"] = models.Quote{Symbol: "TCS", LTP: 1} })

	if err := store.Flush(); err != nil {
		t.Fatalf("Flush returned %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "live_state.json" {
			t.Fatalf("unexpected leftover file %q after Flush", e.Name())
		}
	}
}

func TestWritePlanSnapshot_IsByteIdenticalAcrossIdenticalInputs(t *testing.T) {
	dir := t.TempDir()
	snap := models.Snapshot{
		Date:    "2026-08-06",
		Mode:    models.ModePaper,
		Status:  models.SnapshotReady,
		Locked:  true,
		PortfolioPlan: models.PortfolioPlan{
			Date: "2026-08-06",
			Plans: map[string]models.PlanRow{
				"TCS": {Symbol: "TCS", Pick: models.Bull, Entry: 100, Stop: 98, TP1: 102, TP2: 104, Qty: 10},
			},
		},
	}

	if err := WritePlanSnapshot(dir, snap); err != nil {
		t.Fatalf("first write returned %v", err)
	}
	path := filepath.Join(dir, "plan_snapshot_2026-08-06.json")
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := WritePlanSnapshot(dir, snap); err != nil {
		t.Fatalf("second write returned %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != string(second) {
		t.Fatal("writing the same locked Snapshot twice must produce byte-identical output")
	}
}

func TestLoadPositions_RoundTripsAnOpenPositionAfterRestart(t *testing.T) {
	dir := t.TempDir()
	store := New(models.ModePaper, "2026-08-06", false, dir, testClock(), testLogger())

	openedAt := time.Date(2026, 8, 6, 9, 45, 0, 0, clock.IST)
	store.Apply(func(s *State) {
		s.Positions["TCS"] = models.Position{
			Symbol:       "TCS",
			Direction:    models.Bull,
			Qty:          10,
			RemainingQty: 5,
			EntryPrice:   100,
			Stop:         100,
			TP1:          102,
			TP2:          104,
			TP1Done:      true,
			Status:       models.PositionOpen,
			OpenPnL:      10,
			RealizedPnL:  10,
			OpenedAt:     openedAt,
		}
	})
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush returned %v", err)
	}

	restored, err := LoadPositions(dir, "2026-08-06")
	if err != nil {
		t.Fatalf("LoadPositions returned %v", err)
	}
	pos, ok := restored["TCS"]
	if !ok {
		t.Fatal("expected TCS in the restored positions")
	}
	if pos.Status != models.PositionOpen || pos.RemainingQty != 5 || !pos.TP1Done || pos.Stop != 100 {
		t.Fatalf("got %+v, want the in-flight TP1-trailed state preserved", pos)
	}
	if !pos.OpenedAt.Equal(openedAt) {
		t.Fatalf("opened_at = %v, want %v", pos.OpenedAt, openedAt)
	}
}

func TestLoadPositions_IgnoresAFileFromADifferentTradingDay(t *testing.T) {
	dir := t.TempDir()
	store := New(models.ModePaper, "2026-08-05", false, dir, testClock(), testLogger())
	store.Apply(func(s *State) {
		s.Positions["TCS"] = models.Position{Symbol: "TCS", Status: models.PositionOpen}
	})
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush returned %v", err)
	}

	restored, err := LoadPositions(dir, "2026-08-06")
	if err != nil {
		t.Fatalf("LoadPositions returned %v", err)
	}
	if len(restored) != 0 {
		t.Fatalf("expected no positions restored from a different day's file, got %+v", restored)
	}
}

func TestLoadPositions_MissingFileIsNotAnError(t *testing.T) {
	restored, err := LoadPositions(t.TempDir(), "2026-08-06")
	if err != nil {
		t.Fatalf("LoadPositions returned %v", err)
	}
	if restored != nil {
		t.Fatalf("expected nil positions for a fresh state dir, got %+v", restored)
	}
}

func TestApply_ConcurrentWritesNeverLoseAnUpdate(t *testing.T) {
	store := New(models.ModePaper, "2026-08-06", false, t.TempDir(), testClock(), testLogger())
	symbols := []string{"A", "B", "C", "D", "E"}

	done := make(chan struct{})
	for _, sym := range symbols {
		sym := sym
		go func() {
			store.Apply(func(s *State) {
				s.Quotes[sym] = models.Quote{Symbol: sym, LTP: 1}
			})
			done <- struct{}{}
		}()
	}
	for range symbols {
		<-done
	}

	final := store.Snapshot()
	for _, sym := range symbols {
		if _, ok := final.Quotes[sym]; !ok {
			t.Fatalf("quote for %s missing from final snapshot %+v", sym, final.Quotes)
		}
	}
}
