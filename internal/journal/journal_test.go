package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"probedge/internal/models"
)

func openTest(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open returned %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func fill(id, symbol string, ts time.Time) models.Fill {
	return models.Fill{
		ID:            id,
		ClientOrderID: symbol + ":entry",
		Symbol:        symbol,
		Side:          models.OrderSideBuy,
		Qty:           10,
		Price:         100,
		TS:            ts,
		Reason:        models.ExitNone,
	}
}

func TestRecordFill_RoundTripsThroughFills(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()
	ts := time.Date(2026, 8, 6, 9, 41, 0, 0, time.UTC)

	if err := j.RecordFill(ctx, fill("f1", "TCS", ts)); err != nil {
		t.Fatalf("RecordFill returned %v", err)
	}

	fills, err := j.Fills(ctx, FillFilter{Symbol: "TCS"})
	if err != nil {
		t.Fatalf("Fills returned %v", err)
	}
	if len(fills) != 1 || fills[0].ID != "f1" || fills[0].Price != 100 {
		t.Fatalf("got %+v, want the journaled fill", fills)
	}
}

func TestRecordFill_DuplicateIDFails(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()
	ts := time.Date(2026, 8, 6, 9, 41, 0, 0, time.UTC)

	if err := j.RecordFill(ctx, fill("f1", "TCS", ts)); err != nil {
		t.Fatalf("first RecordFill returned %v", err)
	}
	if err := j.RecordFill(ctx, fill("f1", "TCS", ts)); err == nil {
		t.Fatal("expected a duplicate fill ID to fail rather than silently overwrite")
	}
}

func TestFills_FiltersBySymbolAndDateRange(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	j.RecordFill(ctx, fill("f1", "TCS", time.Date(2026, 8, 5, 9, 41, 0, 0, time.UTC)))
	j.RecordFill(ctx, fill("f2", "TCS", time.Date(2026, 8, 6, 9, 41, 0, 0, time.UTC)))
	j.RecordFill(ctx, fill("f3", "INFY", time.Date(2026, 8, 6, 9, 41, 0, 0, time.UTC)))

	fills, err := j.Fills(ctx, FillFilter{
		Symbol:    "TCS",
		StartDate: time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Fills returned %v", err)
	}
	if len(fills) != 1 || fills[0].ID != "f2" {
		t.Fatalf("got %+v, want only f2", fills)
	}
}

func TestRecordHealth_AppendsTransitions(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()
	ts := time.Date(2026, 8, 6, 9, 41, 0, 0, time.UTC)

	if err := j.RecordHealth(ctx, ts, "ticksource", models.HeartbeatWarn, "no ticks for 12s"); err != nil {
		t.Fatalf("RecordHealth returned %v", err)
	}
}
