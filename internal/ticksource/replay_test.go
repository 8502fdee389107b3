package ticksource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"probedge/internal/models"
)

func writeCSV(t *testing.T, dir, symbol string, rows []string) {
	t.Helper()
	content := "timestamp,open,high,low,close,volume\n"
	for _, r := range rows {
		content += r + "\n"
	}
	if err := os.WriteFile(filepath.Join(dir, symbol+".csv"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReplay_DeterministicAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "TCS", []string{
		"2026-08-06T09:15:00+05:30,100,110,95,105,1000",
		"2026-08-06T09:20:00+05:30,105,108,102,106,800",
	})

	cfg := ReplayConfig{Dir: dir, Symbols: []string{"TCS"}, Seed: 42}

	r1, err := NewReplay(cfg)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := NewReplay(cfg)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for {
		t1, err1 := r1.Next(ctx)
		t2, err2 := r2.Next(ctx)
		if err1 != err2 {
			t.Fatalf("errors diverged: %v vs %v", err1, err2)
		}
		if err1 != nil {
			break
		}
		if t1.Token != t2.Token || t1.Symbol != t2.Symbol || t1.LTP != t2.LTP || t1.Volume != t2.Volume || !t1.Timestamp.Equal(t2.Timestamp) {
			t.Fatalf("ticks diverged: %+v vs %+v", t1, t2)
		}
	}
}

func TestReplay_EmitsFourTicksPerBarWithCorrectExtremes(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "TCS", []string{
		"2026-08-06T09:15:00+05:30,100,110,95,105,1000",
	})

	r, err := NewReplay(ReplayConfig{Dir: dir, Symbols: []string{"TCS"}, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	var got []models.RawTick
	for {
		tick, err := r.Next(ctx)
		if err == ErrEndOfStream {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, tick)
	}

	if len(got) != 4 {
		t.Fatalf("expected 4 ticks, got %d", len(got))
	}
	start := time.Date(2026, 8, 6, 9, 15, 0, 0, got[0].Timestamp.Location())
	if !got[0].Timestamp.Equal(start) || got[0].LTP != 100 {
		t.Fatalf("first tick should be the open at bar start, got %+v", got[0])
	}
	if !got[1].Timestamp.Equal(start.Add(2 * time.Minute)) {
		t.Fatalf("second tick should land at start+2m, got %+v", got[1])
	}
	if !got[2].Timestamp.Equal(start.Add(3 * time.Minute)) {
		t.Fatalf("third tick should land at start+3m, got %+v", got[2])
	}
	extremes := map[float64]bool{got[1].LTP: true, got[2].LTP: true}
	if !extremes[95] || !extremes[110] {
		t.Fatalf("second/third ticks should be the bar's high and low in some order, got %v/%v", got[1].LTP, got[2].LTP)
	}
	if !got[3].Timestamp.Equal(start.Add(4*time.Minute + 59*time.Second)) {
		t.Fatalf("fourth tick should land at start+4:59, got %+v", got[3])
	}
	if got[3].LTP != 105 {
		t.Fatalf("fourth tick should be the close, got %v", got[3].LTP)
	}
}

func TestReplay_InterleavesSymbolsChronologically(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "TCS", []string{
		"2026-08-06T09:15:00+05:30,100,101,99,100,100",
	})
	writeCSV(t, dir, "INFY", []string{
		"2026-08-06T09:15:00+05:30,200,201,199,200,100",
	})

	r, err := NewReplay(ReplayConfig{Dir: dir, Symbols: []string{"TCS", "INFY"}, Seed: 7})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	var last time.Time
	count := 0
	for {
		tick, err := r.Next(ctx)
		if err == ErrEndOfStream {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if tick.Timestamp.Before(last) {
			t.Fatalf("ticks not in chronological order: %v after %v", tick.Timestamp, last)
		}
		last = tick.Timestamp
		count++
	}
	if count != 8 {
		t.Fatalf("expected 8 ticks total, got %d", count)
	}
}

func TestReplay_ModeIsSim(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "TCS", []string{"2026-08-06T09:15:00+05:30,100,101,99,100,100"})
	r, err := NewReplay(ReplayConfig{Dir: dir, Symbols: []string{"TCS"}, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	if r.Mode() != models.ModeSim {
		t.Fatalf("Mode() = %v, want SIM", r.Mode())
	}
}
