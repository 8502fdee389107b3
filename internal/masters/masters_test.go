package masters

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"probedge/internal/models"
)

func writeMaster(t *testing.T, dir, symbol string, rows [][]string) {
	t.Helper()
	path := filepath.Join(dir, symbol+"_5MINUTE_MASTER.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	f.WriteString("Date,Open,High,Low,Close,PrevDayContext,OpenLocation,OpeningTrend,Outcome\n")
	for _, r := range rows {
		f.WriteString(r[0])
		for _, field := range r[1:] {
			f.WriteString("," + field)
		}
		f.WriteString("\n")
	}
}

func TestLoad_PrevDayOHLCReturnsMostRecentSessionBeforeAsOf(t *testing.T) {
	dir := t.TempDir()
	writeMaster(t, dir, "TCS", [][]string{
		{"2026-08-04", "100", "105", "99", "103", "BULL", "OIM", "BULL", "BULL"},
		{"2026-08-05", "103", "108", "102", "107", "BULL", "OAR", "BULL", "BULL"},
	})

	table, err := Load(dir, []string{"TCS"})
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}

	prev, ok := table.PrevDayOHLC("TCS", time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC))
	if !ok {
		t.Fatal("expected a prior session to be found")
	}
	if prev.Close != 107 {
		t.Fatalf("got %+v, want the 08-05 session (closest before 08-06)", prev)
	}
}

func TestLoad_MissingFileYieldsNoHistoryNotError(t *testing.T) {
	dir := t.TempDir()
	table, err := Load(dir, []string{"INFY"})
	if err != nil {
		t.Fatalf("Load returned %v, want nil for a symbol with no master file", err)
	}
	if _, ok := table.PrevDayOHLC("INFY", time.Now()); ok {
		t.Fatal("expected no prior-day data for a symbol with no master file")
	}
	missing := table.MissingSymbols([]string{"INFY"})
	if len(missing) != 1 || missing[0] != "INFY" {
		t.Fatalf("got %v, want [INFY]", missing)
	}
}

func TestBuildFreqTable_TalliesOutcomesByTagTupleExcludingAsOfDay(t *testing.T) {
	dir := t.TempDir()
	writeMaster(t, dir, "TCS", [][]string{
		{"2026-08-01", "100", "105", "99", "103", "BULL", "OAR", "BULL", "BULL"},
		{"2026-08-02", "103", "108", "102", "107", "BULL", "OAR", "BULL", "BULL"},
		{"2026-08-03", "107", "109", "104", "105", "BULL", "OAR", "BULL", "BEAR"},
		{"2026-08-06", "105", "110", "104", "109", "BULL", "OAR", "BULL", "BULL"}, // same day as asOf, must be excluded
	})
	table, err := Load(dir, []string{"TCS"})
	if err != nil {
		t.Fatal(err)
	}

	freq := BuildFreqTable([]string{"TCS"}, time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC), table)

	row, ok := freq.Lookup("TCS", models.LevelL3, []string{"BULL", "OAR", "BULL"})
	if !ok {
		t.Fatal("expected an L3 row for (BULL,OAR,BULL)")
	}
	if row.Bull != 2 || row.Bear != 1 {
		t.Fatalf("got %+v, want 2 BULL / 1 BEAR (the 08-06 row excluded)", row)
	}
}
