// Package masters reads the per-symbol session-history CSVs
// (masters/{SYM}_5MINUTE_MASTER.csv) that back the previous-day OHLC
// lookup and the frequency table's historical tag/outcome counts. It
// never computes today's tags — that's internal/classifier's job — it
// only replays what past sessions already recorded.
package masters

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	perrors "probedge/internal/errors"
	"probedge/internal/freqtable"
	"probedge/internal/models"
)

// Row is one historical trading session for one symbol.
type Row struct {
	Date    time.Time
	Open    float64
	High    float64
	Low     float64
	Close   float64
	PDC     models.PrevDayContext
	OL      models.OpenLocation
	OT      models.OpeningTrend
	Outcome models.Direction // the session's realized BULL/BEAR outcome
}

// Table holds every symbol's loaded session history.
type Table struct {
	rows map[string][]Row // sorted ascending by Date
}

// Load reads masters/{SYM}_5MINUTE_MASTER.csv for every symbol in
// universe from dir. A missing file for a symbol is not an error here —
// that symbol simply has no history: PrevDayOHLC reports it as not found
// and MissingSymbols lists it, so the caller can downgrade to null tags.
func Load(dir string, universe []string) (*Table, error) {
	t := &Table{rows: make(map[string][]Row, len(universe))}
	for _, symbol := range universe {
		path := filepath.Join(dir, symbol+"_5MINUTE_MASTER.csv")
		rows, err := readCSV(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, perrors.NewDataGapError(symbol, "masters", "reading master CSV", err)
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
		t.rows[symbol] = rows
	}
	return t, nil
}

func readCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}

	var rows []Row
	for _, rec := range records[1:] {
		date, err := time.Parse("2006-01-02", rec[idx["Date"]])
		if err != nil {
			continue
		}
		rows = append(rows, Row{
			Date:    date,
			Open:    parseFloat(rec[idx["Open"]]),
			High:    parseFloat(rec[idx["High"]]),
			Low:     parseFloat(rec[idx["Low"]]),
			Close:   parseFloat(rec[idx["Close"]]),
			PDC:     models.PrevDayContext(rec[idx["PrevDayContext"]]),
			OL:      models.OpenLocation(rec[idx["OpenLocation"]]),
			OT:      models.OpeningTrend(rec[idx["OpeningTrend"]]),
			Outcome: models.Direction(rec[idx["Outcome"]]),
		})
	}
	return rows, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

// PrevDayOHLC returns the most recent session strictly before asOf for
// symbol, and whether one was found.
func (t *Table) PrevDayOHLC(symbol string, asOf time.Time) (models.PrevDayOHLC, bool) {
	rows := t.rows[symbol]
	var best *Row
	for i := range rows {
		if rows[i].Date.Before(asOf) {
			best = &rows[i]
		} else {
			break
		}
	}
	if best == nil {
		return models.PrevDayOHLC{}, false
	}
	return models.PrevDayOHLC{Open: best.Open, High: best.High, Low: best.Low, Close: best.Close}, true
}

// BuildFreqTable tallies every session strictly before asOf, across all
// symbols, into the frequency rows the picker reads: spec.md's lookback
// window excludes the current day to avoid leaking today's own outcome
// into its own pick.
func BuildFreqTable(symbols []string, asOf time.Time, table *Table) *freqtable.Table {
	type key struct {
		symbol string
		level  models.Level
		tags   string
	}
	counts := make(map[key]*models.FreqRow)

	bump := func(symbol string, level models.Level, tagKey []string, outcome models.Direction) {
		k := key{symbol: symbol, level: level, tags: strings.Join(tagKey, ",")}
		row, ok := counts[k]
		if !ok {
			row = &models.FreqRow{Symbol: symbol, Level: level, Key: append([]string{}, tagKey...)}
			counts[k] = row
		}
		switch outcome {
		case models.Bull:
			row.Bull++
		case models.Bear:
			row.Bear++
		}
	}

	for _, symbol := range symbols {
		for _, row := range table.rows[symbol] {
			if !row.Date.Before(asOf) {
				continue
			}
			if row.Outcome != models.Bull && row.Outcome != models.Bear {
				continue
			}
			for level, tagKey := range freqtable.Keys(row.PDC, row.OL, row.OT) {
				bump(symbol, level, tagKey, row.Outcome)
			}
		}
	}

	rows := make([]models.FreqRow, 0, len(counts))
	for _, row := range counts {
		rows = append(rows, *row)
	}
	return freqtable.New(rows)
}

// MissingSymbols reports which of universe have no loaded history at all — a
// missing-masters condition spec.md §7 treats as a data gap (that
// symbol contributes null tags and is excluded from the plan).
func (t *Table) MissingSymbols(universe []string) []string {
	var missing []string
	for _, symbol := range universe {
		if len(t.rows[symbol]) == 0 {
			missing = append(missing, symbol)
		}
	}
	return missing
}
