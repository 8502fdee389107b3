// Package freqtable holds the read-only historical tag-frequency table
// and the picker algorithm that consults it. The table is loaded once at
// startup and never mutated at runtime.
package freqtable

import (
	"strings"

	"probedge/internal/models"
)

// Table is a read-only in-memory lookup of historical BULL/BEAR counts
// keyed by (symbol, level, tag-tuple).
type Table struct {
	rows map[string]models.FreqRow // key: symbol + "|" + level + "|" + joined tag-tuple
}

// New builds a Table from a flat slice of rows, as loaded from the
// master-frequency batch job's output.
func New(rows []models.FreqRow) *Table {
	t := &Table{rows: make(map[string]models.FreqRow, len(rows))}
	for _, r := range rows {
		t.rows[rowKey(r.Symbol, r.Level, r.Key)] = r
	}
	return t
}

func rowKey(symbol string, level models.Level, key []string) string {
	return symbol + "|" + string(level) + "|" + strings.Join(key, ",")
}

// Lookup returns the row for (symbol, level, key) and whether it exists.
func (t *Table) Lookup(symbol string, level models.Level, key []string) (models.FreqRow, bool) {
	r, ok := t.rows[rowKey(symbol, level, key)]
	return r, ok
}

// Len returns the number of rows loaded.
func (t *Table) Len() int { return len(t.rows) }

// Keys builds the four level keys for a fully-resolved tag set, in the
// order spec.md §4.5 defines them: L3 = (PDC,OL,OT), L2 = (OL,OT) [and
// separately (PDC,OT), but the picker only uses the OL/OT pairing as its
// L2 fallback], L1 = (OT), L0 = marginal (empty key).
func Keys(pdc models.PrevDayContext, ol models.OpenLocation, ot models.OpeningTrend) map[models.Level][]string {
	return map[models.Level][]string{
		models.LevelL3: {string(pdc), string(ol), string(ot)},
		models.LevelL2: {string(ol), string(ot)},
		models.LevelL1: {string(ot)},
		models.LevelL0: {},
	}
}
