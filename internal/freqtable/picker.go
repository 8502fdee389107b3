package freqtable

import (
	"probedge/internal/config"
	"probedge/internal/models"
)

// Pick runs the frequency-table picker algorithm from spec.md §4.5 for a
// symbol with fully-resolved tags. It tries L3 first, falls back through
// L2 and L1 down to L0 when the sample count at a level is below its
// configured minimum, then applies the confidence floor and the
// trend-range guard.
func Pick(symbol string, pdc models.PrevDayContext, ol models.OpenLocation, ot models.OpeningTrend, table *Table, cfg config.PickerConfig) models.PickResult {
	keys := Keys(pdc, ol, ot)

	nmin := map[models.Level]int{
		models.LevelL3: cfg.NminL3,
		models.LevelL2: cfg.NminL2,
		models.LevelL1: cfg.NminL1,
		models.LevelL0: 0,
	}

	order := []models.Level{models.LevelL3, models.LevelL2, models.LevelL1, models.LevelL0}

	var chosen models.FreqRow
	var chosenLevel models.Level
	found := false

	for _, level := range order {
		row, ok := table.Lookup(symbol, level, keys[level])
		if !ok {
			continue
		}
		if row.Total() >= nmin[level] || level == models.LevelL0 {
			chosen = row
			chosenLevel = level
			found = true
			break
		}
	}

	if !found {
		return models.PickResult{
			Symbol: symbol,
			Pick:   models.Abstain,
			Level:  models.LevelL0,
			Reason: "no frequency data",
		}
	}

	pick, conf := majority(chosen)

	result := models.PickResult{
		Symbol:     symbol,
		Pick:       pick,
		Confidence: conf * 100,
		Level:      chosenLevel,
		Samples:    chosen.Total(),
	}

	if conf < cfg.ConfMin {
		result.Pick = models.Abstain
		result.Reason = "below confidence floor"
		return result
	}

	if ot == models.OTTR && chosenLevel == models.LevelL3 && conf < cfg.TRGuardConf {
		result.Pick = models.Abstain
		result.Reason = "trend-range guard"
		return result
	}

	return result
}

// majority returns the majority side and its confidence (0..1) for a row.
func majority(row models.FreqRow) (models.Direction, float64) {
	total := row.Total()
	if total == 0 {
		return models.Abstain, 0
	}
	if row.Bull >= row.Bear {
		return models.Bull, float64(row.Bull) / float64(total)
	}
	return models.Bear, float64(row.Bear) / float64(total)
}
