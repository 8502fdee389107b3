// Package planner builds the one-shot daily Snapshot: for every symbol
// with resolved tags, it runs the picker, derives entry/stop/targets/size,
// and aggregates the result into a locked, immutable plan artifact.
package planner

import (
	"math"
	"time"

	"probedge/internal/config"
	"probedge/internal/freqtable"
	"probedge/internal/models"
)

// SymbolInput is everything the plan builder needs for one symbol: its
// resolved (or partially null) tags, the first five opening-range bars
// (09:15-09:40), and the previous session's OHLC for the ATR seed.
type SymbolInput struct {
	Symbol string
	Tags   models.Tags
	Bars   []models.Bar // must be exactly the first five 5-minute bars, in order, when Tags.Ready()
	Prev   models.PrevDayOHLC
}

const (
	minRiskPerShareFraction = 0.002
	tightStopReason         = "tight_stop"
	zeroQtyReason           = "zero_qty"
)

// BuildPlan runs the full plan-builder pass over a day's universe. It
// never blocks and never touches disk; persistence is the caller's job.
func BuildPlan(date string, mode models.RunMode, now time.Time, universe []SymbolInput, table *freqtable.Table, risk config.RiskConfig, picker config.PickerConfig) models.Snapshot {
	plans := make(map[string]models.PlanRow)
	resolved := 0
	totalRisk := 0.0
	activeTrades := 0

	for _, sd := range universe {
		if !sd.Tags.Ready() {
			continue
		}
		resolved++

		pick := freqtable.Pick(sd.Symbol, *sd.Tags.PDC, *sd.Tags.OL, *sd.Tags.OT, table, picker)
		row := buildRow(sd, pick, risk)
		plans[sd.Symbol] = row

		if row.Pick != models.Abstain {
			totalRisk += float64(row.Qty) * row.RiskPerShare
			activeTrades++
		}
	}

	status := models.SnapshotReady
	switch {
	case resolved == 0:
		status = models.SnapshotFailed
	case resolved < len(universe):
		status = models.SnapshotReadyPartial
	}

	return models.Snapshot{
		Date:    date,
		Mode:    mode,
		BuiltAt: now,
		Status:  status,
		Locked:  status != models.SnapshotFailed,
		PortfolioPlan: models.PortfolioPlan{
			Date:               date,
			DailyRiskRs:        risk.DailyRs,
			RiskPerTradeRs:     risk.PerTradeRs,
			TotalPlannedRiskRs: totalRisk,
			ActiveTrades:       activeTrades,
			Plans:              plans,
		},
	}
}

func buildRow(sd SymbolInput, pick models.PickResult, risk config.RiskConfig) models.PlanRow {
	row := models.PlanRow{
		Symbol:     sd.Symbol,
		Pick:       pick.Pick,
		Confidence: pick.Confidence,
		Level:      pick.Level,
		Tags: models.PlanRowTags{
			PrevDayContext: string(*sd.Tags.PDC),
			OpenLocation:   string(*sd.Tags.OL),
			OpeningTrend:   string(*sd.Tags.OT),
		},
	}

	if pick.Pick == models.Abstain {
		row.AbstainReason = pick.Reason
		return row
	}

	entryBar := sd.Bars[len(sd.Bars)-1]
	entry := entryBar.Close
	atr5 := atr(sd.Bars, sd.Prev.Close)
	lowFirst5, highFirst5 := rangeOf(sd.Bars)

	k := risk.RATRMult
	var stop, tp1, tp2 float64
	if pick.Pick == models.Bull {
		stop = math.Min(lowFirst5, entry-k*atr5)
	} else {
		stop = math.Max(highFirst5, entry+k*atr5)
	}

	r := math.Abs(entry - stop)
	minRisk := entry * minRiskPerShareFraction
	if r < minRisk {
		row.Pick = models.Abstain
		row.AbstainReason = tightStopReason
		return row
	}

	if pick.Pick == models.Bull {
		tp1, tp2 = entry+r, entry+2*r
	} else {
		tp1, tp2 = entry-r, entry-2*r
	}

	qty := int(math.Floor(risk.PerTradeRs / r))
	if qty == 0 {
		row.Pick = models.Abstain
		row.AbstainReason = zeroQtyReason
		return row
	}

	row.Entry = entry
	row.Stop = stop
	row.TP1 = tp1
	row.TP2 = tp2
	row.Qty = qty
	row.RiskPerShare = r
	return row
}

// atr computes the average true range over bars, seeding the first bar's
// true range with the previous session's close.
func atr(bars []models.Bar, prevClose float64) float64 {
	if len(bars) == 0 {
		return 0
	}
	pc := prevClose
	sum := 0.0
	for _, b := range bars {
		tr := math.Max(b.High-b.Low, math.Max(math.Abs(b.High-pc), math.Abs(b.Low-pc)))
		sum += tr
		pc = b.Close
	}
	return sum / float64(len(bars))
}

func rangeOf(bars []models.Bar) (low, high float64) {
	low, high = bars[0].Low, bars[0].High
	for _, b := range bars[1:] {
		low = math.Min(low, b.Low)
		high = math.Max(high, b.High)
	}
	return low, high
}
