// Package classifier computes the three categorical session tags — PDC,
// OL, OT — as pure functions of a symbol's bars and the previous day's
// aggregated OHLC. Nothing here reads a clock; callers are responsible
// for only invoking a tag's function once its cutover has passed
// (see internal/timeline).
package classifier

import (
	"probedge/internal/models"
)

// Previous-day-context thresholds. A narrow or weak-bodied previous day
// classifies as TR regardless of where it closed within its range.
const (
	pdcNarrowRangePct = 1.00
	pdcBodyStrong     = 0.45
	pdcBodyWeak       = 0.25
	pdcCLVBull        = 0.65
	pdcCLVBear        = 0.35
)

// PDC classifies the previous trading day's range direction and
// close-position into {BULL, BEAR, TR}.
func PDC(prev models.PrevDayOHLC) models.PrevDayContext {
	rng := prev.High - prev.Low
	if rng <= 0 || prev.Close == 0 {
		return models.PDCTR
	}
	rangePct := 100.0 * rng / prev.Close
	bodyFrac := absf(prev.Close-prev.Open) / rng
	clv := (prev.Close - prev.Low) / rng // 0 = close at low, 1 = close at high

	if rangePct <= pdcNarrowRangePct || bodyFrac <= pdcBodyWeak {
		return models.PDCTR
	}
	if clv >= pdcCLVBull && bodyFrac >= pdcBodyStrong {
		return models.PDCBull
	}
	if clv <= pdcCLVBear && bodyFrac >= pdcBodyStrong {
		return models.PDCBear
	}
	return models.PDCTR
}

// openLocationBand is the fraction of the previous day's range that
// counts as "near" the high/low edge rather than merely inside it.
const openLocationBand = 0.30

// OL classifies today's opening price relative to the previous day's
// high/low band into {OAR, OOH, OIM, OOL, OBR}.
func OL(todayOpen float64, prev models.PrevDayOHLC) models.OpenLocation {
	rng := prev.High - prev.Low
	if rng <= 0 {
		return models.OIM
	}
	switch {
	case todayOpen < prev.Low:
		return models.OBR
	case todayOpen <= prev.Low+openLocationBand*rng:
		return models.OOL
	case todayOpen > prev.High:
		return models.OAR
	case todayOpen >= prev.High-openLocationBand*rng:
		return models.OOH
	default:
		return models.OIM
	}
}

// OT classifies the direction and persistence of the first five
// 5-minute bars (09:15-09:40) into {BULL, BEAR, TR}: BULL if close>open
// in at least 4 of 5 bars and the cumulative return from the first
// bar's open to the last bar's close exceeds threshPct; BEAR mirrored;
// otherwise TR.
func OT(bars []models.Bar, threshPct float64) models.OpeningTrend {
	if len(bars) < 5 {
		return models.OTTR
	}
	first := bars[:5]

	up, down := 0, 0
	for _, b := range first {
		switch {
		case b.Close > b.Open:
			up++
		case b.Close < b.Open:
			down++
		}
	}

	open0 := first[0].Open
	closeN := first[len(first)-1].Close
	if open0 == 0 {
		return models.OTTR
	}
	cumReturnPct := 100.0 * (closeN - open0) / open0

	if up >= 4 && cumReturnPct > threshPct {
		return models.OTBull
	}
	if down >= 4 && cumReturnPct < -threshPct {
		return models.OTBear
	}
	return models.OTTR
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
