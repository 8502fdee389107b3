// Package riskengine aggregates realized and open P&L across positions
// into one daily risk verdict, and latches that verdict once the day's
// loss cap is breached so a subsequent bounce in P&L cannot silently
// re-open trading.
package riskengine

import (
	"sync"

	"probedge/internal/models"
)

const (
	reasonOK          = "OK"
	reasonManualKill  = "MANUAL_KILL_SWITCH"
	reasonLossCap     = "DAY_PNL_BELOW_LOSS_CAP"
	reasonNegativePnL = "DAY_PNL_NEGATIVE"
)

// Engine tracks the one-way daily-loss latch across evaluations. Once it
// trips to HALTED for a given date, it stays HALTED until Reset is called
// for the next trading day, regardless of how positions' P&L moves
// afterward.
type Engine struct {
	mu      sync.Mutex
	date    string
	latched bool
}

// New creates a risk engine with no latch engaged.
func New() *Engine {
	return &Engine{}
}

// Reset clears the latch for a new trading day. Calling Reset with the
// same date as the engine's current date is a no-op, so a restart that
// reloads the same day's state does not accidentally un-halt a latched
// day.
func (e *Engine) Reset(date string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.date == date {
		return
	}
	e.date = date
	e.latched = false
}

// Evaluate aggregates realized and open P&L across positions and decides
// whether new entries may still be taken. manualKill is the kill-switch
// flag from State; it forces HALTED independent of P&L.
func (e *Engine) Evaluate(positions []models.Position, dailyRiskRs float64, manualKill bool) models.RiskState {
	e.mu.Lock()
	defer e.mu.Unlock()

	realized, open := 0.0, 0.0
	for _, p := range positions {
		realized += p.RealizedPnL
		if p.Status == models.PositionOpen {
			open += p.OpenPnL
		}
	}
	dayPnL := realized + open
	lossCap := -dailyRiskRs

	status := models.RiskNormal
	canOpen := true
	reason := reasonOK

	switch {
	case manualKill:
		status, canOpen, reason = models.RiskHalted, false, reasonManualKill
	case e.latched:
		status, canOpen, reason = models.RiskHalted, false, reasonLossCap
	case dayPnL <= lossCap:
		status, canOpen, reason = models.RiskHalted, false, reasonLossCap
		e.latched = true
	case dayPnL < 0:
		status, reason = models.RiskWarn, reasonNegativePnL
	}

	return models.RiskState{
		Status:           status,
		RealizedRs:       realized,
		OpenRs:           open,
		DayPnLRs:         dayPnL,
		LossCapRs:        lossCap,
		CanOpenNewTrades: canOpen,
		Reason:           reason,
	}
}
