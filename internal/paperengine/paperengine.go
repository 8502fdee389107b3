// Package paperengine runs the simulated PENDING→OPEN→CLOSED position
// lifecycle against live (or replayed) quotes. It never touches a real
// broker order; every fill is a bookkeeping entry this package writes
// for the journal.
package paperengine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"probedge/internal/models"
)

// Engine tracks every tracked symbol's Position for the current trading
// day and produces Fills as quotes move through entry/stop/target levels.
type Engine struct {
	mu        sync.Mutex
	positions map[string]*models.Position
}

// New creates an empty paper engine.
func New() *Engine {
	return &Engine{positions: make(map[string]*models.Position)}
}

// SeedFromPlan creates a PENDING position for every non-ABSTAIN plan row
// that the engine isn't already tracking. It is idempotent: calling it
// again with the same locked plan does not touch positions already in
// flight. After a mid-day restart the engine tracks only what Restore
// has given it.
func (e *Engine) SeedFromPlan(plan models.PortfolioPlan) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for symbol, row := range plan.Plans {
		if row.Pick == models.Abstain {
			continue
		}
		if _, exists := e.positions[symbol]; exists {
			continue
		}
		e.positions[symbol] = &models.Position{
			Symbol:       symbol,
			Direction:    row.Pick,
			Qty:          row.Qty,
			RemainingQty: row.Qty,
			EntryPrice:   row.Entry,
			Stop:         row.Stop,
			TP1:          row.TP1,
			TP2:          row.TP2,
			Status:       models.PositionPending,
		}
	}
}

// Restore seeds the engine from positions recovered from a prior run's
// live_state.json, for any symbol the engine is not already tracking. It
// must be called before SeedFromPlan so that a restored OPEN or PENDING
// position is never re-created as a fresh PENDING one.
func (e *Engine) Restore(positions map[string]models.Position) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for symbol, pos := range positions {
		if _, exists := e.positions[symbol]; exists {
			continue
		}
		p := pos
		e.positions[symbol] = &p
	}
}

// Positions returns a snapshot copy of every tracked position.
func (e *Engine) Positions() map[string]models.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]models.Position, len(e.positions))
	for symbol, pos := range e.positions {
		out[symbol] = *pos
	}
	return out
}

// Tick advances every tracked position by one cycle against the latest
// quotes, returning the Fills generated this cycle. killSwitch closes
// every OPEN position at its last traded price and cancels every
// PENDING one; canOpenNewTrades false (the daily loss guard tripped)
// cancels PENDING positions without touching ones already OPEN.
// eodFlattenAt is the 15:05 IST force-flatten cutover; once now reaches
// it, every OPEN position is closed at the market regardless of stop or
// target, and every PENDING position that never crossed entry is
// cancelled with exit_reason=TIME.
func (e *Engine) Tick(now time.Time, quotes map[string]models.Quote, canOpenNewTrades, killSwitch bool, eodFlattenAt time.Time) []models.Fill {
	e.mu.Lock()
	defer e.mu.Unlock()

	var fills []models.Fill
	for _, pos := range e.positions {
		quote, ok := quotes[pos.Symbol]
		if !ok {
			continue
		}

		switch pos.Status {
		case models.PositionPending:
			if fill := e.handlePending(pos, quote, now, canOpenNewTrades, killSwitch, eodFlattenAt); fill != nil {
				fills = append(fills, *fill)
			}
		case models.PositionOpen:
			fills = append(fills, e.handleOpen(pos, quote, now, killSwitch, eodFlattenAt)...)
		}
	}
	return fills
}

func (e *Engine) handlePending(pos *models.Position, quote models.Quote, now time.Time, canOpenNewTrades, killSwitch bool, eodFlattenAt time.Time) *models.Fill {
	if killSwitch {
		pos.Status = models.PositionClosed
		pos.ExitReason = models.ExitKill
		pos.ClosedAt = now
		return nil
	}
	if !now.Before(eodFlattenAt) {
		pos.Status = models.PositionClosed
		pos.ExitReason = models.ExitTime
		pos.ClosedAt = now
		return nil
	}
	if !canOpenNewTrades {
		pos.Status = models.PositionClosed
		pos.ExitReason = models.ExitRiskHalt
		pos.ClosedAt = now
		return nil
	}

	crossed := false
	if pos.Direction == models.Bull {
		crossed = quote.LTP >= pos.EntryPrice
	} else {
		crossed = quote.LTP <= pos.EntryPrice
	}
	if !crossed {
		return nil
	}

	pos.Status = models.PositionOpen
	pos.OpenedAt = now
	return &models.Fill{
		ID:            uuid.NewString(),
		ClientOrderID: entryClientOrderID(pos, now),
		Symbol:        pos.Symbol,
		Side:          entrySide(pos.Direction),
		Qty:           pos.Qty,
		Price:         pos.EntryPrice,
		TS:            now,
		Reason:        models.ExitNone,
	}
}

func (e *Engine) handleOpen(pos *models.Position, quote models.Quote, now time.Time, killSwitch bool, eodFlattenAt time.Time) []models.Fill {
	ltp := quote.LTP

	if !now.Before(eodFlattenAt) {
		return []models.Fill{e.closeRemainder(pos, ltp, now, models.ExitTime)}
	}
	if killSwitch {
		return []models.Fill{e.closeRemainder(pos, ltp, now, models.ExitKill)}
	}

	slHit := false
	if pos.Direction == models.Bull {
		slHit = ltp <= pos.Stop
	} else {
		slHit = ltp >= pos.Stop
	}
	if slHit {
		return []models.Fill{e.closeRemainder(pos, pos.Stop, now, models.ExitSL)}
	}

	if !pos.TP1Done {
		tp1Hit := false
		if pos.Direction == models.Bull {
			tp1Hit = ltp >= pos.TP1
		} else {
			tp1Hit = ltp <= pos.TP1
		}
		if tp1Hit {
			return e.partialExitAtTP1(pos, now)
		}
	} else {
		tp2Hit := false
		if pos.Direction == models.Bull {
			tp2Hit = ltp >= pos.TP2
		} else {
			tp2Hit = ltp <= pos.TP2
		}
		if tp2Hit {
			return []models.Fill{e.closeRemainder(pos, pos.TP2, now, models.ExitTP2)}
		}
	}

	pos.OpenPnL = openPnL(pos, ltp)
	return nil
}

// partialExitAtTP1 exits half the remaining quantity at TP1 and trails
// the stop to entry (break-even) for whatever remains.
func (e *Engine) partialExitAtTP1(pos *models.Position, now time.Time) []models.Fill {
	exitQty := pos.RemainingQty / 2
	pos.TP1Done = true
	pos.Stop = pos.EntryPrice

	if exitQty == 0 {
		// Too small a position to split; the break-even trail above
		// still applies, and the full remainder exits at TP2 or SL.
		pos.OpenPnL = openPnL(pos, pos.TP1)
		return nil
	}

	realized := realizedPnL(pos, pos.TP1, exitQty)
	pos.RealizedPnL += realized
	pos.RemainingQty -= exitQty
	pos.OpenPnL = openPnL(pos, pos.TP1)

	return []models.Fill{{
		ID:            uuid.NewString(),
		ClientOrderID: exitClientOrderID(pos, now, models.ExitTP1),
		Symbol:        pos.Symbol,
		Side:          exitSide(pos.Direction),
		Qty:           exitQty,
		Price:         pos.TP1,
		TS:            now,
		Reason:        models.ExitTP1,
	}}
}

// closeRemainder exits whatever quantity is left at price and finalizes
// the position as CLOSED.
func (e *Engine) closeRemainder(pos *models.Position, price float64, now time.Time, reason models.ExitReason) models.Fill {
	qty := pos.RemainingQty
	realized := realizedPnL(pos, price, qty)

	pos.RealizedPnL += realized
	pos.RemainingQty = 0
	pos.OpenPnL = 0
	pos.Status = models.PositionClosed
	pos.ExitReason = reason
	pos.ClosedAt = now

	return models.Fill{
		ID:            uuid.NewString(),
		ClientOrderID: exitClientOrderID(pos, now, reason),
		Symbol:        pos.Symbol,
		Side:          exitSide(pos.Direction),
		Qty:           qty,
		Price:         price,
		TS:            now,
		Reason:        reason,
	}
}

func openPnL(pos *models.Position, ltp float64) float64 {
	if pos.Direction == models.Bull {
		return float64(pos.RemainingQty) * (ltp - pos.EntryPrice)
	}
	return float64(pos.RemainingQty) * (pos.EntryPrice - ltp)
}

func realizedPnL(pos *models.Position, exitPrice float64, qty int) float64 {
	if pos.Direction == models.Bull {
		return float64(qty) * (exitPrice - pos.EntryPrice)
	}
	return float64(qty) * (pos.EntryPrice - exitPrice)
}

func entrySide(dir models.Direction) models.OrderSide {
	if dir == models.Bull {
		return models.OrderSideBuy
	}
	return models.OrderSideSell
}

func exitSide(dir models.Direction) models.OrderSide {
	if dir == models.Bull {
		return models.OrderSideSell
	}
	return models.OrderSideBuy
}

func entryClientOrderID(pos *models.Position, now time.Time) string {
	return pos.Symbol + ":entry:" + now.Format("20060102")
}

func exitClientOrderID(pos *models.Position, now time.Time, reason models.ExitReason) string {
	return pos.Symbol + ":" + string(reason) + ":" + now.Format("20060102T150405")
}
