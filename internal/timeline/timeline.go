// Package timeline implements the reveal predicate that governs internal
// producers: the classifier will not compute OT before 09:40:01 even if
// the bars to compute it from already exist, and the plan builder will
// not treat a PlanRow as visible before the snapshot is locked.
package timeline

import (
	"time"

	"probedge/internal/clock"
	"probedge/internal/config"
	"probedge/internal/models"
)

// Field identifies a piece of revealed state.
type Field string

const (
	FieldQuote  Field = "quote"
	FieldOHLC   Field = "ohlc"
	FieldTagPDC Field = "tags.PDC"
	FieldTagOL  Field = "tags.OL"
	FieldTagOT  Field = "tags.OT"
	FieldPlan   Field = "plan"
)

// SnapshotState is the subset of Snapshot state the plan.* reveal check needs.
type SnapshotState struct {
	Status models.SnapshotStatus
	Locked bool
}

// Gate evaluates the reveal predicate against the configured cutovers.
type Gate struct {
	cutovers config.CutoverConfig
}

// New builds a Gate from the configured IST cutover times.
func New(cutovers config.CutoverConfig) *Gate {
	return &Gate{cutovers: cutovers}
}

// Reveal reports whether field may be shown to observers at time now.
func (g *Gate) Reveal(field Field, now time.Time, snap SnapshotState) bool {
	switch field {
	case FieldQuote, FieldOHLC:
		return true
	case FieldTagPDC:
		return g.after(now, g.cutovers.PDC)
	case FieldTagOL:
		return g.after(now, g.cutovers.OL)
	case FieldTagOT:
		return g.after(now, g.cutovers.OT)
	case FieldPlan:
		return snap.Locked && (snap.Status == models.SnapshotReady || snap.Status == models.SnapshotReadyPartial)
	default:
		return false
	}
}

func (g *Gate) after(now time.Time, hhmmss string) bool {
	cutover, err := clock.AtCutover(now, hhmmss)
	if err != nil {
		return false
	}
	return !now.Before(cutover)
}

// RevealTag reports whether the classifier may compute the given tag yet.
// The classifier calls this before running its pure functions so a
// correctly-timed restart never back-fills a tag earlier than its cutover.
func (g *Gate) RevealTag(tag Field, now time.Time) bool {
	switch tag {
	case FieldTagPDC, FieldTagOL, FieldTagOT:
		return g.Reveal(tag, now, SnapshotState{})
	default:
		return false
	}
}

// EODFlattenAt returns the configured force-flat cutover for the IST
// calendar day of now.
func (g *Gate) EODFlattenAt(now time.Time) (time.Time, error) {
	return clock.AtCutover(now, g.cutovers.EODFlatten)
}

// PlanCutoverAt returns the OT cutover, which is also when the plan
// builder runs.
func (g *Gate) PlanCutoverAt(now time.Time) (time.Time, error) {
	return clock.AtCutover(now, g.cutovers.OT)
}
