package statestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"probedge/internal/clock"
	"probedge/internal/models"
)

// liveStateDoc is the exact on-disk shape of live_state.json. It is kept
// distinct from models.Snapshot/models.PortfolioPlan, which describe the
// locked daily plan artifact (plan_snapshot_{date}.json); this document
// additionally carries live quotes, tags and positions that have no home
// in a plan artifact.
type liveStateDoc struct {
	Meta      metaDoc               `json:"meta"`
	Quotes    map[string]quoteDoc   `json:"quotes"`
	Tags      map[string]tagsDoc    `json:"tags"`
	Positions map[string]positionDoc `json:"positions"`
}

type metaDoc struct {
	Mode               models.RunMode        `json:"mode"`
	Date               string                `json:"date"`
	Clock              string                `json:"clock"`
	Sim                bool                  `json:"sim"`
	PlanStatus         models.SnapshotStatus `json:"plan_status"`
	PlanBuiltAt        string                `json:"plan_built_at"`
	PlanLocked         bool                  `json:"plan_locked"`
	DailyRiskRs        float64               `json:"daily_risk_rs"`
	RiskPerTradeRs     float64               `json:"risk_per_trade_rs"`
	TotalPlannedRiskRs float64               `json:"total_planned_risk_rs"`
	ActiveTrades       int                   `json:"active_trades"`
	PnL                pnlDoc                `json:"pnl"`
	RiskState          riskStateDoc          `json:"risk_state"`
	BatchAgent         agentDoc              `json:"batch_agent"`
}

type pnlDoc struct {
	Day      float64 `json:"day"`
	Open     float64 `json:"open"`
	Realized float64 `json:"realized"`
}

type riskStateDoc struct {
	Status models.RiskStatus `json:"status"`
	Reason string            `json:"reason"`
}

type agentDoc struct {
	Status          models.HeartbeatStatus `json:"status"`
	LastHeartbeatTS string                 `json:"last_heartbeat_ts"`
}

type ohlcDoc struct {
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
}

type quoteDoc struct {
	LTP       float64 `json:"ltp"`
	OHLC      ohlcDoc `json:"ohlc"`
	Volume    int64   `json:"volume"`
	ChangePct float64 `json:"change_pct"`
}

type tagsDoc struct {
	PDC *models.PrevDayContext `json:"PDC"`
	OL  *models.OpenLocation   `json:"OL"`
	OT  *models.OpeningTrend   `json:"OT"`
}

type positionDoc struct {
	Status        models.PositionStatus `json:"status"`
	Qty           int                   `json:"qty"`
	RemainingQty  int                   `json:"remaining_qty"`
	Direction     models.Direction      `json:"direction"`
	EntryPrice    float64               `json:"entry_price"`
	Stop          float64               `json:"stop"`
	TP1           float64               `json:"tp1"`
	TP2           float64               `json:"tp2"`
	TP1Done       bool                  `json:"tp1_done"`
	OpenPnLRs     float64               `json:"open_pnl_rs"`
	RealizedPnLRs float64               `json:"realized_pnl_rs"`
	ExitReason    models.ExitReason     `json:"exit_reason"`
	OpenedAt      string                `json:"opened_at,omitempty"`
	ClosedAt      string                `json:"closed_at,omitempty"`
}

const istClockFormat = "2006-01-02 15:04:05"

// toLiveState projects the in-memory State into the wire document written
// to live_state.json, aggregating day P&L (realized + open across all
// positions) and active_trades (OPEN or PENDING positions) on the fly
// rather than caching them, so the two can never drift from Positions.
// now is the clock reading stamped into meta.clock.
func toLiveState(s *State, now time.Time) liveStateDoc {
	doc := liveStateDoc{
		Quotes:    make(map[string]quoteDoc, len(s.Quotes)),
		Tags:      make(map[string]tagsDoc, len(s.Tags)),
		Positions: make(map[string]positionDoc, len(s.Positions)),
	}

	var realized, open float64
	activeTrades := 0
	for symbol, pos := range s.Positions {
		realized += pos.RealizedPnL
		open += pos.OpenPnL
		if pos.Status == models.PositionOpen || pos.Status == models.PositionPending {
			activeTrades++
		}
		doc.Positions[symbol] = positionDoc{
			Status:        pos.Status,
			Qty:           pos.Qty,
			RemainingQty:  pos.RemainingQty,
			Direction:     pos.Direction,
			EntryPrice:    pos.EntryPrice,
			Stop:          pos.Stop,
			TP1:           pos.TP1,
			TP2:           pos.TP2,
			TP1Done:       pos.TP1Done,
			OpenPnLRs:     pos.OpenPnL,
			RealizedPnLRs: pos.RealizedPnL,
			ExitReason:    pos.ExitReason,
			OpenedAt:      formatOptionalTime(pos.OpenedAt),
			ClosedAt:      formatOptionalTime(pos.ClosedAt),
		}
	}

	for symbol, q := range s.Quotes {
		doc.Quotes[symbol] = quoteDoc{
			LTP:       q.LTP,
			OHLC:      ohlcDoc{O: q.TodayOpen, H: q.High, L: q.Low, C: q.Close},
			Volume:    q.Volume,
			ChangePct: q.ChangePercent,
		}
	}

	for symbol, t := range s.Tags {
		doc.Tags[symbol] = tagsDoc{PDC: t.PDC, OL: t.OL, OT: t.OT}
	}

	var builtAt string
	if !s.Plan.BuiltAt.IsZero() {
		builtAt = s.Plan.BuiltAt.In(clock.IST).Format(istClockFormat)
	}

	doc.Meta = metaDoc{
		Mode:               s.Mode,
		Date:               s.Date,
		Clock:              now.In(clock.IST).Format(istClockFormat),
		Sim:                s.Sim,
		PlanStatus:         s.Plan.Status,
		PlanBuiltAt:        builtAt,
		PlanLocked:         s.Plan.Locked,
		DailyRiskRs:        s.Plan.PortfolioPlan.DailyRiskRs,
		RiskPerTradeRs:     s.Plan.PortfolioPlan.RiskPerTradeRs,
		TotalPlannedRiskRs: s.Plan.PortfolioPlan.TotalPlannedRiskRs,
		ActiveTrades:       activeTrades,
		PnL: pnlDoc{
			Day:      realized + open,
			Open:     open,
			Realized: realized,
		},
		RiskState: riskStateDoc{Status: s.Risk.Status, Reason: s.Risk.Reason},
		BatchAgent: agentDoc{
			Status:          batchAgentStatus(s.Agents),
			LastHeartbeatTS: batchAgentHeartbeat(s.Agents),
		},
	}
	return doc
}

func formatOptionalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(clock.IST).Format(istClockFormat)
}

func parseOptionalTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(istClockFormat, s, clock.IST)
	if err != nil {
		return time.Time{}
	}
	return t
}

// fromPositionDoc reconstructs the in-memory Position the engine and
// store need from its on-disk projection. It is the inverse of the
// Positions half of toLiveState, used only to restore mid-day state
// after a process restart.
func fromPositionDoc(symbol string, d positionDoc) models.Position {
	return models.Position{
		Symbol:       symbol,
		Direction:    d.Direction,
		Qty:          d.Qty,
		RemainingQty: d.RemainingQty,
		EntryPrice:   d.EntryPrice,
		Stop:         d.Stop,
		TP1:          d.TP1,
		TP2:          d.TP2,
		TP1Done:      d.TP1Done,
		Status:       d.Status,
		OpenPnL:      d.OpenPnLRs,
		RealizedPnL:  d.RealizedPnLRs,
		ExitReason:   d.ExitReason,
		OpenedAt:     parseOptionalTime(d.OpenedAt),
		ClosedAt:     parseOptionalTime(d.ClosedAt),
	}
}

// LoadPositions reads a previously persisted live_state.json under dir
// and returns its Positions, keyed by symbol, provided the document's
// own date matches the date the caller is starting for. A missing file,
// or a file left over from a different trading day, is not an error: it
// just means there is nothing to restore, since a new day's Store already
// starts from an empty State.
func LoadPositions(dir, date string) (map[string]models.Position, error) {
	path := filepath.Join(dir, "live_state.json")
	body, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var doc liveStateDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	if doc.Meta.Date != date {
		return nil, nil
	}

	positions := make(map[string]models.Position, len(doc.Positions))
	for symbol, d := range doc.Positions {
		positions[symbol] = fromPositionDoc(symbol, d)
	}
	return positions, nil
}

func batchAgentStatus(agents map[string]models.AgentHB) models.HeartbeatStatus {
	hb, ok := agents["batch_agent"]
	if !ok {
		return models.HeartbeatDown
	}
	return hb.Status
}

func batchAgentHeartbeat(agents map[string]models.AgentHB) string {
	hb, ok := agents["batch_agent"]
	if !ok || hb.LastHeartbeatTS.IsZero() {
		return ""
	}
	return hb.LastHeartbeatTS.In(clock.IST).Format(istClockFormat)
}
