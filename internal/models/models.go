// Package models provides the domain types shared across the probedge
// runtime: bars, quotes, tags, frequency rows, plans, positions and fills.
package models

import "time"

// Direction is a directional bias or trade side.
type Direction string

const (
	Bull    Direction = "BULL"
	Bear    Direction = "BEAR"
	TR      Direction = "TR"
	Abstain Direction = "ABSTAIN"
)

// PrevDayContext is the PDC tag, computed at the 09:25 cutover.
type PrevDayContext string

const (
	PDCBull PrevDayContext = "BULL"
	PDCBear PrevDayContext = "BEAR"
	PDCTR   PrevDayContext = "TR"
)

// OpenLocation is the OL tag, computed at the 09:30 cutover.
type OpenLocation string

const (
	OAR OpenLocation = "OAR" // above prior-day high
	OOH OpenLocation = "OOH" // within the top 30% of prior-day range
	OIM OpenLocation = "OIM" // between the top and bottom 30% bands of prior-day range
	OOL OpenLocation = "OOL" // within the bottom 30% of prior-day range
	OBR OpenLocation = "OBR" // below prior-day low
)

// OpeningTrend is the OT tag, computed at the 09:40:01 cutover.
type OpeningTrend string

const (
	OTBull OpeningTrend = "BULL"
	OTBear OpeningTrend = "BEAR"
	OTTR   OpeningTrend = "TR"
)

// SnapshotStatus is the lifecycle state of a daily plan Snapshot.
type SnapshotStatus string

const (
	SnapshotMissing      SnapshotStatus = "MISSING"
	SnapshotBuilding     SnapshotStatus = "BUILDING"
	SnapshotReady        SnapshotStatus = "READY"
	SnapshotReadyPartial SnapshotStatus = "READY_PARTIAL"
	SnapshotFailed       SnapshotStatus = "FAILED"
)

// PositionStatus is the lifecycle state of a paper Position.
type PositionStatus string

const (
	PositionPending PositionStatus = "PENDING"
	PositionOpen    PositionStatus = "OPEN"
	PositionClosed  PositionStatus = "CLOSED"
)

// ExitReason records why a Position was closed.
type ExitReason string

const (
	ExitSL       ExitReason = "SL"
	ExitTP1      ExitReason = "TP1"
	ExitTP2      ExitReason = "TP2"
	ExitTime     ExitReason = "TIME"
	ExitKill     ExitReason = "KILL"
	ExitRiskHalt ExitReason = "RISK_HALT"
	ExitNone     ExitReason = ""
)

// RunMode is the tick-source / execution mode, carried into snapshot metadata.
type RunMode string

const (
	ModeLive  RunMode = "LIVE"
	ModePaper RunMode = "PAPER"
	ModeSim   RunMode = "SIM"
)

// RiskStatus is the paper engine's daily risk-state latch.
type RiskStatus string

const (
	RiskNormal RiskStatus = "NORMAL"
	RiskWarn   RiskStatus = "WARN"
	RiskHalted RiskStatus = "HALTED"
)

// HeartbeatStatus is the liveness state of a runtime component.
type HeartbeatStatus string

const (
	HeartbeatOK   HeartbeatStatus = "OK"
	HeartbeatWarn HeartbeatStatus = "WARN"
	HeartbeatDown HeartbeatStatus = "DOWN"
)

// Level is the frequency-table key specificity used by the picker.
type Level string

const (
	LevelL3 Level = "L3"
	LevelL2 Level = "L2"
	LevelL1 Level = "L1"
	LevelL0 Level = "L0"
)

// Bar is a closed 5-minute OHLCV candle for one symbol.
type Bar struct {
	Symbol string    `json:"symbol"`
	Start  time.Time `json:"start"` // IST, aligned to the 5-minute grid
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Key returns the (symbol, window-start) identity of the bar.
func (b Bar) Key() string {
	return b.Symbol + "@" + b.Start.Format(time.RFC3339)
}

// InProgressBar is the aggregator's live, not-yet-closed bucket for a symbol.
type InProgressBar struct {
	Symbol      string    `json:"symbol"`
	Start       time.Time `json:"start"`
	TodayOpen   float64   `json:"today_open"`
	RunningHigh float64   `json:"running_high"`
	RunningLow  float64   `json:"running_low"`
	LastClose   float64   `json:"last_close"`
	Volume      int64     `json:"volume"`
}

// Quote is the latest observed trade for a symbol.
type Quote struct {
	Symbol        string    `json:"symbol"`
	LTP           float64   `json:"ltp"`
	LastUpdateTS  time.Time `json:"last_update_ts"`
	TodayOpen     float64   `json:"today_open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	Volume        int64     `json:"volume"`
	ChangePercent float64   `json:"change_pct"`
}

// Tags holds the three categorical session descriptors for one symbol.
type Tags struct {
	Symbol      string          `json:"symbol"`
	PDC         *PrevDayContext `json:"pdc"`
	OL          *OpenLocation   `json:"ol"`
	OT          *OpeningTrend   `json:"ot"`
	PDCComputed time.Time       `json:"pdc_computed_at,omitempty"`
	OLComputed  time.Time       `json:"ol_computed_at,omitempty"`
	OTComputed  time.Time       `json:"ot_computed_at,omitempty"`
}

// Ready reports whether all three tags have been set for the day.
func (t Tags) Ready() bool {
	return t.PDC != nil && t.OL != nil && t.OT != nil
}

// PrevDayOHLC is the previous trading session's aggregate OHLC, the input
// the classifier needs for PDC and OL.
type PrevDayOHLC struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// FreqRow is one historical outcome count at a given key level.
type FreqRow struct {
	Symbol string   `json:"symbol"`
	Level  Level    `json:"level"`
	Key    []string `json:"key"` // tag enums, most-specific first
	Bull   int      `json:"bull"`
	Bear   int      `json:"bear"`
}

// Total returns the row's sample count.
func (r FreqRow) Total() int { return r.Bull + r.Bear }

// PickResult is the picker's directional decision for one symbol.
type PickResult struct {
	Symbol     string
	Pick       Direction
	Confidence float64 // 0..100
	Level      Level
	Samples    int
	Reason     string
}

// PlanRow is the per-symbol directive produced by the plan builder.
type PlanRow struct {
	Symbol        string      `json:"symbol"`
	Pick          Direction   `json:"pick"`
	Confidence    float64     `json:"confidence"`
	Level         Level       `json:"level"`
	Entry         float64     `json:"entry"`
	Stop          float64     `json:"stop"`
	TP1           float64     `json:"tp1"`
	TP2           float64     `json:"tp2"`
	Qty           int         `json:"qty"`
	RiskPerShare  float64     `json:"r_per_share"`
	Tags          PlanRowTags `json:"tags"`
	AbstainReason string      `json:"abstain_reason,omitempty"`
}

// PlanRowTags is the tag snapshot embedded in a PlanRow for observability.
type PlanRowTags struct {
	PrevDayContext string `json:"PrevDayContext"`
	OpenLocation   string `json:"OpenLocation"`
	OpeningTrend   string `json:"OpeningTrend"`
}

// PortfolioPlan is the aggregated plan for the full universe on one day.
type PortfolioPlan struct {
	Date               string             `json:"date"`
	DailyRiskRs        float64            `json:"daily_risk_rs"`
	RiskPerTradeRs     float64            `json:"risk_per_trade_rs"`
	TotalPlannedRiskRs float64            `json:"total_planned_risk_rs"`
	ActiveTrades       int                `json:"active_trades"`
	Plans              map[string]PlanRow `json:"plans"`
}

// Snapshot is the immutable per-day plan artifact.
type Snapshot struct {
	Date          string         `json:"date"`
	Mode          RunMode        `json:"mode"`
	BuiltAt       time.Time      `json:"built_at"`
	Status        SnapshotStatus `json:"status"`
	Locked        bool           `json:"locked"`
	PortfolioPlan PortfolioPlan  `json:"portfolio_plan"`
}

// Position is a live (or closed) paper trade.
type Position struct {
	Symbol       string         `json:"symbol"`
	Direction    Direction      `json:"direction"`
	Qty          int            `json:"qty"`
	RemainingQty int            `json:"remaining_qty"`
	EntryPrice   float64        `json:"entry_price"`
	Stop         float64        `json:"stop"`
	TP1          float64        `json:"tp1"`
	TP2          float64        `json:"tp2"`
	TP1Done      bool           `json:"tp1_done"`
	Status       PositionStatus `json:"status"`
	OpenPnL      float64        `json:"open_pnl_rs"`
	RealizedPnL  float64        `json:"realized_pnl_rs"`
	ExitReason   ExitReason     `json:"exit_reason"`
	OpenedAt     time.Time      `json:"opened_at,omitempty"`
	ClosedAt     time.Time      `json:"closed_at,omitempty"`
}

// Fill is one append-only execution journal row.
type Fill struct {
	ID            string     `json:"id"`
	ClientOrderID string     `json:"client_order_id"`
	Symbol        string     `json:"symbol"`
	Side          OrderSide  `json:"side"`
	Qty           int        `json:"qty"`
	Price         float64    `json:"price"`
	TS            time.Time  `json:"ts"`
	Reason        ExitReason `json:"reason"`
}

// AgentHB is the liveness record of one runtime component.
type AgentHB struct {
	Component       string          `json:"component"`
	Status          HeartbeatStatus `json:"status"`
	LastHeartbeatTS time.Time       `json:"last_heartbeat_ts"`
}

// RiskState is the daily loss-guard's aggregate view, recomputed from
// every position on each risk-engine evaluation.
type RiskState struct {
	Status           RiskStatus `json:"status"`
	RealizedRs       float64    `json:"realized_rs"`
	OpenRs           float64    `json:"open_rs"`
	DayPnLRs         float64    `json:"day_pnl_rs"`
	LossCapRs        float64    `json:"loss_cap_rs"`
	CanOpenNewTrades bool       `json:"can_open_new_trades"`
	Reason           string     `json:"reason"`
}
