package confidence

import "time"

// Direction is the thesis trade direction.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionNone  Direction = "NONE"
)

// Action is the final graded signal.
type Action string

const (
	ActionBuy   Action = "BUY"
	ActionSell  Action = "SELL"
	ActionAvoid Action = "AVOID"
	ActionWait  Action = "WAIT"
)

// Event carries the fields of a classified news event the engine scores
// against: identity, timing and how many independent updates corroborated it.
type Event struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	PublishedAt    time.Time `json:"published_at"`
	Corroborations int       `json:"corroborations"`
}

type EntryPlan struct {
	Type  string  `json:"type"` // "market", "limit", "wait"
	Level float64 `json:"level"`
}

type Invalidation struct {
	Level  float64 `json:"level"`
	Reason string  `json:"reason"`
}

// Thesis is the model-generated trade thesis. It is external input and is
// validated defensively: missing optional fields default, numeric fields
// clamp. A nil thesis or an unknown direction is a fatal scoring error.
type Thesis struct {
	Thesis       string       `json:"thesis"`
	Direction    Direction    `json:"direction"`
	Instrument   string       `json:"instrument"`
	TimeHorizon  string       `json:"time_horizon"`
	Entry        EntryPlan    `json:"entry"`
	Invalidation Invalidation `json:"invalidation"`
	Targets      []float64    `json:"targets"`
	Ambiguity    *float64     `json:"ambiguity"` // nil defaults to 0.3
	Hedged       bool         `json:"hedged"`
	Tickers      []string     `json:"tickers"`
	KeyRisks     []string     `json:"key_risks"`
}

// EchoContext is the historical pair-correlation edge for the instrument,
// with alignment judged relative to the thesis direction.
type EchoContext struct {
	Accuracy    float64 `json:"accuracy"`      // percent, 0..100
	Correlation float64 `json:"correlation"`   // -1..1
	AvgEchoMove float64 `json:"avg_echo_move"` // percent
	SampleSize  int     `json:"sample_size"`
	Alignment   string  `json:"alignment"` // "tailwind", "headwind", "neutral"
}

// MarketStats are the volatility proxies at scoring time.
type MarketStats struct {
	ATRPct       float64 `json:"atr_pct"`
	GapPct       float64 `json:"gap_pct"`
	CurrentPrice float64 `json:"current_price"`
	Symbol       string  `json:"symbol"`
}

// Components holds the five 0-100 integer component scores.
type Components struct {
	EchoEdge     int `json:"echoEdge"`
	EventClarity int `json:"eventClarity"`
	RegimeVol    int `json:"regimeVol"`
	GapRisk      int `json:"gapRisk"`
	Freshness    int `json:"freshness"`
}

// Breakdown is the explainable confidence result. Overall is a fixed
// convex combination of the components; Grade is a step function of it.
type Breakdown struct {
	Components Components `json:"components"`
	Overall    int        `json:"overall"`
	Grade      string     `json:"grade"` // A, B, C, D
	Notes      []string   `json:"notes"`
}

// SizingHint is the currency-free position sizing suggestion.
type SizingHint struct {
	RiskPerTradePct      float64  `json:"risk_per_trade_pct"`
	StopDistancePct      float64  `json:"stop_distance_pct"`
	SuggestedPositionPct float64  `json:"suggested_position_pct"`
	Notes                []string `json:"notes,omitempty"`
}

// Meta identifies the scoring run a Signal came from.
type Meta struct {
	ModelVersion int    `json:"model_version"`
	EventID      string `json:"event_id"`
	Symbol       string `json:"symbol"`
	Direction    string `json:"direction"`
	RuleCode     string `json:"rule_code"`
	EchoUsed     bool   `json:"echo_used"`
}

// Signal is the graded, explainable output of the engine.
type Signal struct {
	Action     Action     `json:"signal"`
	Confidence Breakdown  `json:"confidence"`
	Sizing     SizingHint `json:"sizing_hint"`
	Explain    []string   `json:"explain"`
	Meta       Meta       `json:"meta"`
}
