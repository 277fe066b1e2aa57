// Package telemetry writes immutable per-signal logs and maintains the
// per-UTC-day index that makes outcome evaluation resumable.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/marketbrief/signal-engine/internal/confidence"
	"github.com/marketbrief/signal-engine/internal/observ"
	"github.com/marketbrief/signal-engine/internal/store"
)

// Log is the flattened, write-once snapshot of an emitted signal. It
// carries everything the outcome cron needs to resolve the signal later.
type Log struct {
	SignalID             string                `json:"signal_id"`
	TS                   time.Time             `json:"ts"`
	Symbol               string                `json:"symbol"`
	EventID              string                `json:"event_id"`
	ModelVersion         int                   `json:"model_version"`
	Action               string                `json:"signal"`
	Direction            string                `json:"direction"`
	Overall              int                   `json:"overall"`
	Grade                string                `json:"grade"`
	RuleCode             string                `json:"rule_code,omitempty"`
	Components           confidence.Components `json:"components"`
	RiskPerTradePct      float64               `json:"risk_per_trade_pct"`
	StopDistancePct      float64               `json:"stop_distance_pct"`
	SuggestedPositionPct float64               `json:"suggested_position_pct"`
	LatencyMs            int64                 `json:"latency_ms"`
}

// SignalID builds the identity tuple. The model version prefix makes
// every derived cache key version-partitioned automatically.
func SignalID(modelVersion int, eventID, symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		symbol = "UNKNOWN"
	}
	return fmt.Sprintf("%d:%s:%s", modelVersion, eventID, symbol)
}

// FromSignal flattens a freshly scored signal into a Log. Cache replays
// never reach here: the log is written once, when the signal is scored,
// so the timestamp that anchors outcome resolution cannot drift.
func FromSignal(sig *confidence.Signal, ts time.Time, latency time.Duration) Log {
	return Log{
		SignalID:             SignalID(sig.Meta.ModelVersion, sig.Meta.EventID, sig.Meta.Symbol),
		TS:                   ts.UTC(),
		Symbol:               strings.ToUpper(sig.Meta.Symbol),
		EventID:              sig.Meta.EventID,
		ModelVersion:         sig.Meta.ModelVersion,
		Action:               string(sig.Action),
		Direction:            sig.Meta.Direction,
		Overall:              sig.Confidence.Overall,
		Grade:                sig.Confidence.Grade,
		RuleCode:             sig.Meta.RuleCode,
		Components:           sig.Confidence.Components,
		RiskPerTradePct:      sig.Sizing.RiskPerTradePct,
		StopDistancePct:      sig.Sizing.StopDistancePct,
		SuggestedPositionPct: sig.Sizing.SuggestedPositionPct,
		LatencyMs:            latency.Milliseconds(),
	}
}

// Writer persists logs and the daily index through the Store.
type Writer struct {
	store store.Store
}

func NewWriter(s store.Store) *Writer {
	return &Writer{store: s}
}

// Write sets the immutable log and adds the signal ID to the day-scoped
// index, scored by epoch milliseconds. Re-adding the same member just
// refreshes its score; the index is only ever enumerated by date. The
// index TTL is refreshed on every write.
func (w *Writer) Write(ctx context.Context, lg Log) (string, error) {
	if lg.SignalID == "" {
		return "", fmt.Errorf("signal id is required")
	}
	if lg.TS.IsZero() {
		lg.TS = time.Now().UTC()
	}

	b, err := json.Marshal(lg)
	if err != nil {
		return "", fmt.Errorf("marshal telemetry log: %w", err)
	}
	if err := w.store.Set(ctx, store.TelemetryKey(lg.SignalID), string(b), store.TTLTelemetry); err != nil {
		return "", fmt.Errorf("set telemetry log: %w", err)
	}

	idxKey := store.DailyIndexKey(lg.TS.UTC().Format("2006-01-02"))
	if err := w.store.ZAdd(ctx, idxKey, float64(lg.TS.UnixMilli()), lg.SignalID); err != nil {
		return "", fmt.Errorf("index telemetry log: %w", err)
	}
	if err := w.store.Expire(ctx, idxKey, store.TTLDailyIndex); err != nil {
		return "", fmt.Errorf("refresh index ttl: %w", err)
	}

	observ.IncCounter("telemetry_write_total", map[string]string{"grade": lg.Grade})
	return lg.SignalID, nil
}

// Read loads one log; ok is false when it does not exist or has expired.
func (w *Writer) Read(ctx context.Context, signalID string) (*Log, bool, error) {
	raw, ok, err := w.store.Get(ctx, store.TelemetryKey(signalID))
	if err != nil || !ok {
		return nil, false, err
	}
	var lg Log
	if err := json.Unmarshal([]byte(raw), &lg); err != nil {
		return nil, false, fmt.Errorf("corrupt telemetry log %s: %w", signalID, err)
	}
	return &lg, true, nil
}

// ReadByDate enumerates the signal IDs indexed for one UTC date.
func (w *Writer) ReadByDate(ctx context.Context, date string) ([]string, error) {
	return w.store.ZRange(ctx, store.DailyIndexKey(date))
}
